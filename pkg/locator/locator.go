// Package locator resolves page elements through ordered fallback chains.
//
// A Chain is a list of probes tried in order; the first probe that matches
// wins. Each probe carries a live query for the browser and an equivalent
// CSS form that goquery can evaluate against saved markup, so the same chain
// can be checked against fixture HTML in tests and against diagnostic markup
// dumps offline.
package locator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"igstories/pkg/browser"
)

// ErrNotFound is returned when no probe in a chain matches.
var ErrNotFound = errors.New("no locator probe matched")

// Probe is one way of finding an element.
type Probe struct {
	Name string
	Live browser.Query
	// Offline is a goquery selector equivalent to Live.
	Offline string
	// Text, when set, restricts matches to elements whose text contains it
	// (case-insensitive).
	Text string
}

// CSS builds a probe whose live and offline forms are the same selector.
func CSS(name, selector string) Probe {
	return Probe{Name: name, Live: browser.ByCSS(selector), Offline: selector}
}

// XPath builds a probe for an XPath expression with its CSS equivalent used
// for offline matching.
func XPath(name, xpath, cssEquivalent string) Probe {
	return Probe{Name: name, Live: browser.ByXPath(xpath), Offline: cssEquivalent}
}

// TextMatch builds a probe for a tag whose text contains text.
func TextMatch(name, tag, text string) Probe {
	return Probe{
		Name:    name,
		Live:    browser.ByXPath(fmt.Sprintf("//%s[contains(text(), '%s')]", tag, text)),
		Offline: tag,
		Text:    text,
	}
}

func (p Probe) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.Live)
}

// MatchDocument reports how many nodes of doc the probe matches.
func (p Probe) MatchDocument(doc *goquery.Document) int {
	sel := doc.Find(p.Offline)
	if p.Text == "" {
		return sel.Length()
	}
	needle := strings.ToLower(p.Text)
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(strings.ToLower(s.Text()), needle)
	}).Length()
}

// Chain is an ordered list of probes for one logical element.
type Chain struct {
	Name   string
	Probes []Probe
}

// NewChain returns a chain trying probes in the given order.
func NewChain(name string, probes ...Probe) Chain {
	return Chain{Name: name, Probes: probes}
}

// Match is the result of a successful resolution.
type Match struct {
	Probe   Probe
	Element browser.Element
}

// Resolve tries each probe against the live page and returns the first
// element found. Probe errors are collected; ErrNotFound wraps them when
// nothing matched.
func (c Chain) Resolve(ctx context.Context, s browser.Surface) (Match, error) {
	var probeErrs []error
	for _, p := range c.Probes {
		els, err := s.Find(ctx, p.Live)
		if err != nil {
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			probeErrs = append(probeErrs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		for _, el := range els {
			if p.Text != "" && !textContains(ctx, s, el, p.Text) {
				continue
			}
			return Match{Probe: p, Element: el}, nil
		}
	}

	if len(probeErrs) > 0 {
		return Match{}, fmt.Errorf("%s: %w: %w", c.Name, ErrNotFound, errors.Join(probeErrs...))
	}
	return Match{}, fmt.Errorf("%s: %w", c.Name, ErrNotFound)
}

// Present reports whether any probe of the chain matches the live page.
func (c Chain) Present(ctx context.Context, s browser.Surface) (bool, error) {
	_, err := c.Resolve(ctx, s)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func textContains(ctx context.Context, s browser.Surface, el browser.Element, needle string) bool {
	text := el.Text
	if text == "" {
		t, err := s.Text(ctx, el)
		if err != nil {
			return false
		}
		text = t
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(needle))
}

// ProbeResult is one row of a chain report.
type ProbeResult struct {
	Probe   Probe
	Matches int
}

// Report evaluates every probe of the chain against doc. The first row with
// Matches > 0 is the one Resolve would pick on the live page.
func (c Chain) Report(doc *goquery.Document) []ProbeResult {
	results := make([]ProbeResult, 0, len(c.Probes))
	for _, p := range c.Probes {
		results = append(results, ProbeResult{Probe: p, Matches: p.MatchDocument(doc)})
	}
	return results
}

// ResolveDocument returns the first probe matching doc.
func (c Chain) ResolveDocument(doc *goquery.Document) (Probe, bool) {
	for _, p := range c.Probes {
		if p.MatchDocument(doc) > 0 {
			return p, true
		}
	}
	return Probe{}, false
}

// ParseMarkup parses an HTML document for offline matching.
func ParseMarkup(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return doc, nil
}
