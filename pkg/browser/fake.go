package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Fake is an in-memory Surface for tests. Elements are keyed by Query.Expr.
// Hooks let a test model page reactions to navigation, clicks and keys.
type Fake struct {
	mu sync.Mutex

	URL      string
	Elements map[string][]Element
	Jar      []Cookie
	HTML     string
	PNG      []byte

	// EvalFunc produces the value for Evaluate. The value is JSON encoded and
	// decoded into the caller's out, so tests can return plain Go values.
	EvalFunc func(script string) (interface{}, error)

	OnNavigate func(f *Fake, url string)
	OnClick    func(f *Fake, el Element)
	OnKey      func(f *Fake, key string)
	OnReload   func(f *Fake)

	ScreenshotErr error
	MarkupErr     error
	NavigateErr   error

	Navigations []string
	Clicks      []Element
	Keys        []string
	Typed       map[string]string
	Evaluations []string
	Reloads     int

	nextID int64
}

// NewFake returns a Fake positioned at url.
func NewFake(url string) *Fake {
	return &Fake{
		URL:      url,
		Elements: make(map[string][]Element),
		Typed:    make(map[string]string),
	}
}

// Put makes q resolve to one element carrying text.
func (f *Fake) Put(q Query, text string) Element {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	el := Element{ID: f.nextID, Query: q, Text: text}
	f.Elements[q.Expr] = append(f.Elements[q.Expr], el)
	return el
}

// Remove makes q resolve to nothing.
func (f *Fake) Remove(q Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Elements, q.Expr)
}

// SetURL changes the current location without recording a navigation.
func (f *Fake) SetURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URL = url
}

func (f *Fake) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	if f.NavigateErr != nil {
		f.mu.Unlock()
		return f.NavigateErr
	}
	f.URL = url
	f.Navigations = append(f.Navigations, url)
	hook := f.OnNavigate
	f.mu.Unlock()

	if hook != nil {
		hook(f, url)
	}
	return nil
}

func (f *Fake) Reload(ctx context.Context) error {
	f.mu.Lock()
	f.Reloads++
	hook := f.OnReload
	f.mu.Unlock()

	if hook != nil {
		hook(f)
	}
	return ctx.Err()
}

func (f *Fake) CurrentURL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URL, ctx.Err()
}

func (f *Fake) Evaluate(ctx context.Context, script string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.Evaluations = append(f.Evaluations, script)
	eval := f.EvalFunc
	f.mu.Unlock()

	if eval == nil {
		return nil
	}
	value, err := eval(script)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("fake evaluate: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (f *Fake) Find(ctx context.Context, q Query) ([]Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	found := f.Elements[q.Expr]
	out := make([]Element, len(found))
	copy(out, found)
	return out, ctx.Err()
}

func (f *Fake) Text(ctx context.Context, el Element) (string, error) {
	return el.Text, ctx.Err()
}

func (f *Fake) Click(ctx context.Context, el Element) error {
	f.mu.Lock()
	f.Clicks = append(f.Clicks, el)
	hook := f.OnClick
	f.mu.Unlock()

	if hook != nil {
		hook(f, el)
	}
	return ctx.Err()
}

func (f *Fake) Type(ctx context.Context, el Element, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Typed[el.Query.Expr] += text
	return ctx.Err()
}

func (f *Fake) PressKey(ctx context.Context, key string) error {
	f.mu.Lock()
	f.Keys = append(f.Keys, key)
	hook := f.OnKey
	f.mu.Unlock()

	if hook != nil {
		hook(f, key)
	}
	return ctx.Err()
}

func (f *Fake) Cookies(ctx context.Context) ([]Cookie, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Cookie, len(f.Jar))
	copy(out, f.Jar)
	return out, ctx.Err()
}

func (f *Fake) SetCookie(ctx context.Context, c Cookie) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.Jar {
		if existing.Name == c.Name && existing.Domain == c.Domain {
			f.Jar[i] = c
			return ctx.Err()
		}
	}
	f.Jar = append(f.Jar, c)
	return ctx.Err()
}

func (f *Fake) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScreenshotErr != nil {
		return nil, f.ScreenshotErr
	}
	return f.PNG, ctx.Err()
}

func (f *Fake) Markup(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MarkupErr != nil {
		return "", f.MarkupErr
	}
	return f.HTML, ctx.Err()
}

// KeysPressed returns a copy of the keys pressed so far.
func (f *Fake) KeysPressed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Keys))
	copy(out, f.Keys)
	return out
}
