// Package extractor finds media URLs for the story frame currently shown in
// the viewer.
package extractor

import (
	"context"

	"igstories/pkg/browser"
	"igstories/pkg/errors"
)

// NetworkLog controls the in-page resource buffer. The page only appends to
// it; the controller only clears it.
type NetworkLog struct {
	surface browser.Surface
}

// NewNetworkLog binds the buffer of the page behind s
func NewNetworkLog(s browser.Surface) *NetworkLog {
	return &NetworkLog{surface: s}
}

// Install attaches the observer. Calling it again on the same document is a
// no-op.
func (n *NetworkLog) Install(ctx context.Context) error {
	if err := n.surface.Evaluate(ctx, SnifferScript, nil); err != nil {
		return errors.Wrap(errors.ErrorTypeEvaluation, "install network observer", err)
	}
	return nil
}

// Clear drops every buffered entry
func (n *NetworkLog) Clear(ctx context.Context) error {
	if err := n.surface.Evaluate(ctx, ClearScript, nil); err != nil {
		return errors.Wrap(errors.ErrorTypeEvaluation, "clear network log", err)
	}
	return nil
}

// Extractor samples the current frame
type Extractor struct {
	surface browser.Surface
	policy  Policy
}

func New(s browser.Surface, p Policy) *Extractor {
	return &Extractor{surface: s, policy: p}
}

// Pause freezes playback. Failures are ignored by callers; the outer retry
// loop covers frames that keep moving.
func (e *Extractor) Pause(ctx context.Context) error {
	if err := e.surface.Evaluate(ctx, PauseScript, nil); err != nil {
		return errors.Wrap(errors.ErrorTypeEvaluation, "pause playback", err)
	}
	return nil
}

// Signals reads the raw page signals
func (e *Extractor) Signals(ctx context.Context) (Signals, error) {
	var sig Signals
	if err := e.surface.Evaluate(ctx, IdentifyScript, &sig); err != nil {
		return Signals{}, errors.Wrap(errors.ErrorTypeEvaluation, "identify media", err)
	}
	return sig, nil
}

// Candidates pauses the frame and returns its ranked candidates
func (e *Extractor) Candidates(ctx context.Context) ([]Candidate, error) {
	_ = e.Pause(ctx)
	sig, err := e.Signals(ctx)
	if err != nil {
		return nil, err
	}
	return Rank(sig, e.policy), nil
}
