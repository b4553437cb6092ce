// Package stories walks the story viewer of each target account and saves
// every distinct frame once.
package stories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"igstories/pkg/browser"
	"igstories/pkg/config"
	"igstories/pkg/diag"
	igerrors "igstories/pkg/errors"
	"igstories/pkg/extractor"
	"igstories/pkg/fetch"
	"igstories/pkg/instagram"
	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
	"igstories/pkg/retry"
	"igstories/pkg/session"
	"igstories/pkg/storage"
)

// CandidateSource lists media candidates for the displayed frame
type CandidateSource interface {
	Candidates(ctx context.Context) ([]extractor.Candidate, error)
}

// NetworkBuffer is the in-page resource log owned by the controller
type NetworkBuffer interface {
	Install(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Fetcher downloads a candidate through the page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Payload, error)
}

// Store validates and persists payloads
type Store interface {
	Save(account, url, ext string, data []byte) (*storage.Artifact, error)
}

// Authenticator establishes the browser session before any batch runs
type Authenticator interface {
	Establish(ctx context.Context, sess session.Session) error
}

// Deps are the collaborators of a Controller. Surface, Candidates, Network,
// Fetcher and Store are required.
type Deps struct {
	Surface    browser.Surface
	Candidates CandidateSource
	Network    NetworkBuffer
	Fetcher    Fetcher
	Store      Store
	Sink       diag.Sink
	Pacer      *ratelimit.Pacer
	Observer   Observer
	Logger     logger.Logger
}

// Controller runs the batch state machine, one account at a time
type Controller struct {
	surface    browser.Surface
	candidates CandidateSource
	network    NetworkBuffer
	fetcher    Fetcher
	store      Store
	sink       diag.Sink
	pacer      *ratelimit.Pacer
	observer   Observer
	log        logger.Logger
	cfg        config.BatchConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// NewController wires a controller. Optional dependencies default to no-ops.
func NewController(cfg config.BatchConfig, d Deps) *Controller {
	c := &Controller{
		surface:    d.Surface,
		candidates: d.Candidates,
		network:    d.Network,
		fetcher:    d.Fetcher,
		store:      d.Store,
		sink:       d.Sink,
		pacer:      d.Pacer,
		observer:   d.Observer,
		log:        d.Logger,
		cfg:        cfg,
		sleep:      retry.Wait,
	}
	if c.sink == nil {
		c.sink = diag.Nop{}
	}
	if c.observer == nil {
		c.observer = NopObserver{}
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}
	if c.pacer == nil {
		c.pacer = ratelimit.NewPacer(cfg.AccountDelayMin, cfg.AccountDelayMax, nil)
	}
	if c.cfg.FailureCeiling <= 0 {
		c.cfg.FailureCeiling = 8
	}
	c.log = c.log.WithField("component", "stories")
	return c
}

// RunWithSession authenticates and then runs every target. An
// authentication failure aborts the run before any account is visited.
func (c *Controller) RunWithSession(ctx context.Context, auth Authenticator, sess session.Session, targets []string) ([]BatchResult, error) {
	if err := auth.Establish(ctx, sess); err != nil {
		c.sink.LogError("Session could not be established, aborting run", err, nil)
		return nil, err
	}
	return c.Run(ctx, targets)
}

// Run processes targets in order. It only returns an error when ctx ends;
// every account outcome is reported in the results.
func (c *Controller) Run(ctx context.Context, targets []string) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(targets))

	for i, account := range targets {
		if err := c.pacer.Acquire(ctx); err != nil {
			return results, err
		}

		c.observer.AccountStarted(account, i, len(targets))
		res, err := c.ProcessAccount(ctx, account)
		if err != nil {
			return results, err
		}
		results = append(results, res)
		c.observer.BatchFinished(res)

		if i < len(targets)-1 {
			d, err := c.pacer.Between(ctx)
			if err != nil {
				return results, err
			}
			c.log.WithField("delay", d.String()).Debug("Paused between accounts")
		}
	}
	return results, nil
}

// batch is the mutable state of one account's run
type batch struct {
	account string
	state   State
	history *History
	counts  BatchState
	result  BatchResult
}

// ProcessAccount runs the state machine for one account. The error is
// non-nil only when ctx ends.
func (c *Controller) ProcessAccount(ctx context.Context, account string) (BatchResult, error) {
	b := &batch{
		account: account,
		state:   Idle,
		history: NewHistory(),
		result:  BatchResult{Account: account, Started: time.Now()},
	}

	outcome, err := c.runBatch(ctx, b)
	if err != nil {
		return BatchResult{}, err
	}

	c.transition(b, Exiting)
	b.result.Outcome = outcome
	b.result.Saved = b.counts.Saved
	b.result.Elapsed = time.Since(b.result.Started)
	logger.LogBatchSummary(c.log, account, outcome.String(), b.counts.Saved, b.result.Elapsed)
	c.sink.LogInfo("Batch complete", map[string]interface{}{
		"account": account,
		"outcome": outcome.String(),
		"saved":   b.counts.Saved,
	})
	return b.result, nil
}

func (c *Controller) runBatch(ctx context.Context, b *batch) (Outcome, error) {
	c.transition(b, Checking)
	ring, ok, err := c.check(ctx, b)
	if err != nil || !ok {
		return NoContent, err
	}

	c.transition(b, Opening)
	if err := c.open(ctx, b, ring); err != nil {
		return 0, err
	}

	for {
		if outcome, done, err := c.checkLocation(ctx, b); err != nil || done {
			return outcome, err
		}

		c.transition(b, Extracting)
		frame, err := c.extractFrame(ctx, b)
		if err != nil {
			return 0, err
		}
		b.result.Frames++

		switch frame {
		case frameSaved:
			b.counts.ConsecutiveFailures = 0
			if err := c.network.Clear(ctx); err != nil {
				c.log.WithError(err).Warn("Network log not cleared")
			}
		default:
			b.counts.ConsecutiveFailures++
		}

		c.log.WithFields(map[string]interface{}{
			"account":  b.account,
			"frame":    frame.String(),
			"saved":    b.counts.Saved,
			"failures": b.counts.ConsecutiveFailures,
		}).Debug("Frame processed")

		if b.counts.ConsecutiveFailures >= c.cfg.FailureCeiling {
			c.sink.LogInfo("Too many consecutive failures, closing viewer", map[string]interface{}{
				"account":  b.account,
				"failures": b.counts.ConsecutiveFailures,
			})
			c.closeViewer(ctx)
			return TooManyFailures, ctx.Err()
		}

		c.transition(b, Advancing)
		if err := c.surface.PressKey(ctx, browser.KeyArrowRight); err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			c.log.WithError(err).Warn("Next key press failed")
		}
		if err := c.sleep(ctx, c.cfg.AdvanceDelay); err != nil {
			return 0, err
		}
	}
}

// check opens the account page and looks for the story ring
func (c *Controller) check(ctx context.Context, b *batch) (browser.Element, bool, error) {
	if err := c.surface.Navigate(ctx, instagram.GetUserProfileURL(b.account)); err != nil {
		if ctx.Err() != nil {
			return browser.Element{}, false, ctx.Err()
		}
		b.result.Diagnostic = diag.CaptureFailure(ctx, c.sink, c.surface, "unreachable_"+b.account, err)
		return browser.Element{}, false, nil
	}
	if err := c.sleep(ctx, c.cfg.SettleDelay); err != nil {
		return browser.Element{}, false, err
	}

	match, err := instagram.StoryRing.Resolve(ctx, c.surface)
	if err != nil {
		if ctx.Err() != nil {
			return browser.Element{}, false, ctx.Err()
		}
		c.sink.LogInfo("No stories found", map[string]interface{}{"account": b.account})
		b.result.Diagnostic = diag.CaptureFailure(ctx, c.sink, c.surface, "no_stories_"+b.account, err)
		return browser.Element{}, false, nil
	}
	c.sink.LogInfo("Story ring found", map[string]interface{}{
		"account": b.account,
		"probe":   match.Probe.Name,
	})
	return match.Element, true, nil
}

// open starts the viewer and resets per-account state. The network log is
// emptied before the click so profile page traffic never counts as a frame.
func (c *Controller) open(ctx context.Context, b *batch, ring browser.Element) error {
	b.history = NewHistory()
	b.counts = BatchState{}

	if err := c.network.Install(ctx); err != nil {
		c.log.WithError(err).Warn("Network observer not installed, relying on DOM signals")
	}
	if err := c.network.Clear(ctx); err != nil {
		c.log.WithError(err).Warn("Network log not cleared")
	}
	if err := c.surface.Click(ctx, ring); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("Story ring click failed")
	}
	return c.sleep(ctx, c.cfg.ViewerOpenDelay)
}

// checkLocation ends the batch when the viewer closed or moved to another
// account
func (c *Controller) checkLocation(ctx context.Context, b *batch) (Outcome, bool, error) {
	current, err := c.surface.CurrentURL(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0, true, ctx.Err()
		}
		c.log.WithError(err).Warn("Could not read viewer location")
		return 0, false, nil
	}

	if !instagram.IsStoriesURL(current) {
		c.sink.LogInfo("Viewer returned to feed", map[string]interface{}{"account": b.account, "url": current})
		return ExitedToFeed, true, nil
	}
	if owner, ok := instagram.StoryOwner(current); ok && !strings.EqualFold(owner, b.account) {
		c.sink.LogInfo("Viewer moved to another account", map[string]interface{}{
			"account": b.account,
			"owner":   owner,
		})
		c.closeViewer(ctx)
		return DriftedAccount, true, nil
	}
	return 0, false, nil
}

// extractFrame retries candidate extraction and download for the current
// frame until something is saved or the extract window closes
func (c *Controller) extractFrame(ctx context.Context, b *batch) (frameResult, error) {
	var lastErr error

	probe := func(ctx context.Context) (bool, bool, error) {
		cands, err := c.candidates.Candidates(ctx)
		if err != nil {
			lastErr = err
			return false, false, ctx.Err()
		}
		lastErr = nil

		for _, cand := range cands {
			if b.history.Contains(cand.URL) {
				continue
			}
			saved, err := c.download(ctx, b, cand)
			if saved {
				return true, true, nil
			}
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return false, false, ctx.Err()
			}
			lastErr = err
			if !igerrors.IsRetryableError(err) {
				// storage failures will not improve within this frame
				return false, true, nil
			}
		}
		return false, false, nil
	}

	saved, err := retry.PollUntil(ctx, c.cfg.ExtractInterval, c.cfg.ExtractTimeout, probe)
	switch {
	case saved:
		return frameSaved, nil
	case err != nil && !errors.Is(err, retry.ErrTimeout):
		return frameError, err
	case lastErr != nil:
		c.sink.LogError("Frame failed", lastErr, map[string]interface{}{"account": b.account})
		return frameError, nil
	default:
		return frameNoNewMedia, nil
	}
}

// download fetches and stores one candidate. Validation rejections are
// returned as errors and leave the URL out of the history so a later attempt
// can retry it.
func (c *Controller) download(ctx context.Context, b *batch, cand extractor.Candidate) (bool, error) {
	payload, err := c.fetcher.Fetch(ctx, cand.URL)
	if err != nil {
		return false, err
	}

	ext := extractor.Extension(cand.URL)
	art, err := c.store.Save(b.account, cand.URL, ext, payload.Data)
	logger.LogArtifact(c.log, b.account, artifactName(art), int64(len(payload.Data)), err)
	if err != nil {
		return false, err
	}

	b.history.Add(cand.URL)
	b.counts.Saved++
	b.result.Artifacts = append(b.result.Artifacts, *art)
	c.sink.LogInfo(fmt.Sprintf("Story #%d saved", b.counts.Saved), map[string]interface{}{
		"account":  b.account,
		"filename": art.Filename,
		"source":   cand.Source.String(),
		"bytes":    art.Size,
	})
	c.observer.ArtifactSaved(b.account, *art, cand.Source)
	return true, nil
}

func (c *Controller) closeViewer(ctx context.Context) {
	if err := c.surface.PressKey(ctx, browser.KeyEscape); err != nil {
		c.log.WithError(err).Warn("Viewer close key failed")
	}
}

func (c *Controller) transition(b *batch, to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	logger.LogTransition(c.log, b.account, from.String(), to.String())
	c.observer.StateChanged(b.account, from, to)
}

func artifactName(art *storage.Artifact) string {
	if art == nil {
		return ""
	}
	return art.Filename
}
