package stories

import (
	"time"

	"igstories/pkg/storage"
)

// State is a step of the per-account batch state machine
type State int

const (
	Idle State = iota
	Checking
	Opening
	Extracting
	Advancing
	Exiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Opening:
		return "opening"
	case Extracting:
		return "extracting"
	case Advancing:
		return "advancing"
	case Exiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Outcome is why a batch ended. Outcomes are normal control flow, not
// errors.
type Outcome int

const (
	// NoContent means the account had no story ring or could not be opened
	NoContent Outcome = iota + 1
	// ExitedToFeed means the viewer closed itself after the last story
	ExitedToFeed
	// DriftedAccount means the viewer moved on to another account's stories
	DriftedAccount
	// TooManyFailures means the consecutive failure ceiling was reached
	TooManyFailures
)

func (o Outcome) String() string {
	switch o {
	case NoContent:
		return "no_content"
	case ExitedToFeed:
		return "exited_to_feed"
	case DriftedAccount:
		return "drifted_account"
	case TooManyFailures:
		return "too_many_failures"
	default:
		return "unknown"
	}
}

// History is the set of normalized URLs saved during one account's batch
type History struct {
	seen map[string]struct{}
}

// NewHistory returns an empty history
func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// Add records u. It is only called after u was written.
func (h *History) Add(u string) { h.seen[u] = struct{}{} }

// Contains reports whether u was already saved
func (h *History) Contains(u string) bool {
	_, ok := h.seen[u]
	return ok
}

// BatchState counts progress of the current account
type BatchState struct {
	Saved               int
	ConsecutiveFailures int
}

// frameResult is the result of one Extracting visit
type frameResult int

const (
	frameSaved frameResult = iota
	frameNoNewMedia
	frameError
)

func (f frameResult) String() string {
	switch f {
	case frameSaved:
		return "saved"
	case frameNoNewMedia:
		return "no_new_media"
	default:
		return "error"
	}
}

// BatchResult summarizes one account
type BatchResult struct {
	Account   string
	Outcome   Outcome
	Saved     int
	Frames    int
	Artifacts []storage.Artifact
	// Diagnostic is the capture taken for a NoContent outcome
	Diagnostic string
	Started    time.Time
	Elapsed    time.Duration
}
