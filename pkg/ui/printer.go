package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"igstories/pkg/extractor"
	"igstories/pkg/storage"
	"igstories/pkg/stories"
)

// Printer writes one line per run event. In verbose mode controller state
// changes are printed too.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool

	startTime time.Time
	saved     int
	bytes     int64
}

// NewPrinter creates a printer writing to out
func NewPrinter(out io.Writer, verbose bool) *Printer {
	return &Printer{out: out, verbose: verbose, startTime: time.Now()}
}

func (p *Printer) AccountStarted(account string, index, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n%s %s\n", Magenta(fmt.Sprintf("[%d/%d]", index+1, total)), Cyan("@"+account))
}

func (p *Printer) StateChanged(account string, from, to stories.State) {
	if !p.verbose {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "  %s %s → %s\n", Dim("·"), Dim(from.String()), to.String())
}

func (p *Printer) ArtifactSaved(account string, art storage.Artifact, source extractor.SourceKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved++
	p.bytes += int64(art.Size)
	fmt.Fprintf(p.out, "  %s %s • %s • %s\n",
		Green("✓"),
		art.Filename,
		FormatBytes(int64(art.Size)),
		Dim(source.String()),
	)
}

func (p *Printer) BatchFinished(res stories.BatchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := Green(res.Outcome.String())
	switch res.Outcome {
	case stories.TooManyFailures:
		label = Red(res.Outcome.String())
	case stories.DriftedAccount, stories.NoContent:
		label = Yellow(res.Outcome.String())
	}

	fmt.Fprintf(p.out, "  %s %s: %d saved from %d frames in %s\n",
		Dim("•"),
		label,
		res.Saved,
		res.Frames,
		formatDuration(res.Elapsed),
	)
	if res.Diagnostic != "" {
		fmt.Fprintf(p.out, "  %s diagnostic: %s\n", Dim("•"), res.Diagnostic)
	}
}

// Totals returns what the printer has seen so far
func (p *Printer) Totals() (saved int, bytes int64, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved, p.bytes, time.Since(p.startTime)
}
