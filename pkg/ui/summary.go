package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"igstories/pkg/stories"
)

var (
	summaryBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF00FF")).
			Padding(0, 1)

	summaryTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	summaryHeader = lipgloss.NewStyle().
			Bold(true).
			Underline(true)

	outcomeOK   = lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14"))
	outcomeWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6700"))
	outcomeBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// Summary collects batch results for the end-of-run report
type Summary struct {
	stories.NopObserver

	mu        sync.Mutex
	results   []stories.BatchResult
	startTime time.Time
}

// NewSummary starts a summary clock
func NewSummary() *Summary {
	return &Summary{startTime: time.Now()}
}

// BatchFinished implements stories.Observer
func (s *Summary) BatchFinished(res stories.BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

// Results returns a copy of the collected results
func (s *Summary) Results() []stories.BatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stories.BatchResult(nil), s.results...)
}

// TotalSaved sums the saved counts of every account
func (s *Summary) TotalSaved() int {
	n := 0
	for _, r := range s.Results() {
		n += r.Saved
	}
	return n
}

// Headline is a one-line description used for notifications
func (s *Summary) Headline() string {
	results := s.Results()
	return fmt.Sprintf("Saved %d stories from %d accounts", s.TotalSaved(), len(results))
}

// Render draws the per-account table inside a rounded box
func (s *Summary) Render() string {
	results := s.Results()

	nameWidth := len("ACCOUNT")
	for _, r := range results {
		if n := len(r.Account) + 1; n > nameWidth {
			nameWidth = n
		}
	}

	rows := []string{
		summaryTitle.Render("Run summary"),
		"",
		summaryHeader.Render(fmt.Sprintf("%-*s  %-18s  %5s  %6s", nameWidth, "ACCOUNT", "OUTCOME", "SAVED", "FRAMES")),
	}
	for _, r := range results {
		outcome := fmt.Sprintf("%-18s", r.Outcome.String())
		rows = append(rows, fmt.Sprintf("%-*s  %s  %5d  %6d",
			nameWidth, "@"+r.Account, outcomeStyle(r.Outcome).Render(outcome), r.Saved, r.Frames))
	}
	rows = append(rows, "", fmt.Sprintf("%d saved in %s", s.TotalSaved(), formatDuration(time.Since(s.startTime))))

	return summaryBox.Render(strings.Join(rows, "\n"))
}

func outcomeStyle(o stories.Outcome) lipgloss.Style {
	switch o {
	case stories.ExitedToFeed:
		return outcomeOK
	case stories.TooManyFailures:
		return outcomeBad
	default:
		return outcomeWarn
	}
}
