// Package progress shows long-running packaging activity on the terminal.
package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter shows the current packaging stage to the user. Packaging jobs
// have no meaningful byte total up front, so the reporter is a spinner with
// a description, not a bar.
type Reporter interface {
	Describe(stage string)
	Finish()
}

// Spinner is the terminal Reporter.
type Spinner struct {
	bar *progressbar.ProgressBar
}

// NewSpinner starts a spinner on stderr.
func NewSpinner(stage string) *Spinner {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(stage),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	return &Spinner{bar: bar}
}

func (s *Spinner) Describe(stage string) {
	s.bar.Describe(stage)
}

func (s *Spinner) Finish() {
	_ = s.bar.Finish()
}

// NoOp is the Reporter for non-terminal output (pipes, cron).
type NoOp struct{}

func (NoOp) Describe(stage string) {}
func (NoOp) Finish()               {}

// New returns a Spinner when stderr is a terminal, a NoOp otherwise.
func New(stage string) Reporter {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return NewSpinner(stage)
	}
	return NoOp{}
}
