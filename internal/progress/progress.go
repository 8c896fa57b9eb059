// Package progress shows a spinner on the console while a stage's child
// process runs.
package progress

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const tick = 120 * time.Millisecond

// Tracker is notified when a stage starts and stops
type Tracker interface {
	Start(stage string)
	Stop()
}

// Nop is a Tracker that shows nothing
type Nop struct{}

func (Nop) Start(string) {}
func (Nop) Stop()        {}

// Spinner renders an indeterminate progress bar for the running stage
type Spinner struct {
	w io.Writer

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner creates a spinner drawing to w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w}
}

// Start begins spinning with the stage name as description. A running
// spinner is stopped first.
func (s *Spinner) Start(stage string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription(stage),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(tick),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
	s.done = make(chan struct{})

	bar, done := s.bar, s.done
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		t := time.NewTicker(tick)
		defer t.Stop()

		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()
}

// Stop halts and clears the spinner. It is a no-op when nothing spins.
func (s *Spinner) Stop() {
	s.mu.Lock()
	bar, done := s.bar, s.done
	s.bar, s.done = nil, nil
	s.mu.Unlock()

	if bar == nil {
		return
	}

	close(done)
	s.wg.Wait()
	_ = bar.Finish()
}
