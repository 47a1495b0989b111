package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while a request is in flight
type Spinner struct {
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewSpinner creates a stopped spinner
func NewSpinner(w io.Writer, message string, noColor bool) *Spinner {
	return &Spinner{
		writer:   w,
		message:  message,
		interval: 100 * time.Millisecond,
		noColor:  noColor,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the animation. Later calls, and calls after Stop, do nothing.
func (s *Spinner) Start() {
	s.startOnce.Do(func() { go s.animate() })
}

// Stop ends the animation and clears the line. Safe to call more than once,
// and before Start.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		started := true
		s.startOnce.Do(func() { started = false })
		close(s.stop)
		if !started {
			return
		}
		<-s.done
		fmt.Fprint(s.writer, "\r\033[K")
	})
}

func (s *Spinner) animate() {
	defer close(s.done)

	frame := newColor(s.noColor, color.FgCyan)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame.Fprintf(s.writer, "\r%s ", spinnerFrames[i%len(spinnerFrames)])
		fmt.Fprint(s.writer, s.message)

		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}
	}
}

// WithSpinner runs fn with a spinner on w unless disabled
func WithSpinner(w io.Writer, message string, enabled bool, fn func() error) error {
	if !enabled {
		return fn()
	}
	s := NewSpinner(w, message, false)
	s.Start()
	defer s.Stop()
	return fn()
}
