// Package spinner draws a one-line progress indicator on a terminal.
package spinner

import (
	"fmt"
	"io"
	"sync"
)

// Spinner struct holds the spinner state
type Spinner struct {
	mu     sync.Mutex
	w      io.Writer
	frames []string
	index  int
	width  int
}

// NewSpinner creates a new spinner writing to w
func NewSpinner(w io.Writer) *Spinner {
	// braille arrow sequence
	return &Spinner{
		w: w,
		frames: []string{
			"⣀⣀ ",
			"⣄⣀ ",
			"⣤⣀ ",
			"⣦⣄ ",
			"⣶⣤ ",
			"⣿⣦ ",
			"⣿⣷ ",
			"⣿⣿ ",
			"⣷⣿ ",
			"⣦⣿ ",
			"⣤⣷ ",
			"⣄⣦ ",
			"⣀⣤ ",
			"⣀⣄ ",
		},
	}
}

// Update advances the spinner to the next frame and prints it followed by
// label, overwriting the previous line.
func (s *Spinner) Update(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index == 0 && s.width == 0 {
		fmt.Fprint(s.w, "\033[?25l") // hide cursor
	}

	line := s.frames[s.index] + label
	pad := s.width - len(line)
	s.width = len(line)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(s.w, "\r%s%*s", line, pad, "")

	s.index = (s.index + 1) % len(s.frames)
}

// Progress shows how many of total images stage has handled.
func (s *Spinner) Progress(stage string, done, total int) {
	s.Update(fmt.Sprintf("%-8s %d/%d", stage, done, total))
}

// Cleanup clears the spinner line and shows the cursor
func (s *Spinner) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.w, "\r%*s\r", s.width, "")
	fmt.Fprint(s.w, "\033[?25h")
	s.width = 0
	s.index = 0
}
