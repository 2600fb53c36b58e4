package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Spinner shows pipeline progress on a terminal. On anything that is not a
// terminal it stays silent so redirected output is never polluted.
type Spinner struct {
	mu      sync.Mutex
	writer  io.Writer
	title   string
	chars   []string
	index   int
	active  bool
	enabled bool
	width   int
	done    chan struct{}
	stopped chan struct{}
	color   *color.Color
}

// NewSpinner creates a spinner writing to w
func NewSpinner(w io.Writer, noColor bool) *Spinner {
	enabled := false
	if f, ok := w.(*os.File); ok {
		enabled = term.IsTerminal(int(f.Fd()))
	}
	c := color.New(color.FgCyan)
	if noColor {
		c.DisableColor()
	}
	return &Spinner{
		writer:  w,
		chars:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		enabled: enabled,
		color:   c,
	}
}

// Start begins animating with title
func (s *Spinner) Start(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.title = title
	if !s.enabled || s.active {
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go func(done, stopped chan struct{}) {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.render()
			case <-done:
				return
			}
		}
	}(s.done, s.stopped)
}

// Update changes the title shown next to the spinner
func (s *Spinner) Update(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
}

// Stop halts the animation and clears the line
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.done)
	stopped := s.stopped
	width := s.width
	s.mu.Unlock()

	<-stopped
	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", width))
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}

	char := s.chars[s.index]
	s.index = (s.index + 1) % len(s.chars)

	line := fmt.Sprintf("%s %s", s.color.Sprint(char), s.title)
	if n := len(char) + 1 + len(s.title); n > s.width {
		s.width = n
	}
	fmt.Fprintf(s.writer, "\r%s", line)
}
