package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	statusRefreshInterval = 100 * time.Millisecond
	clearLineSequence     = "\r\033[K"
)

// StatusLine keeps one terminal line showing the current driver phase, the
// time spent in it and an optional live detail such as the sensor count:
//
//	Monitoring HibouAir sensors (Scanning 4s, 2 sensors)
//
// It is single-use: Start once, then SetPhase from any goroutine. Reaching a
// stop phase or calling Stop clears the line; further calls are no-ops.
type StatusLine struct {
	w          io.Writer
	prefix     string
	detail     func() string
	stopPhases map[string]bool

	mu         sync.Mutex
	phase      string
	phaseStart time.Time

	started atomic.Bool
	stopped atomic.Bool
	quit    chan struct{}
	done    chan struct{}
}

// NewStatusLine creates a status line. detail may be nil.
func NewStatusLine(w io.Writer, prefix string, detail func() string, stopPhases ...string) *StatusLine {
	stops := make(map[string]bool, len(stopPhases))
	for _, p := range stopPhases {
		stops[p] = true
	}
	return &StatusLine{
		w:          w,
		prefix:     prefix,
		detail:     detail,
		stopPhases: stops,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start draws the line in phase and refreshes it in the background.
// Panics if called more than once.
func (s *StatusLine) Start(phase string) {
	if !s.started.CompareAndSwap(false, true) {
		panic("StatusLine.Start called more than once")
	}
	s.setPhase(phase)
	s.draw()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(statusRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.quit:
				return
			case <-ticker.C:
				s.draw()
			}
		}
	}()
}

// SetPhase switches the displayed phase and restarts its timer. A stop phase
// stops the line.
func (s *StatusLine) SetPhase(phase string) {
	if s.stopPhases[phase] {
		s.Stop()
		return
	}
	s.setPhase(phase)
}

// Stop ends the refresh and clears the line.
func (s *StatusLine) Stop() {
	if !s.started.Load() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.quit)
	<-s.done
	fmt.Fprint(s.w, clearLineSequence)
}

func (s *StatusLine) setPhase(phase string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if phase != s.phase {
		s.phase = phase
		s.phaseStart = time.Now()
	}
}

// render returns the line text without the carriage return.
func (s *StatusLine) render() string {
	s.mu.Lock()
	phase, since := s.phase, time.Since(s.phaseStart)
	s.mu.Unlock()

	parts := []string{phase + "..."}
	if secs := int(since.Seconds()); secs > 0 {
		parts[0] = fmt.Sprintf("%s %ds", phase, secs)
	}
	if s.detail != nil {
		if d := s.detail(); d != "" {
			parts = append(parts, d)
		}
	}
	return fmt.Sprintf("%s (%s)", s.prefix, strings.Join(parts, ", "))
}

func (s *StatusLine) draw() {
	fmt.Fprintf(s.w, "%s%s", clearLineSequence, s.render())
}
