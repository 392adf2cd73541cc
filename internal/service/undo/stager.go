// Package undo stages destructive operations behind a cancellable timer.
// A staged delete commits when its window elapses unless Cancel wins first.
package undo

import (
	"log/slog"
	"sync"
	"time"

	"pathway/internal/clock"
)

// Stager owns the pending timers, keyed by resource id
type Stager struct {
	clock  clock.Clock
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*entry
}

type entry struct {
	timer  clock.Timer
	commit func()
}

// NewStager creates a stager with the given undo window
func NewStager(c clock.Clock, window time.Duration, logger *slog.Logger) *Stager {
	return &Stager{
		clock:   c,
		window:  window,
		logger:  logger,
		pending: make(map[string]*entry),
	}
}

// Window returns the undo window
func (s *Stager) Window() time.Duration {
	return s.window
}

// Stage schedules commit for key. Staging a key that is already pending
// replaces the earlier commit and restarts the window.
func (s *Stager) Stage(key string, commit func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[key]; ok {
		prev.timer.Stop()
	}

	e := &entry{commit: commit}
	e.timer = s.clock.AfterFunc(s.window, func() { s.fire(key, e) })
	s.pending[key] = e
}

// fire runs the commit if e is still the pending entry for key
func (s *Stager) fire(key string, e *entry) {
	s.mu.Lock()
	if s.pending[key] != e {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.mu.Unlock()

	e.commit()
}

// Cancel aborts a pending commit. It returns false when nothing is pending,
// either because the key was never staged or the window already elapsed.
func (s *Stager) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	e.timer.Stop()
	return true
}

// Pending reports whether key has a commit waiting
func (s *Stager) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Flush commits everything still pending immediately. Used on shutdown so
// soft-deleted records do not outlive the process that staged them.
func (s *Stager) Flush() {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.pending))
	for key, e := range s.pending {
		e.timer.Stop()
		entries = append(entries, e)
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if len(entries) > 0 {
		s.logger.Info("flushing staged deletes", "count", len(entries))
	}
	for _, e := range entries {
		e.commit()
	}
}
