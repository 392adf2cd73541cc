package undo

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pathway/internal/clock"
)

func newStager(window time.Duration) (*Stager, *clock.Fake) {
	c := clock.NewFake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewStager(c, window, slog.New(slog.NewTextHandler(io.Discard, nil))), c
}

func TestStagerCommitsAfterWindow(t *testing.T) {
	s, c := newStager(5 * time.Second)

	committed := 0
	s.Stage("b1", func() { committed++ })
	assert.True(t, s.Pending("b1"))

	c.Advance(4 * time.Second)
	assert.Equal(t, 0, committed)

	c.Advance(time.Second)
	assert.Equal(t, 1, committed)
	assert.False(t, s.Pending("b1"))
	assert.False(t, s.Cancel("b1"), "cancel after commit reports nothing pending")
}

func TestStagerCancelWithinWindow(t *testing.T) {
	s, c := newStager(5 * time.Second)

	committed := false
	s.Stage("b1", func() { committed = true })

	c.Advance(3 * time.Second)
	assert.True(t, s.Cancel("b1"))

	c.Advance(10 * time.Second)
	assert.False(t, committed)
}

func TestStagerRestageReplaces(t *testing.T) {
	s, c := newStager(5 * time.Second)

	var calls []string
	s.Stage("b1", func() { calls = append(calls, "first") })
	c.Advance(3 * time.Second)
	s.Stage("b1", func() { calls = append(calls, "second") })

	c.Advance(3 * time.Second)
	assert.Empty(t, calls, "window restarted")

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"second"}, calls)
}

func TestStagerFlush(t *testing.T) {
	s, c := newStager(time.Minute)

	committed := map[string]bool{}
	s.Stage("a", func() { committed["a"] = true })
	s.Stage("b", func() { committed["b"] = true })

	s.Flush()
	assert.Equal(t, map[string]bool{"a": true, "b": true}, committed)
	assert.Equal(t, 0, c.Pending())
}
