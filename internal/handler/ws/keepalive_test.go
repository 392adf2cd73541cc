package ws

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWriter struct {
	writes atomic.Int32
	failAt int32
}

func (w *countingWriter) WriteKeepAlive() error {
	n := w.writes.Add(1)
	if w.failAt > 0 && n >= w.failAt {
		return errors.New("peer gone")
	}
	return nil
}

func TestTickerKeepAliveStopsOnWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := &countingWriter{failAt: 3}

	k := NewTickerKeepAlive(5 * time.Millisecond)
	stopped := k.Start(writer, logger)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop after a failed write")
	}
	assert.Equal(t, int32(3), writer.writes.Load())
}

func TestTickerKeepAliveStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	writer := &countingWriter{}

	k := NewTickerKeepAlive(time.Hour)
	stopped := k.Start(writer, logger)

	k.Stop()
	k.Stop()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not stop")
	}
	require.Zero(t, writer.writes.Load())
}
