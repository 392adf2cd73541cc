package ws

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathway/internal/domain/models/room"
)

func TestSendNeverBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBuffer = 2
	conn := NewConnection(nil, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	event := room.NewEvent(room.EventNewMessage, "room-1", nil)
	require.NoError(t, conn.Send(event))
	require.NoError(t, conn.Send(event))
	assert.ErrorIs(t, conn.Send(event), ErrSendBufferFull)

	conn.Close()
	conn.Close()
	assert.ErrorIs(t, conn.Send(event), ErrClosed)

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done not closed")
	}
}
