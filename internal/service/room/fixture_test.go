package room

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"pathway/internal/clock"
	"pathway/internal/domain/models/room"
	"pathway/internal/domain/repositories"
	roomRepo "pathway/internal/domain/repositories/room"
	roomSvc "pathway/internal/domain/services/room"
	"pathway/internal/repository/memory"
	authsvc "pathway/internal/service/auth"
)

const (
	mentee   = "mentee-1"
	mentor   = "mentor-1"
	outsider = "user-9"
)

var errConnGone = errors.New("connection gone")

// fakeConn records every event it accepts
type fakeConn struct {
	id string

	mu      sync.Mutex
	events  []room.Event
	failing bool
	closed  bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{id: uuid.NewString()}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(event room.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing || c.closed {
		return errConnGone
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) setFailing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// received returns the types of accepted events in order
func (c *fakeConn) received() []room.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]room.EventType, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func (c *fakeConn) last() room.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

var _ roomSvc.Connection = (*fakeConn)(nil)

type fixture struct {
	clock    *clock.Fake
	metrics  *Metrics
	service  *Service
	parts    *Components
	messages roomRepo.MessageRepository
	rooms    roomRepo.RoomRepository
	tx       repositories.TransactionManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test wrap the room message repository
func newFixtureWith(t *testing.T, wrap func(roomRepo.MessageRepository) roomRepo.MessageRepository) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fake := clock.NewFake(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	metrics := NewMetrics(prometheus.NewRegistry())

	db := memory.NewDB()
	txManager := memory.NewTransactionManager(db)
	rooms := memory.NewRoomRepository(db)
	var messages roomRepo.MessageRepository = memory.NewRoomMessageRepository(db)
	if wrap != nil {
		messages = wrap(messages)
	}
	authorizer := authsvc.NewOwnerBasedAuthorizer(
		memory.NewConversationRepository(db),
		memory.NewBranchRepository(db),
		memory.NewMessageRepository(db),
		rooms,
	)

	parts := NewComponents(messages, txManager, fake, DefaultTypingWindow, metrics, logger)

	return &fixture{
		clock:    fake,
		metrics:  metrics,
		service:  NewService(rooms, messages, txManager, authorizer, parts, fake, logger),
		parts:    parts,
		messages: messages,
		rooms:    rooms,
		tx:       txManager,
	}
}

func (f *fixture) openRoom(t *testing.T) *room.Room {
	t.Helper()
	r, err := f.service.OpenRoom(context.Background(), &roomSvc.OpenRoomRequest{
		UserID:         mentee,
		ParticipantIDs: []string{mentee, mentor},
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) join(t *testing.T, roomID, userID string) *fakeConn {
	t.Helper()
	conn := newFakeConn()
	require.NoError(t, f.service.Join(context.Background(), roomID, userID, conn))
	return conn
}

func (f *fixture) send(t *testing.T, roomID, senderID, content string) *room.SendResult {
	t.Helper()
	res, err := f.service.SendMessage(context.Background(), &roomSvc.SendRoomMessageRequest{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	})
	require.NoError(t, err)
	return res
}
