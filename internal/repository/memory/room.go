package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"pathway/internal/domain"
	"pathway/internal/domain/models/room"
	roomRepo "pathway/internal/domain/repositories/room"
)

// RoomRepository implements roomRepo.RoomRepository in memory
type RoomRepository struct {
	db *DB
}

// NewRoomRepository creates a room repository over db
func NewRoomRepository(db *DB) roomRepo.RoomRepository {
	return &RoomRepository{db: db}
}

func copyRoom(r *room.Room) *room.Room {
	out := *r
	out.ParticipantIDs = slices.Clone(r.ParticipantIDs)
	return &out
}

func (r *RoomRepository) CreateRoom(ctx context.Context, rm *room.Room) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if rm.ID == "" {
		rm.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = now
	}
	if rm.LastActivity.IsZero() {
		rm.LastActivity = rm.CreatedAt
	}
	r.db.rooms[rm.ID] = copyRoom(rm)
	return nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, roomID string) (*room.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rm, ok := r.db.rooms[roomID]
	if !ok {
		return nil, domain.NewNotFound("room", roomID)
	}
	return copyRoom(rm), nil
}

func (r *RoomRepository) FindRoomByParticipants(ctx context.Context, participantIDs []string) (*room.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	want := slices.Clone(participantIDs)
	slices.Sort(want)
	for _, rm := range r.db.rooms {
		have := slices.Clone(rm.ParticipantIDs)
		slices.Sort(have)
		if slices.Equal(want, have) {
			return copyRoom(rm), nil
		}
	}
	return nil, domain.NewNotFound("room", "")
}

func (r *RoomRepository) ListRoomsForParticipant(ctx context.Context, participantID string) ([]room.Room, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rooms := []room.Room{}
	for _, rm := range r.db.rooms {
		if rm.HasParticipant(participantID) {
			rooms = append(rooms, *copyRoom(rm))
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastActivity.After(rooms[j].LastActivity)
	})
	return rooms, nil
}

func (r *RoomRepository) SetActive(ctx context.Context, roomID string, active bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rm, ok := r.db.rooms[roomID]
	if !ok {
		return domain.NewNotFound("room", roomID)
	}
	rm.IsActive = active
	return nil
}

func (r *RoomRepository) TouchRoom(ctx context.Context, roomID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rm, ok := r.db.rooms[roomID]
	if !ok {
		return domain.NewNotFound("room", roomID)
	}
	rm.LastActivity = at
	return nil
}

// RoomMessageRepository implements roomRepo.MessageRepository in memory
type RoomMessageRepository struct {
	db *DB
}

// NewRoomMessageRepository creates a room message repository over db
func NewRoomMessageRepository(db *DB) roomRepo.MessageRepository {
	return &RoomMessageRepository{db: db}
}

func copyRoomMessage(m *room.Message) room.Message {
	out := *m
	if m.ReadAt != nil {
		at := *m.ReadAt
		out.ReadAt = &at
	}
	return out
}

func (r *RoomMessageRepository) LockRoom(ctx context.Context, roomID string) error {
	r.db.lockForTx(ctx, "room:"+roomID)
	return nil
}

func (r *RoomMessageRepository) LastMessageTime(ctx context.Context, roomID string) (*time.Time, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	log := r.db.roomMessages[roomID]
	if len(log) == 0 {
		return nil, nil
	}
	at := log[len(log)-1].CreatedAt
	return &at, nil
}

func (r *RoomMessageRepository) CreateMessage(ctx context.Context, msg *room.Message) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	stored := copyRoomMessage(msg)
	log := r.db.roomMessages[msg.RoomID]
	idx := sort.Search(len(log), func(i int) bool { return log[i].CreatedAt.After(stored.CreatedAt) })
	log = slices.Insert(log, idx, &stored)
	r.db.roomMessages[msg.RoomID] = log
	return nil
}

func (r *RoomMessageRepository) ListMessages(ctx context.Context, roomID string, offset, limit int) ([]room.Message, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	log := r.db.roomMessages[roomID]
	total := len(log)
	msgs := []room.Message{}
	if offset >= total {
		return msgs, total, nil
	}
	end := min(offset+limit, total)
	for _, m := range log[offset:end] {
		msgs = append(msgs, copyRoomMessage(m))
	}
	return msgs, total, nil
}

func (r *RoomMessageRepository) LastMessage(ctx context.Context, roomID string) (*room.Message, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	log := r.db.roomMessages[roomID]
	if len(log) == 0 {
		return nil, nil
	}
	out := copyRoomMessage(log[len(log)-1])
	return &out, nil
}

func (r *RoomMessageRepository) CountUnread(ctx context.Context, roomID, participantID string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n := 0
	for _, m := range r.db.roomMessages[roomID] {
		if m.SenderID != participantID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *RoomMessageRepository) MarkRead(ctx context.Context, roomID, readerID string, at time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n := 0
	for _, m := range r.db.roomMessages[roomID] {
		if m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			readAt := at
			m.ReadAt = &readAt
			n++
		}
	}
	return n, nil
}
