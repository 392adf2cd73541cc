package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"pathway/internal/clock"
	"pathway/internal/config"
	"pathway/internal/domain"
	"pathway/internal/domain/models/room"
	"pathway/internal/domain/repositories"
	roomRepo "pathway/internal/domain/repositories/room"
	"pathway/internal/domain/services"
	roomSvc "pathway/internal/domain/services/room"
)

// timePrecision matches timestamptz so ordering survives a round trip
const timePrecision = time.Microsecond

// Service implements RoomService by composing the registry, hub, unread
// tracker, read receipts and typing coordinator over the room repositories
type Service struct {
	rooms      roomRepo.RoomRepository
	messages   roomRepo.MessageRepository
	txManager  repositories.TransactionManager
	authorizer services.ResourceAuthorizer

	registry *Registry
	hub      *Hub
	unread   *UnreadTracker
	receipts *ReadReceiptService
	typing   *TypingCoordinator

	clock  clock.Clock
	logger *slog.Logger

	openMu sync.Mutex
}

// Components are the realtime parts the service composes
type Components struct {
	Registry *Registry
	Hub      *Hub
	Unread   *UnreadTracker
	Receipts *ReadReceiptService
	Typing   *TypingCoordinator
}

// NewComponents wires the realtime parts together
func NewComponents(
	messages roomRepo.MessageRepository,
	txManager repositories.TransactionManager,
	c clock.Clock,
	typingWindow time.Duration,
	metrics *Metrics,
	logger *slog.Logger,
) *Components {
	registry := NewRegistry(metrics)
	hub := NewHub(registry, metrics, logger)
	unread := NewUnreadTracker(messages, txManager)
	return &Components{
		Registry: registry,
		Hub:      hub,
		Unread:   unread,
		Receipts: NewReadReceiptService(messages, txManager, unread, hub, c, logger),
		Typing:   NewTypingCoordinator(hub, c, typingWindow, metrics),
	}
}

// NewService creates the room service
func NewService(
	rooms roomRepo.RoomRepository,
	messages roomRepo.MessageRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	components *Components,
	c clock.Clock,
	logger *slog.Logger,
) *Service {
	return &Service{
		rooms:      rooms,
		messages:   messages,
		txManager:  txManager,
		authorizer: authorizer,
		registry:   components.Registry,
		hub:        components.Hub,
		unread:     components.Unread,
		receipts:   components.Receipts,
		typing:     components.Typing,
		clock:      c,
		logger:     logger,
	}
}

var _ roomSvc.RoomService = (*Service)(nil)

// OpenRoom returns the room for this participant set, creating or
// reactivating it as needed
func (s *Service) OpenRoom(ctx context.Context, req *roomSvc.OpenRoomRequest) (*room.Room, error) {
	participants := normalizeParticipants(req.ParticipantIDs)
	if err := validation.Validate(req.UserID, validation.Required); err != nil {
		return nil, fmt.Errorf("%w: user_id: %v", domain.ErrValidation, err)
	}
	if err := validation.Validate(participants,
		validation.Required,
		validation.Length(2, config.MaxRoomParticipants),
	); err != nil {
		return nil, fmt.Errorf("%w: participant_ids: %v", domain.ErrValidation, err)
	}
	if !slices.Contains(participants, req.UserID) {
		return nil, &domain.ValidationError{Message: "caller must be a participant of the room"}
	}

	s.openMu.Lock()
	defer s.openMu.Unlock()

	existing, err := s.rooms.FindRoomByParticipants(ctx, participants)
	switch {
	case err == nil:
		if !existing.IsActive {
			if err := s.rooms.SetActive(ctx, existing.ID, true); err != nil {
				return nil, err
			}
			existing.IsActive = true
			s.logger.Info("room reactivated", "id", existing.ID)
		}
		return existing, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	now := s.clock.Now().Truncate(timePrecision)
	r := &room.Room{
		ParticipantIDs: participants,
		IsActive:       true,
		LastActivity:   now,
		CreatedAt:      now,
	}
	if err := s.rooms.CreateRoom(ctx, r); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// another process opened it first
			return s.rooms.FindRoomByParticipants(ctx, participants)
		}
		return nil, err
	}

	s.logger.Info("room opened",
		"id", r.ID,
		"participants", len(participants),
	)

	return r, nil
}

// DeactivateRoom marks the room inactive, tells connected members and
// drops their connections
func (s *Service) DeactivateRoom(ctx context.Context, roomID, userID string) (*room.Room, error) {
	r, err := s.authorizer.CanAccessRoom(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return r, nil
	}

	if err := s.rooms.SetActive(ctx, roomID, false); err != nil {
		return nil, err
	}
	r.IsActive = false

	s.typing.ClearRoom(roomID)
	s.hub.Broadcast(room.NewEvent(room.EventRoomDeactivated, roomID, map[string]string{"by": userID}))
	for _, conn := range s.registry.Evict(roomID) {
		conn.Close()
	}

	s.logger.Info("room deactivated",
		"id", roomID,
		"by", userID,
	)

	return r, nil
}

// ListRooms returns the caller's rooms with last message and unread counter
func (s *Service) ListRooms(ctx context.Context, userID string) ([]room.Summary, error) {
	rooms, err := s.rooms.ListRoomsForParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]room.Summary, 0, len(rooms))
	for _, r := range rooms {
		last, err := s.messages.LastMessage(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.unread.Get(ctx, r.ID, userID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, room.Summary{
			Room:        r,
			LastMessage: last,
			UnreadCount: unread,
		})
	}
	return summaries, nil
}

// GetMessages returns one page of history, oldest first, and the caller's
// unread counter. page starts at 1; limit 0 uses the default page size.
func (s *Service) GetMessages(ctx context.Context, roomID, userID string, page, limit int) (*room.MessagePage, error) {
	if limit == 0 {
		limit = config.DefaultPageSize
	}
	if page == 0 {
		page = 1
	}
	if err := validation.Validate(page, validation.Min(1)); err != nil {
		return nil, fmt.Errorf("%w: page: %v", domain.ErrValidation, err)
	}
	if err := validation.Validate(limit, validation.Min(1), validation.Max(config.MaxPageSize)); err != nil {
		return nil, fmt.Errorf("%w: limit: %v", domain.ErrValidation, err)
	}

	if _, err := s.authorizer.CanAccessRoom(ctx, userID, roomID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	msgs, total, err := s.messages.ListMessages(ctx, roomID, offset, limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.unread.Get(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}

	return &room.MessagePage{
		RoomID:      roomID,
		Messages:    msgs,
		Page:        page,
		Limit:       limit,
		Total:       total,
		HasMore:     offset+len(msgs) < total,
		UnreadCount: unread,
	}, nil
}

// SendMessage persists the message, bumps the other members' counters and
// broadcasts it. The broadcast never fails the send.
func (s *Service) SendMessage(ctx context.Context, req *roomSvc.SendRoomMessageRequest) (*room.SendResult, error) {
	req.Content = strings.TrimSpace(req.Content)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.RoomID, validation.Required),
		validation.Field(&req.SenderID, validation.Required),
		validation.Field(&req.Content, validation.Required, validation.Length(1, config.MaxRoomMessageLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	r, err := s.authorizer.CanAccessRoom(ctx, req.SenderID, req.RoomID)
	if err != nil {
		return nil, err
	}
	if !r.IsActive {
		return nil, &domain.ValidationError{Message: "room is not active"}
	}

	msg := &room.Message{
		RoomID:   r.ID,
		SenderID: req.SenderID,
		Content:  req.Content,
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.LockRoom(txCtx, r.ID); err != nil {
			return err
		}

		// createdAt is strictly increasing within a room
		now := s.clock.Now().Truncate(timePrecision)
		last, err := s.messages.LastMessageTime(txCtx, r.ID)
		if err != nil {
			return err
		}
		if last != nil && !now.After(*last) {
			now = last.Add(timePrecision)
		}
		msg.CreatedAt = now

		if err := s.messages.CreateMessage(txCtx, msg); err != nil {
			return err
		}
		if err := s.rooms.TouchRoom(txCtx, r.ID, now); err != nil {
			return err
		}

		for _, pid := range r.OtherParticipants(req.SenderID) {
			if _, err := s.unread.Increment(txCtx, r.ID, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.unread.Forget(r.ID)
		return nil, err
	}

	s.typing.Suppress(r.ID, req.SenderID)
	delivered := s.hub.Broadcast(room.NewEvent(room.EventNewMessage, r.ID, msg), req.SenderID)

	s.logger.Info("room message sent",
		"id", msg.ID,
		"room_id", r.ID,
		"sender_id", req.SenderID,
		"delivered", delivered,
	)

	senderUnread, err := s.unread.Get(ctx, r.ID, req.SenderID)
	if err != nil {
		return nil, err
	}

	return &room.SendResult{Message: msg, UnreadCount: senderUnread}, nil
}

// MarkRead acknowledges the caller's unread messages
func (s *Service) MarkRead(ctx context.Context, roomID, userID string) (*room.ReadResult, error) {
	if _, err := s.authorizer.CanAccessRoom(ctx, userID, roomID); err != nil {
		return nil, err
	}
	return s.receipts.MarkRead(ctx, roomID, userID)
}

// StartTyping records typing presence for the caller
func (s *Service) StartTyping(ctx context.Context, roomID, userID string) error {
	r, err := s.authorizer.CanAccessRoom(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if !r.IsActive {
		return &domain.ValidationError{Message: "room is not active"}
	}
	s.typing.Start(roomID, userID)
	return nil
}

// StopTyping clears typing presence for the caller
func (s *Service) StopTyping(ctx context.Context, roomID, userID string) error {
	if _, err := s.authorizer.CanAccessRoom(ctx, userID, roomID); err != nil {
		return err
	}
	s.typing.Stop(roomID, userID)
	return nil
}

// Join registers a live connection for a member of an active room. A
// previous connection of the same participant is closed.
func (s *Service) Join(ctx context.Context, roomID, userID string, conn roomSvc.Connection) error {
	r, err := s.authorizer.CanAccessRoom(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if !r.IsActive {
		return &domain.ValidationError{Message: "room is not active"}
	}

	if prev := s.registry.Join(roomID, userID, conn); prev != nil {
		prev.Close()
	}

	s.logger.Debug("connection joined",
		"room_id", roomID,
		"participant_id", userID,
		"connection_id", conn.ID(),
	)
	return nil
}

// Leave unregisters a connection; a participant typing at that moment is
// reported as stopped
func (s *Service) Leave(roomID, userID, connectionID string) {
	if !s.registry.Leave(roomID, userID, connectionID) {
		return
	}
	s.typing.Stop(roomID, userID)

	s.logger.Debug("connection left",
		"room_id", roomID,
		"participant_id", userID,
		"connection_id", connectionID,
	)
}

func normalizeParticipants(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
