package handler

import (
	"context"
	"log/slog"
	"net/http"

	"pathway/internal/config"
	roomSvc "pathway/internal/domain/services/room"
	"pathway/internal/httputil"
)

// RoomHandler handles room HTTP requests
type RoomHandler struct {
	rooms  roomSvc.RoomService
	logger *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms roomSvc.RoomService, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		logger: logger,
	}
}

// OpenRoom opens the room for an accepted mentor connection
// POST /api/rooms
func (h *RoomHandler) OpenRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req roomSvc.OpenRoomRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.UserID = userID

	rm, err := h.rooms.OpenRoom(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rm)
}

// ListRooms returns the caller's rooms with unread counts
// GET /api/rooms
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rooms, err := h.rooms.ListRooms(r.Context(), userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rooms)
}

// DeactivateRoom closes a room for new messages
// DELETE /api/rooms/{id}
func (h *RoomHandler) DeactivateRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	rm, err := h.rooms.DeactivateRoom(r.Context(), roomID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, rm)
}

// GetMessages returns one page of history and the caller's unread counter
// GET /api/rooms/{id}/messages?page=&limit=
func (h *RoomHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	page := QueryInt(r, "page", 1, 1, 1<<20)
	limit := QueryInt(r, "limit", config.DefaultPageSize, 1, config.MaxPageSize)

	result, err := h.rooms.GetMessages(r.Context(), roomID, userID, page, limit)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// SendMessage posts a message to the room
// POST /api/rooms/{id}/messages
func (h *RoomHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	var req roomSvc.SendRoomMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.RoomID = roomID
	req.SenderID = userID

	result, err := h.rooms.SendMessage(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// MarkRead acknowledges every unread message for the caller
// POST /api/rooms/{id}/read
func (h *RoomHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	result, err := h.rooms.MarkRead(r.Context(), roomID, userID)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// StartTyping signals typing presence
// POST /api/rooms/{id}/typing
func (h *RoomHandler) StartTyping(w http.ResponseWriter, r *http.Request) {
	h.typing(w, r, h.rooms.StartTyping)
}

// StopTyping clears typing presence
// DELETE /api/rooms/{id}/typing
func (h *RoomHandler) StopTyping(w http.ResponseWriter, r *http.Request) {
	h.typing(w, r, h.rooms.StopTyping)
}

func (h *RoomHandler) typing(w http.ResponseWriter, r *http.Request, signal func(ctx context.Context, roomID, userID string) error) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	if err := signal(r.Context(), roomID, userID); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
