package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"pathway/internal/domain/models/room"
	roomSvc "pathway/internal/domain/services/room"
	"pathway/internal/handler/ws"
)

// RealtimeHandler upgrades room members to a websocket, registers the
// connection with the hub and relays their typing frames
type RealtimeHandler struct {
	rooms    roomSvc.RoomService
	cfg      *ws.Config
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRealtimeHandler creates a realtime handler. checkOrigin may be nil to
// accept any origin (CORS is enforced in front of the mux).
func NewRealtimeHandler(rooms roomSvc.RoomService, cfg *ws.Config, checkOrigin func(*http.Request) bool, logger *slog.Logger) *RealtimeHandler {
	if cfg == nil {
		cfg = ws.DefaultConfig()
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &RealtimeHandler{
		rooms: rooms,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger,
	}
}

// ServeRoom handles one realtime session
// GET /api/rooms/{id}/ws
func (h *RealtimeHandler) ServeRoom(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, ok := PathParam(w, r, "id", "Room ID")
	if !ok {
		return
	}

	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}

	conn := ws.NewConnection(socket, h.cfg, h.logger)
	ctx := context.WithoutCancel(r.Context())

	if err := h.rooms.Join(ctx, roomID, userID, conn); err != nil {
		socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(h.cfg.WriteWait))
		socket.Close()
		return
	}

	h.logger.Info("realtime session started",
		"room_id", roomID,
		"user_id", userID,
		"connection_id", conn.ID(),
	)

	go conn.WritePump()

	keepAlive := ws.NewTickerKeepAlive(h.cfg.PingInterval)
	keepAliveStopped := keepAlive.Start(conn, h.logger)
	go func() {
		select {
		case <-keepAliveStopped:
			conn.Close()
		case <-conn.Done():
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(h.cfg.EventsPerSecond), max(1, int(h.cfg.EventsPerSecond)))

	err = conn.ReadFrames(func(frame room.InboundFrame) {
		h.handleFrame(ctx, roomID, userID, frame, limiter)
	})
	if err != nil {
		h.logger.Debug("realtime session ended unexpectedly",
			"room_id", roomID,
			"connection_id", conn.ID(),
			"error", err,
		)
	}

	keepAlive.Stop()
	h.rooms.Leave(roomID, userID, conn.ID())
	conn.Close()

	h.logger.Info("realtime session ended",
		"room_id", roomID,
		"user_id", userID,
		"connection_id", conn.ID(),
	)
}

func (h *RealtimeHandler) handleFrame(ctx context.Context, roomID, userID string, frame room.InboundFrame, limiter *rate.Limiter) {
	var err error
	switch frame.Type {
	case room.FramePing:
		return
	case room.FrameTypingStart:
		if !limiter.Allow() {
			return
		}
		err = h.rooms.StartTyping(ctx, roomID, userID)
	case room.FrameTypingStop:
		// stops are never throttled so an indicator cannot get stuck
		err = h.rooms.StopTyping(ctx, roomID, userID)
	default:
		h.logger.Debug("unknown frame type", "type", frame.Type, "room_id", roomID)
		return
	}

	if err != nil {
		h.logger.Warn("typing signal rejected",
			"room_id", roomID,
			"user_id", userID,
			"frame", frame.Type,
			"error", err,
		)
	}
}
