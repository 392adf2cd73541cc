package room

import (
	"log/slog"
	"slices"

	"pathway/internal/domain"
	"pathway/internal/domain/models/room"
)

// Hub fans events out to the live connections of a room. Delivery is
// best-effort and at most once: a failed send is logged and counted, never
// retried and never returned. Clients reconcile by refetching history.
type Hub struct {
	registry *Registry
	metrics  *Metrics
	logger   *slog.Logger
}

// NewHub creates a hub over registry
func NewHub(registry *Registry, metrics *Metrics, logger *slog.Logger) *Hub {
	return &Hub{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Broadcast sends event to every connection of its room except the listed
// participants and returns how many connections accepted it
func (h *Hub) Broadcast(event room.Event, except ...string) int {
	delivered := 0
	for _, m := range h.registry.Members(event.RoomID) {
		if slices.Contains(except, m.ParticipantID) {
			continue
		}

		if err := m.Conn.Send(event); err != nil {
			h.dropped(&domain.DeliveryFailure{
				RoomID:        event.RoomID,
				ParticipantID: m.ParticipantID,
				Event:         string(event.Type),
				Err:           err,
			})
			continue
		}

		delivered++
		h.metrics.EventsDelivered.WithLabelValues(string(event.Type)).Inc()
	}
	return delivered
}

func (h *Hub) dropped(failure *domain.DeliveryFailure) {
	h.metrics.DeliveryFailures.WithLabelValues(failure.Event).Inc()
	h.logger.Warn("realtime delivery failed",
		"room_id", failure.RoomID,
		"participant_id", failure.ParticipantID,
		"event", failure.Event,
		"error", failure.Err,
	)
}
