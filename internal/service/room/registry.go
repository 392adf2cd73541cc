package room

import (
	"sync"

	roomSvc "pathway/internal/domain/services/room"
)

// Member is one registered connection of a room
type Member struct {
	ParticipantID string
	Conn          roomSvc.Connection
}

// Registry is the process-local table of live connections, one per
// (room, participant). It is rebuilt by joins after a restart and never
// persisted.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]map[string]roomSvc.Connection
	metrics *Metrics
}

// NewRegistry creates an empty registry
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		rooms:   make(map[string]map[string]roomSvc.Connection),
		metrics: metrics,
	}
}

// Join registers conn for the participant and returns the connection it
// replaced, if any. The caller closes the replaced connection.
func (r *Registry) Join(roomID, participantID string, conn roomSvc.Connection) roomSvc.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]roomSvc.Connection)
		r.rooms[roomID] = members
	}

	prev := members[participantID]
	members[participantID] = conn
	if prev == nil {
		r.metrics.Connections.Inc()
	}
	return prev
}

// Leave removes the participant's connection if it is still connectionID.
// A stale leave from a replaced connection is ignored.
func (r *Registry) Leave(roomID, participantID, connectionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	conn, ok := members[participantID]
	if !ok || conn.ID() != connectionID {
		return false
	}

	delete(members, participantID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	r.metrics.Connections.Dec()
	return true
}

// Members returns a snapshot of the room's connections
func (r *Registry) Members(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]Member, 0, len(members))
	for pid, conn := range members {
		out = append(out, Member{ParticipantID: pid, Conn: conn})
	}
	return out
}

// IsConnected reports whether the participant has a live connection
func (r *Registry) IsConnected(roomID, participantID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][participantID]
	return ok
}

// Evict removes every connection of a room and returns them for closing
func (r *Registry) Evict(roomID string) []roomSvc.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	out := make([]roomSvc.Connection, 0, len(members))
	for _, conn := range members {
		out = append(out, conn)
	}
	delete(r.rooms, roomID)
	r.metrics.Connections.Sub(float64(len(out)))
	return out
}
