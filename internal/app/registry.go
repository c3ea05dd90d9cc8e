package app

import (
	"sync"

	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry is the session registry: connection -> current room.
// A connection is a key here iff it is an attendee of that room's live
// session; the coordinator changes both under the room lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.ConnID]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.ConnID]domain.RoomID),
	}
}

// Assign maps the connection to room, replacing any previous mapping.
// Leaving the previous room is the coordinator's job.
func (r *Registry) Assign(conn domain.ConnID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn] = room
	log.Debug().Str("module", "app.registry").Str("conn", string(conn)).Str("room", string(room)).Msg("assigned")
}

func (r *Registry) Lookup(conn domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.sessions[conn]
	return room, ok
}

// Clear is a no-op for unknown connections.
func (r *Registry) Clear(conn domain.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn]; !ok {
		return
	}
	delete(r.sessions, conn)
	log.Debug().Str("module", "app.registry").Str("conn", string(conn)).Msg("cleared")
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ConnID, 0)
	for conn, rm := range r.sessions {
		if rm == room {
			out = append(out, conn)
		}
	}
	return out
}

// Snapshot copies the whole mapping.
func (r *Registry) Snapshot() map[domain.ConnID]domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.ConnID]domain.RoomID, len(r.sessions))
	for k, v := range r.sessions {
		out[k] = v
	}
	return out
}
