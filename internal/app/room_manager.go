package app

import (
	"sort"
	"sync"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManager owns the live sessions, at most one per room identifier.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.RoomSession
}

func NewRoomManager() *RoomManager {
	return &RoomManager{rooms: make(map[domain.RoomID]*core.RoomSession)}
}

// GetOrCreate returns the live session, creating it when absent.
func (m *RoomManager) GetOrCreate(id domain.RoomID) (*core.RoomSession, bool) {
	m.mu.RLock()
	s, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return s, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.rooms[id]; ok {
		return s, false
	}
	s = core.NewRoomSession(id)
	m.rooms[id] = s
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("call", s.UUID()).Msg("room session created")
	return s, true
}

func (m *RoomManager) Get(id domain.RoomID) (*core.RoomSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rooms[id]
	return s, ok
}

// Remove drops the entry only if it still points at s, so a stale teardown
// can never evict a newer session.
func (m *RoomManager) Remove(id domain.RoomID, s *core.RoomSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[id]; ok && cur == s {
		delete(m.rooms, id)
	}
}

func (m *RoomManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Sessions lists live sessions ordered by room identifier.
func (m *RoomManager) Sessions() []*core.RoomSession {
	m.mu.RLock()
	out := make([]*core.RoomSession, 0, len(m.rooms))
	for _, s := range m.rooms {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
