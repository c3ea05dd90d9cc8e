package orch

import (
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Connect registers a fresh connection. It has no room yet.
func (o *Orchestrator) Connect(conn domain.ConnID) {
	unlock := o.lane(conn)
	defer unlock()
	log.Debug().Str("module", "orch").Str("conn", string(conn)).Msg("connected")
}

// Join puts conn into room, leaving its previous room first. Joining the room
// the connection is already in only refreshes its name.
func (o *Orchestrator) Join(conn domain.ConnID, room domain.RoomID, name string) {
	if conn == "" || room == "" {
		return
	}
	unlock := o.lane(conn)
	defer unlock()

	from, ok := o.Registry.Lookup(conn)
	if ok && from != room {
		o.leave(conn, from)
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("from_room", string(from)).Msg("switched rooms")
	}

	for {
		s, _ := o.Rooms.GetOrCreate(room)
		s.Lock()
		if s.Closed() {
			// torn down between lookup and lock; the manager already holds a new one
			s.Unlock()
			continue
		}
		o.joinLocked(s, conn, name)
		s.Unlock()
		break
	}
	o.verify(conn, from, room)
}

func (o *Orchestrator) joinLocked(s *core.RoomSession, conn domain.ConnID, name string) {
	refresh := s.Attendees().Has(conn)
	s.Attendees().Add(conn, name)
	o.Registry.Assign(conn, s.ID())

	if refresh {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Str("room", string(s.ID())).Msg("join refresh")
	} else {
		stored, _ := s.Attendees().Name(conn)
		o.emit(core.Outbound{
			Event:      core.EventUserJoined,
			Payload:    core.UserJoined{UserID: conn, Name: stored},
			Target:     core.ToRoomExcept(s.ID(), conn),
			Recipients: except(s.Attendees().Conns(), conn),
		})
		log.Info().Str("module", "orch").Str("conn", string(conn)).Str("room", string(s.ID())).
			Int("attendees", s.Attendees().Len()).Msg("joined")
	}
	o.broadcastRoomUsers(s)
}

// Rename is ignored for connections that are not in a room.
func (o *Orchestrator) Rename(conn domain.ConnID, name string) {
	unlock := o.lane(conn)
	defer unlock()

	room, ok := o.Registry.Lookup(conn)
	if !ok {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Msg("rename outside room ignored")
		return
	}
	s, ok := o.Rooms.Get(room)
	if !ok {
		return
	}
	s.Lock()
	defer s.Unlock()
	if s.Closed() || !s.Attendees().Rename(conn, name) {
		return
	}
	stored, _ := s.Attendees().Name(conn)
	o.emit(core.Outbound{
		Event:      core.EventUserNameUpdated,
		Payload:    core.UserNameUpdated{UserID: conn, Name: stored},
		Target:     core.ToRoomExcept(room, conn),
		Recipients: except(s.Attendees().Conns(), conn),
	})
	o.broadcastRoomUsers(s)
	log.Info().Str("module", "orch").Str("conn", string(conn)).Str("name", stored).Msg("renamed")
}

// Leave only acts when conn is currently in exactly room.
func (o *Orchestrator) Leave(conn domain.ConnID, room domain.RoomID) {
	unlock := o.lane(conn)
	defer unlock()

	cur, ok := o.Registry.Lookup(conn)
	if !ok || cur != room {
		log.Debug().Str("module", "orch").Str("conn", string(conn)).Str("room", string(room)).Msg("leave for foreign room ignored")
		return
	}
	o.leave(conn, room)
	o.verify(conn, room)
}

// Disconnect leaves the current room, if any, and forgets the connection.
func (o *Orchestrator) Disconnect(conn domain.ConnID) {
	unlock := o.lane(conn)
	if room, ok := o.Registry.Lookup(conn); ok {
		o.leave(conn, room)
		o.verify(conn, room)
	}
	o.lanes.Delete(conn)
	unlock()
	log.Debug().Str("module", "orch").Str("conn", string(conn)).Msg("disconnected")
}

// leave runs the full leave protocol. The caller holds conn's lane.
func (o *Orchestrator) leave(conn domain.ConnID, room domain.RoomID) {
	s, ok := o.Rooms.Get(room)
	if !ok {
		o.Registry.Clear(conn)
		return
	}
	s.Lock()
	defer s.Unlock()

	removed := s.Attendees().Remove(conn)
	o.Registry.Clear(conn)
	if !removed {
		return
	}

	remaining := s.Attendees().Conns()
	o.emit(core.Outbound{
		Event:      core.EventUserLeft,
		Payload:    conn,
		Target:     core.ToRoom(room),
		Recipients: remaining,
	})
	o.broadcastRoomUsers(s)
	log.Info().Str("module", "orch").Str("conn", string(conn)).Str("room", string(room)).
		Int("attendees", len(remaining)).Msg("left")

	if len(remaining) > 0 {
		return
	}
	job := s.Close()
	o.Rooms.Remove(room, s)
	if o.Finalizer != nil {
		o.Finalizer.Submit(job)
	}
}
