package orch

import (
	"fmt"

	"github.com/dkeye/meetsync/internal/domain"
)

// CheckInvariants compares the registry with every live session. Only
// meaningful when no events are in flight.
func (o *Orchestrator) CheckInvariants() error {
	members := make(map[domain.ConnID]domain.RoomID)
	for _, s := range o.Rooms.Sessions() {
		s.Lock()
		closed, conns := s.Closed(), s.Attendees().Conns()
		s.Unlock()
		if closed {
			return fmt.Errorf("room %s: closed session still registered", s.ID())
		}
		if len(conns) == 0 {
			return fmt.Errorf("room %s: live session without attendees", s.ID())
		}
		for _, c := range conns {
			if other, dup := members[c]; dup {
				return fmt.Errorf("conn %s: attendee of %s and %s", c, other, s.ID())
			}
			members[c] = s.ID()
		}
	}
	reg := o.Registry.Snapshot()
	for c, room := range reg {
		got, ok := members[c]
		if !ok {
			return fmt.Errorf("conn %s: registered to %s but attends no room", c, room)
		}
		if got != room {
			return fmt.Errorf("conn %s: registered to %s but attends %s", c, room, got)
		}
	}
	for c, room := range members {
		if _, ok := reg[c]; !ok {
			return fmt.Errorf("conn %s: attends %s but is not registered", c, room)
		}
	}
	return nil
}

// verify checks conn against the given rooms. The caller holds conn's lane,
// so nothing else can be moving it.
func (o *Orchestrator) verify(conn domain.ConnID, rooms ...domain.RoomID) {
	if !o.DebugInvariants {
		return
	}
	mapped, hasMapping := o.Registry.Lookup(conn)
	for _, room := range rooms {
		if room == "" {
			continue
		}
		attends := false
		if s, ok := o.Rooms.Get(room); ok {
			s.Lock()
			attends = !s.Closed() && s.Attendees().Has(conn)
			s.Unlock()
		}
		registered := hasMapping && mapped == room
		if attends != registered {
			panic(fmt.Sprintf("invariant violated: conn %s room %s attends=%v registered=%v", conn, room, attends, registered))
		}
	}
}
