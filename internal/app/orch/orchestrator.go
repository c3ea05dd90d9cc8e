// Package orch holds the room coordinator: the single in-process authority
// over room membership, transcripts and the empty-room finalization trigger.
package orch

import (
	"sync"

	"github.com/dkeye/meetsync/internal/app"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the room coordinator.
//
// Locking: every event for a connection runs inside that connection's lane,
// and membership changes happen under the room session lock. Lock order is
// lane -> room session -> registry/manager; two room locks are never held at
// once. Broadcasts are emitted while the room lock is held so per-room
// delivery order matches processing order.
type Orchestrator struct {
	Registry    *app.Registry
	Rooms       *app.RoomManager
	Emitter     core.Emitter
	Kicker      core.Kicker
	Transcriber core.Transcriber
	Finalizer   core.Finalizer
	Policy      app.Policy

	// DebugInvariants panics when a mutation leaves the registry and the
	// room sessions disagreeing.
	DebugInvariants bool

	lanes sync.Map // domain.ConnID -> *sync.Mutex
}

func (o *Orchestrator) lane(conn domain.ConnID) func() {
	v, ok := o.lanes.Load(conn)
	if !ok {
		v, _ = o.lanes.LoadOrStore(conn, &sync.Mutex{})
	}
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// emit must be called with the room lock held.
func (o *Orchestrator) emit(out core.Outbound) {
	if o.Emitter == nil || len(out.Recipients) == 0 {
		return
	}
	res := o.Emitter.Emit(out)
	if len(res.Dropped) > 0 {
		go o.onBackPressure(out.Target.Room, res.Dropped)
	}
}

func (o *Orchestrator) onBackPressure(room domain.RoomID, dropped []domain.ConnID) {
	if o.Policy == nil {
		return
	}
	for _, conn := range dropped {
		switch o.Policy.OnBackPressure(room, conn) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("conn", string(conn)).Str("room", string(room)).Msg("slow consumer kicked")
			o.Disconnect(conn)
			if o.Kicker != nil {
				o.Kicker.Kick(conn)
			}
		case app.NoAction:
		}
	}
}

// broadcastRoomUsers sends the full roster to every attendee of s.
func (o *Orchestrator) broadcastRoomUsers(s *core.RoomSession) {
	o.emit(core.Outbound{
		Event:      core.EventRoomUsers,
		Payload:    s.Attendees().Snapshot(),
		Target:     core.ToRoom(s.ID()),
		Recipients: s.Attendees().Conns(),
	})
}

func except(conns []domain.ConnID, skip domain.ConnID) []domain.ConnID {
	out := make([]domain.ConnID, 0, len(conns))
	for _, c := range conns {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}
