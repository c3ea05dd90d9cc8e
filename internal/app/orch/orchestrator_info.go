package orch

import (
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
)

func (o *Orchestrator) RoomOf(conn domain.ConnID) (domain.RoomID, bool) {
	return o.Registry.Lookup(conn)
}

func (o *Orchestrator) CallInfo(room domain.RoomID) (core.CallInfo, bool) {
	s, ok := o.Rooms.Get(room)
	if !ok {
		return core.CallInfo{}, false
	}
	return s.Info(), true
}

func (o *Orchestrator) Calls() []core.CallInfo {
	sessions := o.Rooms.Sessions()
	out := make([]core.CallInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Info())
	}
	return out
}

// Transcript returns a copy of the live transcript for room.
func (o *Orchestrator) Transcript(room domain.RoomID) ([]domain.TranscriptEntry, bool) {
	info, ok := o.CallInfo(room)
	if !ok {
		return nil, false
	}
	return info.Transcript, true
}
