package signal

import (
	"encoding/json"

	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

const defaultRoom = "default"

func (ctl *SignalWSController) handleJoin(
	conn *WsSignalConn,
	data []byte,
) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Name string `json:"name,omitempty"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}
	room := domain.RoomID(p.Room)
	if room == "" {
		room = defaultRoom
	}
	name := p.Name
	if name == "" {
		name = conn.defaultName
	}

	log.Info().Str("module", "signal").Str("sid", string(conn.sid)).Str("room", string(room)).Msg("join")
	ctl.Orch.Join(conn.sid, room, name)
}

// handleLeave leaves the room but keeps the connection open.
func (ctl *SignalWSController) handleLeave(
	conn *WsSignalConn,
	data []byte,
) {
	var p struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad leave payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(conn.sid)).Str("room", p.Room).Msg("leave")
	ctl.Orch.Leave(conn.sid, domain.RoomID(p.Room))
	ctl.sendJSON(conn, map[string]any{
		"type": "left",
		"room": p.Room,
	})
}
