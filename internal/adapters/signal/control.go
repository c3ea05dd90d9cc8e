package signal

import (
	"time"

	"github.com/dkeye/meetsync/internal/domain"
)

// handlePing answers application-level keepalives. Browsers cannot send
// websocket ping frames, so the client polls with {"type":"ping"}.
func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		Time int64  `json:"time"`
	}{"pong", time.Now().UnixMilli()})
}

// handleWhoAmI reports the connection identity and, when joined, its room and
// display name.
func (ctl *SignalWSController) handleWhoAmI(conn *WsSignalConn) {
	resp := struct {
		Type   string        `json:"type"`
		UserID domain.ConnID `json:"userId"`
		Name   string        `json:"name,omitempty"`
		Room   domain.RoomID `json:"room,omitempty"`
	}{
		Type:   "whoami",
		UserID: conn.sid,
	}
	if room, ok := ctl.Orch.RoomOf(conn.sid); ok {
		resp.Room = room
		if info, ok := ctl.Orch.CallInfo(room); ok {
			for _, a := range info.Attendees {
				if a.Conn == conn.sid {
					resp.Name = a.Name
				}
			}
		}
	}
	ctl.sendJSON(conn, resp)
}
