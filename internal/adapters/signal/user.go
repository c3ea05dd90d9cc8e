package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(
	conn *WsSignalConn,
	data []byte,
) {
	type renamePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p renamePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad rename payload")
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(conn.sid)).Str("name", p.Name).Msg("rename")
	ctl.Orch.Rename(conn.sid, p.Name)
}
