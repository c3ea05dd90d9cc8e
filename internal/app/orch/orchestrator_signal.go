package orch

import (
	"encoding/json"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards a signaling payload to one target connection. It touches no
// room state; unknown targets are the transport's concern.
func (o *Orchestrator) Relay(kind core.SignalKind, from, to domain.ConnID, payload json.RawMessage) {
	if !kind.Valid() || to == "" {
		log.Debug().Str("module", "orch.signal").Str("kind", string(kind)).Str("from", string(from)).Msg("bad relay dropped")
		return
	}
	if o.Emitter == nil {
		return
	}
	res := o.Emitter.Emit(core.Outbound{
		Event:      string(kind),
		Payload:    core.RelayPayload(kind, from, payload),
		Target:     core.ToConn(to),
		Recipients: []domain.ConnID{to},
	})
	if res.SendTo == 0 {
		log.Debug().Str("module", "orch.signal").Str("kind", string(kind)).Str("to", string(to)).Msg("relay target unreachable")
	}
}
