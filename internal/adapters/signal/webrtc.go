package signal

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

var errEmptyTarget = errors.New("missing target userId")

type relayPayload struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// decodeRelay extracts the target and body of a signaling message and checks
// that the body is a well-formed description or candidate. The body itself is
// forwarded untouched.
func decodeRelay(kind core.SignalKind, data []byte) (domain.ConnID, json.RawMessage, error) {
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	if p.UserID == "" {
		return "", nil, errEmptyTarget
	}
	target := domain.ConnID(p.UserID)

	switch kind {
	case core.SignalOffer:
		return target, p.Offer, checkDescription(p.Offer, webrtc.SDPTypeOffer)
	case core.SignalAnswer:
		return target, p.Answer, checkDescription(p.Answer, webrtc.SDPTypeAnswer)
	case core.SignalICECandidate:
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(p.Candidate, &ci); err != nil {
			return "", nil, fmt.Errorf("decode candidate: %w", err)
		}
		return target, p.Candidate, nil
	}
	return "", nil, fmt.Errorf("unknown signal kind %q", kind)
}

func checkDescription(body json.RawMessage, want webrtc.SDPType) error {
	var sd webrtc.SessionDescription
	if err := json.Unmarshal(body, &sd); err != nil {
		return fmt.Errorf("decode %s: %w", want, err)
	}
	if sd.Type != want {
		return fmt.Errorf("expected %s, got %s", want, sd.Type)
	}
	if _, err := sd.Unmarshal(); err != nil {
		return fmt.Errorf("parse %s sdp: %w", want, err)
	}
	return nil
}

func (ctl *SignalWSController) handleRelay(
	conn *WsSignalConn,
	typ string,
	data []byte,
) {
	kind := core.SignalKind(typ)
	target, body, err := decodeRelay(kind, data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(conn.sid)).Str("kind", typ).Msg("bad relay payload")
		return
	}
	ctl.Orch.Relay(kind, conn.sid, target, body)
}
