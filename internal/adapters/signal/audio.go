package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/rs/zerolog/log"
)

type audioPayload struct {
	Type      string `json:"type"`
	Speaker   string `json:"speaker"`
	AudioData string `json:"audioData"`
	Timestamp int64  `json:"timestamp"`
	Format    string `json:"format"`
}

func decodeAudioChunk(data []byte) (core.AudioChunk, error) {
	var p audioPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return core.AudioChunk{}, err
	}
	audio, err := base64.StdEncoding.DecodeString(p.AudioData)
	if err != nil {
		return core.AudioChunk{}, err
	}
	if p.Speaker == "" {
		p.Speaker = "Unknown"
	}
	if p.Format == "" {
		p.Format = "wav"
	}
	return core.AudioChunk{
		Speaker:   p.Speaker,
		Audio:     audio,
		Format:    p.Format,
		Timestamp: p.Timestamp,
	}, nil
}

// handleAudioChunk queues the chunk so a slow transcription never stalls
// the connection's other events.
func (ctl *SignalWSController) handleAudioChunk(conn *WsSignalConn, data []byte) {
	if ctl.Limiter != nil && !ctl.Limiter.Allow(conn.sid) {
		log.Warn().Str("module", "signal").Str("sid", string(conn.sid)).Msg("audio rate limit exceeded, chunk dropped")
		return
	}
	chunk, err := decodeAudioChunk(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(conn.sid)).Msg("bad audio payload")
		return
	}
	if len(chunk.Audio) == 0 {
		return
	}
	select {
	case conn.audio <- chunk:
	default:
		log.Warn().Str("module", "signal").Str("sid", string(conn.sid)).Msg("audio queue full, chunk dropped")
	}
}

// audioLoop transcribes one connection's chunks in order. A chunk already
// being transcribed finishes even if the connection goes away.
func (ctl *SignalWSController) audioLoop(ctx context.Context, conn *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-conn.audio:
			ctl.Orch.OnAudioChunk(context.WithoutCancel(ctx), conn.sid, chunk)
		}
	}
}
