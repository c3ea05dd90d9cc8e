package orch

import (
	"context"
	"strings"
	"time"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnAudioChunk transcribes a chunk and appends it to the sender's room
// transcript. The transcriber runs without any lock held; the result is
// applied only if the same call is still live.
func (o *Orchestrator) OnAudioChunk(ctx context.Context, conn domain.ConnID, chunk core.AudioChunk) {
	logger := log.With().Str("module", "orch.audio").Str("conn", string(conn)).Logger()

	room, ok := o.Registry.Lookup(conn)
	if !ok {
		logger.Debug().Msg("audio chunk from connection outside any room")
		return
	}
	s, ok := o.Rooms.Get(room)
	if !ok || o.Transcriber == nil {
		return
	}

	started := time.Now()
	text, err := o.Transcriber.Transcribe(ctx, chunk.Audio, chunk.Format)
	if err != nil {
		logger.Error().Err(err).Str("room", string(room)).Msg("transcription failed")
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Debug().Str("room", string(room)).Msg("empty transcription")
		return
	}

	ts := chunk.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	speaker := chunk.Speaker
	if speaker == "" {
		speaker = "Unknown"
	}

	s.Lock()
	defer s.Unlock()
	if s.Closed() {
		logger.Warn().Str("room", string(room)).Msg("call ended during transcription, dropping text")
		return
	}
	s.Transcript().Append(speaker, text, ts)
	o.emit(core.Outbound{
		Event:      core.EventNewTranscription,
		Payload:    domain.TranscriptEntry{Speaker: speaker, Text: text, Timestamp: ts},
		Target:     core.ToRoom(room),
		Recipients: s.Attendees().Conns(),
	})
	logger.Info().Str("room", string(room)).Str("speaker", speaker).
		Dur("took", time.Since(started)).Msg("transcribed")
}
