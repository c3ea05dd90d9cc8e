package core

import (
	"context"
	"time"

	"github.com/dkeye/meetsync/internal/domain"
)

// Transcriber turns one audio chunk into text. Implementations own any
// temporary storage they create.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// TaskExtractor derives action items from a rendered transcript.
type TaskExtractor interface {
	Extract(ctx context.Context, transcript string) ([]domain.ExtractedTask, error)
}

// RosterSource resolves the persistent membership of a room.
// Returns domain.ErrRoomNotFound for unknown rooms.
type RosterSource interface {
	Roster(ctx context.Context, room domain.RoomID) ([]domain.RosterEntry, error)
}

// Finalizer receives the end-of-call job. Submit must not block.
type Finalizer interface {
	Submit(job FinalizeJob)
}

type FinalizeJob struct {
	Room      domain.RoomID
	CallUUID  string
	Entries   []domain.TranscriptEntry
	StartedAt time.Time
	EndedAt   time.Time
}

// AudioChunk is a decoded audio-chunk event.
type AudioChunk struct {
	Speaker   string
	Audio     []byte
	Format    string
	Timestamp int64
}
