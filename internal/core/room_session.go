package core

import (
	"sync"
	"time"

	"github.com/dkeye/meetsync/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomSession is one room's call: attendees plus transcript.
// Methods other than Lock, Unlock and Info expect the caller to hold the lock.
type RoomSession struct {
	mu         sync.Mutex
	id         domain.RoomID
	uuid       string
	createdAt  time.Time
	attendees  *AttendeeDirectory
	transcript *Transcript
	closed     bool
}

func NewRoomSession(id domain.RoomID) *RoomSession {
	return &RoomSession{
		id:         id,
		uuid:       uuid.NewString(),
		createdAt:  time.Now(),
		attendees:  NewAttendeeDirectory(),
		transcript: NewTranscript(),
	}
}

func (s *RoomSession) Lock()   { s.mu.Lock() }
func (s *RoomSession) Unlock() { s.mu.Unlock() }

func (s *RoomSession) ID() domain.RoomID    { return s.id }
func (s *RoomSession) UUID() string         { return s.uuid }
func (s *RoomSession) CreatedAt() time.Time { return s.createdAt }

func (s *RoomSession) Attendees() *AttendeeDirectory { return s.attendees }
func (s *RoomSession) Transcript() *Transcript       { return s.transcript }

// Closed is true once the last attendee left. A closed session is never reused.
func (s *RoomSession) Closed() bool { return s.closed }

// Close marks the session torn down and returns the finalization job for it.
func (s *RoomSession) Close() FinalizeJob {
	s.closed = true
	log.Info().Str("module", "core.room").Str("room", string(s.id)).Str("call", s.uuid).
		Int("entries", s.transcript.Len()).Msg("room emptied")
	return FinalizeJob{
		Room:      s.id,
		CallUUID:  s.uuid,
		Entries:   s.transcript.Entries(),
		StartedAt: s.createdAt,
		EndedAt:   time.Now(),
	}
}

// Info takes the lock itself.
func (s *RoomSession) Info() CallInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CallInfo{
		UUID:          s.uuid,
		Room:          s.id,
		Attendees:     s.attendees.Snapshot(),
		Transcript:    s.transcript.Entries(),
		CreatedAt:     s.createdAt,
		AttendeeCount: s.attendees.Len(),
	}
}

// CallInfo is a read-only view for APIs.
type CallInfo struct {
	UUID          string                   `json:"uuid"`
	Room          domain.RoomID            `json:"room_code"`
	Attendees     []domain.Attendee        `json:"attendees"`
	Transcript    []domain.TranscriptEntry `json:"transcript"`
	CreatedAt     time.Time                `json:"created_at"`
	AttendeeCount int                      `json:"attendees_count"`
}
