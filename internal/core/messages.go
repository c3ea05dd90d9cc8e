package core

import (
	"encoding/json"

	"github.com/dkeye/meetsync/internal/domain"
)

// Frame is a raw encoded message for one connection.
type Frame []byte

// Outbound event names.
const (
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventUserNameUpdated  = "user-name-updated"
	EventRoomUsers        = "room-users"
	EventNewTranscription = "new-transcription"
)

type SignalKind string

const (
	SignalOffer        SignalKind = "offer"
	SignalAnswer       SignalKind = "answer"
	SignalICECandidate SignalKind = "ice-candidate"
)

func (k SignalKind) Valid() bool {
	switch k {
	case SignalOffer, SignalAnswer, SignalICECandidate:
		return true
	}
	return false
}

// Field is the payload key the relayed body travels under.
func (k SignalKind) Field() string {
	if k == SignalICECandidate {
		return "candidate"
	}
	return string(k)
}

// Target says who an instruction is addressed to: a room (optionally minus
// one connection) or a single connection.
type Target struct {
	Room   domain.RoomID `json:"room,omitempty"`
	Conn   domain.ConnID `json:"conn,omitempty"`
	Except domain.ConnID `json:"except,omitempty"`
}

func ToRoom(room domain.RoomID) Target { return Target{Room: room} }

func ToRoomExcept(room domain.RoomID, except domain.ConnID) Target {
	return Target{Room: room, Except: except}
}

func ToConn(conn domain.ConnID) Target { return Target{Conn: conn} }

// Outbound is one broadcast instruction. Recipients is resolved by the
// coordinator under the room lock so the transport never consults room state.
type Outbound struct {
	Event      string
	Payload    any
	Target     Target
	Recipients []domain.ConnID
}

// PublishResult reports delivery stats/backpressure to the coordinator.
type PublishResult struct {
	SendTo  int
	Dropped []domain.ConnID
}

// Emitter is implemented by the transport. Emit must not block.
type Emitter interface {
	Emit(out Outbound) PublishResult
}

type UserJoined struct {
	UserID domain.ConnID `json:"userId"`
	Name   string        `json:"name"`
}

type UserNameUpdated struct {
	UserID domain.ConnID `json:"userId"`
	Name   string        `json:"name"`
}

// RelayPayload builds {"userId": from, "<field>": body} for a relayed signal.
func RelayPayload(kind SignalKind, from domain.ConnID, body json.RawMessage) map[string]any {
	if len(body) == 0 {
		body = json.RawMessage("null")
	}
	return map[string]any{
		"userId":     from,
		kind.Field(): body,
	}
}

// Kicker forcibly closes a transport connection. The transport reports the
// resulting disconnect through the normal path.
type Kicker interface {
	Kick(conn domain.ConnID)
}
