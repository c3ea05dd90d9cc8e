package signal

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
)

// Sender is one live transport endpoint.
type Sender interface {
	ID() domain.ConnID
	TrySend(core.Frame) error
	Close()
}

// Hub delivers coordinator broadcasts to live connections.
type Hub struct {
	mu    sync.RWMutex
	conns map[domain.ConnID]Sender
}

var (
	_ core.Emitter = (*Hub)(nil)
	_ core.Kicker  = (*Hub)(nil)
)

func NewHub() *Hub {
	return &Hub{conns: make(map[domain.ConnID]Sender)}
}

func (h *Hub) Register(s Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[s.ID()] = s
}

func (h *Hub) Unregister(sid domain.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, sid)
}

// Kick closes the connection; its read pump then runs the disconnect.
func (h *Hub) Kick(sid domain.ConnID) {
	h.mu.RLock()
	s, ok := h.conns[sid]
	h.mu.RUnlock()
	if ok {
		s.Close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// envelope is the outbound wire shape: {"type": event, "data": payload}.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Emit marshals once and fans out. Unknown or closed recipients are skipped;
// full buffers are reported as dropped.
func (h *Hub) Emit(out core.Outbound) core.PublishResult {
	res := core.PublishResult{}
	frame, err := json.Marshal(envelope{Type: out.Event, Data: out.Payload})
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("event", out.Event).Msg("marshal")
		return res
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sid := range out.Recipients {
		s, ok := h.conns[sid]
		if !ok {
			continue
		}
		if err := s.TrySend(frame); err != nil {
			if errors.Is(err, ErrBackpressure) {
				res.Dropped = append(res.Dropped, sid)
			}
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "signal.hub").Str("event", out.Event).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
