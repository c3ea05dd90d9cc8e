package signal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetsync/internal/app"
	"github.com/dkeye/meetsync/internal/app/orch"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
)

type fakeSender struct {
	id     domain.ConnID
	mu     sync.Mutex
	frames []core.Frame
	err    error
	closed bool
}

func (f *fakeSender) ID() domain.ConnID { return f.id }

func (f *fakeSender) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestHubEmit(t *testing.T) {
	h := NewHub()
	ok := &fakeSender{id: "a"}
	slow := &fakeSender{id: "b", err: ErrBackpressure}
	gone := &fakeSender{id: "c", err: ErrClosed}
	h.Register(ok)
	h.Register(slow)
	h.Register(gone)

	res := h.Emit(core.Outbound{
		Event:      core.EventUserLeft,
		Payload:    domain.ConnID("x"),
		Recipients: []domain.ConnID{"a", "b", "c", "unknown"},
	})
	assert.Equal(t, 1, res.SendTo)
	assert.Equal(t, []domain.ConnID{"b"}, res.Dropped)

	require.Len(t, ok.frames, 1)
	assert.JSONEq(t, `{"type":"user-left","data":"x"}`, string(ok.frames[0]))
}

func TestHubKick(t *testing.T) {
	h := NewHub()
	s := &fakeSender{id: "a"}
	h.Register(s)
	h.Kick("a")
	h.Kick("missing")
	assert.True(t, s.closed)

	h.Unregister("a")
	assert.Equal(t, 0, h.Len())
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	now := time.Unix(100, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("c1"))
	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))
	assert.True(t, rl.Allow("c2"))

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("c1"))

	rl.Forget("c1")
	assert.True(t, rl.Allow("c1"))
	assert.True(t, NewRateLimiter(0, time.Second).Allow("c1"))
}

func TestDecodeAudioChunk(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("RIFF"))
	chunk, err := decodeAudioChunk([]byte(`{"type":"audio-chunk","audioData":"` + raw + `","timestamp":7}`))
	require.NoError(t, err)
	assert.Equal(t, core.AudioChunk{Speaker: "Unknown", Audio: []byte("RIFF"), Format: "wav", Timestamp: 7}, chunk)

	_, err = decodeAudioChunk([]byte(`{"audioData":"!!not base64!!"}`))
	assert.Error(t, err)
}

const minimalSDP = "v=0\r\no=- 0 0 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func relayMsg(t *testing.T, typ, field string, body any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{"type": typ, "userId": "peer", field: body})
	require.NoError(t, err)
	return b
}

func TestDecodeRelay(t *testing.T) {
	target, body, err := decodeRelay(core.SignalOffer, relayMsg(t, "offer", "offer", map[string]string{"type": "offer", "sdp": minimalSDP}))
	require.NoError(t, err)
	assert.Equal(t, domain.ConnID("peer"), target)
	assert.Contains(t, string(body), `"offer"`)

	_, _, err = decodeRelay(core.SignalAnswer, relayMsg(t, "answer", "answer", map[string]string{"type": "offer", "sdp": minimalSDP}))
	assert.Error(t, err, "type mismatch")

	_, _, err = decodeRelay(core.SignalOffer, relayMsg(t, "offer", "offer", map[string]string{"type": "offer", "sdp": "garbage"}))
	assert.Error(t, err, "unparsable sdp")

	_, _, err = decodeRelay(core.SignalICECandidate, relayMsg(t, "ice-candidate", "candidate", map[string]any{
		"candidate": "candidate:1 1 udp 2122260223 192.168.1.2 54321 typ host", "sdpMid": "0",
	}))
	assert.NoError(t, err)

	_, _, err = decodeRelay(core.SignalOffer, []byte(`{"type":"offer","offer":{}}`))
	assert.ErrorIs(t, err, errEmptyTarget)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (c *wsClient) send(v any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(v))
}

// next reads until a message of the given type arrives.
func (c *wsClient) next(typ string) map[string]any {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var m map[string]any
		require.NoError(c.t, c.conn.ReadJSON(&m))
		if m["type"] == typ {
			return m
		}
	}
}

func startServer(t *testing.T) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Emitter:  hub,
		Kicker:   hub,
		Policy:   app.TolerantPolicy{},
	}
	ctl := NewSignalWSController(o, hub, NewRateLimiter(10, time.Second), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c, "Session User") })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) (*wsClient, string) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	c := &wsClient{t: t, conn: conn}
	hello := c.next("connected")
	id, _ := hello["userId"].(string)
	require.NotEmpty(t, id)
	return c, id
}

func TestWebSocketRoomFlow(t *testing.T) {
	o, url := startServer(t)
	a, aid := dial(t, url)
	b, bid := dial(t, url)

	a.send(map[string]string{"type": "join-room", "room": "R1"})
	users := a.next("room-users")
	assert.Equal(t, []any{map[string]any{"userId": aid, "name": "Session User"}}, users["data"])

	b.send(map[string]string{"type": "join-room", "room": "R1", "name": "Bob"})
	joined := a.next("user-joined")
	assert.Equal(t, map[string]any{"userId": bid, "name": "Bob"}, joined["data"])

	b.send(map[string]any{"type": "offer", "userId": aid, "offer": map[string]string{"type": "offer", "sdp": minimalSDP}})
	offer := a.next("offer")
	data := offer["data"].(map[string]any)
	assert.Equal(t, bid, data["userId"])

	a.send(map[string]string{"type": "whoami"})
	who := a.next("whoami")
	assert.Equal(t, "R1", who["room"])
	assert.Equal(t, "Session User", who["name"])

	a.send(map[string]string{"type": "ping"})
	a.next("pong")

	require.NoError(t, b.conn.Close())
	left := a.next("user-left")
	assert.Equal(t, bid, left["data"])

	require.Eventually(t, func() bool {
		info, ok := o.CallInfo("R1")
		return ok && info.AttendeeCount == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWebSocketLeaveKeepsConnection(t *testing.T) {
	o, url := startServer(t)
	a, aid := dial(t, url)

	a.send(map[string]string{"type": "join-room"})
	a.next("room-users")
	room, ok := o.RoomOf(domain.ConnID(aid))
	require.True(t, ok)
	assert.Equal(t, domain.RoomID(defaultRoom), room)

	a.send(map[string]string{"type": "leave-room", "room": defaultRoom})
	left := a.next("left")
	assert.Equal(t, defaultRoom, left["room"])

	a.send(map[string]string{"type": "whoami"})
	who := a.next("whoami")
	assert.Equal(t, aid, who["userId"])
	assert.Nil(t, who["room"])
	assert.Equal(t, 0, o.Rooms.Len())
}
