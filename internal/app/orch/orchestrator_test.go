package orch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetsync/internal/app"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
)

func attendees(t *testing.T, o *Orchestrator, room domain.RoomID) []domain.Attendee {
	t.Helper()
	info, ok := o.CallInfo(room)
	require.True(t, ok, "room %s should be live", room)
	return info.Attendees
}

func TestJoinBroadcasts(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	o.Connect("c1")
	o.Join("c1", "R", "Ann")

	out := em.all()
	require.Len(t, out, 1)
	assert.Equal(t, core.EventRoomUsers, out[0].Event)
	assert.Equal(t, []domain.ConnID{"c1"}, out[0].Recipients)

	em.reset()
	o.Join("c2", "R", "Bob")
	out = em.all()
	require.Len(t, out, 2)

	assert.Equal(t, core.EventUserJoined, out[0].Event)
	assert.Equal(t, []domain.ConnID{"c1"}, out[0].Recipients)
	assert.Equal(t, core.UserJoined{UserID: "c2", Name: "Bob"}, out[0].Payload)

	assert.Equal(t, core.EventRoomUsers, out[1].Event)
	assert.Equal(t, []domain.ConnID{"c1", "c2"}, out[1].Recipients)
	assert.Equal(t, []domain.Attendee{{Conn: "c1", Name: "Ann"}, {Conn: "c2", Name: "Bob"}}, out[1].Payload)

	require.NoError(t, o.CheckInvariants())
}

func TestJoinSameRoomRefreshesName(t *testing.T) {
	o, em, fin := newTestOrchestrator()
	o.Join("c1", "R", "Ann")
	o.Join("c2", "R", "Bob")
	em.reset()

	o.Join("c1", "R", "Annie")
	assert.Equal(t, []string{core.EventRoomUsers}, em.events())
	assert.Equal(t, []domain.Attendee{{Conn: "c1", Name: "Annie"}, {Conn: "c2", Name: "Bob"}}, attendees(t, o, "R"))
	assert.Empty(t, fin.all())
}

func TestJoinSwitchesRooms(t *testing.T) {
	o, em, fin := newTestOrchestrator()
	o.Join("c1", "A", "Ann")
	o.Join("c2", "A", "Bob")
	em.reset()

	o.Join("c1", "B", "Ann")

	room, ok := o.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("B"), room)
	assert.Equal(t, []domain.Attendee{{Conn: "c2", Name: "Bob"}}, attendees(t, o, "A"))
	assert.Equal(t, []domain.Attendee{{Conn: "c1", Name: "Ann"}}, attendees(t, o, "B"))

	out := em.all()
	require.Len(t, out, 3)
	assert.Equal(t, core.EventUserLeft, out[0].Event)
	assert.Equal(t, domain.ConnID("c1"), out[0].Payload)
	assert.Equal(t, []domain.ConnID{"c2"}, out[0].Recipients)
	assert.Equal(t, core.EventRoomUsers, out[1].Event)
	assert.Equal(t, domain.RoomID("A"), out[1].Target.Room)
	assert.Equal(t, core.EventRoomUsers, out[2].Event)
	assert.Equal(t, domain.RoomID("B"), out[2].Target.Room)

	assert.Empty(t, fin.all())
	require.NoError(t, o.CheckInvariants())
}

func TestSwitchOutOfLastSeatFinalizes(t *testing.T) {
	o, _, fin := newTestOrchestrator()
	o.Join("c1", "A", "Ann")
	o.Join("c1", "B", "Ann")

	_, ok := o.CallInfo("A")
	assert.False(t, ok)
	jobs := fin.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.RoomID("A"), jobs[0].Room)
}

func TestLastLeaveFinalizesOnce(t *testing.T) {
	o, em, fin := newTestOrchestrator()
	o.Join("c1", "R", "Ann")
	o.Join("c2", "R", "Bob")
	info, _ := o.CallInfo("R")

	o.Leave("c1", "R")
	assert.Empty(t, fin.all())
	em.reset()

	o.Leave("c2", "R")
	o.Leave("c2", "R")
	o.Disconnect("c2")

	jobs := fin.all()
	require.Len(t, jobs, 1)
	assert.Equal(t, info.UUID, jobs[0].CallUUID)
	assert.Equal(t, 0, o.Rooms.Len())
	assert.Empty(t, em.all(), "no one is left to receive the leave broadcasts")
	require.NoError(t, o.CheckInvariants())
}

func TestRoomIsRecreatedAfterTeardown(t *testing.T) {
	o, _, fin := newTestOrchestrator()
	o.Join("c1", "R", "Ann")
	first, _ := o.CallInfo("R")
	o.Disconnect("c1")

	o.Join("c2", "R", "Bob")
	second, _ := o.CallInfo("R")
	assert.NotEqual(t, first.UUID, second.UUID)
	assert.Empty(t, second.Transcript)
	assert.Len(t, fin.all(), 1)
}

func TestLeaveForeignRoomIgnored(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	o.Join("c1", "A", "Ann")
	em.reset()

	o.Leave("c1", "B")
	o.Leave("ghost", "A")
	assert.Empty(t, em.all())
	room, ok := o.RoomOf("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("A"), room)
}

func TestRename(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	o.Join("c1", "R", "Ann")
	o.Join("c2", "R", "Bob")
	em.reset()

	o.Rename("c2", "  Robert ")
	out := em.all()
	require.Len(t, out, 2)
	assert.Equal(t, core.EventUserNameUpdated, out[0].Event)
	assert.Equal(t, core.UserNameUpdated{UserID: "c2", Name: "Robert"}, out[0].Payload)
	assert.Equal(t, []domain.ConnID{"c1"}, out[0].Recipients)
	assert.Equal(t, core.EventRoomUsers, out[1].Event)
}

func TestRenameOutsideRoomIgnored(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	o.Connect("c1")
	o.Rename("c1", "Ann")
	assert.Empty(t, em.all())
	assert.Equal(t, 0, o.Rooms.Len())
}

func TestDisconnectWithoutJoin(t *testing.T) {
	o, em, fin := newTestOrchestrator()
	o.Connect("c1")
	o.Disconnect("c1")
	assert.Empty(t, em.all())
	assert.Empty(t, fin.all())
	require.NoError(t, o.CheckInvariants())
}

func TestEmptyJoinIgnored(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	o.Join("c1", "", "Ann")
	o.Join("", "R", "Ann")
	assert.Equal(t, 0, o.Rooms.Len())
	assert.Equal(t, 0, o.Registry.Len())
}

func TestAudioChunkAppendsAndBroadcasts(t *testing.T) {
	o, em, fin := newTestOrchestrator()
	o.Transcriber = &gatedTranscriber{text: "  hello team "}
	o.Join("c1", "R", "Ann")
	o.Join("c2", "R", "Bob")
	em.reset()

	o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Speaker: "Ann", Audio: []byte{1}, Timestamp: 42})

	out := em.all()
	require.Len(t, out, 1)
	assert.Equal(t, core.EventNewTranscription, out[0].Event)
	assert.Equal(t, []domain.ConnID{"c1", "c2"}, out[0].Recipients)
	assert.Equal(t, domain.TranscriptEntry{Speaker: "Ann", Text: "hello team", Timestamp: 42}, out[0].Payload)

	entries, ok := o.Transcript("R")
	require.True(t, ok)
	assert.Equal(t, []domain.TranscriptEntry{{Speaker: "Ann", Text: "hello team", Timestamp: 42}}, entries)

	o.Disconnect("c1")
	o.Disconnect("c2")
	jobs := fin.all()
	require.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Entries, 1)
}

func TestAudioChunkDefaults(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	o.Transcriber = &gatedTranscriber{text: "hi"}
	o.Join("c1", "R", "Ann")

	before := time.Now().UnixMilli()
	o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Audio: []byte{1}})

	entries, _ := o.Transcript("R")
	require.Len(t, entries, 1)
	assert.Equal(t, "Unknown", entries[0].Speaker)
	assert.GreaterOrEqual(t, entries[0].Timestamp, before)
}

func TestAudioChunkFailureAppendsNothing(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	o.Join("c1", "R", "Ann")
	em.reset()

	o.Transcriber = &gatedTranscriber{err: errors.New("api down")}
	o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Audio: []byte{1}})
	o.Transcriber = &gatedTranscriber{text: "   "}
	o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Audio: []byte{1}})

	entries, _ := o.Transcript("R")
	assert.Empty(t, entries)
	assert.Empty(t, em.all())
	assert.Equal(t, []domain.Attendee{{Conn: "c1", Name: "Ann"}}, attendees(t, o, "R"))
}

func TestAudioChunkOutsideRoomIgnored(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	tr := &gatedTranscriber{started: make(chan struct{}, 1), text: "hi"}
	o.Transcriber = tr
	o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Audio: []byte{1}})
	assert.Empty(t, em.all())
	assert.Len(t, tr.started, 0)
}

func TestTranscriptionDoesNotHoldRoomLock(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	tr := &gatedTranscriber{started: make(chan struct{}), release: make(chan struct{}), text: "late"}
	o.Transcriber = tr
	o.Join("c1", "R", "Ann")

	done := make(chan struct{})
	go func() {
		o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Speaker: "Ann", Audio: []byte{1}, Timestamp: 1})
		close(done)
	}()
	<-tr.started

	joined := make(chan struct{})
	go func() {
		o.Join("c2", "R", "Bob")
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("join blocked behind an in-flight transcription")
	}

	close(tr.release)
	<-done
	entries, _ := o.Transcript("R")
	assert.Len(t, entries, 1)
}

func TestTranscriptionAfterTeardownIsDropped(t *testing.T) {
	o, _, fin := newTestOrchestrator()
	tr := &gatedTranscriber{started: make(chan struct{}), release: make(chan struct{}), text: "late"}
	o.Transcriber = tr
	o.Join("c1", "R", "Ann")

	done := make(chan struct{})
	go func() {
		o.OnAudioChunk(context.Background(), "c1", core.AudioChunk{Audio: []byte{1}})
		close(done)
	}()
	<-tr.started
	o.Disconnect("c1")
	o.Join("c2", "R", "Bob")

	close(tr.release)
	<-done

	entries, ok := o.Transcript("R")
	require.True(t, ok)
	assert.Empty(t, entries, "text from the ended call must not leak into the new one")
	require.Len(t, fin.all(), 1)
	assert.Empty(t, fin.all()[0].Entries)
}

func TestRelay(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	body := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	o.Relay(core.SignalOffer, "c1", "c2", body)
	o.Relay(core.SignalKind("bogus"), "c1", "c2", body)
	o.Relay(core.SignalAnswer, "c1", "", body)

	out := em.all()
	require.Len(t, out, 1)
	assert.Equal(t, "offer", out[0].Event)
	assert.Equal(t, []domain.ConnID{"c2"}, out[0].Recipients)
	assert.Equal(t, map[string]any{"userId": domain.ConnID("c1"), "offer": body}, out[0].Payload)
	assert.Equal(t, 0, o.Rooms.Len())
}

func TestBackPressureKicksSlowMember(t *testing.T) {
	o, em, _ := newTestOrchestrator()
	kicker := &recordingKicker{}
	o.Kicker = kicker
	o.Policy = app.SimplePolicy{}
	o.Join("slow", "R", "Sam")
	em.mu.Lock()
	em.full["slow"] = true
	em.mu.Unlock()

	o.Join("c1", "R", "Ann")

	require.Eventually(t, func() bool {
		_, ok := o.RoomOf("slow")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		kicker.mu.Lock()
		defer kicker.mu.Unlock()
		return len(kicker.kicked) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []domain.Attendee{{Conn: "c1", Name: "Ann"}}, attendees(t, o, "R"))
}

func TestCallsListsLiveRooms(t *testing.T) {
	o, _, _ := newTestOrchestrator()
	o.Join("c1", "B", "Ann")
	o.Join("c2", "A", "Bob")

	calls := o.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, domain.RoomID("A"), calls[0].Room)
	assert.Equal(t, 1, calls[1].AttendeeCount)

	_, ok := o.Transcript("missing")
	assert.False(t, ok)
}

func TestConcurrentChurnKeepsInvariants(t *testing.T) {
	o, _, fin := newTestOrchestrator()
	o.Transcriber = &gatedTranscriber{text: "words"}
	rooms := []domain.RoomID{"A", "B", "C"}

	var wg sync.WaitGroup
	for i := range 24 {
		conn := domain.ConnID(fmt.Sprintf("c%d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.Connect(conn)
			for j := range 30 {
				room := rooms[(i+j)%len(rooms)]
				switch j % 5 {
				case 0, 1:
					o.Join(conn, room, string(conn))
				case 2:
					o.Rename(conn, fmt.Sprintf("%s-%d", conn, j))
				case 3:
					o.OnAudioChunk(context.Background(), conn, core.AudioChunk{Audio: []byte{1}})
				case 4:
					if cur, ok := o.RoomOf(conn); ok {
						o.Leave(conn, cur)
					}
				}
			}
			if i%2 == 0 {
				o.Disconnect(conn)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, o.CheckInvariants())

	total := 0
	for _, s := range o.Rooms.Sessions() {
		total += s.Info().AttendeeCount
	}
	assert.Equal(t, o.Registry.Len(), total)

	for i := range 24 {
		o.Disconnect(domain.ConnID(fmt.Sprintf("c%d", i)))
	}
	require.NoError(t, o.CheckInvariants())
	assert.Equal(t, 0, o.Rooms.Len())
	assert.NotEmpty(t, fin.all())
}
