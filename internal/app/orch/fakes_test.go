package orch

import (
	"context"
	"sync"

	"github.com/dkeye/meetsync/internal/app"
	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
)

type recordingEmitter struct {
	mu   sync.Mutex
	out  []core.Outbound
	full map[domain.ConnID]bool
}

func (e *recordingEmitter) Emit(out core.Outbound) core.PublishResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = append(e.out, out)
	res := core.PublishResult{}
	for _, c := range out.Recipients {
		if e.full[c] {
			res.Dropped = append(res.Dropped, c)
			continue
		}
		res.SendTo++
	}
	return res
}

func (e *recordingEmitter) all() []core.Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Outbound(nil), e.out...)
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.out = nil
}

func (e *recordingEmitter) events() []string {
	var names []string
	for _, o := range e.all() {
		names = append(names, o.Event)
	}
	return names
}

type recordingFinalizer struct {
	mu   sync.Mutex
	jobs []core.FinalizeJob
}

func (f *recordingFinalizer) Submit(job core.FinalizeJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
}

func (f *recordingFinalizer) all() []core.FinalizeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.FinalizeJob(nil), f.jobs...)
}

// gatedTranscriber blocks until release is closed.
type gatedTranscriber struct {
	started chan struct{}
	release chan struct{}
	text    string
	err     error
}

func (g *gatedTranscriber) Transcribe(ctx context.Context, _ []byte, _ string) (string, error) {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		<-g.release
	}
	return g.text, g.err
}

type recordingKicker struct {
	mu     sync.Mutex
	kicked []domain.ConnID
}

func (k *recordingKicker) Kick(conn domain.ConnID) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.kicked = append(k.kicked, conn)
}

func newTestOrchestrator() (*Orchestrator, *recordingEmitter, *recordingFinalizer) {
	em := &recordingEmitter{full: map[domain.ConnID]bool{}}
	fin := &recordingFinalizer{}
	o := &Orchestrator{
		Registry:        app.NewRegistry(),
		Rooms:           app.NewRoomManager(),
		Emitter:         em,
		Finalizer:       fin,
		Policy:          app.TolerantPolicy{},
		DebugInvariants: true,
	}
	return o, em, fin
}
