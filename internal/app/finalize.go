package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// FinalizePool runs end-of-call task extraction in the background with a
// bounded number of concurrent extractor calls.
type FinalizePool struct {
	ctx       context.Context
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	roster    core.RosterSource
	extractor core.TaskExtractor
}

var _ core.Finalizer = (*FinalizePool)(nil)

func NewFinalizePool(ctx context.Context, workers int, roster core.RosterSource, extractor core.TaskExtractor) *FinalizePool {
	if workers < 1 {
		workers = 1
	}
	return &FinalizePool{
		ctx:       ctx,
		sem:       semaphore.NewWeighted(int64(workers)),
		roster:    roster,
		extractor: extractor,
	}
}

// Submit never blocks the caller.
func (p *FinalizePool) Submit(job core.FinalizeJob) {
	logger := log.With().Str("module", "app.finalize").Str("room", string(job.Room)).Str("call", job.CallUUID).Logger()
	logger.Info().Int("entries", len(job.Entries)).Msg("finalization submitted")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			logger.Warn().Err(err).Msg("finalization abandoned")
			return
		}
		defer p.sem.Release(1)

		tasks, err := p.Finalize(p.ctx, job)
		switch {
		case errors.Is(err, domain.ErrEmptyTranscript):
			logger.Info().Msg("no transcript, skipping task extraction")
		case err != nil:
			logger.Error().Err(err).Msg("finalization failed")
		default:
			for _, t := range tasks {
				logger.Info().
					Str("title", t.Title).
					Str("assignee", t.Assignee).
					Str("due", t.DueDate).
					Msg("extracted task")
			}
			logger.Info().Int("tasks", len(tasks)).Msg("finalization done")
		}
	}()
}

// Finalize renders the transcript with the room roster and calls the extractor.
// A missing roster degrades to an empty one.
func (p *FinalizePool) Finalize(ctx context.Context, job core.FinalizeJob) ([]domain.ExtractedTask, error) {
	if len(job.Entries) == 0 {
		return nil, domain.ErrEmptyTranscript
	}
	var roster []domain.RosterEntry
	if p.roster != nil {
		r, err := p.roster.Roster(ctx, job.Room)
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			log.Warn().Str("module", "app.finalize").Str("room", string(job.Room)).Msg("roster not found, using empty roster")
		case err != nil:
			log.Error().Err(err).Str("module", "app.finalize").Str("room", string(job.Room)).Msg("roster lookup failed, using empty roster")
		default:
			roster = r
		}
	}
	if p.extractor == nil {
		return nil, errors.New("no task extractor configured")
	}
	text := core.RenderTranscript(job.Entries, roster)
	tasks, err := p.extractor.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract tasks: %w", err)
	}
	return tasks, nil
}

// Wait blocks until every submitted job has finished.
func (p *FinalizePool) Wait() { p.wg.Wait() }
