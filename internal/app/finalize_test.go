package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/meetsync/internal/core"
	"github.com/dkeye/meetsync/internal/domain"
)

type mockRoster struct{ mock.Mock }

func (m *mockRoster) Roster(ctx context.Context, room domain.RoomID) ([]domain.RosterEntry, error) {
	args := m.Called(ctx, room)
	r, _ := args.Get(0).([]domain.RosterEntry)
	return r, args.Error(1)
}

type mockExtractor struct{ mock.Mock }

func (m *mockExtractor) Extract(ctx context.Context, transcript string) ([]domain.ExtractedTask, error) {
	args := m.Called(ctx, transcript)
	r, _ := args.Get(0).([]domain.ExtractedTask)
	return r, args.Error(1)
}

func job(entries ...domain.TranscriptEntry) core.FinalizeJob {
	return core.FinalizeJob{Room: "R1", CallUUID: "call-1", Entries: entries}
}

func TestFinalizeRendersRoster(t *testing.T) {
	roster := &mockRoster{}
	roster.On("Roster", mock.Anything, domain.RoomID("R1")).
		Return([]domain.RosterEntry{{Username: "ann", Role: domain.RoleHost}}, nil)
	extractor := &mockExtractor{}
	want := []domain.ExtractedTask{{Title: "login page", Assignee: "bob"}}
	extractor.On("Extract", mock.Anything, "Ann: hi\n\nTeam Members and Roles:\n- ann: host\n").Return(want, nil)

	p := NewFinalizePool(context.Background(), 1, roster, extractor)
	got, err := p.Finalize(context.Background(), job(domain.TranscriptEntry{Speaker: "Ann", Text: "hi"}))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	roster.AssertExpectations(t)
	extractor.AssertExpectations(t)
}

func TestFinalizeRosterMissDegrades(t *testing.T) {
	roster := &mockRoster{}
	roster.On("Roster", mock.Anything, domain.RoomID("R1")).Return(nil, domain.ErrRoomNotFound)
	extractor := &mockExtractor{}
	extractor.On("Extract", mock.Anything, "Ann: hi\n\nTeam Members and Roles:\n").Return([]domain.ExtractedTask{}, nil)

	p := NewFinalizePool(context.Background(), 1, roster, extractor)
	_, err := p.Finalize(context.Background(), job(domain.TranscriptEntry{Speaker: "Ann", Text: "hi"}))
	require.NoError(t, err)
	extractor.AssertExpectations(t)
}

func TestFinalizeEmptyTranscriptSkipsExtraction(t *testing.T) {
	extractor := &mockExtractor{}
	p := NewFinalizePool(context.Background(), 1, nil, extractor)
	_, err := p.Finalize(context.Background(), job())
	assert.ErrorIs(t, err, domain.ErrEmptyTranscript)
	extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestFinalizeExtractorError(t *testing.T) {
	boom := errors.New("llm down")
	extractor := &mockExtractor{}
	extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, boom)

	p := NewFinalizePool(context.Background(), 1, nil, extractor)
	_, err := p.Finalize(context.Background(), job(domain.TranscriptEntry{Speaker: "Ann", Text: "hi"}))
	assert.ErrorIs(t, err, boom)
}

func TestSubmitRunsInBackground(t *testing.T) {
	extractor := &mockExtractor{}
	extractor.On("Extract", mock.Anything, mock.Anything).Return([]domain.ExtractedTask{{Title: "x"}}, nil).Times(3)

	p := NewFinalizePool(context.Background(), 2, nil, extractor)
	for range 3 {
		p.Submit(job(domain.TranscriptEntry{Speaker: "Ann", Text: "hi"}))
	}
	p.Submit(job())
	p.Wait()
	extractor.AssertNumberOfCalls(t, "Extract", 3)
}
