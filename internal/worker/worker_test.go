package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stretchr/testify/require"
)

type flakyRecordingStore struct {
	calls [][]model.RecordingJob
}

// UpsertBatch rejects any batch larger than one row.
func (s *flakyRecordingStore) UpsertBatch(_ context.Context, jobs []model.RecordingJob) error {
	s.calls = append(s.calls, jobs)
	if len(jobs) > 1 {
		return errors.New("deadlock detected")
	}
	return nil
}

func TestRecordingFlushFallsBackToSingleRows(t *testing.T) {
	store := &flakyRecordingStore{}
	w := NewRecordingWorker(store, nil, zerolog.Nop())

	batch := []model.RecordingJob{
		{AttemptID: "a", QuestionNumber: 1},
		{AttemptID: "a", QuestionNumber: 2},
	}
	w.flush(context.Background(), batch)

	require.Len(t, store.calls, 3)
	require.Len(t, store.calls[0], 2)
	require.Equal(t, 1, store.calls[1][0].QuestionNumber)
	require.Equal(t, 2, store.calls[2][0].QuestionNumber)
}

func TestRecordingFlushSkipsEmptyBatch(t *testing.T) {
	store := &flakyRecordingStore{}
	NewRecordingWorker(store, nil, zerolog.Nop()).flush(context.Background(), nil)
	require.Empty(t, store.calls)
}

type eventStore struct {
	bulkErr error
	badID   uuid.UUID
	single  []model.AttemptEvent
}

func (s *eventStore) InsertBatch(context.Context, []model.AttemptEvent) error { return s.bulkErr }

func (s *eventStore) Insert(_ context.Context, e model.AttemptEvent) error {
	if e.AttemptID == s.badID {
		return errors.New("foreign key violation")
	}
	s.single = append(s.single, e)
	return nil
}

func TestAttemptEventFlushRecoversGoodRows(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	store := &eventStore{bulkErr: errors.New("copy failed"), badID: bad}
	w := NewAttemptEventWorker(store, nil, zerolog.Nop())

	now := time.Now()
	w.flushSafe(context.Background(), []model.AttemptEvent{
		{AttemptID: good, QuestionNumber: 1, Phase: "recording", CreatedAt: now},
		{AttemptID: bad, QuestionNumber: 1, Phase: "recording", CreatedAt: now},
		{AttemptID: good, QuestionNumber: 2, Phase: "preparing", CreatedAt: now},
	})

	require.Len(t, store.single, 2)
	require.Equal(t, 2, store.single[1].QuestionNumber)
}

func TestAttemptEventFlushBulkPath(t *testing.T) {
	store := &eventStore{}
	w := NewAttemptEventWorker(store, nil, zerolog.Nop())
	w.flushSafe(context.Background(), []model.AttemptEvent{{AttemptID: uuid.New(), Phase: "finished"}})
	require.Empty(t, store.single)
}
