package usecase_test

import (
	"context"
	"testing"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/internal/usecase"
	"job-marketplace-backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexerApply(t *testing.T) {
	at := time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("Should upsert on create and update, delete on delete", func(t *testing.T) {
		idx := newFakeIndex()
		uc := usecase.NewIndexerUsecase(idx)

		job := sampleJob("job-1", "emp-1", at)
		require.NoError(t, uc.Apply(ctx, *domain.NewJobCreated(job)))
		doc, ok := idx.get("job-1")
		require.True(t, ok)
		assert.Equal(t, "Backend Engineer", doc.Title)

		job.Title = "Platform Engineer"
		job.UpdatedAt = at.Add(time.Minute)
		require.NoError(t, uc.Apply(ctx, *domain.NewJobUpdated(job)))
		doc, _ = idx.get("job-1")
		assert.Equal(t, "Platform Engineer", doc.Title)

		require.NoError(t, uc.Apply(ctx, *domain.NewJobDeleted("job-1", at.Add(2*time.Minute))))
		_, ok = idx.get("job-1")
		assert.False(t, ok)
	})

	t.Run("Should converge when an event is redelivered", func(t *testing.T) {
		idx := newFakeIndex()
		uc := usecase.NewIndexerUsecase(idx)

		evt := *domain.NewJobCreated(sampleJob("job-1", "emp-1", at))
		require.NoError(t, uc.Apply(ctx, evt))
		require.NoError(t, uc.Apply(ctx, evt))
		ids, _ := idx.IDs(ctx)
		assert.Equal(t, []string{"job-1"}, ids)

		del := *domain.NewJobDeleted("job-1", at.Add(time.Second))
		require.NoError(t, uc.Apply(ctx, del))
		require.NoError(t, uc.Apply(ctx, del))
	})

	t.Run("Should skip an update older than the indexed document", func(t *testing.T) {
		idx := newFakeIndex()
		uc := usecase.NewIndexerUsecase(idx)

		stale := *domain.NewJobUpdated(sampleJob("job-1", "emp-1", at))
		fresh := sampleJob("job-1", "emp-1", at.Add(time.Minute))
		fresh.Title = "Fresh"
		require.NoError(t, uc.Apply(ctx, *domain.NewJobUpdated(fresh)))

		require.NoError(t, uc.Apply(ctx, stale))
		doc, _ := idx.get("job-1")
		assert.Equal(t, "Fresh", doc.Title)
	})

	t.Run("Should keep a deleted job deleted when an older update arrives", func(t *testing.T) {
		idx := newFakeIndex()
		uc := usecase.NewIndexerUsecase(idx)

		require.NoError(t, uc.Apply(ctx, *domain.NewJobDeleted("job-1", at.Add(time.Minute))))
		require.NoError(t, uc.Apply(ctx, *domain.NewJobUpdated(sampleJob("job-1", "emp-1", at))))
		_, ok := idx.get("job-1")
		assert.False(t, ok)
	})

	t.Run("Should fail so the event is redelivered", func(t *testing.T) {
		idx := newFakeIndex()
		idx.failNext = domain.ErrIndexUnavailable
		uc := usecase.NewIndexerUsecase(idx)

		err := uc.Apply(ctx, *domain.NewJobCreated(sampleJob("job-1", "emp-1", at)))
		assert.ErrorIs(t, err, apperror.ErrIndexOperation)
		assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	})

	t.Run("Should reject malformed events", func(t *testing.T) {
		uc := usecase.NewIndexerUsecase(newFakeIndex())
		err := uc.Apply(ctx, domain.Event{ID: "e1", Type: domain.EventJobCreated, JobID: "job-1"})
		assert.ErrorIs(t, err, domain.ErrMalformedEvent)
	})
}

