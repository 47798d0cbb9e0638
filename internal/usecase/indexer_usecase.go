package usecase

import (
	"context"
	"errors"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/apperror"
	"job-marketplace-backend/pkg/logger"
)

type indexerUsecase struct {
	index domain.SearchIndex
}

func NewIndexerUsecase(index domain.SearchIndex) domain.IndexerUsecase {
	return &indexerUsecase{index: index}
}

// Apply projects one event onto the search index. Upsert and delete are both
// idempotent, so a redelivered event converges to the same state. A non-nil
// return tells the channel not to acknowledge.
func (u *indexerUsecase) Apply(ctx context.Context, evt domain.Event) error {
	if err := evt.Validate(); err != nil {
		logger.Log.Error("Rejecting malformed event", "event_id", evt.ID, "error", err)
		return apperror.IndexOperation(err)
	}

	var err error
	switch evt.Type {
	case domain.EventJobCreated, domain.EventJobUpdated:
		doc := domain.NewSearchDocument(evt.Job)
		err = u.index.Upsert(ctx, doc, domain.DocumentVersion(evt.Job.UpdatedAt))
	case domain.EventJobDeleted:
		err = u.index.Delete(ctx, evt.JobID, domain.DocumentVersion(evt.OccurredAt))
	}

	if errors.Is(err, domain.ErrStaleDocument) {
		logger.Log.Info("Skipped stale event, index already newer",
			"event_id", evt.ID, "type", evt.Type, "job_id", evt.JobID)
		return nil
	}
	if err != nil {
		logger.Log.Warn("Index operation failed, event will be redelivered",
			"event_id", evt.ID, "type", evt.Type, "job_id", evt.JobID, "error", err)
		return apperror.IndexOperation(err)
	}

	logger.Log.Debug("Event applied to index", "event_id", evt.ID, "type", evt.Type, "job_id", evt.JobID)
	return nil
}
