package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/logger"
)

const defaultRelayBatch = 100

// OutboxRelay publishes outbox records that the write path could not
// publish itself. Records go out in creation order and the batch stops at the
// first failure, so events for one job never overtake each other.
type OutboxRelay struct {
	outbox      domain.OutboxRepository
	publisher   domain.EventPublisher
	gracePeriod time.Duration
	retention   time.Duration
	batchSize   int
	now         func() time.Time

	mu sync.Mutex
}

type RelayResult struct {
	Published int
	Purged    int64
}

func NewOutboxRelay(outbox domain.OutboxRepository, publisher domain.EventPublisher, gracePeriod, retention time.Duration) *OutboxRelay {
	return &OutboxRelay{
		outbox:      outbox,
		publisher:   publisher,
		gracePeriod: gracePeriod,
		retention:   retention,
		batchSize:   defaultRelayBatch,
		now:         time.Now,
	}
}

// Run drains pending records once. The grace period leaves fresh records to
// the write path's own publish attempt.
func (r *OutboxRelay) Run(ctx context.Context) (RelayResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res RelayResult
	now := r.now()
	for {
		pending, err := r.outbox.FetchPending(ctx, now.Add(-r.gracePeriod), r.batchSize)
		if err != nil {
			return res, fmt.Errorf("outbox relay: fetch pending: %w", err)
		}
		for i := range pending {
			evt := pending[i].Event
			if err := r.publisher.Publish(ctx, &evt); err != nil {
				if markErr := r.outbox.MarkFailed(ctx, evt.ID, err); markErr != nil {
					logger.Log.Error("Failed to record outbox publish failure", "event_id", evt.ID, "error", markErr)
				}
				logger.Log.Warn("Outbox relay publish failed",
					"event_id", evt.ID, "job_id", evt.JobID, "attempts", pending[i].Attempts+1, "error", err)
				return res, fmt.Errorf("outbox relay: publish %s: %w", evt.ID, err)
			}
			if err := r.outbox.MarkPublished(ctx, evt.ID); err != nil {
				return res, fmt.Errorf("outbox relay: mark %s published: %w", evt.ID, err)
			}
			res.Published++
		}
		if len(pending) < r.batchSize {
			break
		}
	}

	if r.retention > 0 {
		purged, err := r.outbox.PurgePublished(ctx, now.Add(-r.retention))
		if err != nil {
			logger.Log.Warn("Outbox purge failed", "error", err)
		}
		res.Purged = purged
	}

	if res.Published > 0 {
		logger.Log.Info("Outbox relay published pending events", "count", res.Published)
	}
	return res, nil
}
