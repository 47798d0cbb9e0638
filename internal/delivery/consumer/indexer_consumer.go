package consumer

import (
	"context"
	"errors"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/logger"
)

// IndexerConsumer feeds events from the channel into the search indexer
// until its context is cancelled.
type IndexerConsumer struct {
	subscriber domain.EventSubscriber
	indexer    domain.IndexerUsecase
}

func NewIndexerConsumer(subscriber domain.EventSubscriber, indexer domain.IndexerUsecase) *IndexerConsumer {
	return &IndexerConsumer{subscriber: subscriber, indexer: indexer}
}

// Run blocks until ctx is done. A handler error leaves the event
// unacknowledged for redelivery.
func (c *IndexerConsumer) Run(ctx context.Context) error {
	logger.Log.Info("Search indexer consumer starting")
	err := c.subscriber.Subscribe(ctx, c.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Log.Info("Search indexer consumer stopped")
	return nil
}

func (c *IndexerConsumer) handle(ctx context.Context, evt domain.Event) error {
	return c.indexer.Apply(ctx, evt)
}
