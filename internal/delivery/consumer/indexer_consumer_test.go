package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"job-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubscriber struct {
	mock.Mock
	events []domain.Event
}

func (m *MockSubscriber) Subscribe(ctx context.Context, handler domain.EventHandler) error {
	args := m.Called(ctx)
	for _, evt := range m.events {
		if err := handler(ctx, evt); err != nil {
			return err
		}
	}
	return args.Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Apply(ctx context.Context, evt domain.Event) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func TestIndexerConsumer_Run(t *testing.T) {
	evt := *domain.NewJobDeleted("job-1", time.Now())

	t.Run("Should apply each delivered event", func(t *testing.T) {
		sub := &MockSubscriber{events: []domain.Event{evt}}
		idx := new(MockIndexer)
		sub.On("Subscribe", mock.Anything).Return(context.Canceled)
		idx.On("Apply", mock.Anything, evt).Return(nil).Once()

		err := NewIndexerConsumer(sub, idx).Run(context.Background())

		require.NoError(t, err)
		idx.AssertExpectations(t)
	})

	t.Run("Should surface subscription failures", func(t *testing.T) {
		sub := new(MockSubscriber)
		sub.On("Subscribe", mock.Anything).Return(errors.New("group create failed"))

		err := NewIndexerConsumer(sub, new(MockIndexer)).Run(context.Background())

		assert.EqualError(t, err, "group create failed")
	})
}
