package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"telecall_backend/platform/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingEvent struct {
	BaseEvent
}

func (pingEvent) EventName() string { return "test.ping" }

func TestPublishSyncRunsHandlersInOrder(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())

	var order []int
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 1)
		return nil
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		order = append(order, 2)
		return errors.New("boom")
	}))

	err := bus.PublishSync(context.Background(), pingEvent{BaseEvent: NewBaseEvent()})
	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

func TestPublishRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())

	var calls atomic.Int32
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		panic("handler exploded")
	}))
	bus.Subscribe("test.ping", HandlerFunc(func(context.Context, Event) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Publish(ctx, pingEvent{BaseEvent: NewBaseEvent()})
	bus.Wait()

	assert.Equal(t, int32(2), calls.Load())
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewInMemoryBus(logger.Discard())
	assert.NoError(t, bus.PublishSync(context.Background(), pingEvent{}))
	bus.Publish(context.Background(), pingEvent{})
	bus.Wait()
}
