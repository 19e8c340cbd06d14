package event_bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Publish_InSubscriptionOrder(t *testing.T) {
	// given
	bus := NewEventBus()
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		bus.Subscribe(PlanningDispatched, func(e Event) error {
			calls = append(calls, name)
			return nil
		})
	}

	// when
	err := bus.Publish(NewEvent(context.Background(), PlanningDispatched, PlanningDispatchedData{EventId: "e1"}))

	// then
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestEventBus_SubscribeTyped(t *testing.T) {
	// given
	bus := NewEventBus()
	var received []MessageDroppedData
	SubscribeTyped(bus, QueueMessageDropped, func(e EventT[MessageDroppedData]) error {
		received = append(received, e.Data)
		return nil
	})

	// when
	require.NoError(t, bus.Publish(NewEvent(context.Background(), QueueMessageDropped, MessageDroppedData{MessageId: "1-0"})))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), QueueMessageDropped, "not a payload")))
	require.NoError(t, bus.Publish(NewEvent(context.Background(), PlanningFailed, PlanningFailedData{})))

	// then
	assert.Equal(t, []MessageDroppedData{{MessageId: "1-0"}}, received)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	// given
	bus := NewEventBus()
	calls := 0
	unsubscribe := bus.Subscribe(TrainingRecordInserted, func(e Event) error {
		calls++
		return nil
	})
	kept := 0
	bus.Subscribe(TrainingRecordInserted, func(e Event) error {
		kept++
		return nil
	})

	// when
	unsubscribe()
	require.NoError(t, bus.Publish(NewEvent(context.Background(), TrainingRecordInserted, TrainingRecordChanged{Id: "e1"})))

	// then
	assert.Zero(t, calls)
	assert.Equal(t, 1, kept)
}

func TestEventBus_Publish_CollectsFailures(t *testing.T) {
	// given
	bus := NewEventBus()
	boom := errors.New("boom")
	reached := false
	bus.Subscribe(PlanningFailed, func(e Event) error { return boom })
	bus.Subscribe(PlanningFailed, func(e Event) error { panic("subscriber bug") })
	bus.Subscribe(PlanningFailed, func(e Event) error {
		reached = true
		return nil
	})

	// when
	err := bus.Publish(NewEvent(context.Background(), PlanningFailed, PlanningFailedData{}))

	// then
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "panicked")
	assert.True(t, reached)
}

func TestEventBus_Publish_CancelledContext(t *testing.T) {
	// given
	bus := NewEventBus()
	called := false
	bus.Subscribe(PlanningDispatched, func(e Event) error {
		called = true
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	err := bus.Publish(NewEvent(ctx, PlanningDispatched, PlanningDispatchedData{}))

	// then
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
