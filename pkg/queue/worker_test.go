package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/planner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatcherStub struct {
	mu         sync.Mutex
	dispatched []event.Event
	hosts      []string
	err        error
	panicOn    string
}

func (d *dispatcherStub) Dispatch(ctx context.Context, hostId string, e event.Event) (planner.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.Id == d.panicOn {
		panic("dispatcher exploded")
	}
	if d.err != nil {
		return planner.Result{}, d.err
	}
	d.dispatched = append(d.dispatched, e)
	d.hosts = append(d.hosts, hostId)
	return planner.Result{StatusCode: 202}, nil
}

func (d *dispatcherStub) Dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return event.Ids(d.dispatched)
}

var queueConfig = config.Queue{
	Stream:         "test:events",
	Group:          "test-group",
	Consumer:       "test-worker",
	MessageTimeout: time.Second,
	MinIdle:        time.Minute,
	MaxDeliveries:  3,
}

type workerFixture struct {
	worker     *Worker
	stream     *StreamStub
	dispatcher *dispatcherStub
	clock      *utils.MockClock
	dropped    []event_bus.MessageDroppedData
}

func setupWorker(t *testing.T) *workerFixture {
	t.Helper()
	f := &workerFixture{
		stream:     NewStreamStub(),
		dispatcher: &dispatcherStub{},
		clock:      &utils.MockClock{FixedNow: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)},
	}
	bus := event_bus.NewEventBus()
	event_bus.SubscribeTyped(bus, event_bus.QueueMessageDropped, func(e event_bus.EventT[event_bus.MessageDroppedData]) error {
		f.dropped = append(f.dropped, e.Data)
		return nil
	})
	f.worker = NewWorker(f.dispatcher, f.stream, queueConfig, f.clock, bus)
	return f
}

// deliver reads the next message off the stub as the consumer loop would.
func (f *workerFixture) deliver(t *testing.T, body string) Message {
	t.Helper()
	f.stream.Enqueue([]byte(body))
	msg, err := f.stream.Read(context.Background())
	require.NoError(t, err)
	require.NotNil(t, msg)
	return *msg
}

func TestWorker_OnMessage(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid event", `{"id":"e1","userId":"u1","title":"Standup"}`, nil},
		{"missing event id", `{"userId":"u1"}`, ErrMissingEventId},
		{"blank event id", `{"id":"  ","userId":"u1"}`, ErrMissingEventId},
		{"missing user id", `{"id":"e1"}`, ErrMissingUserId},
		{"not json", `not json`, ErrMalformed},
		{"wrong field type", `{"id":"e1","userId":"u1","startDate":42}`, ErrMalformed},
		{"unknown timezone", `{"id":"e1","userId":"u1","timezone":"Mars/Olympus_Mons"}`, event.ErrInvalidTimezone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			f := setupWorker(t)

			// when
			err := f.worker.OnMessage(context.Background(), []byte(tt.body))

			// then
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsPoison(err))
				assert.Empty(t, f.dispatcher.Dispatched())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"e1"}, f.dispatcher.Dispatched())
			assert.Equal(t, []string{"u1"}, f.dispatcher.hosts)
			assert.Equal(t, "Standup", f.dispatcher.dispatched[0].Title)
		})
	}
}

func TestWorker_Handle_AcksDispatchedMessage(t *testing.T) {
	// given
	f := setupWorker(t)
	msg := f.deliver(t, `{"id":"e1","userId":"u1"}`)

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Equal(t, []string{msg.Id}, f.stream.Acked())
	assert.Empty(t, f.stream.Pending())
	assert.Empty(t, f.dropped)
}

func TestWorker_Handle_LeavesFailedMessagePending(t *testing.T) {
	// given
	f := setupWorker(t)
	f.dispatcher.err = errors.New("planner unavailable")
	msg := f.deliver(t, `{"id":"e1","userId":"u1"}`)

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Empty(t, f.stream.Acked())
	assert.Equal(t, []string{msg.Id}, f.stream.Pending())
	assert.Empty(t, f.dropped)
}

func TestWorker_Handle_DropsPoisonMessage(t *testing.T) {
	// given
	f := setupWorker(t)
	msg := f.deliver(t, `{"userId":"u1"}`)

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Equal(t, []string{msg.Id}, f.stream.Acked())
	require.Len(t, f.dropped, 1)
	assert.Equal(t, msg.Id, f.dropped[0].MessageId)
	assert.Equal(t, ErrMissingEventId.Error(), f.dropped[0].Reason)
}

func TestWorker_Handle_DropsEventWithUnknownTimezone(t *testing.T) {
	// given
	f := setupWorker(t)
	msg := f.deliver(t, `{"id":"e1","userId":"u1","timezone":"Europe/Atlantis"}`)

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Empty(t, f.dispatcher.Dispatched())
	assert.Equal(t, []string{msg.Id}, f.stream.Acked())
	assert.Empty(t, f.stream.Pending())
	require.Len(t, f.dropped, 1)
}

func TestWorker_Handle_DropsDispatchWithUnknownTimezone(t *testing.T) {
	// given
	f := setupWorker(t)
	f.dispatcher.err = fmt.Errorf("window: %w", event.ErrInvalidTimezone)
	msg := f.deliver(t, `{"id":"e1","userId":"u1"}`)

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Equal(t, []string{msg.Id}, f.stream.Acked())
	require.Len(t, f.dropped, 1)
}

func TestWorker_Handle_RecoversFromPanic(t *testing.T) {
	// given
	f := setupWorker(t)
	f.dispatcher.panicOn = "e1"
	msg := f.deliver(t, `{"id":"e1","userId":"u1"}`)

	// when
	assert.NotPanics(t, func() { f.worker.Handle(context.Background(), msg) })

	// then
	assert.Equal(t, []string{msg.Id}, f.stream.Pending())
}

func TestWorker_Handle_GivesUpAfterMaxDeliveries(t *testing.T) {
	// given
	f := setupWorker(t)
	msg := f.deliver(t, `{"id":"e1","userId":"u1"}`)
	msg.Deliveries = queueConfig.MaxDeliveries + 1

	// when
	f.worker.Handle(context.Background(), msg)

	// then
	assert.Empty(t, f.dispatcher.Dispatched())
	assert.Equal(t, []string{msg.Id}, f.stream.Acked())
	require.Len(t, f.dropped, 1)
	assert.Equal(t, queueConfig.MaxDeliveries+1, f.dropped[0].Deliveries)
}

func TestWorker_Run_ProcessesMessagesInOrder(t *testing.T) {
	// given
	f := setupWorker(t)
	f.stream.Enqueue([]byte(`{"id":"e1","userId":"u1"}`))
	f.stream.Enqueue([]byte(`garbage`))
	f.stream.Enqueue([]byte(`{"id":"e2","userId":"u1"}`))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// when
	go func() { done <- f.worker.Run(ctx) }()

	// then
	assert.Eventually(t, func() bool { return len(f.stream.Acked()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, []string{"e1", "e2"}, f.dispatcher.Dispatched())
	assert.Equal(t, 1, f.stream.Groups)
}

func TestWorker_Run_RedeliversFailedMessage(t *testing.T) {
	// given
	f := setupWorker(t)
	f.dispatcher.err = errors.New("calendar down")
	f.stream.Enqueue([]byte(`{"id":"e1","userId":"u1"}`))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.worker.Run(ctx) }()
	assert.Eventually(t, func() bool { return len(f.stream.Pending()) == 1 }, time.Second, 5*time.Millisecond)

	// when
	f.dispatcher.mu.Lock()
	f.dispatcher.err = nil
	f.dispatcher.mu.Unlock()
	f.stream.Expire("1-0")
	f.clock.Advance(queueConfig.MinIdle)

	// then
	assert.Eventually(t, func() bool { return len(f.stream.Acked()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"e1"}, f.dispatcher.Dispatched())
	cancel()
	<-done
}
