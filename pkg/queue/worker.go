package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/planner"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/rush86999/atomic-scheduler/pkg/queue")

const readRetryDelay = time.Second

type Dispatcher interface {
	Dispatch(ctx context.Context, hostId string, e event.Event) (planner.Result, error)
}

// Worker consumes queued events one at a time and dispatches each to the planner. A message
// is acked once dispatched or once it is known to be unprocessable; anything else stays pending
// and is redelivered.
type Worker struct {
	dispatcher Dispatcher
	consumer   Consumer
	cfg        config.Queue
	clock      utils.Clock
	bus        *event_bus.EventBus
	nextClaim  time.Time
}

func NewWorker(dispatcher Dispatcher, consumer Consumer, cfg config.Queue, clock utils.Clock, bus *event_bus.EventBus) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		consumer:   consumer,
		cfg:        cfg,
		clock:      clock,
		bus:        bus,
	}
}

// Run consumes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.consumer.EnsureGroup(ctx); err != nil {
		return err
	}
	log.Infof("worker %s consuming %s as part of %s", w.cfg.Consumer, w.cfg.Stream, w.cfg.Group)

	for ctx.Err() == nil {
		msg, err := w.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Errorf("failed to receive message: %v", err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}
		if msg == nil {
			continue
		}
		w.Handle(ctx, *msg)
	}
	log.Infof("worker %s stopped", w.cfg.Consumer)
	return nil
}

// next prefers messages abandoned by a crashed or failed delivery over new ones.
func (w *Worker) next(ctx context.Context) (*Message, error) {
	now := w.clock.Now()
	if !now.Before(w.nextClaim) {
		msg, err := w.consumer.Claim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
		w.nextClaim = now.Add(w.cfg.MinIdle / 2)
	}
	return w.consumer.Read(ctx)
}

// Handle processes one delivery and settles it.
func (w *Worker) Handle(ctx context.Context, msg Message) {
	ctx, span := tracer.Start(ctx, "queue.Handle", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("message.id", msg.Id), attribute.Int64("message.deliveries", msg.Deliveries))
	logger := log.WithFields(log.Fields{"messageId": msg.Id, "deliveries": msg.Deliveries})

	if w.cfg.MaxDeliveries > 0 && msg.Deliveries > w.cfg.MaxDeliveries {
		logger.Errorf("giving up on message after %d deliveries", msg.Deliveries)
		w.drop(ctx, msg, "too many deliveries")
		return
	}

	mctx, cancel := context.WithTimeout(ctx, w.cfg.MessageTimeout)
	defer cancel()
	err := w.safeOnMessage(mctx, msg.Body)
	switch {
	case err == nil:
		w.ack(ctx, msg)
	case IsPoison(err):
		span.RecordError(err)
		logger.Warnf("dropping unprocessable message: %v", err)
		w.drop(ctx, msg, err.Error())
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "handle")
		logger.Errorf("failed to process message, leaving it for redelivery: %v", err)
	}
}

func (w *Worker) safeOnMessage(ctx context.Context, raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()
	return w.OnMessage(ctx, raw)
}

// OnMessage decodes an event and dispatches it on behalf of its owner.
func (w *Worker) OnMessage(ctx context.Context, raw []byte) error {
	var probe struct {
		Id     string `json:"id"`
		UserId string `json:"userId"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if strings.TrimSpace(probe.Id) == "" {
		return ErrMissingEventId
	}
	if strings.TrimSpace(probe.UserId) == "" {
		return fmt.Errorf("%w: event %s", ErrMissingUserId, probe.Id)
	}

	var e event.Event
	if err := json.Unmarshal(raw, &e); err != nil {
		return fmt.Errorf("%w: event %s: %v", ErrMalformed, probe.Id, err)
	}
	if _, err := e.Location(); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	result, err := w.dispatcher.Dispatch(ctx, e.UserId, e)
	if err != nil {
		return err
	}
	log.Debugf("event %s dispatched, planner answered %d", e.Id, result.StatusCode)
	return nil
}

func (w *Worker) ack(ctx context.Context, msg Message) {
	if err := w.consumer.Ack(context.WithoutCancel(ctx), msg.Id); err != nil {
		log.Errorf("message %s processed but not acked, it will be redelivered: %v", msg.Id, err)
	}
}

func (w *Worker) drop(ctx context.Context, msg Message, reason string) {
	w.ack(ctx, msg)
	if w.bus == nil {
		return
	}
	data := event_bus.MessageDroppedData{MessageId: msg.Id, Reason: reason, Deliveries: msg.Deliveries}
	if err := w.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), event_bus.QueueMessageDropped, data)); err != nil {
		log.Warnf("failed to publish %s: %v", event_bus.QueueMessageDropped, err)
	}
}
