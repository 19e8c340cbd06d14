package dispatcher

import (
	"context"
	"fmt"
	"slices"

	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/calendar"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/feature_resolver"
	"github.com/rush86999/atomic-scheduler/pkg/meeting_assist"
	"github.com/rush86999/atomic-scheduler/pkg/planner"
	"github.com/rush86999/atomic-scheduler/pkg/training"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/rush86999/atomic-scheduler/pkg/dispatcher")

type FeatureResolver interface {
	Resolve(ctx context.Context, e event.Event) (feature_resolver.Resolution, error)
}

type MeetingAggregator interface {
	Aggregate(ctx context.Context, window event.Window, meetingId string, meetingEvent event.Event, known event.IdSet) (meeting_assist.Aggregation, error)
}

// Dispatcher assembles the planning problem of a host's window around a changed event and
// submits it to the planner. Nothing is submitted when any step fails.
type Dispatcher struct {
	window     WindowPolicy
	calendar   calendar.Source
	training   training.Store
	resolver   FeatureResolver
	aggregator MeetingAggregator
	planner    planner.Client
	clock      utils.Clock
	bus        *event_bus.EventBus
}

func NewDispatcher(
	window WindowPolicy,
	calendarSource calendar.Source,
	store training.Store,
	resolver FeatureResolver,
	aggregator MeetingAggregator,
	plannerClient planner.Client,
	clock utils.Clock,
	bus *event_bus.EventBus,
) *Dispatcher {
	return &Dispatcher{
		window:     window,
		calendar:   calendarSource,
		training:   store,
		resolver:   resolver,
		aggregator: aggregator,
		planner:    plannerClient,
		clock:      clock,
		bus:        bus,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, hostId string, e event.Event) (planner.Result, error) {
	ctx, span := tracer.Start(ctx, "dispatcher.Dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("host.id", hostId), attribute.String("event.id", e.Id))

	started := d.clock.Now()
	result, payload, res, acc, err := d.dispatch(ctx, hostId, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch")
		d.publish(ctx, event_bus.PlanningFailed, event_bus.PlanningFailedData{HostId: hostId, EventId: e.Id, Err: err})
		return planner.Result{}, err
	}

	span.SetAttributes(attribute.String("planner.request_id", payload.RequestId))
	d.publish(ctx, event_bus.PlanningDispatched, event_bus.PlanningDispatchedData{
		HostId:              hostId,
		EventId:             e.Id,
		RequestId:           payload.RequestId,
		WindowStart:         payload.WindowStartDate,
		WindowEnd:           payload.WindowEndDate,
		Path:                string(res.Path),
		Events:              len(payload.Events),
		MeetingAssistEvents: len(payload.MeetingAssistEvents),
		AttendeeFailures:    acc.failures,
		Duration:            d.clock.Now().Sub(started),
	})
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, hostId string, e event.Event) (planner.Result, planner.Payload, feature_resolver.Resolution, accumulator, error) {
	var (
		payload planner.Payload
		res     feature_resolver.Resolution
		acc     accumulator
	)
	fail := func(err error) (planner.Result, planner.Payload, feature_resolver.Resolution, accumulator, error) {
		return planner.Result{}, payload, res, acc, err
	}

	window, err := d.window.For(e)
	if err != nil {
		return fail(err)
	}

	ranges, err := d.calendar.ListPreferredTimeRanges(ctx, e.Id)
	if err != nil {
		return fail(fmt.Errorf("failed to list preferred time ranges of event %s: %w", e.Id, err))
	}
	if len(ranges) > 0 {
		e.PreferredTimeRanges = validRanges(ranges)
	}

	hostEvents, err := d.calendar.ListEventsInWindow(ctx, hostId, window.Start, window.End, window.Timezone)
	if err != nil {
		return fail(fmt.Errorf("failed to list events of host %s: %w", hostId, err))
	}

	if !e.HasVector() {
		vector, err := d.training.GetVectorById(ctx, e.Id)
		if err != nil {
			return fail(fmt.Errorf("failed to get vector of event %s: %w", e.Id, err))
		}
		e.Vector = vector
	}

	res, err = d.resolver.Resolve(ctx, e)
	if err != nil {
		return fail(err)
	}
	hostEvents = upsertEvent(hostEvents, res.Event)

	acc = accumulator{known: event.NewIdSet(event.Ids(hostEvents)...)}
	for _, meeting := range distinctMeetings(hostEvents) {
		agg, err := d.aggregator.Aggregate(ctx, window, meeting.MeetingId, meeting, acc.known)
		if err != nil {
			return fail(err)
		}
		acc = acc.merge(agg)
	}

	events := dedupeEvents(acc.meetingEventsPlus, hostEvents, acc.events)
	internal, external := dedupeAttendees(acc.internalAttendees, acc.externalAttendees)
	payload = planner.Payload{
		RequestId:           planner.RequestId(hostId, e.Id, window.Start),
		HostId:              hostId,
		InternalAttendees:   internal,
		MeetingEventsPlus:   dedupeEvents(acc.meetingEventsPlus),
		Events:              events,
		HostCalendarEvents:  hostEvents,
		WindowStartDate:     window.Start,
		WindowEndDate:       window.End,
		HostTimezone:        window.Timezone,
		ExternalAttendees:   external,
		MeetingAssistEvents: dedupeAssistEvents(acc.assistEvents, event.NewIdSet(event.Ids(events)...)),
	}

	result, err := d.planner.Submit(ctx, payload)
	if err != nil {
		return fail(err)
	}
	log.WithFields(log.Fields{
		"hostId":    hostId,
		"eventId":   e.Id,
		"requestId": payload.RequestId,
		"path":      res.Path,
		"events":    len(payload.Events),
	}).Info("planning problem submitted")
	return result, payload, res, acc, nil
}

func (d *Dispatcher) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if d.bus == nil {
		return
	}
	if err := d.bus.Publish(event_bus.NewEvent(context.WithoutCancel(ctx), eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

// upsertEvent swaps the event with the same id for e, or appends e when the list has none.
// The primary event may end before the window starts and still belongs to the problem.
func upsertEvent(events []event.Event, e event.Event) []event.Event {
	out := slices.Clone(events)
	i := slices.IndexFunc(out, func(o event.Event) bool { return o.Id == e.Id })
	if i < 0 {
		return append(out, e)
	}
	out[i] = e
	return out
}

// distinctMeetings returns the first event of every meeting, in order.
func distinctMeetings(events []event.Event) []event.Event {
	seen := make(map[string]struct{})
	var meetings []event.Event
	for _, e := range events {
		if e.MeetingId == "" {
			continue
		}
		if _, ok := seen[e.MeetingId]; ok {
			continue
		}
		seen[e.MeetingId] = struct{}{}
		meetings = append(meetings, e)
	}
	return meetings
}

func validRanges(ranges []event.PreferredTimeRange) []event.PreferredTimeRange {
	valid, errs := event.ValidRanges(ranges)
	for _, err := range errs {
		log.Warnf("dropping preferred time range: %v", err)
	}
	return valid
}
