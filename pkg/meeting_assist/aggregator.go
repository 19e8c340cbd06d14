package meeting_assist

import (
	"context"
	"errors"
	"fmt"

	"github.com/rush86999/atomic-scheduler/pkg/calendar"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var ErrMissingUserId = errors.New("internal attendee has no user id")

var tracer = otel.Tracer("github.com/rush86999/atomic-scheduler/pkg/meeting_assist")

type AttendeeFailure struct {
	Attendee Attendee
	Err      error
}

// Aggregation is everything relevant to one meeting that the caller did not know yet.
type Aggregation struct {
	// Events are the internal attendees' other events, with their own preferred time ranges.
	Events []event.Event
	// MeetingAssistEvents are the external attendees' busy times outside the meeting.
	MeetingAssistEvents []Event
	// MeetingEventsPlus are every attendee's copy of the meeting, carrying the meeting's
	// preferred time ranges.
	MeetingEventsPlus []event.Event
	InternalAttendees []Attendee
	ExternalAttendees []Attendee
	// Failures are the attendees whose calendars could not be read. They are left out of
	// the events but stay in the attendee lists.
	Failures []AttendeeFailure
}

type Aggregator struct {
	source      Source
	calendar    calendar.Source
	concurrency int
}

func NewAggregator(source Source, calendarSource calendar.Source, concurrency int) *Aggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Aggregator{source: source, calendar: calendarSource, concurrency: concurrency}
}

type attendeeResult struct {
	meetingEvents []event.Event
	events        []event.Event
	assistEvents  []Event
	err           error
}

// Aggregate resolves the attendees of the meeting and their calendars in the window. Events
// whose ids are in known are left out, except the attendees' copies of the meeting itself.
func (a *Aggregator) Aggregate(ctx context.Context, window event.Window, meetingId string, meetingEvent event.Event, known event.IdSet) (Aggregation, error) {
	ctx, span := tracer.Start(ctx, "meeting_assist.Aggregate")
	defer span.End()
	span.SetAttributes(attribute.String("meeting.id", meetingId))

	attendees, err := a.source.ListAttendees(ctx, meetingId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list attendees")
		return Aggregation{}, fmt.Errorf("failed to list attendees of meeting %s: %w", meetingId, err)
	}
	if len(attendees) == 0 {
		log.Warnf("meeting %s has no attendees, skipping", meetingId)
		return Aggregation{}, nil
	}

	meetingRanges, err := a.source.ListMeetingPreferredTimeRanges(ctx, meetingId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list meeting preferred time ranges")
		return Aggregation{}, fmt.Errorf("failed to list preferred time ranges of meeting %s: %w", meetingId, err)
	}

	results := make([]attendeeResult, len(attendees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, attendee := range attendees {
		g.Go(func() error {
			results[i] = a.resolveAttendee(gctx, window, meetingId, attendee, known)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Aggregation{}, err
	}

	var agg Aggregation
	seen := event.NewIdSet()
	meetingEvents := []event.Event{meetingEvent}
	for i, attendee := range attendees {
		if attendee.ExternalAttendee {
			agg.ExternalAttendees = append(agg.ExternalAttendees, attendee)
		} else {
			agg.InternalAttendees = append(agg.InternalAttendees, attendee)
		}

		res := results[i]
		if res.err != nil {
			log.Warnf("skipping calendar of attendee %s of meeting %s: %v", attendee.Id, meetingId, res.err)
			agg.Failures = append(agg.Failures, AttendeeFailure{Attendee: attendee, Err: res.err})
			continue
		}
		meetingEvents = append(meetingEvents, res.meetingEvents...)
		for _, e := range res.events {
			if seen.Has(e.Id) {
				continue
			}
			seen.Add(e.Id)
			agg.Events = append(agg.Events, e)
		}
		for _, e := range res.assistEvents {
			if seen.Has(e.Id) {
				continue
			}
			seen.Add(e.Id)
			agg.MeetingAssistEvents = append(agg.MeetingAssistEvents, e)
		}
	}

	copies := event.NewIdSet()
	for _, e := range meetingEvents {
		if e.Id == "" || copies.Has(e.Id) {
			continue
		}
		copies.Add(e.Id)
		e = e.Clone()
		e.PreferredTimeRanges = attachRanges(meetingRanges, e)
		agg.MeetingEventsPlus = append(agg.MeetingEventsPlus, e)
	}

	span.SetAttributes(
		attribute.Int("meeting.attendees.internal", len(agg.InternalAttendees)),
		attribute.Int("meeting.attendees.external", len(agg.ExternalAttendees)),
		attribute.Int("meeting.attendees.failed", len(agg.Failures)),
		attribute.Int("meeting.events", len(agg.Events)),
	)
	log.Debugf("meeting %s aggregated: %d internal, %d external attendees, %d events, %d busy times, %d meeting copies",
		meetingId, len(agg.InternalAttendees), len(agg.ExternalAttendees), len(agg.Events),
		len(agg.MeetingAssistEvents), len(agg.MeetingEventsPlus))
	return agg, nil
}

func (a *Aggregator) resolveAttendee(ctx context.Context, window event.Window, meetingId string, attendee Attendee, known event.IdSet) attendeeResult {
	if attendee.ExternalAttendee {
		return a.resolveExternal(ctx, window, meetingId, attendee, known)
	}
	return a.resolveInternal(ctx, window, meetingId, attendee, known)
}

func (a *Aggregator) resolveExternal(ctx context.Context, window event.Window, meetingId string, attendee Attendee, known event.IdSet) attendeeResult {
	busy, err := a.source.ListExternalEventsInWindow(ctx, attendee.Id, window.Start, window.End, attendee.Timezone, window.Timezone)
	if err != nil {
		return attendeeResult{err: err}
	}
	var res attendeeResult
	for _, e := range busy {
		if e.MeetingId == meetingId {
			res.meetingEvents = append(res.meetingEvents, e.ToEvent())
		} else if !known.Has(e.Id) {
			res.assistEvents = append(res.assistEvents, e)
		}
	}
	return res
}

func (a *Aggregator) resolveInternal(ctx context.Context, window event.Window, meetingId string, attendee Attendee, known event.IdSet) attendeeResult {
	if attendee.UserId == "" {
		return attendeeResult{err: ErrMissingUserId}
	}
	timezone := attendee.Timezone
	if timezone == "" {
		timezone = window.Timezone
	}
	events, err := a.calendar.ListEventsInWindow(ctx, attendee.UserId, window.Start, window.End, timezone)
	if err != nil {
		return attendeeResult{err: err}
	}
	var res attendeeResult
	for _, e := range events {
		if e.MeetingId == meetingId {
			res.meetingEvents = append(res.meetingEvents, e)
			continue
		}
		if known.Has(e.Id) {
			continue
		}
		ranges, err := a.calendar.ListPreferredTimeRanges(ctx, e.Id)
		if err != nil {
			return attendeeResult{err: fmt.Errorf("preferred time ranges of event %s: %w", e.Id, err)}
		}
		e.PreferredTimeRanges = validRanges(ranges)
		res.events = append(res.events, e)
	}
	return res
}

// attachRanges binds copies of the meeting level ranges to one copy of the meeting.
func attachRanges(ranges []event.PreferredTimeRange, e event.Event) []event.PreferredTimeRange {
	if len(ranges) == 0 {
		return nil
	}
	bound := make([]event.PreferredTimeRange, 0, len(ranges))
	for _, r := range ranges {
		r.EventId = e.Id
		if r.UserId == "" {
			r.UserId = e.UserId
		}
		bound = append(bound, r)
	}
	return validRanges(bound)
}

func validRanges(ranges []event.PreferredTimeRange) []event.PreferredTimeRange {
	valid, errs := event.ValidRanges(ranges)
	for _, err := range errs {
		log.Warnf("dropping preferred time range: %v", err)
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}
