package dispatcher

import (
	"slices"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/meeting_assist"
)

// accumulator gathers the aggregations of the meetings of one dispatch. merge never modifies
// its receiver.
type accumulator struct {
	events            []event.Event
	assistEvents      []meeting_assist.Event
	meetingEventsPlus []event.Event
	internalAttendees []meeting_assist.Attendee
	externalAttendees []meeting_assist.Attendee
	failures          int
	// known are the ids of every event seen so far. Later meetings skip them.
	known event.IdSet
}

func (a accumulator) merge(agg meeting_assist.Aggregation) accumulator {
	ids := event.Ids(agg.Events)
	ids = append(ids, event.Ids(agg.MeetingEventsPlus)...)
	for _, e := range agg.MeetingAssistEvents {
		ids = append(ids, e.Id)
	}
	return accumulator{
		events:            slices.Concat(a.events, agg.Events),
		assistEvents:      slices.Concat(a.assistEvents, agg.MeetingAssistEvents),
		meetingEventsPlus: slices.Concat(a.meetingEventsPlus, agg.MeetingEventsPlus),
		internalAttendees: slices.Concat(a.internalAttendees, agg.InternalAttendees),
		externalAttendees: slices.Concat(a.externalAttendees, agg.ExternalAttendees),
		failures:          a.failures + len(agg.Failures),
		known:             a.known.With(ids...),
	}
}

// dedupeEvents concatenates the lists keeping the first event of every id.
func dedupeEvents(lists ...[]event.Event) []event.Event {
	seen := event.NewIdSet()
	out := make([]event.Event, 0)
	for _, list := range lists {
		for _, e := range list {
			if seen.Has(e.Id) {
				continue
			}
			seen.Add(e.Id)
			out = append(out, e)
		}
	}
	return out
}

// dedupeAttendees keeps one record per attendee id. An attendee seen as internal is never
// reported as external.
func dedupeAttendees(internal, external []meeting_assist.Attendee) ([]meeting_assist.Attendee, []meeting_assist.Attendee) {
	seen := make(map[string]struct{})
	internalOut := make([]meeting_assist.Attendee, 0, len(internal))
	for _, a := range internal {
		if _, ok := seen[a.Id]; ok {
			continue
		}
		seen[a.Id] = struct{}{}
		internalOut = append(internalOut, a)
	}
	externalOut := make([]meeting_assist.Attendee, 0, len(external))
	for _, a := range external {
		if _, ok := seen[a.Id]; ok {
			continue
		}
		seen[a.Id] = struct{}{}
		externalOut = append(externalOut, a)
	}
	return internalOut, externalOut
}

// dedupeAssistEvents keeps one busy time per id and drops those already planned as events.
func dedupeAssistEvents(events []meeting_assist.Event, planned event.IdSet) []meeting_assist.Event {
	seen := event.NewIdSet()
	out := make([]meeting_assist.Event, 0, len(events))
	for _, e := range events {
		if planned.Has(e.Id) || seen.Has(e.Id) {
			continue
		}
		seen.Add(e.Id)
		out = append(out, e)
	}
	return out
}
