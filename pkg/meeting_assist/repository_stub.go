package meeting_assist

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rush86999/atomic-scheduler/pkg/event"
)

type RepositoryStub struct {
	mu        sync.RWMutex
	attendees map[string][]Attendee                 // meetingId -> attendees
	events    map[string][]Event                    // attendeeId -> events
	ranges    map[string][]event.PreferredTimeRange // meetingId -> ranges

	// Err is returned by every read; AttendeeErrs only by the reads of the given attendee.
	Err          error
	AttendeeErrs map[string]error
	RangeCalls   int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		attendees:    make(map[string][]Attendee),
		events:       make(map[string][]Event),
		ranges:       make(map[string][]event.PreferredTimeRange),
		AttendeeErrs: make(map[string]error),
	}
}

func (r *RepositoryStub) AddAttendee(a Attendee) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attendees[a.MeetingId] = append(r.attendees[a.MeetingId], a)
}

func (r *RepositoryStub) AddEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.AttendeeId] = append(r.events[e.AttendeeId], e)
}

func (r *RepositoryStub) SetMeetingPreferredTimeRanges(meetingId string, ranges ...event.PreferredTimeRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges[meetingId] = ranges
}

func (r *RepositoryStub) ListAttendees(ctx context.Context, meetingId string) ([]Attendee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.attendees[meetingId]), nil
}

func (r *RepositoryStub) ListExternalEventsInWindow(ctx context.Context, attendeeId string, from, to time.Time, attendeeTimezone, hostTimezone string) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	if err := r.AttendeeErrs[attendeeId]; err != nil {
		return nil, err
	}
	var events []Event
	for _, e := range r.events[attendeeId] {
		if e.StartDate.After(to) || e.EndDate.Before(from) {
			continue
		}
		if e.Timezone == "" {
			e.Timezone = attendeeTimezone
			if e.Timezone == "" {
				e.Timezone = hostTimezone
			}
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *RepositoryStub) ListMeetingPreferredTimeRanges(ctx context.Context, meetingId string) ([]event.PreferredTimeRange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RangeCalls++
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.ranges[meetingId]), nil
}
