package meeting_assist

import (
	"context"
	"time"

	"github.com/rush86999/atomic-scheduler/pkg/event"
)

// Attendee is a participant of a multi-party meeting. External attendees are not users of
// the system and are known only through the synthetic events recorded for the meeting.
type Attendee struct {
	Id               string `json:"id"`
	MeetingId        string `json:"meetingId"`
	UserId           string `json:"userId,omitempty"`
	Name             string `json:"name,omitempty"`
	PrimaryEmail     string `json:"primaryEmail,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	ExternalAttendee bool   `json:"externalAttendee"`
}

// Event is the busy time of an external attendee.
type Event struct {
	Id           string             `json:"id"`
	AttendeeId   string             `json:"attendeeId"`
	MeetingId    string             `json:"meetingId,omitempty"`
	StartDate    time.Time          `json:"startDate"`
	EndDate      time.Time          `json:"endDate"`
	Timezone     string             `json:"timezone"`
	Summary      string             `json:"summary,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	Transparency event.Transparency `json:"transparency,omitempty"`
}

// ToEvent converts the busy time into a calendar event owned by the attendee.
func (e Event) ToEvent() event.Event {
	return event.Event{
		Id:               e.Id,
		UserId:           e.AttendeeId,
		StartDate:        e.StartDate,
		EndDate:          e.EndDate,
		Timezone:         e.Timezone,
		Title:            e.Summary,
		Summary:          e.Summary,
		Notes:            e.Notes,
		MeetingId:        e.MeetingId,
		Transparency:     e.Transparency,
		ExternalAttendee: true,
	}
}

type Source interface {
	ListAttendees(ctx context.Context, meetingId string) ([]Attendee, error)
	// ListExternalEventsInWindow returns the attendee's busy time overlapping [from, to]. Events
	// without a timezone get the attendee's, or the host's when the attendee has none.
	ListExternalEventsInWindow(ctx context.Context, attendeeId string, from, to time.Time, attendeeTimezone, hostTimezone string) ([]Event, error)
	// ListMeetingPreferredTimeRanges returns the ranges declared for the meeting as a whole. They
	// are not bound to an event.
	ListMeetingPreferredTimeRanges(ctx context.Context, meetingId string) ([]event.PreferredTimeRange, error)
}
