package planner

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/meeting_assist"
)

var ErrRejected = errors.New("planner rejected the submission")

// Payload is the scheduling problem of one host's planning window.
type Payload struct {
	// RequestId identifies the submission, redelivered messages produce the same id.
	RequestId           string                    `json:"requestId"`
	HostId              string                    `json:"hostId"`
	InternalAttendees   []meeting_assist.Attendee `json:"internalAttendees"`
	MeetingEventsPlus   []event.Event             `json:"meetingEventsPlus"`
	Events              []event.Event             `json:"events"`
	HostCalendarEvents  []event.Event             `json:"hostCalendarEvents"`
	WindowStartDate     time.Time                 `json:"windowStartDate"`
	WindowEndDate       time.Time                 `json:"windowEndDate"`
	HostTimezone        string                    `json:"hostTimezone"`
	ExternalAttendees   []meeting_assist.Attendee `json:"externalAttendees"`
	MeetingAssistEvents []meeting_assist.Event    `json:"meetingAssistEvents"`
}

// Result is the planner's acknowledgement. It is passed on as received.
type Result struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body,omitempty"`
}

type Client interface {
	Submit(ctx context.Context, payload Payload) (Result, error)
}

var requestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rush86999/atomic-scheduler/planner"))

// RequestId derives the submission id of a host's window planned because of an event.
func RequestId(hostId, eventId string, windowStart time.Time) string {
	name := hostId + "|" + eventId + "|" + windowStart.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(requestNamespace, []byte(name)).String()
}
