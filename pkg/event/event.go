package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidTimezone = errors.New("invalid timezone")

type Transparency string

const (
	Opaque      Transparency = "opaque"
	Transparent Transparency = "transparent"
)

// Event is a calendar event as it travels through the planning pipeline. Scheduling
// attributes (priority, time blocking, reminders...) are computed in memory and are
// never written back by the pipeline itself.
type Event struct {
	Id                     string               `json:"id"`
	UserId                 string               `json:"userId"`
	StartDate              time.Time            `json:"startDate"`
	EndDate                time.Time            `json:"endDate"`
	Timezone               string               `json:"timezone"`
	Title                  string               `json:"title,omitempty"`
	Summary                string               `json:"summary,omitempty"`
	Notes                  string               `json:"notes,omitempty"`
	MeetingId              string               `json:"meetingId,omitempty"`
	UserModifiedCategories bool                 `json:"userModifiedCategories"`
	Vector                 []float32            `json:"vector,omitempty"`
	PreferredTimeRanges    []PreferredTimeRange `json:"preferredTimeRanges,omitempty"`

	Priority          int          `json:"priority,omitempty"`
	Modifiable        bool         `json:"modifiable"`
	Transparency      Transparency `json:"transparency,omitempty"`
	IsBreak           bool         `json:"isBreak,omitempty"`
	IsMeeting         bool         `json:"isMeeting,omitempty"`
	IsExternalMeeting bool         `json:"isExternalMeeting,omitempty"`
	TimeBlocking      *BufferTime  `json:"timeBlocking,omitempty"`
	// Reminders are minutes before the start of the event.
	Reminders        []int    `json:"reminders,omitempty"`
	CategoryIds      []string `json:"categoryIds,omitempty"`
	ExternalAttendee bool     `json:"externalAttendee,omitempty"`
}

// BufferTime is time reserved before and after an event, in minutes.
type BufferTime struct {
	BeforeEvent int `json:"beforeEvent"`
	AfterEvent  int `json:"afterEvent"`
}

func (b *BufferTime) IsZero() bool {
	return b == nil || (b.BeforeEvent == 0 && b.AfterEvent == 0)
}

// HasVector reports whether an embedding is attached to the event.
func (e Event) HasVector() bool {
	return len(e.Vector) > 0
}

// HasText reports whether the event carries any text that can discriminate it from others.
func (e Event) HasText() bool {
	return strings.TrimSpace(e.Title) != "" ||
		strings.TrimSpace(e.Summary) != "" ||
		strings.TrimSpace(e.Notes) != ""
}

// SourceText returns the "{title or summary}:{notes}" text stored alongside a training vector.
func (e Event) SourceText() string {
	name := e.Title
	if name == "" {
		name = e.Summary
	}
	return fmt.Sprintf("%s:%s", name, e.Notes)
}

// Location resolves the event's IANA timezone, falling back to UTC when it is not set.
func (e Event) Location() (*time.Location, error) {
	if e.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q of event %s: %v", ErrInvalidTimezone, e.Timezone, e.Id, err)
	}
	return loc, nil
}

// Duration of the event.
func (e Event) Duration() time.Duration {
	return e.EndDate.Sub(e.StartDate)
}

// Clone returns a copy of the event that shares no slices with the original.
func (e Event) Clone() Event {
	c := e
	if e.Vector != nil {
		c.Vector = append([]float32(nil), e.Vector...)
	}
	if e.PreferredTimeRanges != nil {
		c.PreferredTimeRanges = append([]PreferredTimeRange(nil), e.PreferredTimeRanges...)
	}
	if e.Reminders != nil {
		c.Reminders = append([]int(nil), e.Reminders...)
	}
	if e.CategoryIds != nil {
		c.CategoryIds = append([]string(nil), e.CategoryIds...)
	}
	if e.TimeBlocking != nil {
		tb := *e.TimeBlocking
		c.TimeBlocking = &tb
	}
	return c
}

// Ids returns the ids of the given events, in order.
func Ids(events []Event) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.Id)
	}
	return ids
}
