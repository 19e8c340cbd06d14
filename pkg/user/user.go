package user

import "github.com/rush86999/atomic-scheduler/pkg/event"

// Preferences are the scheduling preferences of a user. They supply reminder and buffer
// defaults when no category does, and decide which attributes are carried forward from
// similar previous events.
type Preferences struct {
	UserId     string            `json:"userId"`
	Reminders  []int             `json:"reminders,omitempty"`
	BufferTime *event.BufferTime `json:"bufferTime,omitempty"`
	event.CopyFlags
}
