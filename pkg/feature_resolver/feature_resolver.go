package feature_resolver

import (
	"github.com/rush86999/atomic-scheduler/pkg/event"
)

// Path names the branch that produced a resolution.
type Path string

const (
	// PathCategoryDefaults applied the defaults of the event's categories.
	PathCategoryDefaults Path = "category_defaults"
	// PathPassthrough left the event untouched.
	PathPassthrough Path = "passthrough"
	// PathTrained applied category defaults and remembered the event as a new training record.
	PathTrained Path = "trained"
	// PathTrainedPassthrough remembered the event but left its attributes untouched.
	PathTrainedPassthrough Path = "trained_passthrough"
	// PathCopiedPrevious carried attributes forward from a similar previous event.
	PathCopiedPrevious Path = "copied_previous"
	// PathPreferenceDiff filled what the event lacks from a similar previous event, as the
	// user's preferences allow.
	PathPreferenceDiff Path = "preference_diff"
)

type Resolution struct {
	Event      event.Event
	Reminders  []int
	BufferTime *event.BufferTime
	Path       Path
}

// matchState is the outcome of the similarity search for an event.
type matchState int

const (
	noVector matchState = iota
	noMatch
	// staleMatch found a training record whose event is gone.
	staleMatch
	liveMatch
)

func (s matchState) String() string {
	switch s {
	case noVector:
		return "no_vector"
	case noMatch:
		return "no_match"
	case staleMatch:
		return "stale_match"
	case liveMatch:
		return "live_match"
	}
	return "unknown"
}

func passthrough(e event.Event, path Path) Resolution {
	return Resolution{Event: e, Reminders: e.Reminders, BufferTime: e.TimeBlocking, Path: path}
}
