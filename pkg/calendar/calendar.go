package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/user"
)

var ErrEventNotFound = errors.New("event not found")

// Source is the calendar persistence seen by the planning pipeline.
type Source interface {
	WithTransaction(ctx context.Context, fn func(src Source) error) error
	// ListEventsInWindow returns the user's events overlapping [from, to]. Events stored
	// without a timezone get the given one.
	ListEventsInWindow(ctx context.Context, userId string, from, to time.Time, timezone string) ([]event.Event, error)
	// GetEventById returns nil when no live event has the id.
	GetEventById(ctx context.Context, id string) (*event.Event, error)
	ListPreferredTimeRanges(ctx context.Context, eventId string) ([]event.PreferredTimeRange, error)
	InsertPreferredTimeRanges(ctx context.Context, ranges []event.PreferredTimeRange) error
	DeletePreferredTimeRanges(ctx context.Context, eventId string) error
	ListCategories(ctx context.Context, eventId string) ([]event.Category, error)
	ListReminders(ctx context.Context, eventId string) ([]int, error)
	GetUserPreferences(ctx context.Context, userId string) (user.Preferences, error)
}
