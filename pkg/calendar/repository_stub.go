package calendar

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/user"
)

type RepositoryStub struct {
	mu          sync.RWMutex
	events      map[string]event.Event
	ranges      map[string][]event.PreferredTimeRange // eventId -> ranges
	categories  map[string][]event.Category           // eventId -> categories
	reminders   map[string][]int                      // eventId -> minutes
	preferences map[string]user.Preferences

	// Err, when set, is returned by every read.
	Err error
	// TransactionErr, when set, is returned by WithTransaction after fn succeeded and the changes are rolled back.
	TransactionErr error
	Transactions   int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		events:      make(map[string]event.Event),
		ranges:      make(map[string][]event.PreferredTimeRange),
		categories:  make(map[string][]event.Category),
		reminders:   make(map[string][]int),
		preferences: make(map[string]user.Preferences),
	}
}

func (r *RepositoryStub) AddEvent(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[e.Id] = e.Clone()
}

func (r *RepositoryStub) SetPreferredTimeRanges(eventId string, ranges ...event.PreferredTimeRange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges[eventId] = ranges
}

func (r *RepositoryStub) SetCategories(eventId string, categories ...event.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[eventId] = categories
}

func (r *RepositoryStub) SetReminders(eventId string, minutes ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders[eventId] = minutes
}

func (r *RepositoryStub) SetPreferences(prefs user.Preferences) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferences[prefs.UserId] = prefs
}

// PreferredTimeRanges returns what is currently stored for the event.
func (r *RepositoryStub) PreferredTimeRanges(eventId string) []event.PreferredTimeRange {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.ranges[eventId])
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(src Source) error) error {
	r.mu.Lock()
	r.Transactions++
	// Only preferred time ranges are written through the source
	original := make(map[string][]event.PreferredTimeRange, len(r.ranges))
	for k, v := range r.ranges {
		original[k] = slices.Clone(v)
	}
	r.mu.Unlock()

	err := fn(r)
	if err == nil {
		err = r.TransactionErr
	}
	if err != nil {
		r.mu.Lock()
		r.ranges = original
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *RepositoryStub) ListEventsInWindow(ctx context.Context, userId string, from, to time.Time, timezone string) ([]event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	events := make([]event.Event, 0)
	for _, e := range r.events {
		if e.UserId != userId {
			continue
		}
		if e.StartDate.After(to) || e.EndDate.Before(from) {
			continue
		}
		e = e.Clone()
		if e.Timezone == "" {
			e.Timezone = timezone
		}
		events = append(events, e)
	}
	slices.SortFunc(events, func(a, b event.Event) int {
		if c := a.StartDate.Compare(b.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
	return events, nil
}

func (r *RepositoryStub) GetEventById(ctx context.Context, id string) (*event.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	e = e.Clone()
	return &e, nil
}

func (r *RepositoryStub) ListPreferredTimeRanges(ctx context.Context, eventId string) ([]event.PreferredTimeRange, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.ranges[eventId]), nil
}

func (r *RepositoryStub) InsertPreferredTimeRanges(ctx context.Context, ranges []event.PreferredTimeRange) error {
	for _, tr := range ranges {
		if err := tr.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range ranges {
		existing := r.ranges[tr.EventId]
		idx := slices.IndexFunc(existing, func(e event.PreferredTimeRange) bool { return e.Id == tr.Id })
		if idx >= 0 {
			existing[idx] = tr
		} else {
			existing = append(existing, tr)
		}
		r.ranges[tr.EventId] = existing
	}
	return nil
}

func (r *RepositoryStub) DeletePreferredTimeRanges(ctx context.Context, eventId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ranges, eventId)
	return nil
}

func (r *RepositoryStub) ListCategories(ctx context.Context, eventId string) ([]event.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.categories[eventId]), nil
}

func (r *RepositoryStub) ListReminders(ctx context.Context, eventId string) ([]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	return slices.Clone(r.reminders[eventId]), nil
}

func (r *RepositoryStub) GetUserPreferences(ctx context.Context, userId string) (user.Preferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return user.Preferences{}, r.Err
	}
	prefs, ok := r.preferences[userId]
	if !ok {
		return user.Preferences{UserId: userId}, nil
	}
	return prefs, nil
}
