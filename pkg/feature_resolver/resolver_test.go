package feature_resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/calendar"
	"github.com/rush86999/atomic-scheduler/pkg/category"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/training"
	"github.com/rush86999/atomic-scheduler/pkg/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userId = "u1"

var now = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	calendar   *calendar.RepositoryStub
	training   *training.RepositoryStub
	categories *category.RepositoryStub
	bus        *event_bus.EventBus
	resolver   *Resolver
	inserted   []string
	deleted    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		calendar:   calendar.NewRepositoryStub(),
		training:   training.NewRepositoryStub(0.1),
		categories: category.NewRepositoryStub(),
		bus:        event_bus.NewEventBus(),
	}
	event_bus.SubscribeTyped(f.bus, event_bus.TrainingRecordInserted, func(e event_bus.EventT[event_bus.TrainingRecordChanged]) error {
		f.inserted = append(f.inserted, e.Data.Id)
		return nil
	})
	event_bus.SubscribeTyped(f.bus, event_bus.TrainingRecordDeleted, func(e event_bus.EventT[event_bus.TrainingRecordChanged]) error {
		f.deleted = append(f.deleted, e.Data.Id)
		return nil
	})
	f.resolver = NewResolver(f.calendar, f.training, category.NewKeywordRules(f.categories), &utils.MockClock{FixedNow: now}, f.bus)

	f.calendar.SetPreferences(user.Preferences{
		UserId:     userId,
		Reminders:  []int{15},
		BufferTime: &event.BufferTime{AfterEvent: 5},
	})
	return f
}

func newEvent(id, title string) event.Event {
	return event.Event{
		Id:         id,
		UserId:     userId,
		StartDate:  now.Add(2 * time.Hour),
		EndDate:    now.Add(3 * time.Hour),
		Timezone:   "UTC",
		Title:      title,
		Notes:      "notes of " + id,
		Modifiable: true,
	}
}

func boolPtr(b bool) *bool {
	return &b
}

var gym = event.Category{
	Id:     "c-gym",
	UserId: userId,
	Name:   "Gym",
	CategoryDefaults: event.CategoryDefaults{
		DefaultAvailability:  event.Opaque,
		DefaultTimeBlocking:  &event.BufferTime{BeforeEvent: 15},
		DefaultReminders:     []int{10, 5},
		DefaultPriorityLevel: 3,
		DefaultModifiable:    boolPtr(false),
		DefaultIsBreak:       true,
		DefaultTimePreference: []event.PreferredTimeRange{
			{Id: "tp", DayOfWeek: event.AnyDay, StartTime: "06:00", EndTime: "08:00"},
		},
	},
}

var focus = event.Category{
	Id:     "c-focus",
	UserId: userId,
	Name:   "Focus",
	CopyFlags: event.CopyFlags{
		CopyAvailability:   true,
		CopyTimeBlocking:   true,
		CopyReminders:      true,
		CopyPriorityLevel:  true,
		CopyCategories:     true,
		CopyTimePreference: true,
	},
	CategoryDefaults: event.CategoryDefaults{
		DefaultReminders: []int{20, 10},
	},
}

func TestResolver_NoVector_NotModified_AppliesCategoryDefaults(t *testing.T) {
	// given
	f := newFixture(t)
	f.categories.AddCategory(gym)
	e := newEvent("e1", "Gym - legs")

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathCategoryDefaults, res.Path)
	assert.Equal(t, []int{5, 10}, res.Reminders)
	assert.Equal(t, &event.BufferTime{BeforeEvent: 15}, res.BufferTime)
	assert.Equal(t, res.Reminders, res.Event.Reminders)
	assert.Equal(t, res.BufferTime, res.Event.TimeBlocking)
	assert.Equal(t, []string{"c-gym"}, res.Event.CategoryIds)
	assert.Equal(t, 3, res.Event.Priority)
	assert.False(t, res.Event.Modifiable)
	assert.True(t, res.Event.IsBreak)
	assert.Equal(t, event.Opaque, res.Event.Transparency)
	require.Len(t, res.Event.PreferredTimeRanges, 1)
	assert.Equal(t, "e1", res.Event.PreferredTimeRanges[0].EventId)
	assert.Equal(t, "06:00", res.Event.PreferredTimeRanges[0].StartTime)
	assert.Zero(t, f.training.TotalCalls())
}

func TestResolver_NoVector_NotModified_FallsBackToPreferences(t *testing.T) {
	// given
	f := newFixture(t)
	f.categories.AddCategory(gym)
	e := newEvent("e1", "Dentist")

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathCategoryDefaults, res.Path)
	assert.Equal(t, []int{15}, res.Reminders)
	assert.Equal(t, &event.BufferTime{AfterEvent: 5}, res.BufferTime)
	assert.Empty(t, res.Event.CategoryIds)
	assert.Zero(t, f.training.TotalCalls())
}

func TestResolver_NoVector_Modified(t *testing.T) {
	tests := []struct {
		name         string
		categories   []event.Category
		expectedPath Path
	}{
		{"with own categories", []event.Category{gym}, PathCategoryDefaults},
		{"without categories", nil, PathPassthrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			f := newFixture(t)
			e := newEvent("e1", "Gym")
			e.UserModifiedCategories = true
			f.calendar.SetCategories("e1", tt.categories...)

			// when
			res, err := f.resolver.Resolve(context.Background(), e)

			// then
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPath, res.Path)
			assert.Zero(t, f.training.TotalCalls())
			if tt.expectedPath == PathPassthrough {
				assert.Equal(t, e, res.Event)
				assert.Nil(t, res.Reminders)
				assert.Nil(t, res.BufferTime)
			} else {
				assert.Equal(t, []string{"c-gym"}, res.Event.CategoryIds)
			}
		})
	}
}

func TestResolver_NoMatch_NotModified_TrainsEvent(t *testing.T) {
	// given
	f := newFixture(t)
	f.categories.AddCategory(gym)
	e := newEvent("e1", "Gym")
	e.Vector = []float32{1, 0, 0}

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathTrained, res.Path)
	assert.Equal(t, []int{5, 10}, res.Reminders)
	assert.Equal(t, []training.Record{{
		Id:              "e1",
		UserId:          userId,
		Vector:          []float32{1, 0, 0},
		SourceEventText: "Gym:notes of e1",
		CreatedAt:       now,
	}}, f.training.Records())
	assert.Equal(t, []string{"e1"}, f.inserted)
}

func TestResolver_NoMatch_Modified_WithoutCategories_TrainsAndPassesThrough(t *testing.T) {
	// given
	f := newFixture(t)
	e := newEvent("e1", "Standup")
	e.Notes = "daily"
	e.UserModifiedCategories = true
	e.Vector = []float32{0, 1, 0}

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathTrainedPassthrough, res.Path)
	assert.Equal(t, e, res.Event)
	records := f.training.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Standup:daily", records[0].SourceEventText)
}

func TestResolver_NoMatch_Modified_WithCategories_DoesNotTrain(t *testing.T) {
	// given
	f := newFixture(t)
	e := newEvent("e1", "Standup")
	e.UserModifiedCategories = true
	e.Vector = []float32{0, 1, 0}
	f.calendar.SetCategories("e1", gym)

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathCategoryDefaults, res.Path)
	assert.Equal(t, []float32{0, 1, 0}, res.Event.Vector)
	assert.Equal(t, []string{"c-gym"}, res.Event.CategoryIds)
	assert.Empty(t, f.training.Records())
}

func TestResolver_NoMatch_WithoutText_IsNotTrained(t *testing.T) {
	// given
	f := newFixture(t)
	e := newEvent("e1", "")
	e.Notes = ""
	e.Vector = []float32{1, 1, 0}

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathTrained, res.Path)
	assert.Empty(t, f.training.Records())
	assert.Empty(t, f.inserted)
}

func TestResolver_ResolvingTwice_KeepsOneRecord(t *testing.T) {
	// given
	f := newFixture(t)
	e := newEvent("e1", "Gym")
	e.Vector = []float32{1, 0, 0}
	f.calendar.AddEvent(e)

	// when
	first, err := f.resolver.Resolve(context.Background(), e)
	require.NoError(t, err)
	second, err := f.resolver.Resolve(context.Background(), e)
	require.NoError(t, err)

	// then
	assert.Equal(t, PathTrained, first.Path)
	assert.Equal(t, PathCopiedPrevious, second.Path)
	assert.Len(t, f.training.Records(), 1)
}

// givenPreviousEvent stores a previous event similar to the one being resolved.
func givenPreviousEvent(t *testing.T, f *fixture) event.Event {
	t.Helper()
	prev := newEvent("prev", "Deep work")
	prev.Priority = 4
	prev.Transparency = event.Transparent
	prev.TimeBlocking = &event.BufferTime{BeforeEvent: 10, AfterEvent: 5}
	prev.IsMeeting = true
	f.calendar.AddEvent(prev)
	f.calendar.SetReminders("prev", 30)
	f.calendar.SetCategories("prev", focus)
	f.calendar.SetPreferredTimeRanges("prev", event.PreferredTimeRange{
		Id: "prev-r1", EventId: "prev", DayOfWeek: 2, StartTime: "09:00", EndTime: "11:00", UserId: userId,
	})
	require.NoError(t, f.training.Insert(context.Background(), training.Record{
		Id: "prev", UserId: userId, Vector: []float32{1, 0.01, 0}, SourceEventText: "Deep work:", CreatedAt: now,
	}))
	return prev
}

func TestResolver_LiveMatch_NotModified_CopiesForward(t *testing.T) {
	// given
	f := newFixture(t)
	f.categories.AddCategory(focus)
	givenPreviousEvent(t, f)
	e := newEvent("e1", "Focus block")
	e.Vector = []float32{1, 0, 0}
	f.calendar.SetPreferredTimeRanges("e1", event.PreferredTimeRange{
		Id: "e1-old", EventId: "e1", StartTime: "14:00", EndTime: "15:00", UserId: userId,
	})

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathCopiedPrevious, res.Path)
	assert.Equal(t, []int{30}, res.Reminders)
	assert.Equal(t, &event.BufferTime{BeforeEvent: 10, AfterEvent: 5}, res.BufferTime)
	assert.Equal(t, 4, res.Event.Priority)
	assert.Equal(t, event.Transparent, res.Event.Transparency)
	assert.False(t, res.Event.IsMeeting, "meeting flag is not selected for copy")
	assert.Equal(t, []string{"c-focus"}, res.Event.CategoryIds)

	stored := f.calendar.PreferredTimeRanges("e1")
	require.Len(t, stored, 1)
	assert.Equal(t, "09:00", stored[0].StartTime)
	assert.Equal(t, 2, stored[0].DayOfWeek)
	assert.Equal(t, stored, res.Event.PreferredTimeRanges)
	assert.Equal(t, 1, f.calendar.Transactions)
	assert.Len(t, f.training.Records(), 1, "a live match is not trained again")
}

func TestResolver_LiveMatch_Redelivery_DoesNotDuplicateRanges(t *testing.T) {
	// given
	f := newFixture(t)
	f.categories.AddCategory(focus)
	givenPreviousEvent(t, f)
	e := newEvent("e1", "Focus block")
	e.Vector = []float32{1, 0, 0}

	// when
	_, err := f.resolver.Resolve(context.Background(), e)
	require.NoError(t, err)
	_, err = f.resolver.Resolve(context.Background(), e)
	require.NoError(t, err)

	// then
	assert.Len(t, f.calendar.PreferredTimeRanges("e1"), 1)
}

func TestResolver_LiveMatch_Modified_WithCategories_KeepsOwnCategories(t *testing.T) {
	// given
	f := newFixture(t)
	givenPreviousEvent(t, f)
	e := newEvent("e1", "Anything")
	e.Vector = []float32{1, 0, 0}
	e.UserModifiedCategories = true
	own := focus
	own.Id = "c-own"
	f.calendar.SetCategories("e1", own)

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathCopiedPrevious, res.Path)
	assert.Equal(t, []string{"c-own"}, res.Event.CategoryIds)
	assert.Equal(t, []int{30}, res.Reminders)
}

func TestResolver_LiveMatch_Modified_WithoutCategories_DiffsPreferences(t *testing.T) {
	// given
	f := newFixture(t)
	givenPreviousEvent(t, f)
	f.calendar.SetPreferences(user.Preferences{
		UserId:    userId,
		CopyFlags: event.CopyFlags{CopyReminders: true, CopyTimeBlocking: true, CopyPriorityLevel: true},
	})
	e := newEvent("e1", "Anything")
	e.Vector = []float32{1, 0, 0}
	e.UserModifiedCategories = true
	e.Priority = 1
	e.CategoryIds = []string{"c-kept"}

	// when
	res, err := f.resolver.Resolve(context.Background(), e)

	// then
	require.NoError(t, err)
	assert.Equal(t, PathPreferenceDiff, res.Path)
	assert.Equal(t, []int{30}, res.Reminders)
	assert.Equal(t, &event.BufferTime{BeforeEvent: 10, AfterEvent: 5}, res.BufferTime)
	assert.Equal(t, 1, res.Event.Priority, "present priority is kept")
	assert.Equal(t, []string{"c-kept"}, res.Event.CategoryIds)
	assert.Empty(t, f.calendar.PreferredTimeRanges("e1"))
}

func TestResolver_StaleMatch(t *testing.T) {
	tests := []struct {
		name         string
		modified     bool
		expectedPath Path
	}{
		{"not modified falls back to training", false, PathTrained},
		{"modified falls back to training passthrough", true, PathTrainedPassthrough},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.training.Insert(ctx, training.Record{Id: "gone", UserId: userId, Vector: []float32{1, 0, 0}, SourceEventText: "x:"}))
			require.NoError(t, f.training.Insert(ctx, training.Record{Id: "unrelated", UserId: userId, Vector: []float32{0, 0, 1}, SourceEventText: "y:"}))
			e := newEvent("e1", "Review")
			e.Vector = []float32{1, 0, 0}
			e.UserModifiedCategories = tt.modified

			// when
			res, err := f.resolver.Resolve(ctx, e)

			// then
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPath, res.Path)
			assert.Equal(t, []string{"gone"}, f.deleted)
			var ids []string
			for _, r := range f.training.Records() {
				ids = append(ids, r.Id)
			}
			assert.Equal(t, []string{"e1", "unrelated"}, ids)
		})
	}
}

func TestResolver_CollaboratorFailureAborts(t *testing.T) {
	boom := errors.New("store unavailable")
	tests := []struct {
		name   string
		given  func(f *fixture)
		vector []float32
	}{
		{"training store", func(f *fixture) { f.training.Err = boom }, []float32{1, 0, 0}},
		{"calendar", func(f *fixture) { f.calendar.Err = boom }, []float32{1, 0, 0}},
		{"category rules", func(f *fixture) { f.categories.Err = boom }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			f := newFixture(t)
			tt.given(f)
			e := newEvent("e1", "Gym")
			e.Vector = tt.vector

			// when
			_, err := f.resolver.Resolve(context.Background(), e)

			// then
			assert.ErrorIs(t, err, boom)
		})
	}
}
