package feature_resolver

import (
	"context"
	"fmt"

	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/calendar"
	"github.com/rush86999/atomic-scheduler/pkg/category"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/training"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/rush86999/atomic-scheduler/pkg/feature_resolver")

// Resolver fills in the scheduling attributes of an event. A similar event seen before is the
// primary signal; category defaults and user preferences are the fallback.
type Resolver struct {
	calendar calendar.Source
	training training.Store
	rules    category.Rules
	clock    utils.Clock
	bus      *event_bus.EventBus
}

func NewResolver(calendarSource calendar.Source, store training.Store, rules category.Rules, clock utils.Clock, bus *event_bus.EventBus) *Resolver {
	return &Resolver{
		calendar: calendarSource,
		training: store,
		rules:    rules,
		clock:    clock,
		bus:      bus,
	}
}

// Resolve decides the event's categories, reminders and buffer time. The vector is taken from
// the event only. Any collaborator error aborts the resolution.
func (r *Resolver) Resolve(ctx context.Context, e event.Event) (Resolution, error) {
	ctx, span := tracer.Start(ctx, "feature_resolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("event.id", e.Id))

	res, err := r.resolve(ctx, e.Clone())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve")
		return Resolution{}, fmt.Errorf("failed to resolve features of event %s: %w", e.Id, err)
	}
	span.SetAttributes(attribute.String("resolution.path", string(res.Path)))
	log.Debugf("event %s resolved via %s", e.Id, res.Path)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, e event.Event) (Resolution, error) {
	state, match, prev, err := r.match(ctx, e)
	if err != nil {
		return Resolution{}, err
	}
	if state == staleMatch {
		if err := r.forget(ctx, match, e.UserId); err != nil {
			return Resolution{}, err
		}
		state = noMatch
	}

	switch state {
	case noVector:
		if !e.UserModifiedCategories {
			return r.withMatchedCategories(ctx, e, PathCategoryDefaults)
		}
		return r.withOwnCategories(ctx, e, PathPassthrough)

	case noMatch:
		if !e.UserModifiedCategories {
			res, err := r.withMatchedCategories(ctx, e, PathTrained)
			if err != nil {
				return Resolution{}, err
			}
			if err := r.remember(ctx, e); err != nil {
				return Resolution{}, err
			}
			return res, nil
		}
		categories, err := r.calendar.ListCategories(ctx, e.Id)
		if err != nil {
			return Resolution{}, err
		}
		if len(categories) > 0 {
			return r.withCategories(ctx, e, categories, PathCategoryDefaults)
		}
		if err := r.remember(ctx, e); err != nil {
			return Resolution{}, err
		}
		return passthrough(e, PathTrainedPassthrough), nil

	case liveMatch:
		if !e.UserModifiedCategories {
			categories, err := r.rules.MatchCategories(ctx, e, e.Vector)
			if err != nil {
				return Resolution{}, err
			}
			return r.copyForward(ctx, e, *prev, categories)
		}
		categories, err := r.calendar.ListCategories(ctx, e.Id)
		if err != nil {
			return Resolution{}, err
		}
		if len(categories) > 0 {
			return r.copyForward(ctx, e, *prev, categories)
		}
		return r.preferenceDiff(ctx, e, *prev)
	}
	return Resolution{}, fmt.Errorf("unexpected match state %s", state)
}

// match searches the training store for a record similar to the event and checks that the
// event it points to still exists.
func (r *Resolver) match(ctx context.Context, e event.Event) (matchState, *training.Match, *event.Event, error) {
	if !e.HasVector() {
		return noVector, nil, nil, nil
	}
	m, err := r.training.SearchNearest(ctx, e.UserId, e.Vector)
	if err != nil {
		return 0, nil, nil, err
	}
	if m == nil {
		return noMatch, nil, nil, nil
	}
	prev, err := r.calendar.GetEventById(ctx, m.Id)
	if err != nil {
		return 0, nil, nil, err
	}
	if prev == nil {
		log.Infof("training record %s of event %s points to a deleted event", m.Id, e.Id)
		return staleMatch, m, nil, nil
	}
	log.Debugf("event %s is similar to event %s (distance %.4f)", e.Id, prev.Id, m.Distance)
	return liveMatch, m, prev, nil
}

// withMatchedCategories applies the defaults of the categories the rules find for the event.
func (r *Resolver) withMatchedCategories(ctx context.Context, e event.Event, path Path) (Resolution, error) {
	categories, err := r.rules.MatchCategories(ctx, e, e.Vector)
	if err != nil {
		return Resolution{}, err
	}
	return r.withCategories(ctx, e, categories, path)
}

// withOwnCategories applies the defaults of the categories assigned to the event, or passes it
// through when it has none.
func (r *Resolver) withOwnCategories(ctx context.Context, e event.Event, otherwise Path) (Resolution, error) {
	categories, err := r.calendar.ListCategories(ctx, e.Id)
	if err != nil {
		return Resolution{}, err
	}
	if len(categories) == 0 {
		return passthrough(e, otherwise), nil
	}
	return r.withCategories(ctx, e, categories, PathCategoryDefaults)
}

func (r *Resolver) withCategories(ctx context.Context, e event.Event, categories []event.Category, path Path) (Resolution, error) {
	prefs, err := r.calendar.GetUserPreferences(ctx, e.UserId)
	if err != nil {
		return Resolution{}, err
	}
	res := applyCategoryDefaults(e, categories, prefs, r.clock.Now())
	res.Path = path
	return res, nil
}

// remember stores the event as a training record so similar events can inherit from it.
func (r *Resolver) remember(ctx context.Context, e event.Event) error {
	if !e.HasText() {
		log.Warnf("event %s has no title, summary or notes, not storing it as a training record", e.Id)
		return nil
	}
	record := training.Record{
		Id:              e.Id,
		UserId:          e.UserId,
		Vector:          e.Vector,
		SourceEventText: e.SourceText(),
		CreatedAt:       r.clock.Now(),
	}
	if err := r.training.Insert(ctx, record); err != nil {
		return err
	}
	r.publish(ctx, event_bus.TrainingRecordInserted, event_bus.TrainingRecordChanged{Id: e.Id, UserId: e.UserId})
	return nil
}

func (r *Resolver) forget(ctx context.Context, m *training.Match, userId string) error {
	if err := r.training.DeleteById(ctx, m.Id); err != nil {
		return err
	}
	r.publish(ctx, event_bus.TrainingRecordDeleted, event_bus.TrainingRecordChanged{Id: m.Id, UserId: userId})
	return nil
}

func (r *Resolver) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("failed to publish %s: %v", eventType, err)
	}
}

// copyForward applies the category defaults and then overlays the attributes of the previous
// event that the copy flags of the categories or of the user select.
func (r *Resolver) copyForward(ctx context.Context, e event.Event, prev event.Event, categories []event.Category) (Resolution, error) {
	prefs, err := r.calendar.GetUserPreferences(ctx, e.UserId)
	if err != nil {
		return Resolution{}, err
	}
	res := applyCategoryDefaults(e, categories, prefs, r.clock.Now())
	res.Path = PathCopiedPrevious

	flags := prefs.CopyFlags
	for _, c := range categories {
		flags = flags.Or(c.CopyFlags)
	}

	out := res.Event
	if flags.CopyAvailability && prev.Transparency != "" {
		out.Transparency = prev.Transparency
	}
	if flags.CopyTimeBlocking && !prev.TimeBlocking.IsZero() {
		buffer := *prev.TimeBlocking
		res.BufferTime = &buffer
	}
	if flags.CopyReminders {
		reminders, err := r.calendar.ListReminders(ctx, prev.Id)
		if err != nil {
			return Resolution{}, err
		}
		if len(reminders) > 0 {
			res.Reminders = reminders
		}
	}
	if flags.CopyPriorityLevel && prev.Priority > 0 {
		out.Priority = prev.Priority
	}
	if flags.CopyModifiable {
		out.Modifiable = prev.Modifiable
	}
	if flags.CopyIsBreak {
		out.IsBreak = prev.IsBreak
	}
	if flags.CopyIsMeeting {
		out.IsMeeting = prev.IsMeeting
	}
	if flags.CopyIsExternalMeeting {
		out.IsExternalMeeting = prev.IsExternalMeeting
	}
	if flags.CopyCategories && !e.UserModifiedCategories {
		prevCategories, err := r.calendar.ListCategories(ctx, prev.Id)
		if err != nil {
			return Resolution{}, err
		}
		if len(prevCategories) > 0 {
			out.CategoryIds = event.CategoryIds(prevCategories)
		}
	}
	if flags.CopyTimePreference {
		ranges, err := r.copyTimePreference(ctx, out, prev)
		if err != nil {
			return Resolution{}, err
		}
		if ranges != nil {
			out.PreferredTimeRanges = ranges
		}
	}

	out.Reminders = res.Reminders
	out.TimeBlocking = res.BufferTime
	res.Event = out
	return res, nil
}

// preferenceDiff fills in what the event lacks from the previous event, as far as the user's
// preferences allow. Categories are left alone.
func (r *Resolver) preferenceDiff(ctx context.Context, e event.Event, prev event.Event) (Resolution, error) {
	prefs, err := r.calendar.GetUserPreferences(ctx, e.UserId)
	if err != nil {
		return Resolution{}, err
	}
	out := e
	reminders := e.Reminders
	buffer := e.TimeBlocking

	if len(reminders) == 0 && prefs.CopyReminders {
		reminders, err = r.calendar.ListReminders(ctx, prev.Id)
		if err != nil {
			return Resolution{}, err
		}
	}
	if buffer.IsZero() && prefs.CopyTimeBlocking && !prev.TimeBlocking.IsZero() {
		b := *prev.TimeBlocking
		buffer = &b
	}
	if out.Priority == 0 && prefs.CopyPriorityLevel {
		out.Priority = prev.Priority
	}
	if out.Transparency == "" && prefs.CopyAvailability {
		out.Transparency = prev.Transparency
	}
	if prefs.CopyIsBreak {
		out.IsBreak = out.IsBreak || prev.IsBreak
	}
	if prefs.CopyIsMeeting {
		out.IsMeeting = out.IsMeeting || prev.IsMeeting
	}
	if prefs.CopyIsExternalMeeting {
		out.IsExternalMeeting = out.IsExternalMeeting || prev.IsExternalMeeting
	}
	if len(out.PreferredTimeRanges) == 0 && prefs.CopyTimePreference {
		ranges, err := r.copyTimePreference(ctx, out, prev)
		if err != nil {
			return Resolution{}, err
		}
		out.PreferredTimeRanges = ranges
	}

	if len(reminders) == 0 {
		reminders = append([]int(nil), prefs.Reminders...)
	}
	if buffer.IsZero() && !prefs.BufferTime.IsZero() {
		b := *prefs.BufferTime
		buffer = &b
	}
	out.Reminders = reminders
	out.TimeBlocking = buffer
	return Resolution{Event: out, Reminders: reminders, BufferTime: buffer, Path: PathPreferenceDiff}, nil
}

// copyTimePreference replaces the stored preferred time ranges of the event with copies of the
// previous event's. It returns nil when the previous event has none.
func (r *Resolver) copyTimePreference(ctx context.Context, e event.Event, prev event.Event) ([]event.PreferredTimeRange, error) {
	ranges, err := r.calendar.ListPreferredTimeRanges(ctx, prev.Id)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		return nil, nil
	}
	now := r.clock.Now()
	copies := make([]event.PreferredTimeRange, 0, len(ranges))
	for _, tr := range ranges {
		copies = append(copies, tr.CopyFor(e.Id, e.UserId, now))
	}
	copies = validRanges(copies)
	err = r.calendar.WithTransaction(ctx, func(src calendar.Source) error {
		if err := src.DeletePreferredTimeRanges(ctx, e.Id); err != nil {
			return err
		}
		return src.InsertPreferredTimeRanges(ctx, copies)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy preferred time ranges of event %s to %s: %w", prev.Id, e.Id, err)
	}
	return copies, nil
}
