package feature_resolver

import (
	"slices"
	"time"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/user"
	log "github.com/sirupsen/logrus"
)

// applyCategoryDefaults attaches the defaults of the given categories to the event. Reminders
// and buffer time fall back to the user's preferences when no category defines them.
func applyCategoryDefaults(e event.Event, categories []event.Category, prefs user.Preferences, now time.Time) Resolution {
	var reminders []int
	var buffer event.BufferTime
	var timePreference []event.PreferredTimeRange
	modifiableSet, availabilitySet := false, false

	for _, c := range categories {
		reminders = append(reminders, c.DefaultReminders...)
		if c.DefaultTimeBlocking != nil {
			buffer.BeforeEvent = max(buffer.BeforeEvent, c.DefaultTimeBlocking.BeforeEvent)
			buffer.AfterEvent = max(buffer.AfterEvent, c.DefaultTimeBlocking.AfterEvent)
		}
		if c.DefaultPriorityLevel > e.Priority {
			e.Priority = c.DefaultPriorityLevel
		}
		if c.DefaultModifiable != nil && !modifiableSet {
			e.Modifiable = *c.DefaultModifiable
			modifiableSet = true
		}
		e.IsBreak = e.IsBreak || c.DefaultIsBreak
		e.IsMeeting = e.IsMeeting || c.DefaultIsMeeting
		e.IsExternalMeeting = e.IsExternalMeeting || c.DefaultIsExternalMeeting
		if c.DefaultAvailability != "" && !availabilitySet {
			e.Transparency = c.DefaultAvailability
			availabilitySet = true
		}
		if timePreference == nil && len(c.DefaultTimePreference) > 0 {
			timePreference = c.DefaultTimePreference
		}
	}

	slices.Sort(reminders)
	reminders = slices.Compact(reminders)
	if len(reminders) == 0 {
		reminders = append([]int(nil), prefs.Reminders...)
	}

	var bufferTime *event.BufferTime
	if !buffer.IsZero() {
		bufferTime = &buffer
	} else if !prefs.BufferTime.IsZero() {
		b := *prefs.BufferTime
		bufferTime = &b
	}

	if len(e.PreferredTimeRanges) == 0 && len(timePreference) > 0 {
		ranges := make([]event.PreferredTimeRange, 0, len(timePreference))
		for _, tr := range timePreference {
			ranges = append(ranges, tr.CopyFor(e.Id, e.UserId, now))
		}
		e.PreferredTimeRanges = validRanges(ranges)
	}

	if len(categories) > 0 {
		e.CategoryIds = event.CategoryIds(categories)
	}
	e.Reminders = reminders
	e.TimeBlocking = bufferTime
	return Resolution{Event: e, Reminders: reminders, BufferTime: bufferTime}
}

func validRanges(ranges []event.PreferredTimeRange) []event.PreferredTimeRange {
	valid, errs := event.ValidRanges(ranges)
	for _, err := range errs {
		log.Warnf("dropping preferred time range: %v", err)
	}
	return valid
}
