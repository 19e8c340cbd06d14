package event

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AnyDay marks a preferred time range that applies to every day of the week.
const AnyDay = -1

var ErrInvalidTimeRange = errors.New("invalid preferred time range")

// PreferredTimeRange is a time-of-day window in which the owner prefers the event to happen.
type PreferredTimeRange struct {
	Id      string `json:"id"`
	EventId string `json:"eventId"`
	// DayOfWeek is 1 (Monday) to 7 (Sunday); AnyDay or 0 means every day.
	DayOfWeek   int       `json:"dayOfWeek,omitempty"`
	StartTime   string    `json:"startTime"` // HH:MM
	EndTime     string    `json:"endTime"`   // HH:MM
	UserId      string    `json:"userId"`
	CreatedDate time.Time `json:"createdDate"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AnyDay reports whether the range is not bound to a day of the week.
func (r PreferredTimeRange) AnyDay() bool {
	return r.DayOfWeek == AnyDay || r.DayOfWeek == 0
}

func (r PreferredTimeRange) Validate() error {
	if r.EventId == "" {
		return fmt.Errorf("%w: missing event id", ErrInvalidTimeRange)
	}
	if !r.AnyDay() && (r.DayOfWeek < 1 || r.DayOfWeek > 7) {
		return fmt.Errorf("%w: day of week %d out of range", ErrInvalidTimeRange, r.DayOfWeek)
	}
	start, err := time.Parse("15:04", r.StartTime)
	if err != nil {
		return fmt.Errorf("%w: start time %q: %v", ErrInvalidTimeRange, r.StartTime, err)
	}
	end, err := time.Parse("15:04", r.EndTime)
	if err != nil {
		return fmt.Errorf("%w: end time %q: %v", ErrInvalidTimeRange, r.EndTime, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidTimeRange, r.StartTime, r.EndTime)
	}
	return nil
}

// CopyFor returns a new range with the same window, owned by the given event.
func (r PreferredTimeRange) CopyFor(eventId string, userId string, now time.Time) PreferredTimeRange {
	return PreferredTimeRange{
		Id:          uuid.NewString(),
		EventId:     eventId,
		DayOfWeek:   r.DayOfWeek,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		UserId:      userId,
		CreatedDate: now,
		UpdatedAt:   now,
	}
}

// ValidRanges drops the ranges that do not pass validation.
func ValidRanges(ranges []PreferredTimeRange) ([]PreferredTimeRange, []error) {
	valid := make([]PreferredTimeRange, 0, len(ranges))
	var errs []error
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, r)
	}
	return valid, errs
}
