package dispatcher

import (
	"fmt"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/pkg/event"
)

// WindowPolicy derives the planning window of an event. The window starts on the first full
// hour at least one hour after the event starts, in the event's timezone. It ends at 23:59 of
// the same day, or of the day `days` later for the multi day variant.
type WindowPolicy struct {
	variant string
	days    int
}

func NewWindowPolicy(cfg config.Window) WindowPolicy {
	return WindowPolicy{variant: cfg.Variant, days: cfg.Days}
}

func (p WindowPolicy) For(e event.Event) (event.Window, error) {
	loc, err := e.Location()
	if err != nil {
		return event.Window{}, err
	}
	s := e.StartDate.In(loc).Add(time.Hour)
	start := time.Date(s.Year(), s.Month(), s.Day(), s.Hour(), 0, 0, 0, loc)

	last := start
	switch p.variant {
	case config.WindowSameDay, "":
	case config.WindowMultiDay:
		last = start.AddDate(0, 0, p.days)
	default:
		return event.Window{}, fmt.Errorf("unknown window variant %q", p.variant)
	}
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 0, 0, loc)

	w := event.Window{Start: start, End: end, Timezone: loc.String()}
	if err := w.Validate(); err != nil {
		return event.Window{}, err
	}
	return w, nil
}
