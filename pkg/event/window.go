package event

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidWindow = errors.New("invalid planning window")

// Window is the span of the host's calendar handed to the planner. Start and End carry the
// host's offset.
type Window struct {
	Start    time.Time `json:"windowStartDate"`
	End      time.Time `json:"windowEndDate"`
	Timezone string    `json:"hostTimezone"`
}

func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}
