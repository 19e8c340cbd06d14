package stats

import (
	"maps"
	"time"
)

// Summary counts what the worker did since it started.
type Summary struct {
	Since            time.Time
	Dispatched       int
	Failed           int
	Dropped          int
	AttendeeFailures int
	RecordsInserted  int
	RecordsDeleted   int
	// ByPath counts dispatches per feature resolution path of the primary event.
	ByPath            map[string]int
	TotalDispatchTime time.Duration
	LastDispatch      time.Time
	LastFailure       string
}

func (s Summary) AverageDispatchTime() time.Duration {
	if s.Dispatched == 0 {
		return 0
	}
	return s.TotalDispatchTime / time.Duration(s.Dispatched)
}

func (s Summary) clone() Summary {
	s.ByPath = maps.Clone(s.ByPath)
	return s
}
