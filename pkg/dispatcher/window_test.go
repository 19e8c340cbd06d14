package dispatcher

import (
	"testing"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowPolicy_For(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	tests := []struct {
		name          string
		window        config.Window
		start         time.Time
		timezone      string
		expectedStart time.Time
		expectedEnd   time.Time
	}{
		{
			name:          "same day",
			window:        config.Window{Variant: config.WindowSameDay},
			start:         time.Date(2025, 3, 10, 9, 20, 0, 0, warsaw),
			timezone:      "Europe/Warsaw",
			expectedStart: time.Date(2025, 3, 10, 10, 0, 0, 0, warsaw),
			expectedEnd:   time.Date(2025, 3, 10, 23, 59, 0, 0, warsaw),
		},
		{
			name:          "multi day",
			window:        config.Window{Variant: config.WindowMultiDay, Days: 6},
			start:         time.Date(2025, 3, 10, 9, 0, 0, 0, warsaw),
			timezone:      "Europe/Warsaw",
			expectedStart: time.Date(2025, 3, 10, 10, 0, 0, 0, warsaw),
			expectedEnd:   time.Date(2025, 3, 16, 23, 59, 0, 0, warsaw),
		},
		{
			name:          "start given in another zone",
			window:        config.Window{Variant: config.WindowSameDay},
			start:         time.Date(2025, 3, 10, 8, 45, 0, 0, time.UTC),
			timezone:      "Europe/Warsaw",
			expectedStart: time.Date(2025, 3, 10, 10, 0, 0, 0, warsaw),
			expectedEnd:   time.Date(2025, 3, 10, 23, 59, 0, 0, warsaw),
		},
		{
			name:          "half hour offset",
			window:        config.Window{Variant: config.WindowSameDay},
			start:         time.Date(2025, 3, 10, 9, 10, 0, 0, kolkata),
			timezone:      "Asia/Kolkata",
			expectedStart: time.Date(2025, 3, 10, 10, 0, 0, 0, kolkata),
			expectedEnd:   time.Date(2025, 3, 10, 23, 59, 0, 0, kolkata),
		},
		{
			name:          "late event rolls over to the next day",
			window:        config.Window{Variant: config.WindowSameDay},
			start:         time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC),
			timezone:      "",
			expectedStart: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC),
			expectedEnd:   time.Date(2025, 3, 11, 23, 59, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			policy := NewWindowPolicy(tt.window)
			e := event.Event{Id: "e1", StartDate: tt.start, EndDate: tt.start.Add(time.Hour), Timezone: tt.timezone}

			// when
			w, err := policy.For(e)

			// then
			require.NoError(t, err)
			assert.True(t, tt.expectedStart.Equal(w.Start), "start %s", w.Start)
			assert.True(t, tt.expectedEnd.Equal(w.End), "end %s", w.End)
			assert.True(t, w.Start.Before(w.End))
			_, offset := w.Start.Zone()
			_, expectedOffset := tt.expectedStart.Zone()
			assert.Equal(t, expectedOffset, offset)
		})
	}
}

func TestWindowPolicy_For_Errors(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	_, err := NewWindowPolicy(config.Window{Variant: config.WindowSameDay}).
		For(event.Event{Id: "e1", StartDate: start, Timezone: "Mars/Olympus"})
	assert.Error(t, err)

	_, err = NewWindowPolicy(config.Window{Variant: "weekly"}).
		For(event.Event{Id: "e1", StartDate: start})
	assert.Error(t, err)
}
