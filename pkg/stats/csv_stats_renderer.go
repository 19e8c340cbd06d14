package stats

import (
	"bytes"
	"encoding/csv"
	"slices"
	"strconv"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	log "github.com/sirupsen/logrus"
)

type StatsRenderer interface {
	RenderStats(stats Summary) (string, error)
}

type CsvStatsRendererImpl struct {
}

func NewCsvStatsRenderer() *CsvStatsRendererImpl {
	return &CsvStatsRendererImpl{}
}

// RenderStats writes one "metric,value" row per counter, then one row per resolution path.
func (t *CsvStatsRendererImpl) RenderStats(stats Summary) (string, error) {
	data := [][]string{
		{"metric", "value"},
		{"since", formatTime(stats.Since)},
		{string(event_bus.PlanningDispatched), strconv.Itoa(stats.Dispatched)},
		{string(event_bus.PlanningFailed), strconv.Itoa(stats.Failed)},
		{string(event_bus.QueueMessageDropped), strconv.Itoa(stats.Dropped)},
		{"attendee.failures", strconv.Itoa(stats.AttendeeFailures)},
		{string(event_bus.TrainingRecordInserted), strconv.Itoa(stats.RecordsInserted)},
		{string(event_bus.TrainingRecordDeleted), strconv.Itoa(stats.RecordsDeleted)},
		{"dispatch.avg_ms", strconv.FormatInt(stats.AverageDispatchTime().Milliseconds(), 10)},
		{"dispatch.last", formatTime(stats.LastDispatch)},
	}

	paths := make([]string, 0, len(stats.ByPath))
	for path := range stats.ByPath {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	for _, path := range paths {
		data = append(data, []string{"path." + path, strconv.Itoa(stats.ByPath[path])})
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(data); err != nil {
		log.Errorf("failed to render stats: %v", err)
		return "", err
	}
	return buf.String(), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
