package stats

import (
	"net/http"
	"time"

	"github.com/rush86999/atomic-scheduler/internal/rest"
)

type SummaryDTO struct {
	Since               time.Time      `json:"since"`
	Dispatched          int            `json:"dispatched"`
	Failed              int            `json:"failed"`
	Dropped             int            `json:"dropped"`
	AttendeeFailures    int            `json:"attendeeFailures"`
	RecordsInserted     int            `json:"trainingRecordsInserted"`
	RecordsDeleted      int            `json:"trainingRecordsDeleted"`
	ByPath              map[string]int `json:"byPath"`
	AverageDispatchTime int64          `json:"averageDispatchTimeMs"`
	LastDispatch        *time.Time     `json:"lastDispatch,omitempty"`
	LastFailure         string         `json:"lastFailure,omitempty"`
}

type StatsHandler struct {
	statsService     StatsService
	csvStatsRenderer StatsRenderer
}

func NewStatsHandler(statsService StatsService, csvStatsRenderer StatsRenderer) *StatsHandler {
	return &StatsHandler{statsService, csvStatsRenderer}
}

func (handler *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := handler.statsService.GetStats()

	if r.Header.Get("Accept") == "text/csv" {
		csv, err := handler.csvStatsRenderer.RenderStats(stats)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(csv)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(stats))
}

func toDTO(stats Summary) SummaryDTO {
	dto := SummaryDTO{
		Since:               stats.Since,
		Dispatched:          stats.Dispatched,
		Failed:              stats.Failed,
		Dropped:             stats.Dropped,
		AttendeeFailures:    stats.AttendeeFailures,
		RecordsInserted:     stats.RecordsInserted,
		RecordsDeleted:      stats.RecordsDeleted,
		ByPath:              stats.ByPath,
		AverageDispatchTime: stats.AverageDispatchTime().Milliseconds(),
		LastFailure:         stats.LastFailure,
	}
	if dto.ByPath == nil {
		dto.ByPath = map[string]int{}
	}
	if !stats.LastDispatch.IsZero() {
		last := stats.LastDispatch
		dto.LastDispatch = &last
	}
	return dto
}
