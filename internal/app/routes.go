package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers the endpoints of the process. Worker-only handlers are nil in a
// producer and are skipped.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	r.HandleFunc("/healthz", deps.Health.Health).Methods("GET")

	// Queue intake
	if deps.ProducerHandler != nil {
		r.HandleFunc("/api/events", deps.ProducerHandler.PublishEvent).Methods("POST")
	}

	// Worker stats
	if deps.StatsHandler != nil {
		r.HandleFunc("/api/stats", deps.StatsHandler.GetStats).Methods("GET")
	}

	// User
	if deps.UserHandler != nil {
		r.HandleFunc("/api/user/current/preferences", deps.UserHandler.CurrentPreferences).Methods("GET")
	}
}
