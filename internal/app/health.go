package app

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/rest"
	log "github.com/sirupsen/logrus"
)

type HealthHandler struct {
	rdb *redis.Client
	db  *pgxpool.Pool
}

// NewHealthHandler checks the given backends. A nil db is not checked.
func NewHealthHandler(rdb *redis.Client, db *pgxpool.Pool) *HealthHandler {
	return &HealthHandler{rdb: rdb, db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"redis": "ok"}
	healthy := true
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("health check: redis: %v", err)
		status["redis"] = err.Error()
		healthy = false
	}
	if h.db != nil {
		status["db"] = "ok"
		if err := h.db.Ping(ctx); err != nil {
			log.Warnf("health check: db: %v", err)
			status["db"] = err.Error()
			healthy = false
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	rest.WriteJSON(w, code, status)
}
