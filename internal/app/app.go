package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/database"
	"github.com/rush86999/atomic-scheduler/internal/observability"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeWorker   Mode = "worker"
	ModeProducer Mode = "producer"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, backends, router, and the lifecycle of one process.
type Application struct {
	cfg             config.Application
	mode            Mode
	deps            *Dependencies
	srv             *http.Server
	db              *pgxpool.Pool
	rdb             *redis.Client
	shutdownTracing func(context.Context) error
}

// NewApplication constructs the process for the given mode, ready to Run().
func NewApplication(ctx context.Context, configPath string, mode Mode) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, "atomic-scheduler-"+string(mode))
	if err != nil {
		return nil, err
	}

	rdb, err := database.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	a := &Application{cfg: cfg, mode: mode, rdb: rdb, shutdownTracing: shutdownTracing}
	switch mode {
	case ModeProducer:
		a.deps = BuildProducerDependencies(rdb, cfg)
	case ModeWorker:
		// DB + migrations
		if err := database.Migrate(cfg.Database); err != nil {
			_ = rdb.Close()
			return nil, err
		}
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		a.db = db
		a.deps = BuildWorkerDependencies(ctx, db, rdb, cfg)
	default:
		_ = rdb.Close()
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	r := mux.NewRouter()
	SetupMiddleware(r)
	RegisterRoutes(r, a.deps)

	a.srv = &http.Server{
		Handler:      r,
		Addr:         cfg.Http.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// Run serves HTTP, and consumes the queue in worker mode, until ctx is cancelled or either
// part fails.
func (a *Application) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting %s server on %s", a.mode, a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	})
	if a.mode == ModeWorker {
		g.Go(func() error {
			err := a.deps.Worker.Run(gctx)
			if err == nil && ctx.Err() == nil {
				return errors.New("worker stopped")
			}
			return err
		})
	}
	return g.Wait()
}

func (a *Application) close() {
	if a.deps.StatsCollector != nil {
		a.deps.StatsCollector.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if err := a.rdb.Close(); err != nil {
		log.Warnf("failed to close redis client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.shutdownTracing(ctx); err != nil {
		log.Warnf("failed to flush traces: %v", err)
	}
}
