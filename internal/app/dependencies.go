package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/event_bus"
	"github.com/rush86999/atomic-scheduler/internal/utils"
	"github.com/rush86999/atomic-scheduler/pkg/calendar"
	"github.com/rush86999/atomic-scheduler/pkg/category"
	"github.com/rush86999/atomic-scheduler/pkg/dispatcher"
	"github.com/rush86999/atomic-scheduler/pkg/feature_resolver"
	"github.com/rush86999/atomic-scheduler/pkg/meeting_assist"
	"github.com/rush86999/atomic-scheduler/pkg/planner"
	"github.com/rush86999/atomic-scheduler/pkg/queue"
	"github.com/rush86999/atomic-scheduler/pkg/stats"
	"github.com/rush86999/atomic-scheduler/pkg/training"
	"github.com/rush86999/atomic-scheduler/pkg/user"
)

// Dependencies holds all services and handlers of one process. Worker-only parts are nil in
// a producer.
type Dependencies struct {
	Clock utils.Clock
	Bus   *event_bus.EventBus

	Stream          *queue.RedisStream
	Producer        *queue.Producer
	ProducerHandler *queue.ProducerHandler

	UserRepo    user.Repo
	UserService user.Service
	UserHandler *user.Handler

	CategoryRepo       category.Repository
	CalendarRepository *calendar.RepositoryImpl
	TrainingRepository *training.RepositoryImpl
	MeetingAssistRepo  *meeting_assist.RepositoryImpl

	Resolver      *feature_resolver.Resolver
	Aggregator    *meeting_assist.Aggregator
	PlannerClient planner.Client
	Dispatcher    *dispatcher.Dispatcher
	Worker        *queue.Worker

	StatsCollector   *stats.Collector
	CsvStatsRenderer *stats.CsvStatsRendererImpl
	StatsHandler     *stats.StatsHandler

	Health *HealthHandler
}

// BuildProducerDependencies wires the HTTP intake, which only needs Redis.
func BuildProducerDependencies(rdb *redis.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{
		Clock: utils.SystemClock{},
		Bus:   event_bus.NewEventBus(),
	}

	deps.Stream = queue.NewRedisStream(rdb, cfg.Queue)
	deps.Producer = queue.NewProducer(deps.Stream)
	deps.ProducerHandler = queue.NewProducerHandler(deps.Producer)

	deps.Health = NewHealthHandler(rdb, nil)
	return deps
}

// BuildWorkerDependencies wires the consumer and the whole planning pipeline behind it.
func BuildWorkerDependencies(ctx context.Context, db *pgxpool.Pool, rdb *redis.Client, cfg config.Application) *Dependencies {
	deps := &Dependencies{
		Clock: utils.SystemClock{},
		Bus:   event_bus.NewEventBus(),
	}

	deps.StatsCollector = stats.NewCollector(deps.Bus, deps.Clock)
	deps.CsvStatsRenderer = stats.NewCsvStatsRenderer()
	deps.StatsHandler = stats.NewStatsHandler(deps.StatsCollector, deps.CsvStatsRenderer)

	deps.UserRepo = user.NewUserRepo(db)
	deps.UserService = user.NewUserService(deps.UserRepo)
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.CategoryRepo = category.NewRepository(db)
	deps.CalendarRepository = calendar.NewRepository(db, deps.CategoryRepo, deps.UserRepo)
	deps.TrainingRepository = training.NewRepository(db, cfg.Training.MaxDistance)
	deps.MeetingAssistRepo = meeting_assist.NewRepository(db)

	deps.Resolver = feature_resolver.NewResolver(
		deps.CalendarRepository,
		deps.TrainingRepository,
		category.NewKeywordRules(deps.CategoryRepo),
		deps.Clock,
		deps.Bus,
	)
	deps.Aggregator = meeting_assist.NewAggregator(deps.MeetingAssistRepo, deps.CalendarRepository, cfg.MeetingAssist.Concurrency)
	deps.PlannerClient = planner.NewClient(ctx, cfg.Planner)
	deps.Dispatcher = dispatcher.NewDispatcher(
		dispatcher.NewWindowPolicy(cfg.Window),
		deps.CalendarRepository,
		deps.TrainingRepository,
		deps.Resolver,
		deps.Aggregator,
		deps.PlannerClient,
		deps.Clock,
		deps.Bus,
	)

	deps.Stream = queue.NewRedisStream(rdb, cfg.Queue)
	deps.Worker = queue.NewWorker(deps.Dispatcher, deps.Stream, cfg.Queue, deps.Clock, deps.Bus)

	deps.Health = NewHealthHandler(rdb, db)
	return deps
}
