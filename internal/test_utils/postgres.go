package test_utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// pgvector image, the training store needs the vector extension
const postgresImage = "pgvector/pgvector:pg17"

var testDatabase = config.Database{
	User:     "test_atomic",
	Pass:     "test_atomic",
	Name:     "atomic",
	Schema:   "atomic",
	MaxConns: 4,
	MinConns: 1,
}

// TestWithDB starts Postgres with every migration applied. It is meant for TestMain:
// the returned function closes the pool and terminates the container.
func TestWithDB() (*pgxpool.Pool, func()) {
	ctx := context.Background()

	devDir, err := database.FindUpward("dev")
	if err != nil {
		log.Printf("Failed to locate dev scripts: %v", err)
		os.Exit(1)
	}

	container, err := postgres.Run(
		ctx, postgresImage,
		postgres.WithInitScripts(filepath.Join(devDir, "init.sql")),
		postgres.WithDatabase(testDatabase.Name),
		postgres.WithUsername(testDatabase.User),
		postgres.WithPassword(testDatabase.Pass),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("Failed to start postgres container: %v", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")
	log.Infof("Postgres container started at %s:%d", host, port.Int())

	cfg := testDatabase
	cfg.Host = host
	cfg.Port = port.Int()

	if err := database.Migrate(cfg); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}

	return db, func() {
		db.Close()
		terminate(container)
	}
}

// Truncate empties the given tables between tests.
func Truncate(ctx context.Context, db *pgxpool.Pool, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE"); err != nil {
		return fmt.Errorf("failed to truncate %v: %w", tables, err)
	}
	return nil
}

func terminate(container testcontainers.Container) {
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Errorf("failed to terminate container: %v", err)
	}
}
