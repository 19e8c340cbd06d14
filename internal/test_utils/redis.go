package test_utils

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/database"
	log "github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestWithRedis starts a Redis container for TestMain. The returned function terminates it.
func TestWithRedis() (*redis.Client, func()) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		log.Printf("Failed to start redis container: %v", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "6379/tcp")
	log.Infof("Redis container started at %s:%d", host, port.Int())

	rdb, err := database.OpenRedis(ctx, config.Redis{Addr: fmt.Sprintf("%s:%d", host, port.Int())})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}

	return rdb, func() {
		_ = rdb.Close()
		terminate(container)
	}
}
