package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/config"
	"github.com/rush86999/atomic-scheduler/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rdb *redis.Client

func TestMain(m *testing.M) {
	var cleanup func()
	rdb, cleanup = test_utils.TestWithRedis()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupRedisStream(t *testing.T) (context.Context, *RedisStream) {
	ctx := context.Background()
	cfg := config.Queue{
		Stream:         "test:" + uuid.NewString(),
		Group:          "planner",
		Consumer:       "worker-1",
		Block:          50 * time.Millisecond,
		MinIdle:        10 * time.Millisecond,
		IdempotencyTTL: time.Minute,
	}
	stream := NewRedisStream(rdb, cfg)
	require.NoError(t, stream.EnsureGroup(ctx))
	return ctx, stream
}

func TestRedisStream_EnsureGroup_Twice(t *testing.T) {
	ctx, stream := setupRedisStream(t)

	assert.NoError(t, stream.EnsureGroup(ctx))
}

func TestRedisStream_PublishReadAck(t *testing.T) {
	// given
	ctx, stream := setupRedisStream(t)
	id, published, err := stream.Publish(ctx, "k1", []byte(`{"id":"e1","userId":"u1"}`))
	require.NoError(t, err)
	require.True(t, published)

	// when
	msg, err := stream.Read(ctx)

	// then
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, id, msg.Id)
	assert.Equal(t, int64(1), msg.Deliveries)
	assert.JSONEq(t, `{"id":"e1","userId":"u1"}`, string(msg.Body))

	require.NoError(t, stream.Ack(ctx, msg.Id))
	pending, err := rdb.XPending(ctx, stream.cfg.Stream, stream.cfg.Group).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestRedisStream_Read_NothingQueued(t *testing.T) {
	ctx, stream := setupRedisStream(t)

	msg, err := stream.Read(ctx)

	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestRedisStream_Publish_Duplicate(t *testing.T) {
	// given
	ctx, stream := setupRedisStream(t)
	firstId, _, err := stream.Publish(ctx, "k1", []byte(`{"id":"e1"}`))
	require.NoError(t, err)

	// when
	secondId, published, err := stream.Publish(ctx, "k1", []byte(`{"id":"e1"}`))

	// then
	require.NoError(t, err)
	assert.False(t, published)
	assert.Equal(t, firstId, secondId)
	length, err := rdb.XLen(ctx, stream.cfg.Stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestRedisStream_Claim_RedeliversIdleMessage(t *testing.T) {
	// given
	ctx, stream := setupRedisStream(t)
	_, _, err := stream.Publish(ctx, "k1", []byte(`{"id":"e1"}`))
	require.NoError(t, err)
	first, err := stream.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	time.Sleep(20 * time.Millisecond)

	// when
	claimed, err := stream.Claim(ctx)

	// then
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.Id, claimed.Id)
	assert.Equal(t, int64(2), claimed.Deliveries)
	assert.Equal(t, first.Body, claimed.Body)
}

func TestRedisStream_Claim_NothingIdle(t *testing.T) {
	ctx, stream := setupRedisStream(t)

	claimed, err := stream.Claim(ctx)

	require.NoError(t, err)
	assert.Nil(t, claimed)
}
