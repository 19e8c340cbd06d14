package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rush86999/atomic-scheduler/internal/config"
	log "github.com/sirupsen/logrus"
)

const bodyField = "body"

// RedisStream is a Redis Streams consumer group member. It implements both Consumer and
// Publisher over the configured stream.
type RedisStream struct {
	rdb *redis.Client
	cfg config.Queue
}

func NewRedisStream(rdb *redis.Client, cfg config.Queue) *RedisStream {
	return &RedisStream{rdb: rdb, cfg: cfg}
}

func (s *RedisStream) EnsureGroup(ctx context.Context) error {
	err := s.rdb.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", s.cfg.Group, s.cfg.Stream, err)
	}
	log.Debugf("consumer group %s ready on stream %s", s.cfg.Group, s.cfg.Stream)
	return nil
}

func (s *RedisStream) Read(ctx context.Context) (*Message, error) {
	streams, err := s.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    1,
		Block:    s.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from %s: %w", s.cfg.Stream, err)
	}
	for _, stream := range streams {
		for _, m := range stream.Messages {
			return toMessage(m, 1), nil
		}
	}
	return nil, nil
}

func (s *RedisStream) Claim(ctx context.Context) (*Message, error) {
	messages, _, err := s.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   s.cfg.Stream,
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		MinIdle:  s.cfg.MinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to claim pending messages of %s: %w", s.cfg.Stream, err)
	}
	if len(messages) == 0 {
		return nil, nil
	}

	m := messages[0]
	pending, err := s.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: s.cfg.Stream,
		Group:  s.cfg.Group,
		Start:  m.ID,
		End:    m.ID,
		Count:  1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery count of message %s: %w", m.ID, err)
	}
	deliveries := int64(1)
	if len(pending) > 0 {
		deliveries = pending[0].RetryCount
	}
	log.Infof("reclaimed message %s (delivery %d)", m.ID, deliveries)
	return toMessage(m, deliveries), nil
}

func (s *RedisStream) Ack(ctx context.Context, id string) error {
	if err := s.rdb.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", id, err)
	}
	return nil
}

// Publish stores the idempotency key and appends the message in one transaction. A key that
// exists, or that another producer writes concurrently, makes the call a duplicate.
func (s *RedisStream) Publish(ctx context.Context, key string, body []byte) (string, bool, error) {
	idempotencyKey := s.cfg.Stream + ":idempotency:" + key
	var id string
	published := false

	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, idempotencyKey).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			id, err = tx.Get(ctx, idempotencyKey).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}

		var add *redis.StringCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			add = pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: s.cfg.Stream,
				Values: map[string]any{bodyField: body, "key": key},
			})
			pipe.Set(ctx, idempotencyKey, "", s.cfg.IdempotencyTTL)
			return nil
		})
		if err != nil {
			return err
		}
		id = add.Val()
		published = true
		// remember the stream id for later duplicates
		return tx.Set(ctx, idempotencyKey, id, s.cfg.IdempotencyTTL).Err()
	}, idempotencyKey)

	if errors.Is(err, redis.TxFailedErr) {
		log.Infof("message with key %s published concurrently, skipping", key)
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to publish message with key %s: %w", key, err)
	}
	return id, published, nil
}

func toMessage(m redis.XMessage, deliveries int64) *Message {
	msg := &Message{Id: m.ID, Deliveries: deliveries}
	switch body := m.Values[bodyField].(type) {
	case string:
		msg.Body = []byte(body)
	case []byte:
		msg.Body = body
	}
	return msg
}
