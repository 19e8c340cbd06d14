package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
)

type Producer struct {
	publisher Publisher
}

func NewProducer(publisher Publisher) *Producer {
	return &Producer{publisher: publisher}
}

// Publish queues the event once per idempotency key. An empty key is derived from the encoded
// event.
func (p *Producer) Publish(ctx context.Context, key string, e event.Event) (string, bool, error) {
	if strings.TrimSpace(e.Id) == "" {
		return "", false, ErrMissingEventId
	}
	if strings.TrimSpace(e.UserId) == "" {
		return "", false, fmt.Errorf("%w: event %s", ErrMissingUserId, e.Id)
	}
	if _, err := e.Location(); err != nil {
		return "", false, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	body, err := json.Marshal(e)
	if err != nil {
		return "", false, fmt.Errorf("%w: event %s: %v", ErrMalformed, e.Id, err)
	}
	if key == "" {
		key = IdempotencyKey(body)
	}

	id, published, err := p.publisher.Publish(ctx, key, body)
	if err != nil {
		log.Errorf("failed to queue event %s: %v", e.Id, err)
		return "", false, err
	}
	if published {
		log.Debugf("event %s queued as %s", e.Id, id)
	} else {
		log.Infof("event %s with key %s already queued", e.Id, key)
	}
	return id, published, nil
}

func IdempotencyKey(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
