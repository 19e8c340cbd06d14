package queue

import (
	"context"
	"errors"

	"github.com/rush86999/atomic-scheduler/pkg/event"
)

var (
	ErrMissingEventId = errors.New("message has no event id")
	ErrMissingUserId  = errors.New("message has no user id")
	ErrMalformed      = errors.New("malformed message")
)

// IsPoison reports whether err means the message can never be processed, however often it is
// redelivered.
func IsPoison(err error) bool {
	return errors.Is(err, ErrMissingEventId) ||
		errors.Is(err, ErrMissingUserId) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, event.ErrInvalidTimezone)
}

// Message is one delivery of a queued event.
type Message struct {
	Id   string
	Body []byte
	// Deliveries counts how many times the message was handed to a consumer, this one included.
	Deliveries int64
}

// Consumer is the receiving side of a consumer group. A message stays pending until acked and
// is redelivered once it has been idle for long enough.
type Consumer interface {
	EnsureGroup(ctx context.Context) error
	// Read blocks for the next new message. It returns nil when none arrived in time.
	Read(ctx context.Context) (*Message, error)
	// Claim takes over one pending message that has been idle for too long, or returns nil.
	Claim(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, id string) error
}

type Publisher interface {
	// Publish appends body to the stream unless key was published before. It returns the
	// stream id and false for a duplicate.
	Publish(ctx context.Context, key string, body []byte) (string, bool, error)
}
