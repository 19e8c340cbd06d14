package training

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyVector = errors.New("empty vector")

// Record is an event remembered as a representative of its kind. Later events whose vector is
// close to it inherit its scheduling attributes.
type Record struct {
	Id              string    `json:"id"`
	UserId          string    `json:"userId"`
	Vector          []float32 `json:"vector"`
	SourceEventText string    `json:"sourceEventText"`
	CreatedAt       time.Time `json:"createdAt"`
}

type Match struct {
	Id string
	// Distance is the cosine distance to the searched vector, 0 being identical.
	Distance float64
}

type Store interface {
	// GetVectorById returns the stored embedding of an event, nil when there is none.
	GetVectorById(ctx context.Context, eventId string) ([]float32, error)
	// SearchNearest returns the user's closest training record, nil when none is close enough.
	SearchNearest(ctx context.Context, userId string, vector []float32) (*Match, error)
	// Insert stores the record, replacing any record with the same id.
	Insert(ctx context.Context, record Record) error
	DeleteById(ctx context.Context, id string) error
}
