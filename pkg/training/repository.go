package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
)

type RepositoryImpl struct {
	db          *pgxpool.Pool
	maxDistance float64
}

// NewRepository creates a pgvector backed store. Nearest records further than maxDistance
// (cosine distance) are not reported as matches.
func NewRepository(db *pgxpool.Pool, maxDistance float64) *RepositoryImpl {
	return &RepositoryImpl{db: db, maxDistance: maxDistance}
}

func (r *RepositoryImpl) GetVectorById(ctx context.Context, eventId string) ([]float32, error) {
	var v pgvector.Vector
	err := r.db.QueryRow(ctx, `SELECT vector FROM event_vector WHERE id = $1`, eventId).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("no vector stored for event %s", eventId)
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not get vector of event %s: %w", eventId, err)
		log.Error(err)
		return nil, err
	}
	return v.Slice(), nil
}

func (r *RepositoryImpl) SearchNearest(ctx context.Context, userId string, vector []float32) (*Match, error) {
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	query := `SELECT id, vector <=> $2 AS distance
			  FROM training_record
			  WHERE user_id = $1
			  ORDER BY distance
			  LIMIT 1`
	var m Match
	err := r.db.QueryRow(ctx, query, userId, pgvector.NewVector(vector)).Scan(&m.Id, &m.Distance)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not search training records of user %s: %w", userId, err)
		log.Error(err)
		return nil, err
	}
	if m.Distance > r.maxDistance {
		log.Debugf("nearest training record %s of user %s too far (%.4f)", m.Id, userId, m.Distance)
		return nil, nil
	}
	return &m, nil
}

func (r *RepositoryImpl) Insert(ctx context.Context, record Record) error {
	if len(record.Vector) == 0 {
		return ErrEmptyVector
	}
	query := `INSERT INTO training_record (id, user_id, vector, source_event_text, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (id) DO UPDATE SET
			    user_id = EXCLUDED.user_id,
			    vector = EXCLUDED.vector,
			    source_event_text = EXCLUDED.source_event_text`
	_, err := r.db.Exec(ctx, query, record.Id, record.UserId, pgvector.NewVector(record.Vector), record.SourceEventText, record.CreatedAt)
	if err != nil {
		err := fmt.Errorf("could not insert training record %s: %w", record.Id, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) DeleteById(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM training_record WHERE id = $1`, id)
	if err != nil {
		err := fmt.Errorf("could not delete training record %s: %w", id, err)
		log.Error(err)
		return err
	}
	return nil
}
