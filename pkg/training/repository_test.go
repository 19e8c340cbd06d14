package training

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rush86999/atomic-scheduler/internal/test_utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	code := m.Run()
	cleanup()
	os.Exit(code)
}

func setupTestRepository(t *testing.T) (context.Context, *RepositoryImpl) {
	ctx := context.Background()
	require.NoError(t, test_utils.Truncate(ctx, db, "training_record", "event_vector"))
	return ctx, NewRepository(db, 0.1)
}

func TestRepositoryImpl_GetVectorById(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	_, err := db.Exec(ctx, `INSERT INTO event_vector (id, user_id, vector) VALUES ('e1', 'u1', '[0.25,0.5,1]')`)
	require.NoError(t, err)

	// when
	vector, err := repo.GetVectorById(ctx, "e1")
	missing, missingErr := repo.GetVectorById(ctx, "e2")

	// then
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 1}, vector)
	assert.NoError(t, missingErr)
	assert.Nil(t, missing)
}

func TestRepositoryImpl_VectorRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		vector []float32
	}{
		{"small values", []float32{0.001, -0.5, 3.25e-7}},
		{"single dimension", []float32{42}},
		{"wide", make([]float32, 384)},
	}
	tests[2].vector[0], tests[2].vector[383] = 1, -1
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			ctx, repo := setupTestRepository(t)
			_, err := db.Exec(ctx, `INSERT INTO event_vector (id, user_id, vector) VALUES ($1, $2, $3)`,
				"e1", "u1", pgvector.NewVector(tt.vector))
			require.NoError(t, err)

			// when
			fromEvent, err := repo.GetVectorById(ctx, "e1")
			require.NoError(t, err)
			require.NoError(t, repo.Insert(ctx, Record{Id: "e1", UserId: "u1", Vector: fromEvent, SourceEventText: "a:", CreatedAt: time.Now().UTC()}))

			// then
			assert.Equal(t, tt.vector, fromEvent)
			var stored pgvector.Vector
			require.NoError(t, db.QueryRow(ctx, `SELECT vector FROM training_record WHERE id = 'e1'`).Scan(&stored))
			assert.Equal(t, tt.vector, stored.Slice())
		})
	}
}

func TestRepositoryImpl_SearchNearest(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, Record{Id: "near", UserId: "u1", Vector: []float32{1, 0.05, 0}, SourceEventText: "standup:", CreatedAt: now}))
	require.NoError(t, repo.Insert(ctx, Record{Id: "far", UserId: "u1", Vector: []float32{0, 1, 0}, SourceEventText: "gym:", CreatedAt: now}))
	require.NoError(t, repo.Insert(ctx, Record{Id: "other-user", UserId: "u2", Vector: []float32{1, 0, 0}, SourceEventText: "standup:", CreatedAt: now}))

	// when
	match, err := repo.SearchNearest(ctx, "u1", []float32{1, 0, 0})
	noMatch, noMatchErr := repo.SearchNearest(ctx, "u1", []float32{0, 0, 1})

	// then
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "near", match.Id)
	assert.Less(t, match.Distance, 0.1)
	assert.NoError(t, noMatchErr)
	assert.Nil(t, noMatch)
}

func TestRepositoryImpl_Insert_IsIdempotent(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	record := Record{Id: "e1", UserId: "u1", Vector: []float32{1, 2, 3}, SourceEventText: "Standup:", CreatedAt: time.Now().UTC()}

	// when
	require.NoError(t, repo.Insert(ctx, record))
	require.NoError(t, repo.Insert(ctx, record))

	// then
	var count int
	require.NoError(t, db.QueryRow(ctx, `SELECT count(*) FROM training_record WHERE id = 'e1'`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRepositoryImpl_DeleteById(t *testing.T) {
	// given
	ctx, repo := setupTestRepository(t)
	require.NoError(t, repo.Insert(ctx, Record{Id: "e1", UserId: "u1", Vector: []float32{1, 0}, SourceEventText: "a:", CreatedAt: time.Now().UTC()}))

	// when
	err := repo.DeleteById(ctx, "e1")

	// then
	require.NoError(t, err)
	match, err := repo.SearchNearest(ctx, "u1", []float32{1, 0})
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestRepositoryImpl_RejectsEmptyVector(t *testing.T) {
	ctx, repo := setupTestRepository(t)

	assert.ErrorIs(t, repo.Insert(ctx, Record{Id: "e1", UserId: "u1"}), ErrEmptyVector)
	_, err := repo.SearchNearest(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrEmptyVector)
}
