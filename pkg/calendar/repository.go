package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rush86999/atomic-scheduler/pkg/category"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	"github.com/rush86999/atomic-scheduler/pkg/user"
	log "github.com/sirupsen/logrus"
)

type RepositoryImpl struct {
	db         *pgxpool.Pool
	tx         pgx.Tx
	categories category.Repository
	users      user.Repo
}

func NewRepository(db *pgxpool.Pool, categories category.Repository, users user.Repo) *RepositoryImpl {
	return &RepositoryImpl{db: db, categories: categories, users: users}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(src Source) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx, categories: r.categories, users: r.users}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const eventColumns = `id, user_id, start_date, end_date, timezone, title, summary, notes,
	meeting_id, user_modified_categories, priority, modifiable, transparency,
	is_break, is_meeting, is_external_meeting, buffer_before_minutes, buffer_after_minutes`

func (r *RepositoryImpl) ListEventsInWindow(ctx context.Context, userId string, from, to time.Time, timezone string) ([]event.Event, error) {
	// Return all events that overlap with the given period
	query := `SELECT ` + eventColumns + `
			  FROM event
			  WHERE user_id = $1
			    AND start_date <= $2
			    AND end_date >= $3
			    AND deleted = false
			  ORDER BY start_date`

	rows, err := r.getQueryer().Query(ctx, query, userId, to, from)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	events := make([]event.Event, 0, 10)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		if e.Timezone == "" {
			e.Timezone = timezone
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *RepositoryImpl) GetEventById(ctx context.Context, id string) (*event.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM event WHERE id = $1 AND deleted = false`
	e, err := scanEvent(r.getQueryer().QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("event %s not found", id)
		return nil, nil
	} else if err != nil {
		err := fmt.Errorf("could not get event %s: %w", id, err)
		log.Error(err)
		return nil, err
	}
	return &e, nil
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	var meetingId *string
	var transparency string
	var bufferBefore, bufferAfter int
	err := row.Scan(
		&e.Id,
		&e.UserId,
		&e.StartDate,
		&e.EndDate,
		&e.Timezone,
		&e.Title,
		&e.Summary,
		&e.Notes,
		&meetingId,
		&e.UserModifiedCategories,
		&e.Priority,
		&e.Modifiable,
		&transparency,
		&e.IsBreak,
		&e.IsMeeting,
		&e.IsExternalMeeting,
		&bufferBefore,
		&bufferAfter,
	)
	if err != nil {
		return event.Event{}, err
	}
	if meetingId != nil {
		e.MeetingId = *meetingId
	}
	e.Transparency = event.Transparency(transparency)
	if bufferBefore != 0 || bufferAfter != 0 {
		e.TimeBlocking = &event.BufferTime{BeforeEvent: bufferBefore, AfterEvent: bufferAfter}
	}
	return e, nil
}

func (r *RepositoryImpl) ListPreferredTimeRanges(ctx context.Context, eventId string) ([]event.PreferredTimeRange, error) {
	query := `SELECT id, event_id, day_of_week, start_time, end_time, user_id, created_date, updated_at
			  FROM preferred_time_range
			  WHERE event_id = $1
			  ORDER BY day_of_week NULLS FIRST, start_time`
	rows, err := r.getQueryer().Query(ctx, query, eventId)
	if err != nil {
		err := fmt.Errorf("could not query preferred time ranges: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var ranges []event.PreferredTimeRange
	for rows.Next() {
		var tr event.PreferredTimeRange
		var dayOfWeek *int
		if err := rows.Scan(&tr.Id, &tr.EventId, &dayOfWeek, &tr.StartTime, &tr.EndTime, &tr.UserId, &tr.CreatedDate, &tr.UpdatedAt); err != nil {
			err := fmt.Errorf("could not scan preferred time range: %w", err)
			log.Error(err)
			return nil, err
		}
		tr.DayOfWeek = event.AnyDay
		if dayOfWeek != nil {
			tr.DayOfWeek = *dayOfWeek
		}
		ranges = append(ranges, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ranges, nil
}

// InsertPreferredTimeRanges upserts by id so a redelivered message does not duplicate ranges.
func (r *RepositoryImpl) InsertPreferredTimeRanges(ctx context.Context, ranges []event.PreferredTimeRange) error {
	if len(ranges) == 0 {
		return nil
	}
	query := `INSERT INTO preferred_time_range (id, event_id, day_of_week, start_time, end_time, user_id, created_date, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  ON CONFLICT (id) DO UPDATE SET
			    day_of_week = EXCLUDED.day_of_week,
			    start_time = EXCLUDED.start_time,
			    end_time = EXCLUDED.end_time,
			    updated_at = EXCLUDED.updated_at`
	batch := &pgx.Batch{}
	for _, tr := range ranges {
		if err := tr.Validate(); err != nil {
			return err
		}
		var dayOfWeek *int
		if !tr.AnyDay() {
			d := tr.DayOfWeek
			dayOfWeek = &d
		}
		batch.Queue(query, tr.Id, tr.EventId, dayOfWeek, tr.StartTime, tr.EndTime, tr.UserId, tr.CreatedDate, tr.UpdatedAt)
	}
	var results pgx.BatchResults
	if r.tx != nil {
		results = r.tx.SendBatch(ctx, batch)
	} else {
		results = r.db.SendBatch(ctx, batch)
	}
	defer results.Close()
	for range ranges {
		if _, err := results.Exec(); err != nil {
			err := fmt.Errorf("could not insert preferred time range: %w", err)
			log.Error(err)
			return err
		}
	}
	return nil
}

func (r *RepositoryImpl) DeletePreferredTimeRanges(ctx context.Context, eventId string) error {
	_, err := r.getQueryer().Exec(ctx, `DELETE FROM preferred_time_range WHERE event_id = $1`, eventId)
	if err != nil {
		err := fmt.Errorf("could not delete preferred time ranges of event %s: %w", eventId, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *RepositoryImpl) ListCategories(ctx context.Context, eventId string) ([]event.Category, error) {
	return r.categories.ListEventCategories(ctx, eventId)
}

func (r *RepositoryImpl) ListReminders(ctx context.Context, eventId string) ([]int, error) {
	rows, err := r.getQueryer().Query(ctx, `SELECT minutes FROM reminder WHERE event_id = $1 ORDER BY minutes`, eventId)
	if err != nil {
		err := fmt.Errorf("could not query reminders: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var reminders []int
	for rows.Next() {
		var minutes int
		if err := rows.Scan(&minutes); err != nil {
			return nil, fmt.Errorf("could not scan reminder: %w", err)
		}
		reminders = append(reminders, minutes)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *RepositoryImpl) GetUserPreferences(ctx context.Context, userId string) (user.Preferences, error) {
	return r.users.GetPreferences(ctx, userId)
}
