package category

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	ListUserCategories(ctx context.Context, userId string) ([]event.Category, error)
	// ListEventCategories returns the categories assigned to an event.
	ListEventCategories(ctx context.Context, eventId string) ([]event.Category, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const categoryColumns = `c.id, c.user_id, c.name,
	c.copy_availability, c.copy_time_blocking, c.copy_time_preference, c.copy_reminders,
	c.copy_priority_level, c.copy_modifiable, c.copy_categories, c.copy_is_break,
	c.copy_is_meeting, c.copy_is_external_meeting,
	c.default_availability, c.default_buffer_before_minutes, c.default_buffer_after_minutes,
	c.default_time_preference, c.default_reminders, c.default_priority_level, c.default_modifiable,
	c.default_is_break, c.default_is_meeting, c.default_is_external_meeting`

func (r *RepositoryImpl) ListUserCategories(ctx context.Context, userId string) ([]event.Category, error) {
	query := `SELECT ` + categoryColumns + `
			  FROM category c
			  WHERE c.user_id = $1 AND c.deleted = false
			  ORDER BY c.name`
	rows, err := r.db.Query(ctx, query, userId)
	if err != nil {
		err := fmt.Errorf("could not query categories: %w", err)
		log.Error(err)
		return nil, err
	}
	return scanCategories(rows)
}

func (r *RepositoryImpl) ListEventCategories(ctx context.Context, eventId string) ([]event.Category, error) {
	query := `SELECT ` + categoryColumns + `
			  FROM category c
			  JOIN category_event ce ON ce.category_id = c.id
			  WHERE ce.event_id = $1 AND ce.deleted = false AND c.deleted = false
			  ORDER BY c.name`
	rows, err := r.db.Query(ctx, query, eventId)
	if err != nil {
		err := fmt.Errorf("could not query event categories: %w", err)
		log.Error(err)
		return nil, err
	}
	return scanCategories(rows)
}

func scanCategories(rows pgx.Rows) ([]event.Category, error) {
	defer rows.Close()

	var categories []event.Category
	for rows.Next() {
		var c event.Category
		var availability string
		var bufferBefore, bufferAfter int
		var timePreference []byte
		var reminders []int
		if err := rows.Scan(
			&c.Id,
			&c.UserId,
			&c.Name,
			&c.CopyAvailability,
			&c.CopyTimeBlocking,
			&c.CopyTimePreference,
			&c.CopyReminders,
			&c.CopyPriorityLevel,
			&c.CopyModifiable,
			&c.CopyCategories,
			&c.CopyIsBreak,
			&c.CopyIsMeeting,
			&c.CopyIsExternalMeeting,
			&availability,
			&bufferBefore,
			&bufferAfter,
			&timePreference,
			&reminders,
			&c.DefaultPriorityLevel,
			&c.DefaultModifiable,
			&c.DefaultIsBreak,
			&c.DefaultIsMeeting,
			&c.DefaultIsExternalMeeting,
		); err != nil {
			err := fmt.Errorf("could not scan category row: %w", err)
			log.Error(err)
			return nil, err
		}
		c.DefaultAvailability = event.Transparency(availability)
		c.DefaultReminders = reminders
		if bufferBefore != 0 || bufferAfter != 0 {
			c.DefaultTimeBlocking = &event.BufferTime{BeforeEvent: bufferBefore, AfterEvent: bufferAfter}
		}
		if len(timePreference) > 0 {
			if err := json.Unmarshal(timePreference, &c.DefaultTimePreference); err != nil {
				log.Warnf("ignoring malformed default time preference of category %s: %v", c.Id, err)
			}
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}
