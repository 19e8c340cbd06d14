package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
)

type Repo interface {
	// GetPreferences returns the user's scheduling preferences. A user without stored
	// preferences gets zero-value preferences.
	GetPreferences(ctx context.Context, userId string) (Preferences, error)
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) GetPreferences(ctx context.Context, userId string) (Preferences, error) {
	query := `SELECT reminders, buffer_before_minutes, buffer_after_minutes,
				copy_availability, copy_time_blocking, copy_time_preference, copy_reminders,
				copy_priority_level, copy_modifiable, copy_categories, copy_is_break,
				copy_is_meeting, copy_is_external_meeting
			  FROM user_preference WHERE user_id = $1`
	prefs := Preferences{UserId: userId}
	var reminders []int
	var before, after int
	err := u.db.QueryRow(ctx, query, userId).Scan(
		&reminders,
		&before,
		&after,
		&prefs.CopyAvailability,
		&prefs.CopyTimeBlocking,
		&prefs.CopyTimePreference,
		&prefs.CopyReminders,
		&prefs.CopyPriorityLevel,
		&prefs.CopyModifiable,
		&prefs.CopyCategories,
		&prefs.CopyIsBreak,
		&prefs.CopyIsMeeting,
		&prefs.CopyIsExternalMeeting,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Debugf("no preferences stored for user %s, using defaults", userId)
		return prefs, nil
	} else if err != nil {
		err := fmt.Errorf("failed to get preferences of user %s: %w", userId, err)
		log.Error(err)
		return Preferences{}, err
	}
	prefs.Reminders = reminders
	if before != 0 || after != 0 {
		prefs.BufferTime = &event.BufferTime{BeforeEvent: before, AfterEvent: after}
	}
	return prefs, nil
}
