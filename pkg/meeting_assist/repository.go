package meeting_assist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rush86999/atomic-scheduler/pkg/event"
	log "github.com/sirupsen/logrus"
)

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListAttendees(ctx context.Context, meetingId string) ([]Attendee, error) {
	query := `SELECT id, meeting_id, user_id, name, primary_email, timezone, external_attendee
			  FROM meeting_assist_attendee
			  WHERE meeting_id = $1
			  ORDER BY created_date, id`
	rows, err := r.db.Query(ctx, query, meetingId)
	if err != nil {
		err := fmt.Errorf("could not query attendees of meeting %s: %w", meetingId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var attendees []Attendee
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.Id, &a.MeetingId, &a.UserId, &a.Name, &a.PrimaryEmail, &a.Timezone, &a.ExternalAttendee); err != nil {
			err := fmt.Errorf("could not scan attendee: %w", err)
			log.Error(err)
			return nil, err
		}
		attendees = append(attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attendees, nil
}

func (r *RepositoryImpl) ListExternalEventsInWindow(ctx context.Context, attendeeId string, from, to time.Time, attendeeTimezone, hostTimezone string) ([]Event, error) {
	query := `SELECT id, attendee_id, meeting_id, start_date, end_date, timezone, summary, notes, transparency
			  FROM meeting_assist_event
			  WHERE attendee_id = $1
			    AND start_date <= $2
			    AND end_date >= $3
			  ORDER BY start_date`
	rows, err := r.db.Query(ctx, query, attendeeId, to, from)
	if err != nil {
		err := fmt.Errorf("could not query events of attendee %s: %w", attendeeId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	fallback := attendeeTimezone
	if fallback == "" {
		fallback = hostTimezone
	}
	var events []Event
	for rows.Next() {
		var e Event
		var meetingId *string
		var transparency string
		if err := rows.Scan(&e.Id, &e.AttendeeId, &meetingId, &e.StartDate, &e.EndDate, &e.Timezone, &e.Summary, &e.Notes, &transparency); err != nil {
			err := fmt.Errorf("could not scan meeting assist event: %w", err)
			log.Error(err)
			return nil, err
		}
		if meetingId != nil {
			e.MeetingId = *meetingId
		}
		if e.Timezone == "" {
			e.Timezone = fallback
		}
		e.Transparency = event.Transparency(transparency)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *RepositoryImpl) ListMeetingPreferredTimeRanges(ctx context.Context, meetingId string) ([]event.PreferredTimeRange, error) {
	query := `SELECT id, day_of_week, start_time, end_time, host_id, created_date, updated_at
			  FROM meeting_assist_preferred_time_range
			  WHERE meeting_id = $1
			  ORDER BY day_of_week NULLS FIRST, start_time`
	rows, err := r.db.Query(ctx, query, meetingId)
	if err != nil {
		err := fmt.Errorf("could not query preferred time ranges of meeting %s: %w", meetingId, err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var ranges []event.PreferredTimeRange
	for rows.Next() {
		var tr event.PreferredTimeRange
		var dayOfWeek *int
		if err := rows.Scan(&tr.Id, &dayOfWeek, &tr.StartTime, &tr.EndTime, &tr.UserId, &tr.CreatedDate, &tr.UpdatedAt); err != nil {
			err := fmt.Errorf("could not scan meeting preferred time range: %w", err)
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
