package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
)

type courseRow struct {
	ID                   string      `db:"id"`
	OwnerID              string      `db:"owner_id"`
	Title                string      `db:"title"`
	Description          string      `db:"description"`
	Type                 string      `db:"type"`
	Price                int64       `db:"price"`
	Published            bool        `db:"published"`
	EnrolledCount        int         `db:"enrolled_count"`
	StartTime            null.Time   `db:"start_time"`
	DurationMinutes      null.Int    `db:"duration_minutes"`
	MeetingLink          null.String `db:"meeting_link"`
	RecordingLink        null.String `db:"recording_link"`
	IsRecordingAvailable null.Bool   `db:"is_recording_available"`
	LastReminderSentAt   null.Time   `db:"last_reminder_sent_at"`
	RemindedStartTime    null.Time   `db:"reminded_start_time"`
	CreatedAt            time.Time   `db:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at"`
}

func packCourse(crs course.Course) courseRow {
	return courseRow{
		ID:                   crs.ID,
		OwnerID:              crs.OwnerID,
		Title:                crs.Title,
		Description:          crs.Description,
		Type:                 string(crs.Type),
		Price:                crs.Price,
		Published:            crs.Published,
		EnrolledCount:        crs.EnrolledCount,
		StartTime:            null.NewTime(crs.Session.StartTime.UTC(), !crs.Session.StartTime.IsZero()),
		DurationMinutes:      null.NewInt(crs.Session.DurationMinutes, crs.Session.DurationMinutes != 0),
		MeetingLink:          null.NewString(crs.Session.MeetingLink, crs.Session.MeetingLink != ""),
		RecordingLink:        crs.Session.RecordingLink,
		IsRecordingAvailable: null.BoolFrom(crs.Session.IsRecordingAvailable),
		LastReminderSentAt:   crs.Session.LastReminderSentAt,
		RemindedStartTime:    crs.Session.RemindedStartTime,
		CreatedAt:            crs.CreatedAt.UTC(),
		UpdatedAt:            crs.UpdatedAt.UTC(),
	}
}

func (r courseRow) unpack() course.Course {
	return course.Course{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Title:         r.Title,
		Description:   r.Description,
		Type:          course.Type(r.Type),
		Price:         r.Price,
		Published:     r.Published,
		EnrolledCount: r.EnrolledCount,
		Session: course.Session{
			StartTime:            r.StartTime.Time,
			DurationMinutes:      r.DurationMinutes.Int,
			MeetingLink:          r.MeetingLink.String,
			RecordingLink:        r.RecordingLink,
			IsRecordingAvailable: r.IsRecordingAvailable.Bool,
			LastReminderSentAt:   r.LastReminderSentAt,
			RemindedStartTime:    r.RemindedStartTime,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// newest first; browsing has no caller-supplied ordering
var defaultCourseOrdering = core.DBOrdering{Field: "created_at"}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) unpackSlice(rows []courseRow) []course.Course {
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.unpack())
	}
	return courses
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := packCourse(crs)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, owner_id, title, description, type, price, published, enrolled_count,
		                    start_time, duration_minutes, meeting_link, recording_link, is_recording_available,
		                    last_reminder_sent_at, reminded_start_time, created_at, updated_at)
		VALUES (:id, :owner_id, :title, :description, :type, :price, :published, :enrolled_count,
		        :start_time, :duration_minutes, :meeting_link, :recording_link, :is_recording_available,
		        :last_reminder_sent_at, :reminded_start_time, :created_at, :updated_at)`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course by ID")
	}
	return row.unpack(), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	query := `SELECT * FROM course WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		query += ` AND (title ILIKE ? OR description ILIKE ?)`
		args = append(args, val, val)
	}
	if filter.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, filter.OwnerID)
	}
	if filter.PublishedOnly {
		query += ` AND published`
	}
	query += ` ORDER BY ` + defaultCourseOrdering.String()

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return repo.unpackSlice(rows), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := packCourse(crs)
	_, err := repo.db.NamedExecContext(ctx, `
		UPDATE course
		SET title                  = :title,
		    description            = :description,
		    price                  = :price,
		    published              = :published,
		    start_time             = :start_time,
		    duration_minutes       = :duration_minutes,
		    meeting_link           = :meeting_link,
		    recording_link         = :recording_link,
		    is_recording_available = :is_recording_available,
		    updated_at             = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	return row.unpack(), nil
}

func (repo courseRepository) IncrementEnrolledCount(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE course SET enrolled_count = enrolled_count + 1 WHERE id = $1`, id)
	return errors.Wrap(err, "incrementing enrolled count")
}

func (repo courseRepository) FindSessionsDue(ctx context.Context, from, to time.Time) ([]course.Course, error) {
	var rows []courseRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT * FROM course
		WHERE type = 'live'
		  AND published
		  AND start_time BETWEEN $1 AND $2
		  AND (reminded_start_time IS NULL OR reminded_start_time <> start_time)
		ORDER BY start_time`, from.UTC(), to.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "querying due sessions")
	}
	return repo.unpackSlice(rows), nil
}

func (repo courseRepository) MarkSessionReminded(ctx context.Context, id string, startTime, sentAt time.Time) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE course
		SET last_reminder_sent_at = $3,
		    reminded_start_time   = $2
		WHERE id = $1
		  AND start_time = $2
		  AND (reminded_start_time IS NULL OR reminded_start_time <> start_time)`,
		id, startTime.UTC(), sentAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "marking session reminded")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "marking session reminded")
	}
	return cnt > 0, nil
}
