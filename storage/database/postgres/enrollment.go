package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core/enroll"
)

const uniqueViolation = "23505"

type enrollmentRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	CourseID      string         `db:"course_id"`
	OrderID       null.String    `db:"order_id"`
	PaymentStatus string         `db:"payment_status"`
	Progress      pq.StringArray `db:"progress"`
	EnrolledAt    time.Time      `db:"enrolled_at"`
}

func packEnrollment(enr enroll.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:            enr.ID,
		UserID:        enr.UserID,
		CourseID:      enr.CourseID,
		OrderID:       enr.OrderID,
		PaymentStatus: enr.PaymentStatus,
		Progress:      enr.Progress,
		EnrolledAt:    enr.EnrolledAt.UTC(),
	}
}

func (r enrollmentRow) unpack() enroll.Enrollment {
	return enroll.Enrollment{
		ID:            r.ID,
		UserID:        r.UserID,
		CourseID:      r.CourseID,
		OrderID:       r.OrderID,
		PaymentStatus: r.PaymentStatus,
		Progress:      r.Progress,
		EnrolledAt:    r.EnrolledAt,
	}
}

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enroll.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sql.DB) *enrollmentRepository {
	return &enrollmentRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo enrollmentRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return enroll.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, enr enroll.Enrollment) (enroll.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	if enr.Progress == nil {
		enr.Progress = []string{}
	}
	row := packEnrollment(enr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, user_id, course_id, order_id, payment_status, progress, enrolled_at)
		VALUES (:id, :user_id, :course_id, :order_id, :payment_status, :progress, :enrolled_at)`, row)
	if err != nil {
		// the (user_id, course_id) unique constraint is the final arbiter
		// when concurrent calls race to enroll the same user
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return enroll.Enrollment{}, enroll.ErrAlreadyEnrolled
		}
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.unpack(), nil
}

func (repo enrollmentRepository) GetEnrollment(ctx context.Context, userID, courseID string) (enroll.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "finding enrollment")
	}
	return row.unpack(), nil
}

func (repo enrollmentRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]enroll.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM enrollment WHERE user_id = $1 ORDER BY enrolled_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrollments := make([]enroll.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrollments = append(enrollments, row.unpack())
	}
	return enrollments, nil
}

func (repo enrollmentRepository) QueryCourseParticipants(ctx context.Context, courseID string) ([]enroll.Participant, error) {
	var rows []struct {
		UserID string      `db:"user_id"`
		Name   null.String `db:"name"`
		Email  null.String `db:"email"`
	}
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT e.user_id, u.name, u.email
		FROM enrollment e
		         JOIN "user" u ON u.id = e.user_id
		WHERE e.course_id = $1
		ORDER BY e.enrolled_at`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying participants")
	}
	participants := make([]enroll.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, enroll.Participant{
			UserID: row.UserID,
			Name:   row.Name.String,
			Email:  row.Email.String,
		})
	}
	return participants, nil
}

func (repo enrollmentRepository) UpdateEnrollmentProgress(ctx context.Context, id string, progress []string) (enroll.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE enrollment SET progress = $2 WHERE id = $1
		RETURNING *`, id, pq.Array(progress))
	if err != nil {
		return enroll.Enrollment{}, repo.trapNoRowsErr(err, "updating enrollment progress")
	}
	return row.unpack(), nil
}
