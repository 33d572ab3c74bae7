package enroll

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var (
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
)

// Payment statuses an enrollment can carry.
const (
	PaymentFree = "free"
	PaymentPaid = "paid"
)

// Enrollment grants a user access to a course's content. At most one exists
// per (UserID, CourseID); the storage layer enforces this with a uniqueness
// constraint, which doubles as the race backstop for concurrent creation.
type Enrollment struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	CourseID      string      `json:"course_id"`
	OrderID       null.String `json:"order_id,omitempty"`
	PaymentStatus string      `json:"payment_status"`
	Progress      []string    `json:"progress"` // completed item ids
	EnrolledAt    time.Time   `json:"enrolled_at"` // UTC
}

func (e *Enrollment) HasCompleted(itemID string) bool {
	for _, id := range e.Progress {
		if id == itemID {
			return true
		}
	}
	return false
}

// Participant is the contact projection of an enrolled user, used for
// notifications.
type Participant struct {
	UserID string
	Name   string
	Email  string
}

type Repository interface {
	// CreateEnrollment inserts the enrollment, returning ErrAlreadyEnrolled
	// if one already exists for the same (user, course) pair.
	CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	QueryUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	// QueryCourseParticipants lists enrolled users with their contact info.
	QueryCourseParticipants(ctx context.Context, courseID string) ([]Participant, error)
	UpdateEnrollmentProgress(ctx context.Context, id string, progress []string) (Enrollment, error)
}
