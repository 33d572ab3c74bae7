package enroll

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/user"
)

var errPaidCourse = errors.New("this course requires payment; use checkout")

type Service struct {
	repo    Repository
	courses course.Repository
}

func NewService(repo Repository, courses course.Repository) *Service {
	return &Service{repo: repo, courses: courses}
}

// EnrollFree self-enrolls a user into a free published course. Paid courses
// go through checkout and are enrolled by the payment reconciler.
func (svc *Service) EnrollFree(ctx context.Context, usr user.User, courseID string) (Enrollment, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.Published {
		return Enrollment{}, course.ErrNotFound
	}
	if !crs.IsFree() {
		return Enrollment{}, core.NewValidationError(errPaidCourse)
	}

	enr := Enrollment{
		ID:            uuid.New().String(),
		UserID:        usr.ID,
		CourseID:      courseID,
		PaymentStatus: PaymentFree,
		Progress:      []string{},
		EnrolledAt:    time.Now().UTC(),
	}
	enr, err = svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, err
	}

	if err := svc.courses.IncrementEnrolledCount(ctx, courseID); err != nil {
		return enr, errors.Wrap(err, "incrementing enrolled count")
	}
	return enr, nil
}

func (svc *Service) QueryForUser(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryUserEnrollments(ctx, userID)
}

// CompleteItem records a completed content item on the user's enrollment.
// Completing the same item twice is a no-op.
func (svc *Service) CompleteItem(ctx context.Context, userID, courseID, itemID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.HasCompleted(itemID) {
		return enr, nil
	}
	return svc.repo.UpdateEnrollmentProgress(ctx, enr.ID, append(enr.Progress, itemID))
}
