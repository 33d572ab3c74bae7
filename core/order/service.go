package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/user"
)

var (
	errFreeCourse      = errors.New("this course is free; enroll directly")
	errAlreadyEnrolled = errors.New("already enrolled in this course")
)

// Service initiates checkouts. Settlement happens asynchronously through the
// Reconciler when the gateway calls back.
type Service struct {
	repo        Repository
	courses     course.Repository
	enrollments enroll.Repository
	gateway     Gateway
}

func NewService(repo Repository, courses course.Repository, enrollments enroll.Repository, gateway Gateway) *Service {
	return &Service{repo: repo, courses: courses, enrollments: enrollments, gateway: gateway}
}

type CheckoutResult struct {
	Order    Order    `json:"order"`
	Checkout Checkout `json:"checkout"`
}

// Checkout creates a pending order for a paid published course and obtains
// the gateway's hosted checkout for it.
func (svc *Service) Checkout(ctx context.Context, usr user.User, courseID string) (CheckoutResult, error) {
	crs, err := svc.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !crs.Published {
		return CheckoutResult{}, course.ErrNotFound
	}
	if crs.IsFree() {
		return CheckoutResult{}, core.NewValidationError(errFreeCourse)
	}
	if _, err := svc.enrollments.GetEnrollment(ctx, usr.ID, courseID); err == nil {
		return CheckoutResult{}, core.NewValidationError(errAlreadyEnrolled)
	} else if errors.Cause(err) != enroll.ErrNotFound {
		return CheckoutResult{}, errors.Wrap(err, "checking existing enrollment")
	}

	now := time.Now().UTC()
	ord := Order{
		ID:        uuid.New().String(),
		UserID:    usr.ID,
		CourseID:  courseID,
		Reference: NewReference(),
		Amount:    crs.Price,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ord, err = svc.repo.CreateOrder(ctx, ord)
	if err != nil {
		return CheckoutResult{}, errors.Wrap(err, "creating order")
	}

	chk, err := svc.gateway.CreateCheckout(ctx, ord, Customer{Name: usr.Name, Email: usr.Email})
	if err != nil {
		return CheckoutResult{}, errors.Wrap(err, "creating gateway checkout")
	}

	return CheckoutResult{Order: ord, Checkout: chk}, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Order, error) {
	return svc.repo.GetOrderByID(ctx, id)
}

// NewReference generates a merchant order reference. Gateways cap reference
// length, so the uuid is compacted.
func NewReference() string {
	return "IA-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}
