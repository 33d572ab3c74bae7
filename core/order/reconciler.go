package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/enroll"
)

var (
	// ErrAuthenticationFailed: signature mismatch; no state change.
	ErrAuthenticationFailed = errors.New("notification authentication failed")
	// ErrMalformedPayload: notification carries no order reference.
	ErrMalformedPayload = errors.New("malformed notification payload")
	// ErrOrderNotFound: no order matches the notification's reference.
	ErrOrderNotFound = errors.New("no order matches the notification")
)

// Reconciler moves an Order to a terminal state from a gateway notification
// and, on success, creates the matching Enrollment, exactly once each,
// under arbitrary redelivery of the same notification.
type Reconciler struct {
	orders      Repository
	enrollments enroll.Repository
	courses     CourseCounter
	serverKey   string
	logger      core.Logger
}

// CourseCounter is the slice of the course store the reconciler needs.
type CourseCounter interface {
	IncrementEnrolledCount(ctx context.Context, id string) error
}

type ReconcileResult struct {
	Order             Order
	EnrollmentCreated bool
	AlreadyProcessed  bool
}

func NewReconciler(
	orders Repository,
	enrollments enroll.Repository,
	courses CourseCounter,
	serverKey string,
	logger core.Logger,
) *Reconciler {
	return &Reconciler{
		orders:      orders,
		enrollments: enrollments,
		courses:     courses,
		serverKey:   serverKey,
		logger:      logger,
	}
}

// Reconcile processes one gateway notification delivery.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification, signature string) (ReconcileResult, error) {
	if !n.VerifySignature(signature, r.serverKey) {
		// log both digests for diagnosis; never the key
		r.logger.Warn(fmt.Sprintf(
			"payment notification signature mismatch: computed=%s received=%s order_ref=%s",
			n.Signature(r.serverKey), signature, n.Transaction.OrderRef,
		))
		return ReconcileResult{}, ErrAuthenticationFailed
	}

	ref := n.Transaction.OrderRef
	if ref == "" {
		return ReconcileResult{}, ErrMalformedPayload
	}

	ord, err := r.orders.GetOrderByReference(ctx, ref)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return ReconcileResult{}, ErrOrderNotFound
		}
		return ReconcileResult{}, errors.Wrap(err, "finding order by reference")
	}

	// at-least-once delivery safeguard: terminal orders are done
	if ord.IsTerminal() {
		return ReconcileResult{Order: ord, AlreadyProcessed: true}, nil
	}

	now := time.Now().UTC()
	to := StatusCompleted
	txnRef := null.StringFrom(n.Transaction.ID)
	reason := null.String{}
	if !n.Transaction.Success {
		to = StatusRejected
		txnRef = null.String{}
		reason = null.StringFrom(rejectionReason(n.Transaction))
	}

	applied, err := r.orders.TransitionOrder(ctx, ord.ID, to, txnRef, reason, now)
	if err != nil {
		return ReconcileResult{}, errors.Wrap(err, "transitioning order")
	}
	if !applied {
		// a concurrent delivery won the transition; report the settled state
		ord, err = r.orders.GetOrderByID(ctx, ord.ID)
		if err != nil {
			return ReconcileResult{}, errors.Wrap(err, "reloading order")
		}
		return ReconcileResult{Order: ord, AlreadyProcessed: true}, nil
	}

	ord.Status = to
	ord.TransactionRef = txnRef
	ord.RejectionReason = reason
	ord.UpdatedAt = now

	if to != StatusCompleted {
		return ReconcileResult{Order: ord}, nil
	}

	created, err := r.ensureEnrollment(ctx, ord, now)
	if err != nil {
		return ReconcileResult{Order: ord}, err
	}
	return ReconcileResult{Order: ord, EnrollmentCreated: created}, nil
}

// ensureEnrollment creates the order's enrollment if it does not exist.
// The existence check is an optimization; the (user, course) uniqueness
// constraint is the correctness mechanism under concurrency.
func (r *Reconciler) ensureEnrollment(ctx context.Context, ord Order, now time.Time) (bool, error) {
	if _, err := r.enrollments.GetEnrollment(ctx, ord.UserID, ord.CourseID); err == nil {
		return false, nil
	} else if errors.Cause(err) != enroll.ErrNotFound {
		return false, errors.Wrap(err, "checking existing enrollment")
	}

	enr := enroll.Enrollment{
		ID:            uuid.New().String(),
		UserID:        ord.UserID,
		CourseID:      ord.CourseID,
		OrderID:       null.StringFrom(ord.ID),
		PaymentStatus: enroll.PaymentPaid,
		Progress:      []string{},
		EnrolledAt:    now,
	}
	if _, err := r.enrollments.CreateEnrollment(ctx, enr); err != nil {
		if errors.Cause(err) == enroll.ErrAlreadyEnrolled {
			return false, nil
		}
		return false, errors.Wrap(err, "creating enrollment")
	}

	if err := r.courses.IncrementEnrolledCount(ctx, ord.CourseID); err != nil {
		return true, errors.Wrap(err, "incrementing enrolled count")
	}
	return true, nil
}

func rejectionReason(t Transaction) string {
	if t.StatusMessage != "" {
		return t.StatusMessage
	}
	return "payment reported unsuccessful by gateway (status " + t.StatusCode + ")"
}
