package order

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("order not found")

// Status of a payment attempt. Pending is the only initial state; completed
// and rejected are terminal: once an order reaches either, no further
// transition is permitted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Order records a payment attempt for a paid course, independent of whether
// it ultimately succeeds. Reference is the merchant-assigned correlation id
// passed through the gateway and echoed back in its notification.
type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	CourseID        string      `json:"course_id"`
	Reference       string      `json:"reference"`
	Amount          int64       `json:"amount"`
	Status          Status      `json:"status"`
	TransactionRef  null.String `json:"transaction_ref,omitempty"`
	RejectionReason null.String `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time   `json:"created_at"` // UTC
	UpdatedAt       time.Time   `json:"updated_at"` // UTC
}

func (o *Order) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusRejected
}

type Repository interface {
	CreateOrder(ctx context.Context, ord Order) (Order, error)
	GetOrderByID(ctx context.Context, id string) (Order, error)
	GetOrderByReference(ctx context.Context, ref string) (Order, error)
	// TransitionOrder applies a single conditional update moving the order
	// from pending to the given terminal status, storing the gateway
	// transaction ref or rejection reason. It reports whether the transition
	// applied; false with nil error means the order was no longer pending.
	TransitionOrder(ctx context.Context, id string, to Status, txnRef, reason null.String, at time.Time) (bool, error)
}

type (
	// Customer is the payer identity forwarded to the gateway at checkout.
	Customer struct {
		Name  string
		Email string
	}

	// Checkout is the gateway's hosted-payment handle for an order.
	Checkout struct {
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	}

	// Gateway creates hosted checkouts with the payment provider. The
	// provider's asynchronous notification is handled by the Reconciler.
	Gateway interface {
		CreateCheckout(ctx context.Context, ord Order, cust Customer) (Checkout, error)
	}
)
