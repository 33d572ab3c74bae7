package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core/order"
)

type orderRow struct {
	ID              string      `db:"id"`
	UserID          string      `db:"user_id"`
	CourseID        string      `db:"course_id"`
	Reference       string      `db:"reference"`
	Amount          int64       `db:"amount"`
	Status          string      `db:"status"`
	TransactionRef  null.String `db:"transaction_ref"`
	RejectionReason null.String `db:"rejection_reason"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func packOrder(ord order.Order) orderRow {
	return orderRow{
		ID:              ord.ID,
		UserID:          ord.UserID,
		CourseID:        ord.CourseID,
		Reference:       ord.Reference,
		Amount:          ord.Amount,
		Status:          string(ord.Status),
		TransactionRef:  ord.TransactionRef,
		RejectionReason: ord.RejectionReason,
		CreatedAt:       ord.CreatedAt.UTC(),
		UpdatedAt:       ord.UpdatedAt.UTC(),
	}
}

func (r orderRow) unpack() order.Order {
	return order.Order{
		ID:              r.ID,
		UserID:          r.UserID,
		CourseID:        r.CourseID,
		Reference:       r.Reference,
		Amount:          r.Amount,
		Status:          order.Status(r.Status),
		TransactionRef:  r.TransactionRef,
		RejectionReason: r.RejectionReason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type orderRepository struct {
	db *sqlx.DB
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *sql.DB) *orderRepository {
	return &orderRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo orderRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return order.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	row := packOrder(ord)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "order" (id, user_id, course_id, reference, amount, status, created_at, updated_at)
		VALUES (:id, :user_id, :course_id, :reference, :amount, :status, :created_at, :updated_at)`, row)
	if err != nil {
		return order.Order{}, errors.Wrap(err, "inserting order")
	}
	return row.unpack(), nil
}

func (repo orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "order" WHERE id = $1`, id); err != nil {
		return order.Order{}, repo.trapNoRowsErr(err, "finding order by ID")
	}
	return row.unpack(), nil
}

func (repo orderRepository) GetOrderByReference(ctx context.Context, ref string) (order.Order, error) {
	var row orderRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "order" WHERE reference = $1`, ref); err != nil {
		return order.Order{}, repo.trapNoRowsErr(err, "finding order by reference")
	}
	return row.unpack(), nil
}

func (repo orderRepository) TransitionOrder(ctx context.Context, id string, to order.Status, txnRef, reason null.String, at time.Time) (bool, error) {
	// pending is the only state the update fires from, making redelivered
	// notifications a no-op
	res, err := repo.db.ExecContext(ctx, `
		UPDATE "order"
		SET status           = $2,
		    transaction_ref  = $3,
		    rejection_reason = $4,
		    updated_at       = $5
		WHERE id = $1
		  AND status = 'pending'`,
		id, string(to), txnRef, reason, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "transitioning order")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "transitioning order")
	}
	return cnt > 0, nil
}
