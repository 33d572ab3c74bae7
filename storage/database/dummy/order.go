package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core/order"
)

type orderRepository struct {
	db *orderTable
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) *orderRepository {
	return &orderRepository{db: db.order}
}

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if ord.ID == "" {
		ord.ID = uuid.New().String()
	}
	repo.db.table[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ord, ok := repo.db.table[id]; ok {
		return *ord, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) GetOrderByReference(ctx context.Context, ref string) (order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ord := range repo.db.table {
		if ord.Reference == ref {
			return *ord, nil
		}
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) TransitionOrder(ctx context.Context, id string, to order.Status, txnRef, reason null.String, at time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	ord, ok := repo.db.table[id]
	if !ok {
		return false, nil
	}
	if ord.Status != order.StatusPending {
		return false, nil
	}
	ord.Status = to
	ord.TransactionRef = txnRef
	ord.RejectionReason = reason
	ord.UpdatedAt = at
	return true, nil
}
