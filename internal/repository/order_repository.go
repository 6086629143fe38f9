package repository

import (
	"context"

	"github.com/classroomtools/conductledger/internal/models"
	"github.com/classroomtools/conductledger/internal/store"
)

// OrderRepository persists the purchase order workflow state.
type OrderRepository struct {
	store store.Store
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(s store.Store) *OrderRepository {
	return &OrderRepository{store: s}
}

// List returns every order, terminal ones included.
func (r *OrderRepository) List(ctx context.Context) ([]models.PendingOrder, error) {
	var orders []models.PendingOrder
	if err := store.Load(ctx, r.store, store.CollectionPendingOrders, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListPending returns orders awaiting resolution.
func (r *OrderRepository) ListPending(ctx context.Context) ([]models.PendingOrder, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := orders[:0]
	for _, o := range orders {
		if o.Status == models.OrderPending {
			out = append(out, o)
		}
	}
	return out, nil
}

// Find returns an order by id, or nil when unknown.
func (r *OrderRepository) Find(ctx context.Context, id string) (*models.PendingOrder, error) {
	orders, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, nil
}

// Save upserts one order by id.
func (r *OrderRepository) Save(ctx context.Context, order *models.PendingOrder) error {
	orders, err := r.List(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = *order
			replaced = true
			break
		}
	}
	if !replaced {
		orders = append(orders, *order)
	}
	return store.Save(ctx, r.store, store.CollectionPendingOrders, orders)
}
