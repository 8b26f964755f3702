package stock

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
)

// Service coordinates the stock ledger, the line-item store, and the order
// aggregate. Each mutating call maps to exactly one transaction.
type Service struct {
	store  Store
	orders order.Repository
}

// NewService creates a stock management Service on top of a transactional
// store and the order read repository.
func NewService(store Store, orders order.Repository) *Service {
	return &Service{
		store:  store,
		orders: orders,
	}
}

// CreateOrder creates a new order with the given name and optional
// description. The creation timestamp is set here and is immutable.
func (s *Service) CreateOrder(ctx context.Context, name, description string) (*order.Order, error) {
	if name == "" {
		return nil, order.ErrNameRequired
	}

	o := &order.Order{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.InsertOrder(ctx, o); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return o, nil
}

// UpdateOrder applies a partial update to an order: only non-nil fields are
// overwritten, absent fields keep their current value. An explicit empty
// name is rejected.
func (s *Service) UpdateOrder(ctx context.Context, o *order.Order, name, description *string) (*order.Order, error) {
	if name != nil && *name == "" {
		return nil, order.ErrNameRequired
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.UpdateOrder(ctx, o.ID, name, description); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return s.orders.Get(ctx, o.ID)
}

// DeleteOrder removes the order together with all of its line items. Any
// storage failure is reported as false, leaving the order untouched; the
// underlying error is logged, not returned.
func (s *Service) DeleteOrder(ctx context.Context, o *order.Order) bool {
	lg := zctx.From(ctx)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		lg.Error("Delete order: begin", zap.String("order_id", o.ID), zap.Error(err))
		return false
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.DeleteOrder(ctx, o.ID); err != nil {
		lg.Error("Delete order", zap.String("order_id", o.ID), zap.Error(err))
		return false
	}
	if err := tx.Commit(ctx); err != nil {
		lg.Error("Delete order: commit", zap.String("order_id", o.ID), zap.Error(err))
		return false
	}

	return true
}

// AddProduct reserves qty units of the product and adds them to the order
// as one transaction. The reservation is a single conditional decrement:
// when stock is insufficient it fails with ErrInsufficientStock and no state
// changes. Repeat adds accumulate on the existing line item.
func (s *Service) AddProduct(ctx context.Context, o *order.Order, p *product.Product, qty int32) (*order.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.ReserveStock(ctx, p.ID, qty); err != nil {
		return nil, errors.Wrapf(err, "reserve stock for product %s", p.ID)
	}

	item := order.LineItem{
		ID:        uuid.New().String(),
		OrderID:   o.ID,
		ProductID: p.ID,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.UpsertLineItem(ctx, item); err != nil {
		return nil, errors.Wrap(err, "upsert line item")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return s.orders.Get(ctx, o.ID)
}

// RemoveProduct releases qty units of the product back to stock and reduces
// or deletes the order's line item, as one transaction. Removal of a product
// with no line item fails with ErrProductNotInOrder and changes nothing.
//
// Stock is credited with the full requested quantity even when it exceeds
// the recorded line-item quantity; in that case the line item is deleted.
// Callers wanting stricter over-removal semantics must validate the quantity
// against the recorded amount upstream.
func (s *Service) RemoveProduct(ctx context.Context, o *order.Order, p *product.Product, qty int32) (*order.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item, err := tx.FindLineItem(ctx, o.ID, p.ID)
	if err != nil {
		return nil, errors.Wrap(err, "find line item")
	}
	if item == nil {
		return nil, ErrProductNotInOrder
	}

	if err := tx.ReleaseStock(ctx, p.ID, qty); err != nil {
		return nil, errors.Wrapf(err, "release stock for product %s", p.ID)
	}

	if remaining := item.Quantity - qty; remaining > 0 {
		if err := tx.SetLineItemQuantity(ctx, item.ID, remaining); err != nil {
			return nil, errors.Wrap(err, "set line item quantity")
		}
	} else {
		if err := tx.DeleteLineItem(ctx, item.ID); err != nil {
			return nil, errors.Wrap(err, "delete line item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit")
	}

	return s.orders.Get(ctx, o.ID)
}
