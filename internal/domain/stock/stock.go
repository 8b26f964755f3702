// Package stock owns the transactional core that keeps product stock levels,
// order line items, and orders mutually consistent. Every mutating operation
// runs inside a single all-or-nothing transaction obtained from a Store.
package stock

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
)

// Sentinel errors surfaced by the orchestrator as typed failures.
var (
	// ErrInsufficientStock is returned when a reservation would drive a
	// product's stock level negative. The stock level is left unchanged.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotInOrder is returned when a removal targets a product
	// that has no line item on the order.
	ErrProductNotInOrder = errors.New("product not in order")
	// ErrInvalidQuantity is returned for non-positive quantities.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Store opens transactions over orders, line items, and the stock ledger.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of work. All methods operate within the same transaction;
// nothing is visible to other transactions until Commit. Rollback after
// Commit is a no-op, so it is safe to defer unconditionally.
type Tx interface {
	// ReserveStock atomically checks stock_level >= qty and decrements it
	// in the same statement. Returns ErrInsufficientStock when the check
	// fails; the level is left unchanged.
	ReserveStock(ctx context.Context, productID string, qty int32) error
	// ReleaseStock atomically increments stock_level by qty. Restocking
	// has no upper bound.
	ReleaseStock(ctx context.Context, productID string, qty int32) error

	// FindLineItem returns the line item for (orderID, productID), locked
	// for the duration of the transaction, or nil when none exists.
	FindLineItem(ctx context.Context, orderID, productID string) (*order.LineItem, error)
	// UpsertLineItem adds qty to the (item.OrderID, item.ProductID) record,
	// creating it with item's identity when absent. Returns the stored row.
	UpsertLineItem(ctx context.Context, item order.LineItem) (order.LineItem, error)
	// SetLineItemQuantity overwrites the quantity of an existing line item.
	SetLineItemQuantity(ctx context.Context, itemID string, qty int32) error
	// DeleteLineItem removes a line item entirely, detaching it from its
	// order. Records are never left at quantity zero.
	DeleteLineItem(ctx context.Context, itemID string) error

	InsertOrder(ctx context.Context, o *order.Order) error
	// UpdateOrder applies a partial update: nil fields are left unchanged.
	UpdateOrder(ctx context.Context, id string, name, description *string) error
	// DeleteOrder removes the order row and all of its line items.
	DeleteOrder(ctx context.Context, id string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
