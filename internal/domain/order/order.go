package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Sentinel errors for order lookup and validation.
var (
	ErrNotFound     = errors.New("order not found")
	ErrNameRequired = errors.New("order name is required")
)

// Order aggregates order metadata and its line items. CreatedAt is set once
// at creation and never changes afterwards.
type Order struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	Items       []LineItem
}

// LineItem is a quantity of one product attached to one order. At most one
// line item exists per (order, product) pair.
type LineItem struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int32
	CreatedAt time.Time
}

// ListFilter narrows and paginates order listings. Empty string filters are
// ignored; Page is 1-based.
type ListFilter struct {
	Name        string
	Description string
	Page        int
	Limit       int
}

// Normalize clamps pagination values to usable defaults.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
}

// Repository defines the read path for orders. The returned aggregates
// always include the current line items for the order.
type Repository interface {
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, error)
}
