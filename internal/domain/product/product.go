package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item with its available stock.
type Product struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	StockLevel int32
}

// Repository defines read operations for the product catalog. Stock-level
// mutations never go through here; they are owned by the stock ledger.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
