package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
)

const (
	// The check and the decrement are one conditional UPDATE, so concurrent
	// reservations on the same product serialize on the row lock and stock
	// can never go negative.
	reserveStockSQL = `UPDATE products SET stock_level = stock_level - $2
		WHERE id = $1 AND stock_level >= $2`

	releaseStockSQL = `UPDATE products SET stock_level = stock_level + $2
		WHERE id = $1`

	findLineItemSQL = `SELECT id, order_id, product_id, quantity, created_at
		FROM order_items WHERE order_id = $1 AND product_id = $2 FOR UPDATE`

	upsertLineItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (order_id, product_id)
		DO UPDATE SET quantity = order_items.quantity + EXCLUDED.quantity
		RETURNING id, order_id, product_id, quantity, created_at`

	setLineItemQuantitySQL = `UPDATE order_items SET quantity = $2 WHERE id = $1`

	deleteLineItemSQL = `DELETE FROM order_items WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, name, description, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)`

	updateOrderSQL = `UPDATE orders
		SET name = COALESCE($2, name), description = COALESCE($3, description)
		WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ stock.Store = (*Store)(nil)

// Store opens pgx transactions implementing the stock.Tx contract.
type Store struct {
	pool        *pgxpool.Pool
	stmtTimeout time.Duration
}

// NewStore returns a Store on the given pool. Every transaction gets a local
// statement timeout so a stuck transaction cannot hold row locks forever.
func NewStore(pool *pgxpool.Pool, stmtTimeout time.Duration) *Store {
	if stmtTimeout <= 0 {
		stmtTimeout = 5 * time.Second
	}
	return &Store{pool: pool, stmtTimeout: stmtTimeout}
}

// Begin opens a read-committed transaction.
func (s *Store) Begin(ctx context.Context) (stock.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}

	// SET LOCAL does not accept bind parameters.
	timeoutSQL := fmt.Sprintf("SET LOCAL statement_timeout = %d", s.stmtTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, timeoutSQL); err != nil {
		_ = tx.Rollback(ctx)
		return nil, errors.Wrap(err, "set statement timeout")
	}

	return &storeTx{tx: tx}, nil
}

type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *storeTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (t *storeTx) ReserveStock(ctx context.Context, productID string, qty int32) error {
	tag, err := t.tx.Exec(ctx, reserveStockSQL, productID, qty)
	if err != nil {
		return errors.Wrapf(err, "reserve stock for %q", productID)
	}
	if tag.RowsAffected() == 0 {
		return stock.ErrInsufficientStock
	}
	return nil
}

func (t *storeTx) ReleaseStock(ctx context.Context, productID string, qty int32) error {
	if _, err := t.tx.Exec(ctx, releaseStockSQL, productID, qty); err != nil {
		return errors.Wrapf(err, "release stock for %q", productID)
	}
	return nil
}

func (t *storeTx) FindLineItem(ctx context.Context, orderID, productID string) (*order.LineItem, error) {
	rows, err := t.tx.Query(ctx, findLineItemSQL, orderID, productID)
	if err != nil {
		return nil, errors.Wrap(err, "find line item")
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanLineItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find line item")
	}
	return &item, nil
}

func (t *storeTx) UpsertLineItem(ctx context.Context, item order.LineItem) (order.LineItem, error) {
	rows, err := t.tx.Query(ctx, upsertLineItemSQL,
		item.ID, item.OrderID, item.ProductID, item.Quantity, item.CreatedAt,
	)
	if err != nil {
		return order.LineItem{}, errors.Wrap(err, "upsert line item")
	}

	stored, err := pgx.CollectExactlyOneRow(rows, scanLineItem)
	if err != nil {
		return order.LineItem{}, errors.Wrap(err, "upsert line item")
	}
	return stored, nil
}

func (t *storeTx) SetLineItemQuantity(ctx context.Context, itemID string, qty int32) error {
	tag, err := t.tx.Exec(ctx, setLineItemQuantitySQL, itemID, qty)
	if err != nil {
		return errors.Wrapf(err, "set quantity for line item %q", itemID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("line item %q not found", itemID)
	}
	return nil
}

func (t *storeTx) DeleteLineItem(ctx context.Context, itemID string) error {
	tag, err := t.tx.Exec(ctx, deleteLineItemSQL, itemID)
	if err != nil {
		return errors.Wrapf(err, "delete line item %q", itemID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("line item %q not found", itemID)
	}
	return nil
}

func (t *storeTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL, o.ID, o.Name, o.Description, o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

func (t *storeTx) UpdateOrder(ctx context.Context, id string, name, description *string) error {
	tag, err := t.tx.Exec(ctx, updateOrderSQL, id, name, description)
	if err != nil {
		return errors.Wrapf(err, "update order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// DeleteOrder removes line items first, then the order row. Both deletions
// are part of the surrounding transaction, so a failure leaves everything
// in place.
func (t *storeTx) DeleteOrder(ctx context.Context, id string) error {
	if _, err := t.tx.Exec(ctx, deleteOrderItemsSQL, id); err != nil {
		return errors.Wrapf(err, "delete line items of order %q", id)
	}
	tag, err := t.tx.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}
