package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
)

const (
	getOrderSQL = `SELECT id, name, description, created_at
		FROM orders WHERE id = $1`

	listItemsSQL = `SELECT id, order_id, product_id, quantity, created_at
		FROM order_items WHERE order_id = ANY($1) ORDER BY created_at, id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements the order read path backed by PostgreSQL.
// Reads run without a transaction under read-committed visibility.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get returns the order with its current line items, or order.ErrNotFound.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Items = items[id]
	if o.Items == nil {
		o.Items = []order.LineItem{}
	}
	return &o, nil
}

// List returns orders matching the filter, paginated. Name and description
// filters are case-insensitive substring matches.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	filter.Normalize()

	var (
		conds []string
		args  []any
	)
	if filter.Name != "" {
		args = append(args, "%"+filter.Name+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.Description != "" {
		args = append(args, "%"+filter.Description+"%")
		conds = append(conds, fmt.Sprintf("description ILIKE $%d", len(args)))
	}

	query := `SELECT id, name, description, created_at FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	result, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if len(result) == 0 {
		return []order.Order{}, nil
	}

	ids := make([]string, len(result))
	for i, o := range result {
		ids[i] = o.ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Items = items[result[i].ID]
		if result[i].Items == nil {
			result[i].Items = []order.LineItem{}
		}
	}
	return result, nil
}

// loadItems fetches line items for the given order IDs in one query, grouped
// by order.
func (r *OrderRepository) loadItems(ctx context.Context, orderIDs []string) (map[string][]order.LineItem, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load line items")
	}
	items, err := pgx.CollectRows(rows, scanLineItem)
	if err != nil {
		return nil, errors.Wrap(err, "load line items")
	}

	grouped := make(map[string][]order.LineItem, len(orderIDs))
	for _, item := range items {
		grouped[item.OrderID] = append(grouped[item.OrderID], item)
	}
	return grouped, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o    order.Order
		desc *string
	)
	err := row.Scan(&o.ID, &o.Name, &desc, &o.CreatedAt)
	if desc != nil {
		o.Description = *desc
	}
	return o, err
}

func scanLineItem(row pgx.CollectableRow) (order.LineItem, error) {
	var item order.LineItem
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.CreatedAt)
	return item, err
}
