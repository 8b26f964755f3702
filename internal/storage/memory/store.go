// Package memory provides a mutex-guarded implementation of the storage
// interfaces. It backs unit tests and the no-database development mode.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
)

var (
	_ stock.Store        = (*Store)(nil)
	_ order.Repository   = (*Store)(nil)
	_ product.Repository = productView{}
)

// Store keeps products, orders, and line items in maps. Transactions take
// the store mutex for their whole lifetime, so they serialize, and roll back
// by restoring a snapshot taken at Begin.
type Store struct {
	mu       sync.Mutex
	products map[string]product.Product
	orders   map[string]order.Order
	items    map[string]order.LineItem
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products: make(map[string]product.Product),
		orders:   make(map[string]order.Order),
		items:    make(map[string]order.LineItem),
	}
}

// SeedProducts inserts or replaces catalog products.
func (s *Store) SeedProducts(products ...product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

// Begin starts a transaction. It blocks until any in-flight transaction
// finishes.
func (s *Store) Begin(_ context.Context) (stock.Tx, error) {
	s.mu.Lock()
	return &memTx{
		store:        s,
		prevProducts: cloneMap(s.products),
		prevOrders:   cloneMap(s.orders),
		prevItems:    cloneMap(s.items),
	}, nil
}

// memTx mutates the live maps directly and keeps pre-transaction snapshots
// for rollback.
type memTx struct {
	store        *Store
	prevProducts map[string]product.Product
	prevOrders   map[string]order.Order
	prevItems    map[string]order.LineItem
	done         bool
}

func (tx *memTx) Commit(_ context.Context) error {
	if tx.done {
		return errors.New("transaction already closed")
	}
	tx.done = true
	tx.store.mu.Unlock()
	return nil
}

func (tx *memTx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true
	tx.store.products = tx.prevProducts
	tx.store.orders = tx.prevOrders
	tx.store.items = tx.prevItems
	tx.store.mu.Unlock()
	return nil
}

func (tx *memTx) ReserveStock(_ context.Context, productID string, qty int32) error {
	p, ok := tx.store.products[productID]
	if !ok || p.StockLevel < qty {
		return stock.ErrInsufficientStock
	}
	p.StockLevel -= qty
	tx.store.products[productID] = p
	return nil
}

func (tx *memTx) ReleaseStock(_ context.Context, productID string, qty int32) error {
	p, ok := tx.store.products[productID]
	if !ok {
		return nil
	}
	p.StockLevel += qty
	tx.store.products[productID] = p
	return nil
}

func (tx *memTx) FindLineItem(_ context.Context, orderID, productID string) (*order.LineItem, error) {
	for _, item := range tx.store.items {
		if item.OrderID == orderID && item.ProductID == productID {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (tx *memTx) UpsertLineItem(_ context.Context, item order.LineItem) (order.LineItem, error) {
	if _, ok := tx.store.orders[item.OrderID]; !ok {
		return order.LineItem{}, order.ErrNotFound
	}
	if _, ok := tx.store.products[item.ProductID]; !ok {
		return order.LineItem{}, product.ErrNotFound
	}
	for id, existing := range tx.store.items {
		if existing.OrderID == item.OrderID && existing.ProductID == item.ProductID {
			existing.Quantity += item.Quantity
			tx.store.items[id] = existing
			return existing, nil
		}
	}
	tx.store.items[item.ID] = item
	return item, nil
}

func (tx *memTx) SetLineItemQuantity(_ context.Context, itemID string, qty int32) error {
	item, ok := tx.store.items[itemID]
	if !ok {
		return errors.Errorf("line item %s not found", itemID)
	}
	item.Quantity = qty
	tx.store.items[itemID] = item
	return nil
}

func (tx *memTx) DeleteLineItem(_ context.Context, itemID string) error {
	if _, ok := tx.store.items[itemID]; !ok {
		return errors.Errorf("line item %s not found", itemID)
	}
	delete(tx.store.items, itemID)
	return nil
}

func (tx *memTx) InsertOrder(_ context.Context, o *order.Order) error {
	if _, ok := tx.store.orders[o.ID]; ok {
		return errors.Errorf("order %s already exists", o.ID)
	}
	stored := *o
	stored.Items = nil
	tx.store.orders[o.ID] = stored
	return nil
}

func (tx *memTx) UpdateOrder(_ context.Context, id string, name, description *string) error {
	o, ok := tx.store.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	if name != nil {
		o.Name = *name
	}
	if description != nil {
		o.Description = *description
	}
	tx.store.orders[id] = o
	return nil
}

func (tx *memTx) DeleteOrder(_ context.Context, id string) error {
	if _, ok := tx.store.orders[id]; !ok {
		return order.ErrNotFound
	}
	for itemID, item := range tx.store.items {
		if item.OrderID == id {
			delete(tx.store.items, itemID)
		}
	}
	delete(tx.store.orders, id)
	return nil
}

// Get returns the order with its current line items.
func (s *Store) Get(_ context.Context, id string) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o.Items = s.collectItems(id)
	return &o, nil
}

// List returns orders matching the filter, paginated.
func (s *Store) List(_ context.Context, filter order.ListFilter) ([]order.Order, error) {
	filter.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if filter.Name != "" && !containsFold(o.Name, filter.Name) {
			continue
		}
		if filter.Description != "" && !containsFold(o.Description, filter.Description) {
			continue
		}
		o.Items = s.collectItems(o.ID)
		matched = append(matched, o)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []order.Order{}, nil
	}
	end := min(offset+filter.Limit, len(matched))
	return matched[offset:end], nil
}

// Products returns the product.Repository view of the store. A separate
// view type is needed because order.Repository and product.Repository both
// declare a List method.
func (s *Store) Products() product.Repository {
	return productView{s: s}
}

type productView struct {
	s *Store
}

func (v productView) List(ctx context.Context) ([]product.Product, error) {
	return v.s.listProducts(ctx)
}

func (v productView) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return v.s.getProduct(ctx, id)
}

func (s *Store) listProducts(_ context.Context) ([]product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]product.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) getProduct(_ context.Context, id string) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

// collectItems gathers the line items for an order, oldest first. Caller
// must hold s.mu.
func (s *Store) collectItems(orderID string) []order.LineItem {
	items := make([]order.LineItem, 0, 4)
	for _, item := range s.items {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
