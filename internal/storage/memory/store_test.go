package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
)

func seedStore(t *testing.T, stockLevel int32) *Store {
	t.Helper()
	s := NewStore()
	s.SeedProducts(product.Product{
		ID:         "p1",
		Name:       "Widget",
		Price:      decimal.RequireFromString("4.50"),
		StockLevel: stockLevel,
	})
	return s
}

func mustBegin(t *testing.T, s *Store) stock.Tx {
	t.Helper()
	tx, err := s.Begin(context.Background())
	require.NoError(t, err)
	return tx
}

func currentStock(t *testing.T, s *Store, id string) int32 {
	t.Helper()
	p, err := s.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockLevel
}

func TestReserveStock(t *testing.T) {
	s := seedStore(t, 10)

	tx := mustBegin(t, s)
	require.NoError(t, tx.ReserveStock(context.Background(), "p1", 4))
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, int32(6), currentStock(t, s, "p1"))
}

func TestReserveStock_Insufficient(t *testing.T) {
	s := seedStore(t, 3)

	tx := mustBegin(t, s)
	err := tx.ReserveStock(context.Background(), "p1", 5)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.NoError(t, tx.Rollback(context.Background()))

	assert.Equal(t, int32(3), currentStock(t, s, "p1"))
}

func TestReserveStock_UnknownProduct(t *testing.T) {
	s := seedStore(t, 3)

	tx := mustBegin(t, s)
	err := tx.ReserveStock(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, stock.ErrInsufficientStock)
	require.NoError(t, tx.Rollback(context.Background()))
}

func TestReleaseStock_UnknownProductIsNoop(t *testing.T) {
	s := seedStore(t, 3)

	tx := mustBegin(t, s)
	require.NoError(t, tx.ReleaseStock(context.Background(), "ghost", 5))
	require.NoError(t, tx.Commit(context.Background()))
}

func TestRollback_RestoresAllState(t *testing.T) {
	s := seedStore(t, 10)
	o := order.Order{ID: "o1", Name: "Order", CreatedAt: time.Now().UTC()}

	tx := mustBegin(t, s)
	require.NoError(t, tx.InsertOrder(context.Background(), &o))
	require.NoError(t, tx.ReserveStock(context.Background(), "p1", 4))
	_, err := tx.UpsertLineItem(context.Background(), order.LineItem{
		ID: "i1", OrderID: "o1", ProductID: "p1", Quantity: 4, CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(context.Background()))

	assert.Equal(t, int32(10), currentStock(t, s, "p1"))
	_, err = s.Get(context.Background(), "o1")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestRollbackAfterCommit_Noop(t *testing.T) {
	s := seedStore(t, 10)

	tx := mustBegin(t, s)
	require.NoError(t, tx.ReserveStock(context.Background(), "p1", 4))
	require.NoError(t, tx.Commit(context.Background()))
	require.NoError(t, tx.Rollback(context.Background()))

	assert.Equal(t, int32(6), currentStock(t, s, "p1"))
}

func TestUpsertLineItem_Accumulates(t *testing.T) {
	s := seedStore(t, 10)

	tx := mustBegin(t, s)
	require.NoError(t, tx.InsertOrder(context.Background(), &order.Order{ID: "o1", Name: "Order"}))
	first, err := tx.UpsertLineItem(context.Background(), order.LineItem{
		ID: "i1", OrderID: "o1", ProductID: "p1", Quantity: 2,
	})
	require.NoError(t, err)
	second, err := tx.UpsertLineItem(context.Background(), order.LineItem{
		ID: "i2", OrderID: "o1", ProductID: "p1", Quantity: 3,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int32(5), second.Quantity)

	o, err := s.Get(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, int32(5), o.Items[0].Quantity)
}

func TestDeleteOrder_RemovesItems(t *testing.T) {
	s := seedStore(t, 10)

	tx := mustBegin(t, s)
	require.NoError(t, tx.InsertOrder(context.Background(), &order.Order{ID: "o1", Name: "Order"}))
	_, err := tx.UpsertLineItem(context.Background(), order.LineItem{
		ID: "i1", OrderID: "o1", ProductID: "p1", Quantity: 2,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(context.Background()))

	tx = mustBegin(t, s)
	require.NoError(t, tx.DeleteOrder(context.Background(), "o1"))
	require.NoError(t, tx.Commit(context.Background()))

	_, err = s.Get(context.Background(), "o1")
	assert.ErrorIs(t, err, order.ErrNotFound)

	tx = mustBegin(t, s)
	item, err := tx.FindLineItem(context.Background(), "o1", "p1")
	require.NoError(t, err)
	assert.Nil(t, item)
	require.NoError(t, tx.Rollback(context.Background()))
}

func TestConcurrentReserves_NeverNegative(t *testing.T) {
	const (
		initial = 30
		workers = 50
	)
	s := seedStore(t, initial)

	var (
		wg        sync.WaitGroup
		succeeded int32
		mu        sync.Mutex
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := s.Begin(context.Background())
			if err != nil {
				return
			}
			if err := tx.ReserveStock(context.Background(), "p1", 1); err != nil {
				_ = tx.Rollback(context.Background())
				return
			}
			if err := tx.Commit(context.Background()); err != nil {
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initial), succeeded)
	assert.Equal(t, int32(0), currentStock(t, s, "p1"))
}

func TestListOrders_FilterAndPagination(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tx := mustBegin(t, s)
	for i, name := range []string{"Alpha batch", "Beta batch", "Alpha extra"} {
		require.NoError(t, tx.InsertOrder(context.Background(), &order.Order{
			ID:        name,
			Name:      name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, tx.Commit(context.Background()))

	got, err := s.List(context.Background(), order.ListFilter{Name: "alpha"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Alpha batch", got[0].Name)
	assert.Equal(t, "Alpha extra", got[1].Name)

	page2, err := s.List(context.Background(), order.ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "Alpha extra", page2[0].Name)
}
