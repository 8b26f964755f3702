package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
	"github.com/dstepanov-dev/order-stock-api/internal/handler"
	"github.com/dstepanov-dev/order-stock-api/internal/storage/memory"
)

// testEnvelope mirrors the API response shape with the data left raw so each
// test can decode it into the type it expects.
type testEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type orderData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Items       []struct {
		ID        string `json:"id"`
		ProductID string `json:"productId"`
		Quantity  int32  `json:"quantity"`
	} `json:"items"`
}

func newTestAPI(t *testing.T, products ...product.Product) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.SeedProducts(products...)
	svc := stock.NewService(store, store)
	h := handler.NewHandler(store, store.Products(), svc)
	return h.Routes(), store
}

func doJSON(t *testing.T, api http.Handler, method, target string, body any) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)

	var env testEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return rec, env
}

func createOrder(t *testing.T, api http.Handler, name string) orderData {
	t.Helper()
	rec, env := doJSON(t, api, http.MethodPost, "/orders", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code)

	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	return o
}

func widget(stockLevel int32) product.Product {
	return product.Product{
		ID:         "widget",
		Name:       "Widget",
		Price:      decimal.RequireFromString("4.50"),
		StockLevel: stockLevel,
	}
}

// --- Orders ---

func TestCreateOrder(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodPost, "/orders", map[string]any{
		"name":        "Office supplies",
		"description": "Q3 restock",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Order created successfully", env.Message)

	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "Office supplies", o.Name)
	assert.Equal(t, "Q3 restock", o.Description)
}

func TestCreateOrder_BlankName(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodPost, "/orders", map[string]any{"name": ""})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
	assert.Contains(t, env.Errors, "name must not be blank")
}

func TestCreateOrder_UnknownField(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodPost, "/orders", map[string]any{
		"name": "Order",
		"nmae": "typo",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", env.Status)
}

func TestGetOrder(t *testing.T) {
	api, _ := newTestAPI(t)
	created := createOrder(t, api, "My order")

	rec, env := doJSON(t, api, http.MethodGet, "/orders/"+created.ID, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, created.ID, o.ID)
	assert.NotNil(t, o.Items)
}

func TestGetOrder_NotFound(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodGet, "/orders/missing", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestListOrders_Filtered(t *testing.T) {
	api, _ := newTestAPI(t)
	createOrder(t, api, "Alpha batch")
	createOrder(t, api, "Beta batch")

	rec, env := doJSON(t, api, http.MethodGet, "/orders?name=alpha", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var list []orderData
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Alpha batch", list[0].Name)
}

func TestUpdateOrder_Partial(t *testing.T) {
	api, _ := newTestAPI(t)
	created := createOrder(t, api, "Original")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID, map[string]any{
		"description": "added later",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, "Original", o.Name)
	assert.Equal(t, "added later", o.Description)
}

func TestUpdateOrder_NoFields(t *testing.T) {
	api, _ := newTestAPI(t)
	created := createOrder(t, api, "Original")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID, map[string]any{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "no fields to update")
}

func TestDeleteOrder(t *testing.T) {
	api, _ := newTestAPI(t)
	created := createOrder(t, api, "Doomed")

	rec, env := doJSON(t, api, http.MethodDelete, "/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order deleted successfully", env.Message)

	rec, _ = doJSON(t, api, http.MethodGet, "/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Order product mutations ---

func TestAddProduct(t *testing.T) {
	api, store := newTestAPI(t, widget(20))
	created := createOrder(t, api, "Order")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 5})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product added to order successfully", env.Message)

	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "widget", o.Items[0].ProductID)
	assert.Equal(t, int32(5), o.Items[0].Quantity)

	p, err := store.Products().GetByID(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, int32(15), p.StockLevel)
}

func TestAddProduct_InsufficientStock(t *testing.T) {
	api, store := newTestAPI(t, widget(3))
	created := createOrder(t, api, "Order")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 5})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Quantity exceeds stock level", env.Message)

	p, err := store.Products().GetByID(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.StockLevel)
}

func TestAddProduct_InvalidQuantity(t *testing.T) {
	api, _ := newTestAPI(t, widget(20))
	created := createOrder(t, api, "Order")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 0})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Errors, "quantity must be a positive integer")
}

func TestAddProduct_ProductNotFound(t *testing.T) {
	api, _ := newTestAPI(t)
	created := createOrder(t, api, "Order")

	rec, env := doJSON(t, api, http.MethodPut, "/orders/"+created.ID+"/products/ghost",
		map[string]any{"quantity": 1})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)
}

func TestAddProduct_OrderNotFound(t *testing.T) {
	api, _ := newTestAPI(t, widget(20))

	rec, env := doJSON(t, api, http.MethodPut, "/orders/missing/products/widget",
		map[string]any{"quantity": 1})

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", env.Message)
}

func TestRemoveProduct(t *testing.T) {
	api, store := newTestAPI(t, widget(20))
	created := createOrder(t, api, "Order")

	rec, _ := doJSON(t, api, http.MethodPut, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doJSON(t, api, http.MethodDelete, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 5})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Product removed from order successfully", env.Message)

	var o orderData
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Empty(t, o.Items)

	p, err := store.Products().GetByID(context.Background(), "widget")
	require.NoError(t, err)
	assert.Equal(t, int32(20), p.StockLevel)
}

func TestRemoveProduct_NotInOrder(t *testing.T) {
	api, _ := newTestAPI(t, widget(20))
	created := createOrder(t, api, "Order")

	rec, env := doJSON(t, api, http.MethodDelete, "/orders/"+created.ID+"/products/widget",
		map[string]any{"quantity": 1})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Product is not part of the order", env.Message)
}

// --- Products ---

func TestListProducts(t *testing.T) {
	api, _ := newTestAPI(t, widget(20))

	rec, env := doJSON(t, api, http.MethodGet, "/products", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		StockLevel int32   `json:"stockLevel"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "widget", list[0].ID)
	assert.InDelta(t, 4.50, list[0].Price, 0.001)
	assert.Equal(t, int32(20), list[0].StockLevel)
}

func TestGetProduct_NotFound(t *testing.T) {
	api, _ := newTestAPI(t)

	rec, env := doJSON(t, api, http.MethodGet, "/products/ghost", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product not found", env.Message)
}
