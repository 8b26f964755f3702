// Package handler exposes the HTTP API. It owns request decoding, response
// envelopes, and the mapping from domain failures to HTTP status codes; all
// business logic lives in the stock service.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
)

// Handler serves the orders and products API.
type Handler struct {
	orders   order.Repository
	products product.Repository
	svc      *stock.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(orders order.Repository, products product.Repository, svc *stock.Service) *Handler {
	return &Handler{
		orders:   orders,
		products: products,
		svc:      svc,
	}
}

// Routes returns the route table for the API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", h.listOrders)
	mux.HandleFunc("POST /orders", h.createOrder)
	mux.HandleFunc("GET /orders/{id}", h.getOrder)
	mux.HandleFunc("PUT /orders/{id}", h.updateOrder)
	mux.HandleFunc("DELETE /orders/{id}", h.deleteOrder)
	mux.HandleFunc("PUT /orders/{orderID}/products/{productID}", h.addProduct)
	mux.HandleFunc("DELETE /orders/{orderID}/products/{productID}", h.removeProduct)
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{id}", h.getProduct)
	return mux
}

// envelope is the uniform response shape of the API.
type envelope struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Data    any      `json:"data"`
	Errors  []string `json:"errors,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string, errs ...string) {
	writeJSON(w, status, envelope{
		Status:  "error",
		Message: message,
		Errors:  errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body strictly: unknown fields are
// rejected so typos surface as validation errors instead of silent no-ops.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// logError records a request-scoped failure that is not the client's fault.
func logError(r *http.Request, msg string, err error) {
	zctx.From(r.Context()).Error(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}
