package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/stock"
)

type createOrderRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type updateOrderRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type quantityRequest struct {
	Quantity int32 `json:"quantity"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := order.ListFilter{
		Name:        q.Get("name"),
		Description: q.Get("description"),
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		logError(r, "List orders", err)
		writeError(w, http.StatusInternalServerError, "Orders retrieval failed")
		return
	}

	data := make([]orderResponse, len(orders))
	for i := range orders {
		data[i] = toOrderResponse(&orders[i])
	}
	writeSuccess(w, http.StatusOK, data, "Orders retrieved successfully")
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error for order creation", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Validation error for order creation", "name must not be blank")
		return
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	o, err := h.svc.CreateOrder(r.Context(), req.Name, description)
	if err != nil {
		logError(r, "Create order", err)
		writeError(w, http.StatusInternalServerError, "Order creation failed")
		return
	}
	writeSuccess(w, http.StatusCreated, toOrderResponse(o), "Order created successfully")
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.resolveOrder(w, r, r.PathValue("id"))
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(o), "Order retrieved successfully")
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.resolveOrder(w, r, r.PathValue("id"))
	if !ok {
		return
	}

	var req updateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error for order update", err.Error())
		return
	}
	if req.Name == nil && req.Description == nil {
		writeError(w, http.StatusBadRequest, "Validation error for order update", "no fields to update")
		return
	}
	if req.Name != nil && *req.Name == "" {
		writeError(w, http.StatusBadRequest, "Validation error for order update", "name must not be blank")
		return
	}

	updated, err := h.svc.UpdateOrder(r.Context(), o, req.Name, req.Description)
	if err != nil {
		logError(r, "Update order", err)
		writeError(w, http.StatusInternalServerError, "Order update failed")
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(updated), "Order updated successfully")
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := h.resolveOrder(w, r, r.PathValue("id"))
	if !ok {
		return
	}

	if !h.svc.DeleteOrder(r.Context(), o) {
		writeError(w, http.StatusInternalServerError, "Order deletion failed")
		return
	}
	writeSuccess(w, http.StatusOK, nil, "Order deleted successfully")
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	o, p, qty, ok := h.resolveMutation(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.AddProduct(r.Context(), o, p, qty)
	if err != nil {
		if errors.Is(err, stock.ErrInsufficientStock) {
			writeError(w, http.StatusBadRequest, "Quantity exceeds stock level")
			return
		}
		logError(r, "Add product to order", err)
		writeError(w, http.StatusInternalServerError, "Exception while adding product to order")
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(updated), "Product added to order successfully")
}

func (h *Handler) removeProduct(w http.ResponseWriter, r *http.Request) {
	o, p, qty, ok := h.resolveMutation(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.RemoveProduct(r.Context(), o, p, qty)
	if err != nil {
		if errors.Is(err, stock.ErrProductNotInOrder) {
			writeError(w, http.StatusBadRequest, "Product is not part of the order")
			return
		}
		logError(r, "Remove product from order", err)
		writeError(w, http.StatusInternalServerError, "Exception while removing product from order")
		return
	}
	writeSuccess(w, http.StatusOK, toOrderResponse(updated), "Product removed from order successfully")
}

// resolveOrder loads the order from the path ID, writing a 404 envelope when
// it does not exist.
func (h *Handler) resolveOrder(w http.ResponseWriter, r *http.Request, id string) (*order.Order, bool) {
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return nil, false
		}
		logError(r, "Get order", err)
		writeError(w, http.StatusInternalServerError, "Order retrieval failed")
		return nil, false
	}
	return o, true
}

// resolveMutation validates the quantity body and resolves both the order
// and the product for the add/remove endpoints.
func (h *Handler) resolveMutation(w http.ResponseWriter, r *http.Request) (*order.Order, *product.Product, int32, bool) {
	o, ok := h.resolveOrder(w, r, r.PathValue("orderID"))
	if !ok {
		return nil, nil, 0, false
	}

	var req quantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation error for product quantity", err.Error())
		return nil, nil, 0, false
	}
	if req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "Validation error for product quantity", "quantity must be a positive integer")
		return nil, nil, 0, false
	}

	p, err := h.products.GetByID(r.Context(), r.PathValue("productID"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return nil, nil, 0, false
		}
		logError(r, "Get product", err)
		writeError(w, http.StatusInternalServerError, "Product retrieval failed")
		return nil, nil, 0, false
	}

	return o, p, req.Quantity, true
}
