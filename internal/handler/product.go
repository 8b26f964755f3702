package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		logError(r, "List products", err)
		writeError(w, http.StatusInternalServerError, "Products retrieval failed")
		return
	}

	data := make([]productResponse, len(products))
	for i := range products {
		data[i] = toProductResponse(&products[i])
	}
	writeSuccess(w, http.StatusOK, data, "Products retrieved successfully")
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		logError(r, "Get product", err)
		writeError(w, http.StatusInternalServerError, "Product retrieval failed")
		return
	}
	writeSuccess(w, http.StatusOK, toProductResponse(p), "Product retrieved successfully")
}
