package handler

import (
	"time"

	"github.com/dstepanov-dev/order-stock-api/internal/domain/order"
	"github.com/dstepanov-dev/order-stock-api/internal/domain/product"
)

type orderResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	Items       []lineItemResponse `json:"items"`
}

type lineItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type productResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	StockLevel int32   `json:"stockLevel"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = lineItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}
	return orderResponse{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		CreatedAt:   o.CreatedAt,
		Items:       items,
	}
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price.InexactFloat64(),
		StockLevel: p.StockLevel,
	}
}
