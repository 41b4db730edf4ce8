package dto

import (
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
)

type CreateOrderItemRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items []CreateOrderItemRequest `json:"items" validate:"dive"`
}

type OrderItemResponse struct {
	ID              uint   `json:"id"`
	Product         uint   `json:"product"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	PriceAtPurchase string `json:"price_at_purchase"`
}

// OrderResponse 匿名訂單的 user 與 user_username 為 null
type OrderResponse struct {
	ID           uint                `json:"id"`
	User         *uint               `json:"user"`
	UserUsername *string             `json:"user_username"`
	TotalAmount  string              `json:"total_amount"`
	CreatedAt    time.Time           `json:"created_at"`
	Status       model.OrderStatus   `json:"status"`
	OrderItems   []OrderItemResponse `json:"order_items"`
}

func NewOrderResponse(o *model.Order) OrderResponse {
	res := OrderResponse{
		ID:          o.ID,
		User:        o.UserID,
		TotalAmount: o.TotalAmount.StringFixed(2),
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
		OrderItems:  make([]OrderItemResponse, len(o.OrderItems)),
	}
	if o.User != nil {
		username := o.User.Username
		res.UserUsername = &username
	}
	for i, item := range o.OrderItems {
		res.OrderItems[i] = OrderItemResponse{
			ID:              item.ID,
			Product:         item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase.StringFixed(2),
		}
		if item.Product != nil {
			res.OrderItems[i].ProductName = item.Product.Name
		}
	}
	return res
}

func NewOrderListResponse(orders []model.Order) []OrderResponse {
	res := make([]OrderResponse, len(orders))
	for i := range orders {
		res[i] = NewOrderResponse(&orders[i])
	}
	return res
}
