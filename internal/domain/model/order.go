package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusShipped   OrderStatus = "Shipped"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order 訂單, UserID 為 nil 代表匿名訂單
type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      *uint           `gorm:"index" json:"user_id"`
	User        *User           `gorm:"constraint:OnDelete:SET NULL;" json:"user,omitempty"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	Status      OrderStatus     `gorm:"type:varchar(50);not null;default:'Pending'" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	OrderItems  []OrderItem     `gorm:"constraint:OnDelete:CASCADE;" json:"order_items"`
}

func (Order) TableName() string {
	return "orders"
}

// ItemsTotal 加總所有明細的 price_at_purchase * quantity
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.OrderItems {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderItem 訂單明細
// PriceAtPurchase 為下單當下的商品價格快照
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"not null;index" json:"order_id"`
	ProductID       uint            `gorm:"not null;index" json:"product_id"`
	Product         *Product        `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
	Quantity        int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price_at_purchase"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
