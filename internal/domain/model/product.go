package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product 商品
// 使用軟刪除, 歷史訂單仍可參照已下架商品
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// MaxMoney decimal(10,2) 欄位能保存的最大金額
var MaxMoney = decimal.RequireFromString("99999999.99")

// 可由管理端更新的欄位
const (
	ProductFieldName          = "name"
	ProductFieldDescription   = "description"
	ProductFieldPrice         = "price"
	ProductFieldStockQuantity = "stock_quantity"
)
