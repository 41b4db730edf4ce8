package dto

import (
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/shopspring/decimal"
)

// ProductResponse 前端使用 title, category, popularity
type ProductResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         string    `json:"price"`
	StockQuantity int       `json:"stock_quantity"`
	Category      string    `json:"category"`
	Popularity    int       `json:"popularity"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Title:         p.Name,
		Description:   p.Description,
		Price:         p.Price.StringFixed(2),
		StockQuantity: p.StockQuantity,
		Category:      constants.DefaultProductCategory,
		Popularity:    constants.DefaultProductPopularity,
		CreatedAt:     p.CreatedAt,
	}
}

func NewProductListResponse(products []model.Product) []ProductResponse {
	res := make([]ProductResponse, len(products))
	for i := range products {
		res[i] = NewProductResponse(&products[i])
	}
	return res
}

// ProductWriteRequest 建立與更新共用
// title 與 name 擇一, 同時存在時以 title 為準
type ProductWriteRequest struct {
	Title         *string          `json:"title" validate:"omitempty,max=200"`
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
}

func (r ProductWriteRequest) ProductName() *string {
	if r.Title != nil {
		return r.Title
	}
	return r.Name
}
