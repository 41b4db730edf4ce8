package handler

import (
	"net/http"
	"strconv"

	"github.com/RoyceAzure/lab/storefront/internal/api/dto"
	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	productService service.IProductService
	validate       *validator.Validate
}

func NewProductHandler(productService service.IProductService) *ProductHandler {
	if productService == nil {
		panic("productService cannot be nil")
	}
	return &ProductHandler{
		productService: productService,
		validate:       newValidator(),
	}
}

// ListProducts GET /products/?page=&page_size=
// 回應為陣列, 總數放在 X-Total-Count
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", constants.DefaultPaging)
	pageSize := queryInt(r, "page_size", constants.DefaultPagingSize)

	products, total, err := h.productService.ListProducts(r.Context(), page, pageSize)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	response.SuccessJSON(w, http.StatusOK, dto.NewProductListResponse(products))
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	product, err := h.productService.GetProduct(r.Context(), id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, dto.NewProductResponse(product))
}

// CreateProduct POST /products/ 需要管理員
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeWriteRequest(r, true)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	input := service.ProductInput{
		Name:  *req.ProductName(),
		Price: *req.Price,
	}
	if req.Description != nil {
		input.Description = *req.Description
	}
	if req.StockQuantity != nil {
		input.StockQuantity = *req.StockQuantity
	}

	product, err := h.productService.CreateProduct(r.Context(), input)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.SuccessJSON(w, http.StatusCreated, dto.NewProductResponse(product))
}

// UpdateProduct PUT 需要 title 與 price, PATCH 只更新有帶的欄位
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	req, err := h.decodeWriteRequest(r, r.Method == http.MethodPut)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), id, service.ProductPatch{
		Name:          req.ProductName(),
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, dto.NewProductResponse(product))
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := h.productService.DeleteProduct(r.Context(), id); err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.NoContent(w)
}

// full 為 true 時 title(name) 與 price 必填
func (h *ProductHandler) decodeWriteRequest(r *http.Request, full bool) (*dto.ProductWriteRequest, error) {
	var req dto.ProductWriteRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := h.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if full {
		if req.ProductName() == nil {
			return nil, apperr.New(apperr.BadRequestCode, "title is required").WithField("field", "title")
		}
		if req.Price == nil {
			return nil, apperr.New(apperr.BadRequestCode, "price is required").WithField("field", "price")
		}
	}
	if req.Price != nil && req.Price.LessThan(decimal.Zero) {
		return nil, apperr.New(apperr.BadRequestCode, "price must not be negative").WithField("field", "price")
	}
	return &req, nil
}
