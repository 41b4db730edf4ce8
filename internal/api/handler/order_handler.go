package handler

import (
	"net/http"

	"github.com/RoyceAzure/lab/storefront/internal/api/dto"
	"github.com/RoyceAzure/lab/storefront/internal/api/response"
	"github.com/RoyceAzure/lab/storefront/internal/apperr"
	"github.com/RoyceAzure/lab/storefront/internal/service"
	"github.com/RoyceAzure/lab/storefront/internal/util"
	"github.com/go-playground/validator/v10"
)

const orderCreateFailedMsg = "An unexpected error occurred during order creation."

type OrderHandler struct {
	orderService service.IOrderService
	validate     *validator.Validate
}

func NewOrderHandler(orderService service.IOrderService) *OrderHandler {
	if orderService == nil {
		panic("orderService cannot be nil")
	}
	return &OrderHandler{
		orderService: orderService,
		validate:     newValidator(),
	}
}

// CreateOrderWithItems POST /orders/create-with-items/
// 允許匿名, body: {"items": [{"product_id": 1, "quantity": 2}]}
//
// 回應:
//   - 201: 訂單與明細
//   - 400: {"error": ...}, 商品不存在或庫存不足時附帶 product_id, available, requested
//   - 503: 交易衝突, 帶 Retry-After
//   - 500: 通用錯誤訊息與 request_id
func (h *OrderHandler) CreateOrderWithItems(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if len(req.Items) > 0 {
		if err := h.validate.Struct(req); err != nil {
			response.WriteError(w, r, validationError(err))
			return
		}
	}

	items := make([]service.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := h.orderService.CreateOrderWithItems(r.Context(), util.GetUserFromContext(r.Context()), items)
	if err != nil {
		if apperr.CodeOf(err) == apperr.InternalErrorCode {
			err = apperr.Wrap(apperr.InternalErrorCode, orderCreateFailedMsg, err)
		}
		response.WriteError(w, r, err)
		return
	}

	response.SuccessJSON(w, http.StatusCreated, dto.NewOrderResponse(order))
}

// ListOrders GET /orders/ 目前用戶的訂單, 新的在前
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := util.GetUserFromContext(r.Context())
	orders, err := h.orderService.ListOrdersByUser(r.Context(), user.ID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, dto.NewOrderListResponse(orders))
}

// GetOrder GET /orders/{id}/ 不屬於目前用戶的訂單回應 404
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	user := util.GetUserFromContext(r.Context())
	order, err := h.orderService.GetOrderForUser(r.Context(), user.ID, id)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.SuccessJSON(w, http.StatusOK, dto.NewOrderResponse(order))
}
