package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/constants"
	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	rj_kafka "github.com/RoyceAzure/lab/storefront/internal/infra/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

type IOrderEventProducer interface {
	ProduceOrderCreatedEvent(ctx context.Context, order *model.Order) error
}

// 以 order id 為 key, 同一筆訂單的事件落在同一分區
// topic: 由producer創建時設置
type OrderEventProducer struct {
	producer rj_kafka.Producer
}

func NewOrderEventProducer(producer rj_kafka.Producer) *OrderEventProducer {
	if producer == nil {
		panic("NewOrderEventProducer: producer cannot be nil")
	}
	return &OrderEventProducer{producer: producer}
}

type OrderCreatedEvent struct {
	OrderID     uint                    `json:"order_id"`
	UserID      *uint                   `json:"user_id"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
	Status      model.OrderStatus       `json:"status"`
	CreatedAt   time.Time               `json:"created_at"`
	Items       []OrderCreatedEventItem `json:"items"`
}

type OrderCreatedEventItem struct {
	ProductID       uint            `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

func NewOrderCreatedEvent(order *model.Order) OrderCreatedEvent {
	items := make([]OrderCreatedEventItem, len(order.OrderItems))
	for i, item := range order.OrderItems {
		items[i] = OrderCreatedEventItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
	}
	return OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		Items:       items,
	}
}

func (o *OrderEventProducer) ProduceOrderCreatedEvent(ctx context.Context, order *model.Order) error {
	value, err := json.Marshal(NewOrderCreatedEvent(order))
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(order.ID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: constants.EventTypeHeader, Value: []byte(constants.EventTypeOrderCreated)},
		},
	}
	return o.producer.Produce(ctx, msg)
}

var _ IOrderEventProducer = (*OrderEventProducer)(nil)
