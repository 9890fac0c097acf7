// Package event publishes storefront domain events: cart additions, order
// lifecycle and catalog changes.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/rxstore/internal/domain"
	pkgkafka "github.com/utafrali/rxstore/pkg/kafka"
)

// Kafka topics for storefront domain events.
const (
	TopicCartItemAdded      = "rxstore.cart.item_added"
	TopicOrderCreated       = "rxstore.order.created"
	TopicOrderStatusChanged = "rxstore.order.status_changed"
	TopicProductChanged     = "rxstore.product.changed"
)

// Aggregate types.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeOrder   = "order"
	AggregateTypeProduct = "product"
)

// Source identifies events emitted by this service.
const Source = "rxstore-storefront"

// CartItemAddedData is the payload for a cart.item_added event.
type CartItemAddedData struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
	ItemCount int    `json:"item_count"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID     string          `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      string          `json:"user_id"`
	UserEmail   string          `json:"user_email"`
	Total       int64           `json:"total"`
	Items       []OrderItemData `json:"items"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	Newsletter  bool            `json:"newsletter"`
}

// OrderItemData is the item payload within order events.
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// ProductChangedData is the payload for a product.changed event. Action is
// one of created, updated or deleted.
type ProductChangedData struct {
	ProductID string `json:"product_id"`
	Slug      string `json:"slug,omitempty"`
	Action    string `json:"action"`
	Price     int64  `json:"price,omitempty"`
	InStock   bool   `json:"in_stock"`
}

// Producer publishes storefront domain events to Kafka. Callers log publish
// failures and carry on; the events are notifications, not commands.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType, aggregateID string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateType, aggregateID, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.kafka.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartItemAdded publishes a cart.item_added event for the line that
// was just added or incremented.
func (p *Producer) PublishCartItemAdded(ctx context.Context, cart *domain.Cart, item domain.CartItem) error {
	return p.publish(ctx, TopicCartItemAdded, AggregateTypeCart, cart.SessionID, CartItemAddedData{
		SessionID: cart.SessionID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Price:     item.Price,
		ItemCount: cart.Count(),
	})
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	items := make([]OrderItemData, len(order.Items))
	for i, it := range order.Items {
		items[i] = OrderItemData{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	data := OrderCreatedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		UserEmail:   order.UserEmail,
		Total:       order.Payment.Totals.Total,
		Items:       items,
		Newsletter:  order.Newsletter,
	}
	if order.Coupon != nil {
		data.CouponCode = order.Coupon.Code
	}
	return p.publish(ctx, TopicOrderCreated, AggregateTypeOrder, order.ID, data)
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, AggregateTypeOrder, order.ID, OrderStatusChangedData{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		OldStatus:   oldStatus,
		NewStatus:   order.Status,
	})
}

// PublishProductChanged publishes a product.changed event.
func (p *Producer) PublishProductChanged(ctx context.Context, product *domain.Product, action string) error {
	return p.publish(ctx, TopicProductChanged, AggregateTypeProduct, product.ID, ProductChangedData{
		ProductID: product.ID,
		Slug:      product.Slug,
		Action:    action,
		Price:     product.Price,
		InStock:   product.InStock,
	})
}
