package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tienda-labs/storefront/internal/domain"
	pkgkafka "github.com/tienda-labs/storefront/pkg/kafka"
)

// Kafka topics for storefront domain events.
const (
	TopicCartUpdated    = "storefront.cart.updated"
	TopicCartCleared    = "storefront.cart.cleared"
	TopicOrderSubmitted = "storefront.order.submitted"
	TopicOrderRejected  = "storefront.order.rejected"
)

const (
	aggregateTypeCart  = "cart"
	aggregateTypeOrder = "order"
	source             = "storefront"
)

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	Customer  string            `json:"customer"`
	Lines     []domain.CartLine `json:"lines"`
	ItemCount int               `json:"item_count"`
	Total     float64           `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	Customer string `json:"customer"`
}

// OrderSubmittedData is the payload for an order.submitted event.
type OrderSubmittedData struct {
	Customer    string  `json:"customer"`
	OrderNumber int64   `json:"order_number"`
	LineCount   int     `json:"line_count"`
	Total       float64 `json:"total"`
}

// OrderRejectedData is the payload for an order.rejected event.
type OrderRejectedData struct {
	Customer    string `json:"customer"`
	OrderNumber int64  `json:"order_number"`
	Reason      string `json:"reason"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates an event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	data := CartUpdatedData{
		Customer:  cart.Customer,
		Lines:     cart.Lines,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}

	return p.publish(ctx, TopicCartUpdated, cart.Customer, aggregateTypeCart, data)
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, customer string) error {
	return p.publish(ctx, TopicCartCleared, customer, aggregateTypeCart, CartClearedData{Customer: customer})
}

// PublishOrderSubmitted publishes an order.submitted event after a checkout
// batch was accepted by the order boundary.
func (p *Producer) PublishOrderSubmitted(ctx context.Context, customer string, orderNumber int64, lineCount int, total float64) error {
	data := OrderSubmittedData{
		Customer:    customer,
		OrderNumber: orderNumber,
		LineCount:   lineCount,
		Total:       total,
	}

	return p.publish(ctx, TopicOrderSubmitted, customer, aggregateTypeOrder, data)
}

// PublishOrderRejected publishes an order.rejected event after a checkout
// batch was refused or could not be delivered.
func (p *Producer) PublishOrderRejected(ctx context.Context, customer string, orderNumber int64, reason string) error {
	data := OrderRejectedData{
		Customer:    customer,
		OrderNumber: orderNumber,
		Reason:      reason,
	}

	return p.publish(ctx, TopicOrderRejected, customer, aggregateTypeOrder, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, source, data)
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
