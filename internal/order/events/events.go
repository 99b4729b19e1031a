package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"tradeflow/internal/domain"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"

	producerName = "tradeflow-api"
)

type Envelope struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	EventVersion  int             `json:"eventVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderLine struct {
	ProductID int    `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
}

type OrderCreatedPayload struct {
	OrderID    uint        `json:"orderId"`
	UserID     string      `json:"userId"`
	Items      []OrderLine `json:"items"`
	TotalPrice string      `json:"totalPrice"`
}

type OrderStatusChangedPayload struct {
	OrderID uint   `json:"orderId"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Writer is the subset of the Kafka producer the publisher needs.
type Writer interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

// KafkaPublisher emits order events keyed by order id so that all events of
// one order stay on one partition.
type KafkaPublisher struct {
	writer Writer
	logger *zap.Logger
	now    func() time.Time
}

func NewKafkaPublisher(writer Writer, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return p.publish(ctx, EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Items:      lines,
		TotalPrice: order.TotalPrice.StringFixed(2),
	})
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, orderID uint, from, to domain.OrderStatus) error {
	return p.publish(ctx, EventOrderStatusChanged, orderID, OrderStatusChangedPayload{
		OrderID: orderID,
		From:    string(from),
		To:      string(to),
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, orderID uint, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", eventType, err)
	}

	key := strconv.FormatUint(uint64(orderID), 10)
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    p.now(),
		Producer:      producerName,
		CorrelationID: key,
		Payload:       body,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", eventType, err)
	}

	if err := p.writer.Publish(ctx, []byte(key), value, kafka.Header{Key: "eventType", Value: []byte(eventType)}); err != nil {
		return err
	}
	p.logger.Debug("event published", zap.String("eventType", eventType), zap.String("eventId", env.EventID))
	return nil
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) OrderCreated(context.Context, *domain.Order) error { return nil }

func (NopPublisher) OrderStatusChanged(context.Context, uint, domain.OrderStatus, domain.OrderStatus) error {
	return nil
}
