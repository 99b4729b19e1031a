package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish writes one message synchronously. Messages with the same key land
// on the same partition, which keeps per-order events ordered.
func (p *Producer) Publish(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: headers,
	})
	if err != nil {
		return fmt.Errorf("writing kafka message to %s: %w", p.w.Topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}
