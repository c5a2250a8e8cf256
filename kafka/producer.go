package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"smart-cart-service/models"
)

// Producer publishes checkout events for downstream billing/receipt
// consumers. Best effort: the cart completes checkout whether or not the
// broker is reachable.
type Producer struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewProducer builds a producer for the given brokers, or nil when no
// brokers are configured (carts without an event stream).
func NewProducer(brokers, topic string, log *zap.Logger) *Producer {
	if brokers == "" {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, log: log}
}

// Publish sends one checkout event, keyed by cart so a cart's checkouts
// stay ordered within a partition.
func (p *Producer) Publish(event models.CheckoutEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.CartID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("failed to publish checkout event",
			zap.String("session_id", event.SessionID), zap.Error(err))
		return err
	}
	return nil
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
