package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers           []string
	OrdersTopic       string
	StatusTopic       string
	WriteTimeout      time.Duration
	RequireAllReplica bool
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventBus publishes order events as JSON keyed by order id, so all events
// of one order land on the same partition.
type EventBus struct {
	writer      messageWriter
	metrics     *Metrics
	ordersTopic string
	statusTopic string
	now         func() time.Time
}

func NewEventBus(cfg Config, metrics *Metrics) *EventBus {
	acks := kafka.RequireOne
	if cfg.RequireAllReplica {
		acks = kafka.RequireAll
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	return newEventBus(writer, cfg, metrics)
}

func newEventBus(writer messageWriter, cfg Config, metrics *Metrics) *EventBus {
	return &EventBus{
		writer:      writer,
		metrics:     metrics,
		ordersTopic: cfg.OrdersTopic,
		statusTopic: cfg.StatusTopic,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (b *EventBus) PublishOrderPlaced(ctx context.Context, order domain.Order) error {
	return b.publish(ctx, b.ordersTopic, EventOrderPlaced, order.ID, newOrderPlacedEvent(order, b.now()))
}

func (b *EventBus) PublishOrderStatusChanged(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return b.publish(ctx, b.statusTopic, EventOrderStatusChanged, orderID, newOrderStatusChangedEvent(orderID, status, b.now()))
}

func (b *EventBus) publish(ctx context.Context, topic, eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	start := time.Now()
	err = b.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  b.now(),
	})
	b.metrics.RecordPublish(ctx, topic, eventType, len(data), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	return nil
}

func (b *EventBus) Close() error {
	return b.writer.Close()
}
