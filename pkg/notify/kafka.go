package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event is the JSON envelope published for each notification.
type Event struct {
	EventID   string         `json:"event_id"`
	Type      string         `json:"type"`
	OrderID   int64          `json:"order_id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes notifications to a topic keyed by order id.
type KafkaSink struct {
	writer messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}
}

func (s *KafkaSink) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(newEvent(msg, time.Now().UTC()))
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.Order.ID, 10)),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

func newEvent(msg Message, now time.Time) Event {
	o := msg.Order
	return Event{
		EventID:   uuid.NewString(),
		Type:      msg.Event,
		OrderID:   o.ID,
		CreatedAt: now,
		Payload: map[string]any{
			"customer_id":   o.CustomerID,
			"payment_type":  o.PaymentMode,
			"delivery_type": o.DeliveryMode,
			"total_amount":  o.Total.StringFixed(2),
			"status":        o.Status,
			"text":          msg.Text,
		},
	}
}
