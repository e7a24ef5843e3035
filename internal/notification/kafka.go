package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDriver publishes notifications for one channel as JSON events for a
// downstream gateway to deliver. Channels may share a writer.
type KafkaDriver struct {
	channel Channel
	writer  kafkaWriter
}

type pushEvent struct {
	ID        string         `json:"id"`
	Channel   Channel        `json:"channel"`
	UserID    string         `json:"user_id"`
	Address   string         `json:"address"`
	Subject   string         `json:"subject,omitempty"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewKafkaDriver does not own w; whoever created the writer closes it.
func NewKafkaDriver(ch Channel, w kafkaWriter) *KafkaDriver {
	return &KafkaDriver{channel: ch, writer: w}
}

func (d *KafkaDriver) Name() string     { return "kafka" }
func (d *KafkaDriver) Channel() Channel { return d.channel }

func (d *KafkaDriver) Send(ctx context.Context, to Recipient, msg Message) (*Result, error) {
	ev := pushEvent{
		ID:        uuid.NewString(),
		Channel:   d.channel,
		UserID:    to.UserID.String(),
		Address:   to.Address(d.channel),
		Subject:   msg.Subject,
		Body:      msg.Body,
		Data:      msg.Data,
		CreatedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encoding %s event: %w", d.channel, err)
	}

	// Keyed by user so one user's events stay ordered on a partition.
	if err := d.writer.WriteMessages(ctx, kafka.Message{Key: []byte(ev.UserID), Value: value}); err != nil {
		return nil, fmt.Errorf("publishing %s event: %w", d.channel, err)
	}
	return &Result{Success: true, Driver: d.Name(), MessageID: ev.ID}, nil
}
