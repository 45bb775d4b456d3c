package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"parking-lot-queue/internal/logging"
	"parking-lot-queue/internal/parking"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every event as JSON, keyed by plate so one vehicle's
// events stay ordered within a partition.
type KafkaSink struct {
	writer  messageWriter
	source  string
	timeout time.Duration
}

func NewKafkaSink(brokers []string, topic, source string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Logger:       kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			logging.Error(context.Background(), fmt.Sprintf(msg, args...), "component", "kafka_sink")
		}),
	}

	return newKafkaSink(writer, source), nil
}

func newKafkaSink(writer messageWriter, source string) *KafkaSink {
	return &KafkaSink{
		writer:  writer,
		source:  source,
		timeout: 5 * time.Second,
	}
}

func (s *KafkaSink) Record(ctx context.Context, event parking.Event) {
	msg, err := s.message(event)
	if err != nil {
		logging.Error(ctx, "failed to encode activity event", "error", err, "plate", event.Plate)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		logging.Error(ctx, "failed to publish activity event", "error", err, "plate", event.Plate)
	}
}

func (s *KafkaSink) message(event parking.Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{
		Key:   []byte(event.Plate),
		Value: value,
		Time:  event.At,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(uuid.New().String())},
			{Key: HeaderEventType, Value: []byte(event.Kind)},
			{Key: HeaderSource, Value: []byte(s.source)},
		},
	}, nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
