package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes alerts as JSON to a topic, keyed by network so all
// alerts for one AP land on the same partition.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, a Alert) error {
	msg, err := kafkaMessage(a)
	if err != nil {
		return err
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish %s: %w", a.ID, err)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.writer.Close() }

func kafkaMessage(a Alert) (kafka.Message, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode alert %s: %w", a.ID, err)
	}
	key := a.CycleID
	if a.Network != nil {
		key = a.Network.BSSID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  a.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(a.Kind)},
		},
	}, nil
}
