// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the Kafka topic events travel on
const DefaultTopic = "movie-night-events"

// KafkaPublisher writes events to a Kafka topic keyed by scope, so
// events for one scope stay ordered on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  5,
	}
	return &KafkaPublisher{writer: w}, nil
}

func kafkaMessage(e Event) (kafka.Message, error) {
	payload, err := Encode(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.EventScope()),
		Value: payload,
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := kafkaMessage(e)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}

// KafkaRelay consumes the event topic and feeds a hub. Each hub process
// needs its own consumer group so that every hub sees every event.
type KafkaRelay struct {
	reader *kafka.Reader
	hub    *Hub
}

func NewKafkaRelay(brokers []string, topic, groupID string, hub *Hub) (*KafkaRelay, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10mb
		MaxWait:  500 * time.Millisecond,
		// Live events only; a new group does not replay history
		StartOffset: kafka.LastOffset,
	})
	return &KafkaRelay{reader: r, hub: hub}, nil
}

// Run relays messages until ctx is cancelled or the reader is closed
func (r *KafkaRelay) Run(ctx context.Context) error {
	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading from kafka: %w", err)
		}
		r.handle(msg)
	}
}

func (r *KafkaRelay) handle(msg kafka.Message) {
	if err := r.hub.Dispatch(msg.Value); err != nil {
		slog.Warn("dropping malformed relayed event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
	}
}

func (r *KafkaRelay) Close() error {
	if err := r.reader.Close(); err != nil {
		return fmt.Errorf("failed to close kafka reader: %w", err)
	}
	return nil
}
