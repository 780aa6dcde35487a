package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Envelope is the wire format for published stock events. It follows the
// CloudEvents attribute naming so downstream consumers can route on
// headers without decoding the payload.
type Envelope struct {
	SpecVersion string          `json:"specversion"`
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Source      string          `json:"source"`
	Subject     string          `json:"subject"`
	Time        time.Time       `json:"time"`
	TenantID    string          `json:"tenantid,omitempty"`
	Channel     string          `json:"channel,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// NewEnvelope creates an Envelope around a JSON-marshalable payload
func NewEnvelope(id, eventType, source, subject string, payload interface{}) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return &Envelope{
		SpecVersion: "1.0",
		ID:          id,
		Type:        eventType,
		Source:      source,
		Subject:     subject,
		Time:        time.Now().UTC(),
		Data:        data,
	}, nil
}

// Producer handles publishing messages to Kafka topics
type Producer struct {
	writers map[string]*kafka.Writer
	config  *Config
}

// NewProducer creates a new Kafka producer
func NewProducer(config *Config) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		config:  config,
	}
}

// getWriter returns a writer for the specified topic, creating one if necessary
func (p *Producer) getWriter(topic string) *kafka.Writer {
	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
		WriteTimeout: p.config.WriteTimeout,
		Async:        false,
	}

	p.writers[topic] = writer
	return writer
}

// PublishEvent publishes an Envelope to the specified topic. Messages are
// keyed by subject so all movements for one entity land on one partition.
func (p *Producer) PublishEvent(ctx context.Context, topic string, event *Envelope) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	writer := p.getWriter(topic)

	msg := kafka.Message{
		Key:   []byte(event.Subject),
		Value: data,
		Headers: []kafka.Header{
			{Key: "ce-specversion", Value: []byte(event.SpecVersion)},
			{Key: "ce-type", Value: []byte(event.Type)},
			{Key: "ce-source", Value: []byte(event.Source)},
			{Key: "ce-id", Value: []byte(event.ID)},
			{Key: "ce-time", Value: []byte(event.Time.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: event.Time,
	}

	if event.TenantID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   "ce-tenantid",
			Value: []byte(event.TenantID),
		})
	}

	if event.Channel != "" {
		msg.Headers = append(msg.Headers, kafka.Header{
			Key:   "ce-channel",
			Value: []byte(event.Channel),
		})
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to topic %s: %w", topic, err)
	}

	return nil
}

// Close closes all writers
func (p *Producer) Close() error {
	var lastErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close writer for topic %s: %w", topic, err)
		}
	}
	return lastErr
}
