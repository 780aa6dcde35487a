package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config holds Kafka configuration
type Config struct {
	Brokers  []string
	ClientID string

	// Producer settings
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int // 0: no ack, 1: leader ack, -1: all replicas ack

	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:  []string{"localhost:9092"},
		ClientID: "stocksync-client",

		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: -1, // All replicas

		WriteTimeout: 10 * time.Second,
	}
}

// Topics contains the stock synchronization topic names
var Topics = struct {
	MovementEvents string
	ConflictEvents string
}{
	MovementEvents: "stocksync.movements.events",
	ConflictEvents: "stocksync.conflicts.events",
}

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	RetentionMs       int64
}

// DefaultTopicConfigs returns default configurations for the topics
func DefaultTopicConfigs() []TopicConfig {
	return []TopicConfig{
		// Movement records are the audit trail; keep them longer.
		{Name: Topics.MovementEvents, Partitions: 6, ReplicationFactor: 3, RetentionMs: 30 * 24 * 60 * 60 * 1000},
		{Name: Topics.ConflictEvents, Partitions: 3, ReplicationFactor: 3, RetentionMs: 30 * 24 * 60 * 60 * 1000},
	}
}

// CreateTopics ensures the given topics exist on the cluster. Meant for
// local and CI brokers with auto-creation off; production topics are
// provisioned out of band.
func CreateTopics(ctx context.Context, brokers []string, configs ...TopicConfig) error {
	if len(configs) == 0 {
		configs = DefaultTopicConfigs()
	}

	topics := make([]kafka.TopicConfig, 0, len(configs))
	for _, tc := range configs {
		topics = append(topics, kafka.TopicConfig{
			Topic:             tc.Name,
			NumPartitions:     tc.Partitions,
			ReplicationFactor: tc.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "retention.ms", ConfigValue: strconv.FormatInt(tc.RetentionMs, 10)},
			},
		})
	}

	client := &kafka.Client{Addr: kafka.TCP(brokers...)}
	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{Topics: topics})
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}
	for name, topicErr := range resp.Errors {
		if topicErr != nil && !errors.Is(topicErr, kafka.TopicAlreadyExists) {
			return fmt.Errorf("failed to create topic %s: %w", name, topicErr)
		}
	}
	return nil
}
