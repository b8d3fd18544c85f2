package broker

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"switchyard/internal/config"
	"switchyard/internal/logger"
)

// TopicInitializer provisions the topics the router writes to: every
// distinct target in the loaded rule sets plus the input, config-update,
// DLQ, and dead-letter topics. Creation is idempotent; topics that already
// exist are left alone.
type TopicInitializer struct {
	cfg    config.KafkaConfig
	logger logger.Logger

	numPartitions     int
	replicationFactor int
}

func NewTopicInitializer(cfg config.KafkaConfig, log logger.Logger) *TopicInitializer {
	return &TopicInitializer{
		cfg:               cfg,
		logger:            log,
		numPartitions:     3,
		replicationFactor: 1,
	}
}

func (t *TopicInitializer) EnsureTopics(ctx context.Context, topics []string) error {
	if len(topics) == 0 {
		return nil
	}
	if len(t.cfg.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", t.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to get kafka controller: %w", err)
	}

	controllerAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	controllerConn, err := kafka.DialContext(ctx, "tcp", controllerAddr)
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer controllerConn.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		if topic == "" {
			continue
		}
		configs = append(configs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     t.numPartitions,
			ReplicationFactor: t.replicationFactor,
		})
	}

	if err := controllerConn.CreateTopics(configs...); err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	t.logger.Infow("Provisioned kafka topics",
		"count", len(configs),
		"topics", topics,
	)
	return nil
}

// RouterTopics assembles the full provisioning list from the rule set
// targets and the broker configuration.
func RouterTopics(cfg config.KafkaConfig, deadLetterTarget string, targets []string) []string {
	seen := make(map[string]struct{})
	var topics []string
	add := func(topic string) {
		if topic == "" {
			return
		}
		if _, ok := seen[topic]; ok {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}

	add(cfg.InputTopic)
	add(cfg.ConfigUpdateTopic)
	add(cfg.DLQTopic)
	add(deadLetterTarget)
	for _, target := range targets {
		add(target)
	}
	return topics
}
