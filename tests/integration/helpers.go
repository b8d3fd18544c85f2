package integration

import (
	"time"

	"github.com/google/uuid"

	"switchyard/internal/config"
	"switchyard/internal/logger"
	"switchyard/pkg/models"
)

const (
	containerStartupTimeout = 60
	consumeWaitTimeout      = 30 * time.Second
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestBrokerConfig(brokers []string, inputTopic string) config.BrokerConfig {
	return config.BrokerConfig{
		Type: "kafka",
		Kafka: config.KafkaConfig{
			Brokers:    brokers,
			GroupID:    "integration-test-" + uuid.New().String(),
			InputTopic: inputTopic,
			DLQTopic:   inputTopic + "_dlq",
			Retry: config.RetryConfig{
				MaxAttempts:     2,
				InitialInterval: 50 * time.Millisecond,
				MaxInterval:     200 * time.Millisecond,
				Multiplier:      2.0,
			},
		},
	}
}

func createTestEvent(eventType string, eventContext map[string]interface{}) models.Event {
	builder := models.NewEventBuilder().
		WithEventID(uuid.New().String()).
		WithType(eventType).
		WithTimestamp(time.Now().UTC()).
		WithSource("integration_test")
	for key, value := range eventContext {
		builder.WithContextValue(key, value)
	}
	return builder.Build()
}
