package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/internal/constants"
)

const minimalConfigYAML = `
server:
  port: 8080
broker:
  type: kafka
  kafka:
    brokers:
      - localhost:9092
orchestrations:
  file: orchestrations/rules.yml
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesTopicDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfigYAML))
	require.NoError(t, err)

	// a config file that only names the broker endpoints still passes the
	// input topic validation through the conventional defaults
	assert.Equal(t, constants.DefaultInputTopic, cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, constants.DefaultConfigUpdateTopic, cfg.Broker.Kafka.ConfigUpdateTopic)
	assert.Equal(t, constants.DefaultDLQTopic, cfg.Broker.Kafka.DLQTopic)
}

func TestLoadFileValuesOverrideTopicDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
server:
  port: 8080
broker:
  type: kafka
  kafka:
    brokers:
      - localhost:9092
    input_topic: custom_events
    config_update_topic: custom_updates
    dlq_topic: custom_dlq
orchestrations:
  file: orchestrations/rules.yml
`))
	require.NoError(t, err)

	assert.Equal(t, "custom_events", cfg.Broker.Kafka.InputTopic)
	assert.Equal(t, "custom_updates", cfg.Broker.Kafka.ConfigUpdateTopic)
	assert.Equal(t, "custom_dlq", cfg.Broker.Kafka.DLQTopic)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	_, err := Load(writeConfigFile(t, `
server:
  port: 8080
broker:
  type: carrier-pigeon
orchestrations:
  file: orchestrations/rules.yml
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker.type")
}
