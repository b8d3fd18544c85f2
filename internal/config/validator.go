package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidateStatic checks the parts of the configuration that must be correct
// before the service starts. It aggregates every problem it finds.
func ValidateStatic(cfg *Config) error {
	var errs []error

	if err := validateServer(&cfg.Server); err != nil {
		errs = append(errs, err)
	}
	if err := validateBroker(&cfg.Broker); err != nil {
		errs = append(errs, err)
	}
	if err := validateLogging(&cfg.Logging); err != nil {
		errs = append(errs, err)
	}
	if err := validateOrchestrations(&cfg.Orchestrations); err != nil {
		errs = append(errs, err)
	}
	if err := validateBulk(&cfg.Bulk); err != nil {
		errs = append(errs, err)
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		errs = append(errs, err)
	}
	if err := validateRateLimit(&cfg.API.RateLimit); err != nil {
		errs = append(errs, err)
	}
	if err := validateTracing(&cfg.Tracing); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		var messages []string
		for _, err := range errs {
			messages = append(messages, err.Error())
		}
		return fmt.Errorf("%s", strings.Join(messages, "; "))
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", cfg.Port),
		}
	}
	return nil
}

func validateBroker(cfg *BrokerConfig) error {
	switch cfg.Type {
	case "kafka":
		return validateKafka(&cfg.Kafka)
	case "":
		return &ValidationError{
			Field:   "broker.type",
			Message: "must be set (supported: kafka)",
		}
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unsupported broker type '%s' (supported: kafka)", cfg.Type),
		}
	}
}

func validateKafka(cfg *KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one broker address is required",
		}
	}
	for i, broker := range cfg.Brokers {
		if strings.TrimSpace(broker) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address must not be empty",
			}
		}
	}
	if cfg.InputTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.input_topic",
			Message: "input topic is required",
		}
	}
	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "broker.kafka.retry.max_attempts",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Retry.MaxAttempts),
		}
	}
	if cfg.Retry.Multiplier != 0 && cfg.Retry.Multiplier < 1 {
		return &ValidationError{
			Field:   "broker.kafka.retry.multiplier",
			Message: fmt.Sprintf("must be >= 1, got %g", cfg.Retry.Multiplier),
		}
	}
	return nil
}

func validateLogging(cfg *LoggingConfig) error {
	switch cfg.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unsupported level '%s' (supported: debug, info, warn, error)", cfg.Level),
		}
	}
	switch cfg.Format {
	case "", "json", "console":
	default:
		return &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unsupported format '%s' (supported: json, console)", cfg.Format),
		}
	}
	return nil
}

func validateOrchestrations(cfg *OrchestrationsConfig) error {
	if cfg.File == "" && len(cfg.Files) == 0 {
		return &ValidationError{
			Field:   "orchestrations",
			Message: "either 'file' or a non-empty 'files' list is required",
		}
	}
	seen := make(map[string]struct{})
	for i, f := range cfg.Files {
		if strings.TrimSpace(f.Name) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("orchestrations.files[%d].name", i),
				Message: "name is required",
			}
		}
		if strings.TrimSpace(f.Path) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("orchestrations.files[%d].path", i),
				Message: "path is required",
			}
		}
		if _, dup := seen[f.Name]; dup {
			return &ValidationError{
				Field:   fmt.Sprintf("orchestrations.files[%d].name", i),
				Message: fmt.Sprintf("duplicate orchestration name '%s'", f.Name),
			}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func validateBulk(cfg *BulkConfig) error {
	if cfg.Workers < 0 {
		return &ValidationError{
			Field:   "bulk.workers",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Workers),
		}
	}
	return nil
}

func validateAudit(cfg *AuditConfig) error {
	if !cfg.Enabled {
		return nil
	}
	switch cfg.Sink {
	case "", "log":
		return nil
	case "mongodb":
		if cfg.MongoDB.URI == "" {
			return &ValidationError{
				Field:   "audit.mongodb.uri",
				Message: "uri is required for the mongodb audit sink",
			}
		}
		if cfg.MongoDB.Database == "" {
			return &ValidationError{
				Field:   "audit.mongodb.database",
				Message: "database is required for the mongodb audit sink",
			}
		}
		return nil
	default:
		return &ValidationError{
			Field:   "audit.sink",
			Message: fmt.Sprintf("unsupported sink '%s' (supported: log, mongodb)", cfg.Sink),
		}
	}
}

func validateRateLimit(cfg *RateLimitConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.RPS <= 0 {
		return &ValidationError{
			Field:   "api.rate_limit.rps",
			Message: fmt.Sprintf("must be positive when rate limiting is enabled, got %g", cfg.RPS),
		}
	}
	if cfg.Burst < 1 {
		return &ValidationError{
			Field:   "api.rate_limit.burst",
			Message: fmt.Sprintf("must be at least 1 when rate limiting is enabled, got %d", cfg.Burst),
		}
	}
	return nil
}

func validateTracing(cfg *TracingConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.OTLP.Endpoint == "" {
		return &ValidationError{
			Field:   "tracing.otlp.endpoint",
			Message: "endpoint is required when tracing is enabled",
		}
	}
	switch cfg.Sampler.Type {
	case "", "always_on", "always_off", "traceidratio", "parentbased_always_on", "parentbased_traceidratio":
	default:
		return &ValidationError{
			Field:   "tracing.sampler.type",
			Message: fmt.Sprintf("unsupported sampler '%s'", cfg.Sampler.Type),
		}
	}
	return nil
}
