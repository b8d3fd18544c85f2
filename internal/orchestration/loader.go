package orchestration

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"switchyard/internal/logger"
	"switchyard/pkg/cel"
)

// LoadError is a configuration load failure: missing resource, malformed
// YAML/JSON, or a schema violation such as a missing rule set name.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load rule set from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader parses one rule set resource into an immutable RuleSet.
type Loader interface {
	Load(path string) (*RuleSet, error)
}

// FileLoader reads YAML or JSON rule set files, chosen by extension
// (defaulting to YAML), and validates the result. Broken condition strings
// are warned about but kept: the engine treats them as non-matching at
// routing time.
type FileLoader struct {
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewFileLoader(evaluator *cel.Evaluator, log logger.Logger) *FileLoader {
	return &FileLoader{
		evaluator: evaluator,
		logger:    log,
	}
}

func (l *FileLoader) Load(path string) (*RuleSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		v.SetConfigType("yaml")
	case ".json":
		v.SetConfigType("json")
	default:
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var rs RuleSet
	if err := v.Unmarshal(&rs); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to unmarshal rule set: %w", err)}
	}

	if err := l.validate(&rs, path); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	return &rs, nil
}

func (l *FileLoader) validate(rs *RuleSet, path string) error {
	if strings.TrimSpace(rs.Name) == "" {
		return fmt.Errorf("rule set name is required")
	}

	seenTypes := make(map[string]struct{})
	for i := range rs.Routes {
		route := &rs.Routes[i]
		if strings.TrimSpace(route.EventType) == "" {
			return fmt.Errorf("routes[%d]: eventType is required", i)
		}

		if _, dup := seenTypes[route.EventType]; dup {
			l.logger.Warnw("Duplicate event type in rule set, first definition wins",
				"rule_set", rs.Name,
				"event_type", route.EventType,
				"path", path,
			)
		}
		seenTypes[route.EventType] = struct{}{}

		for j, cond := range route.Conditions {
			if strings.TrimSpace(cond.Condition) == "" {
				return fmt.Errorf("routes[%d].conditions[%d]: condition is required", i, j)
			}
			if strings.TrimSpace(cond.Target) == "" {
				return fmt.Errorf("routes[%d].conditions[%d]: target is required", i, j)
			}
			if l.evaluator != nil {
				if err := l.evaluator.ValidateCondition(cond.Condition); err != nil {
					l.logger.Warnw("Condition failed to compile, it will never match",
						"rule_set", rs.Name,
						"event_type", route.EventType,
						"condition", cond.Condition,
						"error", err,
					)
				}
			}
		}
	}

	return nil
}
