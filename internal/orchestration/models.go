package orchestration

// RuleSet is one named, versioned collection of routing rules loaded from a
// single YAML or JSON resource. Rule sets are immutable once published by
// the registry; a reload builds a fresh value and swaps the reference.
type RuleSet struct {
	Name        string            `json:"name" mapstructure:"name"`
	Version     string            `json:"version,omitempty" mapstructure:"version"`
	Description string            `json:"description,omitempty" mapstructure:"description"`
	Routes      []RouteDefinition `json:"routes" mapstructure:"routes"`
	Settings    Settings          `json:"settings" mapstructure:"settings"`
}

type Settings struct {
	QueuePrefix      string `json:"queuePrefix,omitempty" mapstructure:"queuePrefix"`
	AuditEnabled     bool   `json:"auditEnabled" mapstructure:"auditEnabled"`
	MetricsEnabled   bool   `json:"metricsEnabled" mapstructure:"metricsEnabled"`
	DefaultTimeoutMs int64  `json:"defaultTimeoutMs,omitempty" mapstructure:"defaultTimeoutMs"`
}

// RouteDefinition is the rule set's entry for one event type. When two
// definitions share an event type the first one in declaration order wins;
// the loader warns about such duplicates instead of rejecting them.
type RouteDefinition struct {
	EventType     string             `json:"eventType" mapstructure:"eventType"`
	Description   string             `json:"description,omitempty" mapstructure:"description"`
	Conditions    []ConditionalRoute `json:"conditions,omitempty" mapstructure:"conditions"`
	DefaultTarget string             `json:"defaultTarget,omitempty" mapstructure:"defaultTarget"`
	Enabled       *bool              `json:"enabled,omitempty" mapstructure:"enabled"`
	Tags          []string           `json:"tags,omitempty" mapstructure:"tags"`
}

// IsEnabled treats an absent enabled flag as true, matching the wire format.
func (r *RouteDefinition) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ConditionalRoute is one (condition, target, priority) branch within a
// route. Lower priority evaluates first; ties keep declaration order.
type ConditionalRoute struct {
	Condition   string `json:"condition" mapstructure:"condition"`
	Target      string `json:"target" mapstructure:"target"`
	Description string `json:"description,omitempty" mapstructure:"description"`
	Priority    int    `json:"priority" mapstructure:"priority"`
}

// Targets returns every distinct target the rule set can route to,
// conditional branches and defaults alike. Used for queue provisioning.
func (rs *RuleSet) Targets() []string {
	seen := make(map[string]struct{})
	var targets []string
	add := func(t string) {
		if t == "" {
			return
		}
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}

	for _, route := range rs.Routes {
		for _, cond := range route.Conditions {
			add(cond.Target)
		}
		add(route.DefaultTarget)
	}
	return targets
}
