package routing

import (
	"context"
	"sort"
	"time"

	"switchyard/internal/logger"
	"switchyard/internal/orchestration"
	"switchyard/pkg/cel"
	"switchyard/pkg/metrics"
	"switchyard/pkg/models"
	"switchyard/pkg/tracing"
)

// Engine picks a destination target for an event using a rule set. Routing
// is a pure, total function: every (event, rule set) pair produces a
// Decision, never a panic or an error return. A condition that fails to
// evaluate is skipped and the scan continues.
type Engine struct {
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewEngine(evaluator *cel.Evaluator, log logger.Logger) *Engine {
	return &Engine{
		evaluator: evaluator,
		logger:    log,
	}
}

// Route resolves the destination for one event against one rule set.
//
// The first enabled route whose event type matches is used; its conditions
// are evaluated in ascending priority order (declaration order breaks ties)
// and the first match wins. When nothing matches, the route's default target
// applies if present.
func (e *Engine) Route(ctx context.Context, rs *orchestration.RuleSet, event models.Event) Decision {
	ctx, span := tracing.GetTracer("router-service").Start(ctx, "routing.route")
	defer span.End()

	start := time.Now()
	decision := e.route(ctx, rs, event)
	metrics.ObserveRoutingDuration(time.Since(start), decisionStatus(decision))
	return decision
}

func (e *Engine) route(ctx context.Context, rs *orchestration.RuleSet, event models.Event) Decision {
	if rs == nil {
		return NoRouteDecision(event.Type)
	}

	route := findRoute(rs, event.Type)
	if route == nil {
		e.logger.DebugwCtx(ctx, "No route for event type",
			"rule_set", rs.Name,
			"event_type", event.Type,
		)
		return NoRouteDecision(event.Type)
	}

	for _, cond := range orderedConditions(route) {
		matched, err := e.evaluator.Evaluate(ctx, cond.Condition, event)
		if err != nil {
			metrics.ConditionEvalErrorsTotal.WithLabelValues(rs.Name, event.Type).Inc()
			e.logger.WarnwCtx(ctx, "Condition evaluation failed, skipping branch",
				"rule_set", rs.Name,
				"event_type", event.Type,
				"condition", cond.Condition,
				"error", err,
			)
			continue
		}
		if matched {
			return SuccessDecision(event.Type, cond.Target, true)
		}
	}

	if route.DefaultTarget != "" {
		return SuccessDecision(event.Type, route.DefaultTarget, false)
	}

	return NoTargetDecision(event.Type)
}

// findRoute returns the first enabled route for the event type. Disabled
// routes are invisible: a later enabled route for the same type still wins.
func findRoute(rs *orchestration.RuleSet, eventType string) *orchestration.RouteDefinition {
	for i := range rs.Routes {
		route := &rs.Routes[i]
		if route.EventType == eventType && route.IsEnabled() {
			return route
		}
	}
	return nil
}

// orderedConditions returns the route's conditions sorted by ascending
// priority without mutating the shared rule set. The sort is stable so
// equal priorities keep declaration order.
func orderedConditions(route *orchestration.RouteDefinition) []orchestration.ConditionalRoute {
	if len(route.Conditions) == 0 {
		return nil
	}
	conditions := make([]orchestration.ConditionalRoute, len(route.Conditions))
	copy(conditions, route.Conditions)
	sort.SliceStable(conditions, func(i, j int) bool {
		return conditions[i].Priority < conditions[j].Priority
	})
	return conditions
}

func decisionStatus(d Decision) string {
	switch {
	case d.Success && d.ConditionalRouteUsed:
		return "conditional"
	case d.Success:
		return "default"
	default:
		return "unrouted"
	}
}
