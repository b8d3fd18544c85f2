package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/internal/logger"
	"switchyard/internal/orchestration"
	"switchyard/pkg/cel"
	"switchyard/pkg/models"
)

func newTestEngine() *Engine {
	return NewEngine(cel.NewEvaluator(), logger.NopLogger())
}

func boolPtr(b bool) *bool { return &b }

func orderRuleSet() *orchestration.RuleSet {
	return &orchestration.RuleSet{
		Name: "order-processing",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "OrderCreated",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `customerTier == 'premium'`, Target: "premium-orders", Priority: 1},
					{Condition: `orderTotal > 1000.0`, Target: "high-value-orders", Priority: 2},
				},
				DefaultTarget: "standard-orders",
			},
			{
				EventType:     "PaymentProcessed",
				DefaultTarget: "payment-events",
			},
			{
				EventType:     "LegacyEvent",
				Enabled:       boolPtr(false),
				DefaultTarget: "legacy-queue",
			},
			{
				EventType: "InventoryReserved",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `warehouse == 'east'`, Target: "east-inventory", Priority: 1},
				},
			},
		},
	}
}

func orderEvent(ctx map[string]interface{}) models.Event {
	return models.Event{
		EventID: "evt-1",
		Type:    "OrderCreated",
		Context: ctx,
	}
}

func TestRoutePicksFirstMatchingCondition(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, orderEvent(map[string]interface{}{
		"customerTier": "premium",
		"orderTotal":   2000.0,
	}))

	require.True(t, d.Success)
	assert.Equal(t, "premium-orders", d.Target)
	assert.True(t, d.ConditionalRouteUsed)
	assert.Empty(t, d.ErrorMessage)
}

func TestRouteFallsThroughToLaterCondition(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, orderEvent(map[string]interface{}{
		"customerTier": "standard",
		"orderTotal":   2000.0,
	}))

	require.True(t, d.Success)
	assert.Equal(t, "high-value-orders", d.Target)
	assert.True(t, d.ConditionalRouteUsed)
}

func TestRouteUsesDefaultTarget(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, orderEvent(map[string]interface{}{
		"customerTier": "standard",
		"orderTotal":   50.0,
	}))

	require.True(t, d.Success)
	assert.Equal(t, "standard-orders", d.Target)
	assert.False(t, d.ConditionalRouteUsed)
}

func TestRoutePriorityOrderNotDeclarationOrder(t *testing.T) {
	engine := newTestEngine()
	rs := &orchestration.RuleSet{
		Name: "priorities",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "Evt",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `false`, Target: "q2", Priority: 2},
					{Condition: `true`, Target: "q1", Priority: 1},
					{Condition: `true`, Target: "q3", Priority: 3},
				},
			},
		},
	}

	d := engine.Route(context.Background(), rs, models.Event{Type: "Evt"})
	require.True(t, d.Success)
	assert.Equal(t, "q1", d.Target)
}

func TestRouteStableOrderOnEqualPriority(t *testing.T) {
	engine := newTestEngine()
	rs := &orchestration.RuleSet{
		Name: "ties",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "Evt",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `true`, Target: "first", Priority: 5},
					{Condition: `true`, Target: "second", Priority: 5},
				},
			},
		},
	}

	d := engine.Route(context.Background(), rs, models.Event{Type: "Evt"})
	require.True(t, d.Success)
	assert.Equal(t, "first", d.Target)
}

func TestRouteDoesNotMutateRuleSet(t *testing.T) {
	engine := newTestEngine()
	rs := &orchestration.RuleSet{
		Name: "shared",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "Evt",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `false`, Target: "q2", Priority: 2},
					{Condition: `true`, Target: "q1", Priority: 1},
				},
			},
		},
	}

	engine.Route(context.Background(), rs, models.Event{Type: "Evt"})

	assert.Equal(t, "q2", rs.Routes[0].Conditions[0].Target)
	assert.Equal(t, 2, rs.Routes[0].Conditions[0].Priority)
}

func TestRouteSkipsDisabledRoute(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, models.Event{Type: "LegacyEvent"})

	assert.False(t, d.Success)
	assert.Equal(t, "no route found for event type: LegacyEvent", d.ErrorMessage)
}

func TestRouteNoRouteForUnknownType(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, models.Event{Type: "Unknown"})

	assert.False(t, d.Success)
	assert.Empty(t, d.Target)
	assert.Equal(t, "no route found for event type: Unknown", d.ErrorMessage)
}

func TestRouteNoTargetWhenNothingMatches(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()

	d := engine.Route(context.Background(), rs, models.Event{
		Type:    "InventoryReserved",
		Context: map[string]interface{}{"warehouse": "west"},
	})

	assert.False(t, d.Success)
	assert.Equal(t, "no target found for event type: InventoryReserved", d.ErrorMessage)
}

func TestRouteContinuesPastFaultyCondition(t *testing.T) {
	engine := newTestEngine()
	rs := &orchestration.RuleSet{
		Name: "faulty",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "Evt",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `tier > 10`, Target: "broken", Priority: 1},
					{Condition: `tier == 'gold'`, Target: "gold-queue", Priority: 2},
				},
				DefaultTarget: "fallback-queue",
			},
		},
	}

	d := engine.Route(context.Background(), rs, models.Event{
		Type:    "Evt",
		Context: map[string]interface{}{"tier": "gold"},
	})

	require.True(t, d.Success)
	assert.Equal(t, "gold-queue", d.Target)
	assert.True(t, d.ConditionalRouteUsed)
}

func TestRouteFaultyConditionFallsToDefault(t *testing.T) {
	engine := newTestEngine()
	rs := &orchestration.RuleSet{
		Name: "faulty",
		Routes: []orchestration.RouteDefinition{
			{
				EventType: "Evt",
				Conditions: []orchestration.ConditionalRoute{
					{Condition: `tier > 10`, Target: "broken", Priority: 1},
				},
				DefaultTarget: "fallback-queue",
			},
		},
	}

	d := engine.Route(context.Background(), rs, models.Event{
		Type:    "Evt",
		Context: map[string]interface{}{"tier": "gold"},
	})

	require.True(t, d.Success)
	assert.Equal(t, "fallback-queue", d.Target)
	assert.False(t, d.ConditionalRouteUsed)
}

func TestRouteNilRuleSet(t *testing.T) {
	engine := newTestEngine()

	d := engine.Route(context.Background(), nil, models.Event{Type: "Evt"})

	assert.False(t, d.Success)
	assert.Equal(t, "no route found for event type: Evt", d.ErrorMessage)
}

func TestRouteIsDeterministic(t *testing.T) {
	engine := newTestEngine()
	rs := orderRuleSet()
	event := orderEvent(map[string]interface{}{
		"customerTier": "premium",
		"orderTotal":   500.0,
	})

	first := engine.Route(context.Background(), rs, event)
	for i := 0; i < 25; i++ {
		assert.Equal(t, first, engine.Route(context.Background(), rs, event))
	}
}
