package orchestration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/internal/logger"
	"switchyard/pkg/cel"
)

const orderRulesYAML = `
name: order-processing
version: "2.1"
description: Routes order lifecycle events
settings:
  queuePrefix: orders
  auditEnabled: true
routes:
  - eventType: OrderCreated
    conditions:
      - condition: "customerTier == 'premium'"
        target: premium-orders
        priority: 1
      - condition: "orderTotal > 1000.0"
        target: high-value-orders
        priority: 2
    defaultTarget: standard-orders
  - eventType: OrderCancelled
    enabled: false
    defaultTarget: cancelled-orders
  - eventType: PaymentProcessed
    defaultTarget: payment-events
`

func writeRuleFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader() *FileLoader {
	return NewFileLoader(cel.NewEvaluator(), logger.NopLogger())
}

func TestLoadYAMLRuleSet(t *testing.T) {
	path := writeRuleFile(t, "orders.yml", orderRulesYAML)

	rs, err := newTestLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, "order-processing", rs.Name)
	assert.Equal(t, "2.1", rs.Version)
	assert.True(t, rs.Settings.AuditEnabled)
	require.Len(t, rs.Routes, 3)

	created := rs.Routes[0]
	assert.Equal(t, "OrderCreated", created.EventType)
	assert.True(t, created.IsEnabled())
	require.Len(t, created.Conditions, 2)
	assert.Equal(t, "premium-orders", created.Conditions[0].Target)
	assert.Equal(t, 1, created.Conditions[0].Priority)
	assert.Equal(t, "standard-orders", created.DefaultTarget)

	cancelled := rs.Routes[1]
	assert.False(t, cancelled.IsEnabled())
}

func TestLoadJSONRuleSet(t *testing.T) {
	path := writeRuleFile(t, "orders.json", `{
  "name": "order-processing",
  "routes": [
    {
      "eventType": "OrderCreated",
      "conditions": [
        {"condition": "customerTier == 'premium'", "target": "premium-orders", "priority": 1}
      ],
      "defaultTarget": "standard-orders"
    }
  ]
}`)

	rs, err := newTestLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "order-processing", rs.Name)
	require.Len(t, rs.Routes, 1)
	assert.Equal(t, "standard-orders", rs.Routes[0].DefaultTarget)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := newTestLoader().Load(filepath.Join(t.TempDir(), "absent.yml"))

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeRuleFile(t, "broken.yml", "routes: [unclosed")

	_, err := newTestLoader().Load(path)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadRejectsMissingName(t *testing.T) {
	path := writeRuleFile(t, "nameless.yml", `
routes:
  - eventType: OrderCreated
    defaultTarget: standard-orders
`)

	_, err := newTestLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadRejectsMissingEventType(t *testing.T) {
	path := writeRuleFile(t, "notype.yml", `
name: broken
routes:
  - defaultTarget: somewhere
`)

	_, err := newTestLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eventType is required")
}

func TestLoadRejectsEmptyCondition(t *testing.T) {
	path := writeRuleFile(t, "emptycond.yml", `
name: broken
routes:
  - eventType: OrderCreated
    conditions:
      - condition: "   "
        target: somewhere
        priority: 1
`)

	_, err := newTestLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "condition is required")
}

func TestLoadRejectsMissingTarget(t *testing.T) {
	path := writeRuleFile(t, "notarget.yml", `
name: broken
routes:
  - eventType: OrderCreated
    conditions:
      - condition: "customerTier == 'premium'"
        priority: 1
`)

	_, err := newTestLoader().Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target is required")
}

func TestLoadKeepsUncompilableCondition(t *testing.T) {
	// broken conditions are warned about, not rejected; the engine treats
	// them as non-matching
	path := writeRuleFile(t, "warncond.yml", `
name: tolerant
routes:
  - eventType: OrderCreated
    conditions:
      - condition: "customerTier === 'premium'"
        target: premium-orders
        priority: 1
    defaultTarget: standard-orders
`)

	rs, err := newTestLoader().Load(path)
	require.NoError(t, err)
	require.Len(t, rs.Routes[0].Conditions, 1)
}

func TestLoadAllowsDuplicateEventTypes(t *testing.T) {
	path := writeRuleFile(t, "dup.yml", `
name: duplicated
routes:
  - eventType: OrderCreated
    defaultTarget: first-queue
  - eventType: OrderCreated
    defaultTarget: second-queue
`)

	rs, err := newTestLoader().Load(path)
	require.NoError(t, err)
	require.Len(t, rs.Routes, 2)
	assert.Equal(t, "first-queue", rs.Routes[0].DefaultTarget)
}

func TestRuleSetTargets(t *testing.T) {
	path := writeRuleFile(t, "orders.yml", orderRulesYAML)
	rs, err := newTestLoader().Load(path)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"premium-orders",
		"high-value-orders",
		"standard-orders",
		"cancelled-orders",
		"payment-events",
	}, rs.Targets())
}
