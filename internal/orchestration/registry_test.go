package orchestration

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/internal/config"
	"switchyard/internal/logger"
)

const primaryRulesYAML = `
name: primary-rules
routes:
  - eventType: OrderCreated
    defaultTarget: orders-queue
`

const secondaryRulesYAML = `
name: secondary-rules
routes:
  - eventType: ShipmentDispatched
    defaultTarget: shipments-queue
`

func newTestRegistry(t *testing.T, cfg config.OrchestrationsConfig) *Registry {
	t.Helper()
	return NewRegistry(newTestLoader(), cfg, logger.NopLogger())
}

func TestLoadAllNamedFiles(t *testing.T) {
	primary := writeRuleFile(t, "primary.yml", primaryRulesYAML)
	secondary := writeRuleFile(t, "secondary.yml", secondaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "primary", Path: primary},
			{Name: "secondary", Path: secondary},
		},
		Default: "secondary",
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	assert.Equal(t, []string{"primary", "secondary"}, reg.Names())
	assert.Equal(t, "secondary", reg.DefaultName())
	assert.True(t, reg.IsValid("primary"))
	assert.False(t, reg.IsValid("tertiary"))
}

func TestLoadAllDefaultsToFirstLoaded(t *testing.T) {
	primary := writeRuleFile(t, "primary.yml", primaryRulesYAML)
	secondary := writeRuleFile(t, "secondary.yml", secondaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "primary", Path: primary},
			{Name: "secondary", Path: secondary},
		},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	assert.Equal(t, "primary", reg.DefaultName())
}

func TestLoadAllLegacySingleFile(t *testing.T) {
	path := writeRuleFile(t, "rules.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{File: path})
	require.NoError(t, reg.LoadAll(context.Background()))

	// legacy mode names the orchestration after the rule set itself
	assert.Equal(t, []string{"primary-rules"}, reg.Names())
	assert.Equal(t, "primary-rules", reg.DefaultName())
}

func TestLoadAllFailsFastOnBrokenFile(t *testing.T) {
	good := writeRuleFile(t, "good.yml", primaryRulesYAML)
	bad := writeRuleFile(t, "bad.yml", "routes: [unclosed")

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "good", Path: good},
			{Name: "bad", Path: bad},
		},
	})

	require.Error(t, reg.LoadAll(context.Background()))
	assert.Empty(t, reg.Names())
}

func TestLoadAllRejectsUnknownDefault(t *testing.T) {
	path := writeRuleFile(t, "primary.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files:   []config.OrchestrationFile{{Name: "primary", Path: path}},
		Default: "missing",
	})

	require.Error(t, reg.LoadAll(context.Background()))
}

func TestLoadAllRejectsNoSources(t *testing.T) {
	reg := newTestRegistry(t, config.OrchestrationsConfig{})
	require.Error(t, reg.LoadAll(context.Background()))
}

func TestIsValidRequiresRoutes(t *testing.T) {
	primary := writeRuleFile(t, "primary.yml", primaryRulesYAML)
	// route-less rule sets load fine but cannot route anything
	empty := writeRuleFile(t, "empty.yml", "name: staged-rules\n")

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "primary", Path: primary},
			{Name: "staged", Path: empty},
		},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	assert.True(t, reg.IsValid("primary"))
	assert.False(t, reg.IsValid("staged"))
}

func TestResolve(t *testing.T) {
	primary := writeRuleFile(t, "primary.yml", primaryRulesYAML)
	secondary := writeRuleFile(t, "secondary.yml", secondaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "primary", Path: primary},
			{Name: "secondary", Path: secondary},
		},
	})
	require.NoError(t, reg.LoadAll(context.Background()))
	ctx := context.Background()

	assert.Equal(t, "primary-rules", reg.Resolve(ctx, "").Name)
	assert.Equal(t, "secondary-rules", reg.Resolve(ctx, "secondary").Name)
	// unknown names fall back to the default instead of failing the event
	assert.Equal(t, "primary-rules", reg.Resolve(ctx, "no-such-orchestration").Name)
}

func TestReloadSwapsRuleSet(t *testing.T) {
	path := writeRuleFile(t, "primary.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{{Name: "primary", Path: path}},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	require.NoError(t, writeFile(path, `
name: primary-rules
routes:
  - eventType: OrderCreated
    defaultTarget: orders-queue
  - eventType: OrderCancelled
    defaultTarget: cancellations-queue
`))
	require.NoError(t, reg.Reload(context.Background(), "primary"))

	rs, ok := reg.Get("primary")
	require.True(t, ok)
	assert.Len(t, rs.Routes, 2)
}

func TestReloadKeepsOldRuleSetOnFailure(t *testing.T) {
	path := writeRuleFile(t, "primary.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{{Name: "primary", Path: path}},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	require.NoError(t, writeFile(path, "routes: [unclosed"))
	require.Error(t, reg.Reload(context.Background(), "primary"))

	rs, ok := reg.Get("primary")
	require.True(t, ok)
	assert.Len(t, rs.Routes, 1)
}

func TestReloadUnknownName(t *testing.T) {
	path := writeRuleFile(t, "primary.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{{Name: "primary", Path: path}},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	require.Error(t, reg.Reload(context.Background(), "absent"))
}

func TestRegistryTargets(t *testing.T) {
	primary := writeRuleFile(t, "primary.yml", primaryRulesYAML)
	secondary := writeRuleFile(t, "secondary.yml", secondaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{
			{Name: "primary", Path: primary},
			{Name: "secondary", Path: secondary},
		},
	})
	require.NoError(t, reg.LoadAll(context.Background()))

	assert.ElementsMatch(t, []string{"orders-queue", "shipments-queue"}, reg.Targets())
}

func TestConcurrentResolveDuringReload(t *testing.T) {
	path := writeRuleFile(t, "primary.yml", primaryRulesYAML)

	reg := newTestRegistry(t, config.OrchestrationsConfig{
		Files: []config.OrchestrationFile{{Name: "primary", Path: path}},
	})
	require.NoError(t, reg.LoadAll(context.Background()))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				rs := reg.Resolve(ctx, "primary")
				// readers always see a complete snapshot
				require.NotNil(t, rs)
				require.Equal(t, "primary-rules", rs.Name)
				require.NotEmpty(t, rs.Routes)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = reg.Reload(ctx, "primary")
		}
	}()

	wg.Wait()
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
