package config_handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"switchyard/internal/logger"
	"switchyard/pkg/models"
)

type fakeReloader struct {
	reloaded    []string
	reloadedAll int
}

func (r *fakeReloader) Reload(_ context.Context, name string) error {
	r.reloaded = append(r.reloaded, name)
	return nil
}

func (r *fakeReloader) ReloadAll(context.Context) error {
	r.reloadedAll++
	return nil
}

func TestHandleUpdateEventReloadsNamedOrchestration(t *testing.T) {
	reloader := &fakeReloader{}
	h := NewHandler(reloader, logger.NopLogger())

	err := h.HandleUpdateEvent(context.Background(), models.Event{
		Type: models.EventTypeOrchestrationUpdated,
		Context: map[string]interface{}{
			"orchestration": "orders",
			"action":        models.ActionReload,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, reloader.reloaded)
	assert.Zero(t, reloader.reloadedAll)
}

func TestHandleUpdateEventReloadsAllWhenUnnamed(t *testing.T) {
	reloader := &fakeReloader{}
	h := NewHandler(reloader, logger.NopLogger())

	err := h.HandleUpdateEvent(context.Background(), models.Event{
		Type:    models.EventTypeOrchestrationUpdated,
		Context: map[string]interface{}{"action": models.ActionReload},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, reloader.reloadedAll)
}

func TestHandleUpdateEventIgnoresOtherTypes(t *testing.T) {
	reloader := &fakeReloader{}
	h := NewHandler(reloader, logger.NopLogger())

	err := h.HandleUpdateEvent(context.Background(), models.Event{Type: "OrderCreated"})
	require.NoError(t, err)
	assert.Empty(t, reloader.reloaded)
	assert.Zero(t, reloader.reloadedAll)
}
