package config_handler

import (
	"context"
	"encoding/json"

	"switchyard/internal/logger"
	"switchyard/pkg/models"
)

// OrchestrationReloader refreshes loaded rule sets. Implemented by the
// orchestration registry.
type OrchestrationReloader interface {
	Reload(ctx context.Context, name string) error
	ReloadAll(ctx context.Context) error
}

// Handler reacts to orchestration update events from the config update
// topic: it reloads the named rule set, or all of them when the event
// names none.
type Handler struct {
	expectedEventType string
	reloader          OrchestrationReloader
	logger            logger.Logger
}

func NewHandler(reloader OrchestrationReloader, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType: models.EventTypeOrchestrationUpdated,
		reloader:          reloader,
		logger:            log,
	}
}

func (h *Handler) HandleUpdateEvent(ctx context.Context, event models.Event) error {
	if event.Type != h.expectedEventType {
		return nil
	}

	var update models.OrchestrationUpdateEvent
	payload, err := json.Marshal(event.Context)
	if err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to marshal update payload", "error", err, "event_id", event.EventID)
		return err
	}
	if err := json.Unmarshal(payload, &update); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to unmarshal orchestration update", "error", err, "event_id", event.EventID)
		return err
	}

	h.logger.InfowCtx(ctx, "Received orchestration update event",
		"orchestration", update.Orchestration,
		"action", update.Action,
		"changed_by", update.ChangedBy,
	)

	if update.Orchestration == "" {
		if err := h.reloader.ReloadAll(ctx); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to reload orchestrations", "error", err)
			return err
		}
		h.logger.InfowCtx(ctx, "All orchestrations reloaded")
		return nil
	}

	if err := h.reloader.Reload(ctx, update.Orchestration); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload orchestration",
			"orchestration", update.Orchestration,
			"error", err,
		)
		return err
	}
	h.logger.InfowCtx(ctx, "Orchestration reloaded", "orchestration", update.Orchestration)
	return nil
}
