package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"switchyard/internal/constants"
	"switchyard/internal/logger"
	"switchyard/internal/orchestration"
	"switchyard/internal/orchestrator"
	"switchyard/pkg/errors"
	"switchyard/pkg/metrics"
	"switchyard/pkg/models"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	service  *orchestrator.Service
	registry *orchestration.Registry
}

func NewHandler(service *orchestrator.Service, registry *orchestration.Registry, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{Logger: log},
		service:     service,
		registry:    registry,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		events := v1.Group("/events")
		{
			events.POST("", h.RouteEvent)
			events.POST("/dry-run", h.DryRun)
			events.POST("/bulk", h.BulkEvents)
			events.POST("/bulk-array", h.BulkEventsArray)
			events.POST("/bulk-ndjson", h.BulkEventsNDJSON)
		}

		cfg := v1.Group("/config")
		{
			cfg.GET("", h.GetConfig)
			cfg.POST("/reload", h.ReloadConfig)
		}

		orchestrations := v1.Group("/orchestrations")
		{
			orchestrations.GET("", h.ListOrchestrations)
			orchestrations.GET("/:name", h.GetOrchestration)
			orchestrations.POST("/:name/reload", h.ReloadOrchestration)
		}
	}
}

// RouteEvent godoc
// @Summary      Route a single event
// @Description  Route an event through its orchestration and dispatch it to the resolved target queue
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body      models.Event  true  "Event to route"
// @Success      200    {object}  routing.Decision
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      422    {object}  routing.Decision
// @Router       /events [post]
func (h *Handler) RouteEvent(c *gin.Context) {
	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	decision, err := h.service.ProcessEvent(c.Request.Context(), event)
	if err != nil {
		if errors.IsValidation(err) {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(err))
			return
		}
		h.HandleError(c, err)
		return
	}

	if !decision.Success {
		c.JSON(http.StatusUnprocessableEntity, decision)
		return
	}
	c.JSON(http.StatusOK, decision)
}

// DryRun godoc
// @Summary      Evaluate routing without dispatching
// @Description  Resolve the target for an event without publishing it or writing the audit trail
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        event  body      models.Event  true  "Event to evaluate"
// @Success      200    {object}  routing.Decision
// @Failure      400    {object}  errors.ErrorResponse
// @Router       /events/dry-run [post]
func (h *Handler) DryRun(c *gin.Context) {
	var event models.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	decision := h.service.DryRun(c.Request.Context(), event)
	c.JSON(http.StatusOK, decision)
}

// BulkEvents godoc
// @Summary      Submit a batch of events
// @Description  Accept a wrapped batch of events for asynchronous routing; returns immediately
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      models.BulkEventRequest  true  "Batch of events"
// @Success      202      {object}  models.BulkEventResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Router       /events/bulk [post]
func (h *Handler) BulkEvents(c *gin.Context) {
	var req models.BulkEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}
	h.acceptBulk(c, "wrapper", req.Events)
}

// BulkEventsArray godoc
// @Summary      Submit a bare array of events
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        events  body      []models.Event  true  "Array of events"
// @Success      202     {object}  models.BulkEventResponse
// @Failure      400     {object}  errors.ErrorResponse
// @Router       /events/bulk-array [post]
func (h *Handler) BulkEventsArray(c *gin.Context) {
	var events []models.Event
	if err := c.ShouldBindJSON(&events); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}
	h.acceptBulk(c, "array", events)
}

// BulkEventsNDJSON godoc
// @Summary      Submit newline-delimited events
// @Description  Accept one JSON event per line; malformed lines fail the whole request
// @Tags         events
// @Accept       json
// @Produce      json
// @Success      202  {object}  models.BulkEventResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /events/bulk-ndjson [post]
func (h *Handler) BulkEventsNDJSON(c *gin.Context) {
	var events []models.Event

	scanner := bufio.NewScanner(c.Request.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
				errors.ErrValidation.
					WithCause(err).
					WithDetail("line", line),
			))
			return
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	h.acceptBulk(c, "ndjson", events)
}

// acceptBulk validates batch limits and hands the events to a background
// worker pool. The response reports acceptance, not routing outcomes.
func (h *Handler) acceptBulk(c *gin.Context, mode string, events []models.Event) {
	if len(events) == 0 {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("message", "at least one event is required"),
		))
		return
	}
	if len(events) > constants.MaxBulkEvents {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(
			errors.ErrValidation.WithDetail("message", "batch exceeds maximum size"),
		))
		return
	}

	metrics.IncBulkEvent(mode, "accepted")

	go func() {
		resp := h.service.ProcessBatch(context.Background(), events)
		if resp.Failed > 0 {
			h.Logger.Warnw("Bulk batch finished with failures",
				"mode", mode,
				"total", resp.Total,
				"failed", resp.Failed,
			)
		}
	}()

	c.JSON(http.StatusAccepted, models.BulkEventResponse{Total: len(events)})
}

// GetConfig godoc
// @Summary      Show the active routing configuration
// @Tags         config
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /config [get]
func (h *Handler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"orchestrations": h.registry.Names(),
		"default":        h.registry.DefaultName(),
	})
}

// ReloadConfig godoc
// @Summary      Reload every orchestration from disk
// @Tags         config
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /config/reload [post]
func (h *Handler) ReloadConfig(c *gin.Context) {
	if err := h.registry.ReloadAll(c.Request.Context()); err != nil {
		h.HandleError(c, errors.ErrInternal.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reloaded": h.registry.Names(),
	})
}

// ListOrchestrations godoc
// @Summary      List loaded orchestration names
// @Tags         orchestrations
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /orchestrations [get]
func (h *Handler) ListOrchestrations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"orchestrations": h.registry.Names(),
		"default":        h.registry.DefaultName(),
	})
}

// GetOrchestration godoc
// @Summary      Show one orchestration's rule set
// @Tags         orchestrations
// @Produce      json
// @Param        name  path      string  true  "Orchestration name"
// @Success      200   {object}  orchestration.RuleSet
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /orchestrations/{name} [get]
func (h *Handler) GetOrchestration(c *gin.Context) {
	name := c.Param("name")
	rs, ok := h.registry.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, errors.ToErrorResponse(
			errors.ErrNotFound.WithDetail("message", "unknown orchestration: "+name),
		))
		return
	}
	c.JSON(http.StatusOK, rs)
}

// ReloadOrchestration godoc
// @Summary      Reload one orchestration from disk
// @Tags         orchestrations
// @Produce      json
// @Param        name  path      string  true  "Orchestration name"
// @Success      200   {object}  map[string]interface{}
// @Failure      404   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /orchestrations/{name}/reload [post]
func (h *Handler) ReloadOrchestration(c *gin.Context) {
	name := c.Param("name")
	if !h.registry.IsValid(name) {
		c.JSON(http.StatusNotFound, errors.ToErrorResponse(
			errors.ErrNotFound.WithDetail("message", "unknown orchestration: "+name),
		))
		return
	}
	if err := h.registry.Reload(c.Request.Context(), name); err != nil {
		h.HandleError(c, errors.ErrInternal.WithCause(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reloaded": name})
}
