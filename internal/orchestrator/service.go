package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"switchyard/internal/audit"
	"switchyard/internal/constants"
	"switchyard/internal/dispatch"
	"switchyard/internal/logger"
	"switchyard/internal/orchestration"
	"switchyard/internal/routing"
	"switchyard/pkg/errors"
	"switchyard/pkg/logging"
	"switchyard/pkg/metrics"
	"switchyard/pkg/models"
	"switchyard/pkg/tracing"
)

// Service is the event pipeline: resolve the orchestration, route the
// event, dispatch it to its target, and record the audit trail. Routing
// failures fall through to the dead-letter target so no accepted event is
// silently lost.
type Service struct {
	registry         *orchestration.Registry
	engine           *routing.Engine
	dispatcher       *dispatch.Dispatcher
	trail            *audit.Trail
	deadLetterTarget string
	workers          int
	logger           logger.Logger
}

func NewService(
	registry *orchestration.Registry,
	engine *routing.Engine,
	dispatcher *dispatch.Dispatcher,
	trail *audit.Trail,
	deadLetterTarget string,
	workers int,
	log logger.Logger,
) *Service {
	if workers <= 0 {
		workers = constants.DefaultBulkWorkers
	}
	return &Service{
		registry:         registry,
		engine:           engine,
		dispatcher:       dispatcher,
		trail:            trail,
		deadLetterTarget: deadLetterTarget,
		workers:          workers,
		logger:           log,
	}
}

// routed is the pre-dispatch outcome of one event.
type routed struct {
	event    models.Event
	ruleSet  string
	decision routing.Decision
	err      error
}

// route runs the pipeline up to dispatch: normalize, validate, resolve the
// orchestration, route. Events that never reach a target are audited and
// dead-lettered here.
func (s *Service) route(ctx context.Context, event models.Event) (context.Context, routed) {
	event = event.Normalized()
	ctx = logging.WithEventID(ctx, event.EventID)
	if event.CorrelationID != "" {
		ctx = logging.WithCorrelationID(ctx, event.CorrelationID)
	}

	if verr := models.ValidateEvent(&event); verr != nil {
		s.audit(event, audit.StageError, "", verr.Error())
		metrics.IncEventRouted(event.OrchestrationName, "invalid")
		return ctx, routed{
			event:    event,
			ruleSet:  event.OrchestrationName,
			decision: routing.ErrorDecision(event.Type, verr.Error()),
			err:      errors.ErrValidation.WithDetail("message", verr.Error()),
		}
	}

	s.audit(event, audit.StageReceived, "", "")

	rs := s.registry.Resolve(ctx, event.OrchestrationName)
	decision := s.engine.Route(ctx, rs, event)

	if !decision.Success {
		s.logger.WarnwCtx(ctx, "Event could not be routed",
			"event_type", event.Type,
			"error", decision.ErrorMessage,
		)
		s.audit(event, audit.StageFailed, "", decision.ErrorMessage)
		metrics.IncEventRouted(ruleSetName(rs), "unrouted")
		s.sendToDeadLetter(ctx, event, decision.ErrorMessage)
	}

	return ctx, routed{event: event, ruleSet: ruleSetName(rs), decision: decision}
}

// ProcessEvent routes and dispatches one event. The returned decision
// reports the routing outcome; the error reports a delivery failure.
func (s *Service) ProcessEvent(ctx context.Context, event models.Event) (routing.Decision, error) {
	ctx, span := tracing.GetTracer(constants.ServiceName).Start(ctx, "orchestrator.process_event")
	defer span.End()

	ctx, r := s.route(ctx, event)
	if r.err != nil || !r.decision.Success {
		return r.decision, r.err
	}

	if err := s.dispatcher.Dispatch(ctx, r.decision.Target, r.event); err != nil {
		s.audit(r.event, audit.StageError, r.decision.Target, err.Error())
		metrics.IncEventRouted(r.ruleSet, "dispatch_error")
		// the caller owns retry here; dead-lettering a retried dispatch
		// would publish the event once per attempt
		return r.decision, err
	}

	s.audit(r.event, audit.StageRouted, r.decision.Target, "")
	metrics.IncEventRouted(r.ruleSet, "routed")
	s.logger.InfowCtx(ctx, "Event routed",
		"event_type", r.event.Type,
		"target", r.decision.Target,
		"conditional", r.decision.ConditionalRouteUsed,
	)
	return r.decision, nil
}

// DryRun routes an event without dispatching it or touching the audit
// trail.
func (s *Service) DryRun(ctx context.Context, event models.Event) routing.Decision {
	event = event.Normalized()
	rs := s.registry.Resolve(ctx, event.OrchestrationName)
	return s.engine.Route(ctx, rs, event)
}

// ProcessBatch routes every event concurrently on a bounded worker pool,
// then publishes one batch write per target. Per-event failures are
// reported without aborting the batch.
func (s *Service) ProcessBatch(ctx context.Context, events []models.Event) models.BulkEventResponse {
	start := time.Now()
	response := models.BulkEventResponse{Total: len(events)}
	if len(events) == 0 {
		return response
	}

	outcomes := make([]routed, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, event := range events {
		g.Go(func() error {
			_, outcomes[i] = s.route(gctx, event)
			return nil
		})
	}
	_ = g.Wait()

	byTarget := make(map[string][]models.Event)
	for _, o := range outcomes {
		if o.err == nil && o.decision.Success {
			byTarget[o.decision.Target] = append(byTarget[o.decision.Target], o.event)
		}
	}
	dispatchErrs := s.dispatcher.DispatchBatch(ctx, byTarget)

	for _, o := range outcomes {
		switch {
		case o.err != nil:
			response.Failed++
			response.Failures = append(response.Failures, failedEvent(o.event, o.err.Error()))
		case !o.decision.Success:
			response.Failed++
			response.Failures = append(response.Failures, failedEvent(o.event, o.decision.ErrorMessage))
		default:
			if derr, ok := dispatchErrs[o.decision.Target]; ok {
				s.audit(o.event, audit.StageError, o.decision.Target, derr.Error())
				metrics.IncEventRouted(o.ruleSet, "dispatch_error")
				// nothing retries the bulk path, so a failed batch
				// dead-letters its events here
				s.sendToDeadLetter(ctx, o.event, derr.Error())
				response.Failed++
				response.Failures = append(response.Failures, failedEvent(o.event, derr.Error()))
				continue
			}
			s.audit(o.event, audit.StageRouted, o.decision.Target, "")
			metrics.IncEventRouted(o.ruleSet, "routed")
			response.Successful++
		}
	}

	response.DurationMs = time.Since(start).Milliseconds()
	return response
}

func (s *Service) sendToDeadLetter(ctx context.Context, event models.Event, reason string) {
	if s.deadLetterTarget == "" {
		return
	}

	// annotate a copy of the metadata; the caller's event stays untouched
	metadata := make(map[string]string, len(event.Metadata)+1)
	for k, v := range event.Metadata {
		metadata[k] = v
	}
	metadata["dead_letter_reason"] = reason
	event.Metadata = metadata

	if err := s.dispatcher.Dispatch(ctx, s.deadLetterTarget, event); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to send event to dead-letter target",
			"target", s.deadLetterTarget,
			"error", err,
		)
		return
	}
	metrics.IncDeadLetter(reason)
}

func (s *Service) audit(event models.Event, stage audit.Stage, target, detail string) {
	if s.trail == nil {
		return
	}
	s.trail.Record(event, stage, target, detail)
}

func ruleSetName(rs *orchestration.RuleSet) string {
	if rs == nil {
		return "unknown"
	}
	return rs.Name
}

func failedEvent(event models.Event, reason string) models.FailedEvent {
	return models.FailedEvent{
		EventID:       event.EventID,
		CorrelationID: event.CorrelationID,
		Type:          event.Type,
		Error:         reason,
	}
}
