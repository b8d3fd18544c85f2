package dispatch

import (
	"context"
	"fmt"
	"time"

	"switchyard/internal/broker"
	"switchyard/internal/config"
	"switchyard/internal/logger"
	"switchyard/pkg/circuitbreaker"
	"switchyard/pkg/metrics"
	"switchyard/pkg/models"
)

// Dispatcher delivers routed events to their target queues. Delivery runs
// through a circuit breaker so a broker outage fails fast instead of
// stacking up blocked publishes.
type Dispatcher struct {
	producer broker.Producer
	breaker  *circuitbreaker.Wrapper
	logger   logger.Logger
}

func NewDispatcher(producer broker.Producer, cbCfg config.CircuitBreakerConfig, log logger.Logger) *Dispatcher {
	d := &Dispatcher{
		producer: producer,
		logger:   log,
	}

	if cbCfg.Enabled {
		cfg := circuitbreaker.DefaultConfig("dispatcher")
		if cbCfg.MaxRequests > 0 {
			cfg.MaxRequests = cbCfg.MaxRequests
		}
		if cbCfg.Interval > 0 {
			cfg.Interval = cbCfg.Interval
		}
		if cbCfg.Timeout > 0 {
			cfg.Timeout = cbCfg.Timeout
		}
		d.breaker = circuitbreaker.NewWrapper(cfg)
	}

	return d
}

// Dispatch publishes one event to one target queue.
func (d *Dispatcher) Dispatch(ctx context.Context, target string, event models.Event) error {
	if target == "" {
		return fmt.Errorf("dispatch target must not be empty")
	}

	start := time.Now()
	err := d.publish(ctx, func() error {
		return d.producer.Publish(ctx, target, event)
	})
	metrics.ObserveDispatchDuration(target, time.Since(start))

	if err != nil {
		metrics.IncDispatch(target, "error")
		return fmt.Errorf("failed to dispatch event %s to %s: %w", event.EventID, target, err)
	}

	metrics.IncDispatch(target, "success")
	d.logger.DebugwCtx(ctx, "Event dispatched",
		"target", target,
		"event_type", event.Type,
	)
	return nil
}

// DispatchBatch groups events by target and publishes each group in a
// single batch write, preserving per-target order. One target failing does
// not abort the others; the returned map carries the delivery error per
// failed target and is empty when every group was published.
func (d *Dispatcher) DispatchBatch(ctx context.Context, routed map[string][]models.Event) map[string]error {
	failed := make(map[string]error)
	for target, events := range routed {
		if len(events) == 0 {
			continue
		}

		start := time.Now()
		err := d.publish(ctx, func() error {
			return d.producer.PublishBatch(ctx, target, events)
		})
		metrics.ObserveDispatchDuration(target, time.Since(start))

		if err != nil {
			for range events {
				metrics.IncDispatch(target, "error")
			}
			d.logger.ErrorwCtx(ctx, "Failed to dispatch batch",
				"target", target,
				"count", len(events),
				"error", err,
			)
			failed[target] = fmt.Errorf("failed to dispatch batch to %s: %w", target, err)
			continue
		}

		for range events {
			metrics.IncDispatch(target, "success")
		}
	}
	return failed
}

func (d *Dispatcher) publish(ctx context.Context, fn func() error) error {
	if d.breaker == nil {
		return fn()
	}
	_, err := d.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, fn()
	})
	d.breaker.RecordRequest(err == nil)
	return err
}
