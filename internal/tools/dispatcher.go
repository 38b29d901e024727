package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/hackgods/vitacare-orchestrator/internal/apperr"
	"github.com/hackgods/vitacare-orchestrator/internal/observability/metrics"
	"github.com/hackgods/vitacare-orchestrator/pkg/logging"
)

const (
	BusyMessage        = "Service is temporarily busy. Please try again."
	UnknownToolMessage = "unknown tool"
	defaultFailure     = "Something went wrong. Please try again."
)

type DispatcherConfig struct {
	Timeout time.Duration
	Logger  *logging.Logger
	Metrics *metrics.Metrics
}

// Dispatcher runs one tool call at a time against a Registry and turns every
// outcome, including panics and timeouts, into a Result.
type Dispatcher struct {
	registry *Registry
	timeout  time.Duration
	logger   *logging.Logger
	metrics  *metrics.Metrics
}

func NewDispatcher(registry *Registry, cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Dispatcher{
		registry: registry,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

func (d *Dispatcher) Dispatch(ctx context.Context, call Call) Result {
	start := time.Now()
	spec, handler, ok := d.registry.Lookup(call.Name)
	if !ok {
		d.logger.Warn("planner requested unknown tool", "tool", call.Name)
		d.metrics.ObserveToolCall(call.Name, StatusFailed, time.Since(start))
		return Result{"error": UnknownToolMessage, "reason": string(apperr.Unsupported), "status": StatusFailed}
	}

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	res, err := d.run(ctx, handler, args)
	if err != nil {
		res = d.failure(spec, res, err)
	} else if res == nil {
		res = Result{"status": StatusSuccess}
	} else if _, ok := res["status"]; !ok {
		res["status"] = StatusSuccess
	}

	elapsed := time.Since(start)
	d.metrics.ObserveToolCall(call.Name, res.Status(), elapsed)
	d.logger.Info("tool dispatched",
		"tool", call.Name,
		"status", res.Status(),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res
}

type outcome struct {
	res Result
	err error
}

// run bounds handler by ctx even if it ignores cancellation.
func (d *Dispatcher) run(ctx context.Context, handler Handler, args map[string]any) (Result, error) {
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: apperr.Wrap(apperr.Internal, "", fmt.Errorf("tool panicked: %v", p))}
			}
		}()
		res, err := handler(ctx, args)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.Unavailable, "", ctx.Err())
	}
}

func (d *Dispatcher) failure(spec Spec, partial Result, err error) Result {
	res := Result{}
	for k, v := range partial {
		res[k] = v
	}

	fallback := spec.FailureMessage
	if fallback == "" {
		fallback = defaultFailure
	}

	kind := apperr.KindOf(err)
	// reason is the machine-readable kind; error stays user-facing text.
	res["reason"] = string(kind)
	switch kind {
	case apperr.Unavailable:
		res["error"] = BusyMessage
		res["status"] = StatusRateLimited
		d.logger.Warn("tool unavailable", "tool", spec.Name, "error", err)
	case apperr.Internal:
		res["error"] = fallback
		res["status"] = StatusFailed
		d.logger.Error("tool failed", "tool", spec.Name, "error", err)
	default:
		res["error"] = apperr.Message(err, fallback)
		res["status"] = StatusFailed
		d.logger.Info("tool rejected", "tool", spec.Name, "kind", kind, "error", err)
	}
	return res
}
