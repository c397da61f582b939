package engine

import (
	"errors"

	"github.com/friedgreenrepos/biblioteca/core"
)

var ErrNilClock = errors.New("clock must not be nil")

// Option defines a functional option for configuring an Engine.
type Option func(*Engine) error

// WithPolicy overrides the default loan policy tunables.
func WithPolicy(policy core.Policy) Option {
	return func(e *Engine) error {
		if err := policy.Validate(); err != nil {
			return err
		}

		e.policy = policy

		return nil
	}
}

// WithClock injects the clock used for "today" in suspension and due-date
// arithmetic. Tests use this to pin the current day.
func WithClock(clock core.Clock) Option {
	return func(e *Engine) error {
		if clock == nil {
			return ErrNilClock
		}

		e.clock = clock

		return nil
	}
}

// WithLogger sets the logger for the engine.
//
// Info level: committed operations with outcome and duration
// Debug level: business rejections (expected outcomes)
// Warn level: non-critical issues like rollback failures
// Error level: unexpected storage failures.
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger; when configured it takes
// precedence over the plain logger for operation logging and enables
// automatic trace correlation.
func WithContextualLogger(logger ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the engine. It receives
// operation durations and outcome counters labeled by operation.
func WithMetrics(collector MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the engine. Every operation
// runs inside its own span carrying operation name and outcome.
func WithTracing(collector TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}
