package engine

import (
	"context"
	"errors"
	"time"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

// Logger interface for operational logging, warnings, and error reporting.
// *slog.Logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace
// correlation. It follows the same dependency-free pattern as
// MetricsCollector and TracingCollector so any logging backend can be
// plugged in.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting engine performance and
// operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware
// methods for better tracing integration. The interface is optional - the
// engine uses the context-aware methods when available and falls back to the
// base interface otherwise.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and
// updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information
// from engine operations, integrable with any tracing backend.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

const (
	metricOperationDuration = "loan_engine_operation_duration"
	metricOperationOutcomes = "loan_engine_operation_outcomes"

	logMsgOperation      = "loan engine operation: "
	logMsgRollbackFailed = "transaction rollback failed"

	logAttrError      = "error"
	logAttrOperation  = "operation"
	logAttrOutcome    = "outcome"
	logAttrDurationMS = "duration_ms"

	spanAttrOperation = "operation"
	spanAttrOutcome   = "outcome"

	statusSuccess = "success"
	statusError   = "error"

	outcomeSuccess      = "success"
	outcomeRejected     = "rejected"
	outcomeBusy         = "busy"
	outcomeNotFound     = "not_found"
	outcomeStorageError = "storage_error"
)

// outcomeOf buckets an operation error for metrics and logs. Business
// rejections, lock contention and unknown entities are expected outcomes;
// everything else counts as a storage failure.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, storage.ErrResourceBusy):
		return outcomeBusy
	case errors.Is(err, storage.ErrMemberNotFound),
		errors.Is(err, storage.ErrBookNotFound),
		errors.Is(err, storage.ErrLoanNotFound):
		return outcomeNotFound
	case errors.Is(err, core.ErrQuotaExceeded),
		errors.Is(err, core.ErrMemberSuspended),
		errors.Is(err, core.ErrLoanAlreadyOpen),
		errors.Is(err, core.ErrLoanAlreadyActive),
		errors.Is(err, core.ErrNoOpenLoan),
		errors.Is(err, core.ErrNotYetDelivered):
		return outcomeRejected
	default:
		return outcomeStorageError
	}
}

// startOperationSpan starts a tracing span if a tracing collector is configured.
func (e *Engine) startOperationSpan(ctx context.Context, operation string) (context.Context, SpanContext) {
	if e.tracingCollector == nil {
		return ctx, nil
	}

	return e.tracingCollector.StartSpan(ctx, "loanengine."+operation, map[string]string{
		spanAttrOperation: operation,
	})
}

// finishOperationSpan finishes the span with the operation outcome.
func (e *Engine) finishOperationSpan(span SpanContext, outcome string) {
	if e.tracingCollector == nil || span == nil {
		return
	}

	status := statusSuccess
	if outcome != outcomeSuccess {
		status = statusError
	}

	e.tracingCollector.FinishSpan(span, status, map[string]string{spanAttrOutcome: outcome})
}

// recordOperationMetrics records duration and outcome for a finished operation.
func (e *Engine) recordOperationMetrics(ctx context.Context, operation, outcome string, duration time.Duration) {
	if e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		spanAttrOperation: operation,
		spanAttrOutcome:   outcome,
	}

	if contextual, ok := e.metricsCollector.(ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metricOperationDuration, duration, labels)
		contextual.IncrementCounterContext(ctx, metricOperationOutcomes, labels)
		return
	}

	e.metricsCollector.RecordDuration(metricOperationDuration, duration, labels)
	e.metricsCollector.IncrementCounter(metricOperationOutcomes, labels)
}

// logOperation logs the finished operation at info level (success) or debug
// level (rejections, which are expected business outcomes).
func (e *Engine) logOperation(ctx context.Context, operation, outcome string, duration time.Duration, err error) {
	args := []any{
		logAttrOperation, operation,
		logAttrOutcome, outcome,
		logAttrDurationMS, durationToMilliseconds(duration),
	}
	if err != nil {
		args = append(args, logAttrError, err.Error())
	}

	switch {
	case e.contextualLogger != nil && outcome == outcomeStorageError:
		e.contextualLogger.ErrorContext(ctx, logMsgOperation+operation, args...)
	case e.contextualLogger != nil && outcome == outcomeSuccess:
		e.contextualLogger.InfoContext(ctx, logMsgOperation+operation, args...)
	case e.contextualLogger != nil:
		e.contextualLogger.DebugContext(ctx, logMsgOperation+operation, args...)
	case e.logger != nil && outcome == outcomeStorageError:
		e.logger.Error(logMsgOperation+operation, args...)
	case e.logger != nil && outcome == outcomeSuccess:
		e.logger.Info(logMsgOperation+operation, args...)
	case e.logger != nil:
		e.logger.Debug(logMsgOperation+operation, args...)
	}
}

// durationToMilliseconds converts a duration to float64 milliseconds.
func durationToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
