// Package engine implements the loan lifecycle engine: the single component
// that moves a (member, book) pair through request -> active loan -> return.
//
// Every public operation runs inside its own transaction against the entity
// store: it acquires exclusive, non-blocking locks on the member row (and the
// loan row where relevant), re-reads the authoritative state under lock,
// delegates the decision to the pure state machine in package core, applies
// the resulting mutations and commits atomically. A lock that cannot be
// acquired immediately aborts the operation with storage.ErrResourceBusy -
// the engine never waits or retries, the caller decides.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friedgreenrepos/biblioteca/core"
	"github.com/friedgreenrepos/biblioteca/storage"
)

var ErrNilStore = errors.New("store must not be nil")

const (
	operationRequestLoan       = "request_loan"
	operationApproveLoan       = "approve_loan"
	operationRejectLoan        = "reject_loan"
	operationReturnLoan        = "return_loan"
	operationReportMember      = "report_member"
	operationReconcileCounters = "reconcile_counters"
)

// Engine orchestrates the loan lifecycle against a storage.Store.
type Engine struct {
	store            storage.Store
	policy           core.Policy
	clock            core.Clock
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

// NewEngine creates an Engine with the default policy and the system clock,
// both overridable through options.
func NewEngine(store storage.Store, options ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	e := &Engine{
		store:  store,
		policy: core.DefaultPolicy(),
		clock:  core.SystemClock,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Policy returns the tunables the engine was configured with.
func (e *Engine) Policy() core.Policy {
	return e.policy
}

// today returns the injected clock's current day, date-normalized.
func (e *Engine) today() time.Time {
	return core.ToDate(e.clock())
}

// inTransaction runs fn inside a store transaction with rollback on any
// failure, and records outcome, duration, span and log entry for the
// operation. The error returned by fn is passed through unchanged so callers
// keep the typed rejection or contention error.
func (e *Engine) inTransaction(ctx context.Context, operation string, fn func(tx storage.Tx) error) error {
	ctx, span := e.startOperationSpan(ctx, operation)
	start := time.Now()

	opErr := e.runTransaction(ctx, fn)

	outcome := outcomeOf(opErr)
	duration := time.Since(start)

	e.recordOperationMetrics(ctx, operation, outcome, duration)
	e.logOperation(ctx, operation, outcome, duration, opErr)
	e.finishOperationSpan(span, outcome)

	return opErr
}

func (e *Engine) runTransaction(ctx context.Context, fn func(tx storage.Tx) error) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
			if e.logger != nil {
				e.logger.Warn(logMsgRollbackFailed, logAttrError, rollbackErr.Error())
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
