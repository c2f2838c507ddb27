package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/storage"
)

// Submission reports the outcome of a submit attempt.
type Submission struct {
	// Accepted is true when a run was admitted and dispatched.
	Accepted bool
	// CorrelationID identifies the admitted run when Accepted.
	CorrelationID uuid.UUID
	// Existing identifies the in-flight run that caused a rejection.
	Existing uuid.UUID
}

// Engine admits document jobs, deduplicates per object identity, and drives
// admitted runs through the pipeline under a bounded worker pool. Submit
// returns as soon as the job is admitted and recorded; the run itself
// executes asynchronously.
type Engine struct {
	gate       *DedupGate
	controller *Controller
	driver     *Driver
	store      storage.RecordStore

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	maxConcurrency int
	driverConfig   DriverConfig
}

const defaultMaxConcurrency = 8

// WithMaxConcurrency sets the bound on simultaneously executing runs.
func WithMaxConcurrency(n int) Option {
	return func(o *engineOptions) { o.maxConcurrency = n }
}

// WithDriverConfig sets the pipeline tuning knobs.
func WithDriverConfig(cfg DriverConfig) Option {
	return func(o *engineOptions) { o.driverConfig = cfg }
}

// NewEngine creates an engine around a pipeline driver.
func NewEngine(store storage.RecordStore, driver *Driver, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if driver == nil {
		return nil, errors.New("pipeline driver required")
	}

	options := engineOptions{maxConcurrency: defaultMaxConcurrency}
	for _, opt := range opts {
		opt(&options)
	}

	controller, err := NewController(options.maxConcurrency)
	if err != nil {
		return nil, err
	}

	return &Engine{
		gate:       NewDedupGate(),
		controller: controller,
		driver:     driver,
		store:      store,
	}, nil
}

// Submit validates and admits a job. A rejected duplicate returns a
// Submission with Accepted false and the correlation ID of the in-flight
// run; duplicates are not errors. On admission the document record is
// created (or a fresh run begun) and persisted in StageQueued before the
// run is handed to the worker pool.
func (e *Engine) Submit(ctx context.Context, job core.JobDescriptor) (Submission, error) {
	if err := core.ValidateJobDescriptor(job); err != nil {
		return Submission{}, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Submission{}, ErrEngineClosed
	}
	e.mu.Unlock()

	admit := e.gate.Admit(job.Identity, job.CorrelationID)
	if !admit.Admitted {
		slog.Info("duplicate submission rejected",
			"identity", job.Identity.String(),
			"correlationID", job.CorrelationID.String(),
			"existingCorrelationID", admit.Existing.String())
		return Submission{Existing: admit.Existing}, nil
	}

	record, err := e.prepareRecord(ctx, job)
	if err != nil {
		e.gate.Release(job.Identity)
		return Submission{}, err
	}

	e.dispatch(job, record)
	return Submission{Accepted: true, CorrelationID: job.CorrelationID}, nil
}

// prepareRecord loads or creates the document record and persists it in
// StageQueued for the new run.
func (e *Engine) prepareRecord(ctx context.Context, job core.JobDescriptor) (*core.DocumentRecord, error) {
	record, err := e.store.Get(ctx, job.Identity)
	switch {
	case err == nil:
		record.BeginRun(job)
	case errors.Is(err, storage.ErrNotFound):
		record = core.NewDocumentRecord(job)
	default:
		return nil, fmt.Errorf("loading document record: %w", err)
	}

	if err := e.store.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("persisting queued record: %w", err)
	}
	return record, nil
}

// dispatch hands the run to the worker pool without blocking the caller.
// The dedup entry is released on every exit path.
func (e *Engine) dispatch(job core.JobDescriptor, record *core.DocumentRecord) {
	e.wg.Add(1)
	go func() {
		// Blocks here while the pool is saturated; the job stays queued
		// and its dedup entry stays live.
		err := e.controller.Run(func() {
			defer e.wg.Done()
			defer e.gate.Release(job.Identity)
			// Run lifetime is bounded by stage timeouts, not by the
			// submitter's request context.
			_ = e.driver.Run(context.Background(), job, record)
		})
		if err != nil {
			e.wg.Done()
			e.gate.Release(job.Identity)
			slog.Error("dispatching run",
				"identity", job.Identity.String(),
				"correlationID", job.CorrelationID.String(),
				"error", err)
		}
	}()
}

// Lookup returns the persisted record for an identity.
func (e *Engine) Lookup(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	return e.store.Get(ctx, identity)
}

// RecoverStale marks records abandoned mid-run (no update for longer than
// threshold, non-terminal stage) as failed so their identities become
// admissible again. Intended to run once at startup, before traffic.
func (e *Engine) RecoverStale(ctx context.Context, threshold time.Duration) (int, error) {
	stale, err := e.store.ListStale(ctx, time.Now().UTC().Add(-threshold))
	if err != nil {
		return 0, fmt.Errorf("listing stale records: %w", err)
	}

	recovered := 0
	for _, record := range stale {
		if _, active := e.gate.Active(record.Identity); active {
			continue
		}
		record.SetFailed(core.FailureDetail{
			Stage:   record.Run.Stage,
			Kind:    "stale",
			Message: "run abandoned without reaching a terminal stage",
		})
		if err := e.store.Upsert(ctx, record); err != nil {
			return recovered, fmt.Errorf("persisting recovered record %s: %w", record.Identity, err)
		}
		slog.Warn("stale run recovered",
			"identity", record.Identity.String(),
			"correlationID", record.Run.CorrelationID.String(),
			"stage", record.Run.Failure.Stage)
		recovered++
	}
	return recovered, nil
}

// Reconfigure changes the run concurrency bound at runtime. In-flight runs
// are unaffected.
func (e *Engine) Reconfigure(limit int) error {
	return e.controller.Reconfigure(limit)
}

// InFlight returns the number of currently executing runs.
func (e *Engine) InFlight() int {
	return e.controller.Running()
}

// Queued returns the number of admitted runs waiting for a worker slot.
func (e *Engine) Queued() int {
	return e.controller.Waiting()
}

// Limit returns the current concurrency bound.
func (e *Engine) Limit() int {
	return e.controller.Limit()
}

// Shutdown stops accepting submissions and waits for in-flight runs to
// finish, up to the context deadline.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight runs: %w", ctx.Err())
	}
	e.controller.Close()
	return nil
}
