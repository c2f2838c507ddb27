package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/harborline/docflow/ai"
	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/schema"
	"github.com/harborline/docflow/storage"
)

// Driver executes the stage pipeline for a single admitted run: optical
// recognition, field extraction, evaluation, then summarization. Each stage
// is retried on transient failure per the configured policy; the first
// permanent failure or retry exhaustion ends the run in StageFailed. The
// driver persists the record on every stage transition so progress survives
// a crash.
type Driver struct {
	store        storage.RecordStore
	objects      storage.ObjectStore
	provider     ai.Provider
	schemas      *schema.Registry
	schemaName   string
	attempts     int
	baseDelay    time.Duration
	stageTimeout time.Duration
	rangeSize    int
	rangeWorkers int
}

// DriverConfig carries the pipeline tuning knobs.
type DriverConfig struct {
	// SchemaName selects the extraction schema for every run.
	SchemaName string
	// StageAttempts is the maximum attempts per stage, first try included.
	StageAttempts int
	// RetryBaseDelay is the delay before the first retry; it doubles each
	// subsequent retry.
	RetryBaseDelay time.Duration
	// StageTimeout bounds each individual stage attempt.
	StageTimeout time.Duration
	// PageRangeSize is the page count per recognition range for large
	// documents.
	PageRangeSize int
	// RangeWorkers caps concurrent recognition calls within one document.
	RangeWorkers int
}

const (
	defaultStageAttempts  = 3
	defaultRetryBaseDelay = 500 * time.Millisecond
	defaultStageTimeout   = 2 * time.Minute
	defaultPageRangeSize  = 10
	defaultRangeWorkers   = 4
)

func (c *DriverConfig) applyDefaults() {
	if c.SchemaName == "" {
		c.SchemaName = schema.DefaultName
	}
	if c.StageAttempts <= 0 {
		c.StageAttempts = defaultStageAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = defaultRetryBaseDelay
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = defaultStageTimeout
	}
	if c.PageRangeSize <= 0 {
		c.PageRangeSize = defaultPageRangeSize
	}
	if c.RangeWorkers <= 0 {
		c.RangeWorkers = defaultRangeWorkers
	}
}

// NewDriver creates a pipeline driver. Zero config fields fall back to
// defaults.
func NewDriver(store storage.RecordStore, objects storage.ObjectStore, provider ai.Provider, schemas *schema.Registry, cfg DriverConfig) (*Driver, error) {
	if store == nil {
		return nil, ErrRecordStoreRequired
	}
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if schemas == nil {
		return nil, ErrSchemaRegistryRequired
	}
	cfg.applyDefaults()
	return &Driver{
		store:        store,
		objects:      objects,
		provider:     provider,
		schemas:      schemas,
		schemaName:   cfg.SchemaName,
		attempts:     cfg.StageAttempts,
		baseDelay:    cfg.RetryBaseDelay,
		stageTimeout: cfg.StageTimeout,
		rangeSize:    cfg.PageRangeSize,
		rangeWorkers: cfg.RangeWorkers,
	}, nil
}

// Run drives the record through every stage to a terminal outcome. The
// returned error is the stage error that failed the run, or nil when the
// run completed. The record is persisted in its terminal state either way.
func (d *Driver) Run(ctx context.Context, job core.JobDescriptor, record *core.DocumentRecord) error {
	logger := slog.With(
		"correlationID", job.CorrelationID.String(),
		"identity", job.Identity.String(),
	)
	logger.Info("run started", "source", job.Source)

	var layout *ai.LayoutResult

	stages := []struct {
		stage core.Stage
		op    func(context.Context) error
	}{
		{core.StageOCR, func(stageCtx context.Context) error {
			result, err := d.recognize(stageCtx, job)
			if err != nil {
				return err
			}
			layout = result
			record.Run.Artifacts.OCRText = result.Text
			record.Run.Artifacts.OCRLayoutJSON = result.LayoutJSON()
			return nil
		}},
		{core.StageExtracting, func(stageCtx context.Context) error {
			instance, err := d.provider.FieldExtractor().Extract(stageCtx, layout, d.schemaName)
			if err != nil {
				return fmt.Errorf("extracting fields: %w", err)
			}
			if err := d.schemas.Validate(d.schemaName, instance); err != nil {
				return err
			}
			record.Run.Artifacts.ExtractedJSON = instance
			return nil
		}},
		{core.StageEvaluating, func(stageCtx context.Context) error {
			score, err := d.provider.Evaluator().Evaluate(stageCtx, record.Run.Artifacts.ExtractedJSON, d.schemaName)
			if err != nil {
				return fmt.Errorf("evaluating extraction: %w", err)
			}
			record.Run.Artifacts.Score = score
			record.Run.Artifacts.Scored = true
			return nil
		}},
		{core.StageSummarizing, func(stageCtx context.Context) error {
			summary, err := d.provider.Summarizer().Summarize(stageCtx, record.Run.Artifacts.ExtractedJSON)
			if err != nil {
				return fmt.Errorf("summarizing extraction: %w", err)
			}
			record.Run.Artifacts.Summary = summary
			return nil
		}},
	}

	for _, s := range stages {
		if err := d.runStage(ctx, logger, record, s.stage, s.op); err != nil {
			logger.Warn("run failed", "stage", s.stage, "error", err)
			return err
		}
	}

	record.AdvanceTo(core.StageCompleted)
	if err := d.persist(record); err != nil {
		logger.Error("persisting completed record", "error", err)
		return err
	}
	logger.Info("run completed",
		"score", record.Run.Artifacts.Score,
		"duration", record.Run.FinishedAt.Sub(record.Run.StartedAt))
	return nil
}

// runStage advances the record into the stage, runs the operation under the
// retry policy, and on exhaustion or permanent failure marks the run failed.
func (d *Driver) runStage(ctx context.Context, logger *slog.Logger, record *core.DocumentRecord, stage core.Stage, op func(context.Context) error) error {
	record.AdvanceTo(stage)
	if err := d.persist(record); err != nil {
		return fmt.Errorf("persisting stage transition: %w", err)
	}

	attempts, err := retryWithBackoff(ctx, func() error {
		stageCtx, cancel := context.WithTimeout(ctx, d.stageTimeout)
		defer cancel()
		return op(stageCtx)
	}, d.attempts, d.baseDelay)

	for i := 1; i < attempts; i++ {
		record.RecordRetry(stage)
	}

	if err != nil {
		record.SetFailed(core.FailureDetail{
			Stage:    stage,
			Kind:     failureKind(err),
			Message:  err.Error(),
			Attempts: attempts,
		})
		if perr := d.persist(record); perr != nil {
			logger.Error("persisting failed record", "error", perr)
		}
		return err
	}

	if attempts > 1 {
		if perr := d.persist(record); perr != nil {
			logger.Error("persisting retry counters", "error", perr)
		}
	}
	return nil
}

// recognize runs optical recognition, fanning out over page ranges when the
// document exceeds a single range. Range results are merged in page order.
func (d *Driver) recognize(ctx context.Context, job core.JobDescriptor) (*ai.LayoutResult, error) {
	content, err := d.objects.Read(ctx, job.Identity)
	if err != nil {
		return nil, fmt.Errorf("reading object: %w", err)
	}

	ranges := ai.SplitPageRanges(countPDFPages(content), d.rangeSize)
	extractor := d.provider.LayoutExtractor()

	if len(ranges) == 1 {
		result, err := extractor.ExtractLayout(ctx, content, ranges[0])
		if err != nil {
			return nil, fmt.Errorf("extracting layout: %w", err)
		}
		return result, nil
	}

	workers := d.rangeWorkers
	if workers > len(ranges) {
		workers = len(ranges)
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("creating range pool: %w", err)
	}
	defer pool.Release()

	results := make([]*ai.LayoutResult, len(ranges))
	errs := make([]error, len(ranges))
	var wg sync.WaitGroup
	for i, pages := range ranges {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = extractor.ExtractLayout(ctx, content, pages)
		}); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting range %d-%d: %w", pages.Start, pages.End, err)
		}
	}
	wg.Wait()

	for i, rangeErr := range errs {
		if rangeErr != nil {
			return nil, fmt.Errorf("extracting layout for pages %d-%d: %w",
				ranges[i].Start, ranges[i].End, rangeErr)
		}
	}
	return ai.MergeLayouts(results), nil
}

func (d *Driver) persist(record *core.DocumentRecord) error {
	// Persistence uses its own context so terminal state still lands when
	// the run's context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return d.store.Upsert(ctx, record)
}

func failureKind(err error) string {
	if core.IsTransient(err) {
		return core.TransientKindOf(err)
	}
	return "permanent"
}

// countPDFPages estimates the page count from raw PDF bytes by counting
// page object markers. Non-PDF or unparseable content counts as one page,
// which keeps recognition whole-document.
func countPDFPages(content []byte) int {
	pages := bytes.Count(content, []byte("/Type /Page")) -
		bytes.Count(content, []byte("/Type /Pages"))
	if pages < 1 {
		pages = bytes.Count(content, []byte("/Type/Page")) -
			bytes.Count(content, []byte("/Type/Pages"))
	}
	if pages < 1 {
		return 1
	}
	return pages
}
