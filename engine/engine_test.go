package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/docflow/ai"
	"github.com/harborline/docflow/core"
)

func newTestEngine(t *testing.T, f *driverFixture, opts ...Option) *Engine {
	t.Helper()
	driver := f.newDriver(t, DriverConfig{})
	eng, err := NewEngine(f.store, driver, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Shutdown(ctx)
	})
	return eng
}

func waitForTerminal(t *testing.T, eng *Engine, identity core.ObjectIdentity) *core.DocumentRecord {
	t.Helper()
	var record *core.DocumentRecord
	require.Eventually(t, func() bool {
		rec, err := eng.Lookup(context.Background(), identity)
		if err != nil {
			return false
		}
		record = rec
		return rec.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return record
}

func TestEngineSubmitRunsToCompletion(t *testing.T) {
	f := newDriverFixture(t)
	eng := newTestEngine(t, f)

	identity := core.ObjectIdentity{Container: "invoices", Path: "sample.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(2))

	sub, err := eng.Submit(context.Background(), job)
	require.NoError(t, err)
	require.True(t, sub.Accepted)
	assert.Equal(t, job.CorrelationID, sub.CorrelationID)

	record := waitForTerminal(t, eng, identity)
	assert.Equal(t, core.StageCompleted, record.Run.Stage)
	assert.NotEmpty(t, record.Run.Artifacts.Summary)
}

func TestEngineSubmitRejectsInvalidJob(t *testing.T) {
	f := newDriverFixture(t)
	eng := newTestEngine(t, f)

	job := core.NewJobDescriptor(core.ObjectIdentity{Container: "", Path: "x.pdf"}, "", core.TriggerManual)
	_, err := eng.Submit(context.Background(), job)
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestEngineRejectsDuplicatesWhileInFlight(t *testing.T) {
	f := newDriverFixture(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		once.Do(func() { close(started) })
		<-release
		return &ai.LayoutResult{Text: "held", Pages: 1}, nil
	}

	eng := newTestEngine(t, f)

	identity := core.ObjectIdentity{Container: "invoices", Path: "contested.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))

	first, err := eng.Submit(context.Background(), job)
	require.NoError(t, err)
	require.True(t, first.Accepted)
	<-started

	// Burst of duplicates for the same identity while the run is live.
	for i := 0; i < 5; i++ {
		dup := core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
		sub, err := eng.Submit(context.Background(), dup)
		require.NoError(t, err)
		assert.False(t, sub.Accepted)
		assert.Equal(t, job.CorrelationID, sub.Existing)
	}

	close(release)
	waitForTerminal(t, eng, identity)

	// Terminal outcome frees the identity for a fresh run.
	resubmit := core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
	sub, err := eng.Submit(context.Background(), resubmit)
	require.NoError(t, err)
	assert.True(t, sub.Accepted)
	waitForTerminal(t, eng, identity)
}

func TestEngineBoundsConcurrentRuns(t *testing.T) {
	f := newDriverFixture(t)

	const limit = 2
	const docs = 6

	var current, peak int64
	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		n := atomic.AddInt64(&current, 1)
		for {
			p := atomic.LoadInt64(&peak)
			if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return &ai.LayoutResult{Text: "ok", Pages: 1}, nil
	}

	eng := newTestEngine(t, f, WithMaxConcurrency(limit))

	identities := make([]core.ObjectIdentity, docs)
	for i := range identities {
		identities[i] = core.ObjectIdentity{Container: "invoices", Path: fmt.Sprintf("doc-%02d.pdf", i)}
		job := f.seedObject(t, identities[i], pdfWithPages(1))
		sub, err := eng.Submit(context.Background(), job)
		require.NoError(t, err)
		require.True(t, sub.Accepted)
	}

	for _, identity := range identities {
		record := waitForTerminal(t, eng, identity)
		assert.Equal(t, core.StageCompleted, record.Run.Stage)
	}
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(limit))
}

func TestEngineResubmitAfterFailureStartsFreshRun(t *testing.T) {
	f := newDriverFixture(t)

	var fail atomic.Bool
	fail.Store(true)
	f.provider.GetMockFieldExtractor().ExtractFunc = func(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error) {
		if fail.Load() {
			return `{"not":"an invoice"}`, nil
		}
		return validInvoiceInstance, nil
	}

	eng := newTestEngine(t, f)

	identity := core.ObjectIdentity{Container: "invoices", Path: "flaky.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))

	sub, err := eng.Submit(context.Background(), job)
	require.NoError(t, err)
	require.True(t, sub.Accepted)

	failed := waitForTerminal(t, eng, identity)
	require.Equal(t, core.StageFailed, failed.Run.Stage)

	fail.Store(false)
	retryJob := core.NewJobDescriptor(identity, "application/pdf", core.TriggerManual)
	sub, err = eng.Submit(context.Background(), retryJob)
	require.NoError(t, err)
	require.True(t, sub.Accepted)

	record := waitForTerminal(t, eng, identity)
	assert.Equal(t, core.StageCompleted, record.Run.Stage)
	assert.Equal(t, retryJob.CorrelationID, record.Run.CorrelationID)

	// The failed run is archived, not overwritten.
	require.Len(t, record.History, 1)
	assert.Equal(t, core.StageFailed, record.History[0].Stage)
	assert.Equal(t, job.CorrelationID, record.History[0].CorrelationID)
}

func TestEngineRecoverStale(t *testing.T) {
	f := newDriverFixture(t)
	eng := newTestEngine(t, f)

	// A record abandoned mid-run by a previous process.
	identity := core.ObjectIdentity{Container: "invoices", Path: "orphan.pdf"}
	job := core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
	record := core.NewDocumentRecord(job)
	record.AdvanceTo(core.StageExtracting)
	record.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.store.Upsert(context.Background(), record))

	recovered, err := eng.RecoverStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	stored, err := eng.Lookup(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, core.StageFailed, stored.Run.Stage)
	require.NotNil(t, stored.Run.Failure)
	assert.Equal(t, "stale", stored.Run.Failure.Kind)
	assert.Equal(t, core.StageExtracting, stored.Run.Failure.Stage)

	// The identity is admissible again.
	resubmit := f.seedObject(t, identity, pdfWithPages(1))
	sub, err := eng.Submit(context.Background(), resubmit)
	require.NoError(t, err)
	assert.True(t, sub.Accepted)
	waitForTerminal(t, eng, identity)
}

func TestEngineRecoverStaleSkipsActiveRuns(t *testing.T) {
	f := newDriverFixture(t)

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		once.Do(func() { close(started) })
		<-release
		return &ai.LayoutResult{Text: "held", Pages: 1}, nil
	}

	eng := newTestEngine(t, f)

	identity := core.ObjectIdentity{Container: "invoices", Path: "live.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))
	sub, err := eng.Submit(context.Background(), job)
	require.NoError(t, err)
	require.True(t, sub.Accepted)
	<-started

	// Make the live run look stale on disk.
	stored, err := eng.Lookup(context.Background(), identity)
	require.NoError(t, err)
	stored.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.store.Upsert(context.Background(), stored))

	recovered, err := eng.RecoverStale(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, recovered)

	close(release)
	waitForTerminal(t, eng, identity)
}

func TestEngineReconfigure(t *testing.T) {
	f := newDriverFixture(t)
	eng := newTestEngine(t, f, WithMaxConcurrency(2))

	assert.Equal(t, 2, eng.Limit())
	require.NoError(t, eng.Reconfigure(7))
	assert.Equal(t, 7, eng.Limit())
	require.ErrorIs(t, eng.Reconfigure(-1), ErrInvalidConcurrency)
}

func TestEngineShutdownRejectsNewSubmissions(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{})
	eng, err := NewEngine(f.store, driver)
	require.NoError(t, err)

	identity := core.ObjectIdentity{Container: "invoices", Path: "last.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))
	sub, err := eng.Submit(context.Background(), job)
	require.NoError(t, err)
	require.True(t, sub.Accepted)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.Shutdown(ctx))

	// The in-flight run finished before shutdown returned.
	record, err := eng.Lookup(context.Background(), identity)
	require.NoError(t, err)
	assert.True(t, record.IsTerminal())

	_, err = eng.Submit(context.Background(), job)
	require.ErrorIs(t, err, ErrEngineClosed)
}
