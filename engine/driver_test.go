package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/docflow/ai"
	"github.com/harborline/docflow/ai/mock"
	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/schema"
	"github.com/harborline/docflow/storage"
	badgerstore "github.com/harborline/docflow/storage/badger"
	memorystore "github.com/harborline/docflow/storage/memory"
)

const validInvoiceInstance = `{"invoice_number":"INV-2026-001","issuer":"Harborline Freight","total":1240.50}`

type driverFixture struct {
	store    storage.RecordStore
	objects  *memorystore.ObjectStore
	provider *mock.MockProvider
	registry *schema.Registry
}

func newDriverFixture(t *testing.T) *driverFixture {
	t.Helper()

	store, backend, err := badgerstore.NewMemoryRecordStore()
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
		backend.Close()
	})

	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(schema.DefaultName, schema.DefaultInvoiceSchema))

	provider := mock.NewMockProvider()
	provider.GetMockFieldExtractor().ExtractFunc = func(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error) {
		return validInvoiceInstance, nil
	}

	return &driverFixture{
		store:    store,
		objects:  memorystore.NewObjectStore(),
		provider: provider,
		registry: registry,
	}
}

func (f *driverFixture) newDriver(t *testing.T, cfg DriverConfig) *Driver {
	t.Helper()
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = time.Millisecond
	}
	if cfg.StageTimeout == 0 {
		cfg.StageTimeout = 5 * time.Second
	}
	driver, err := NewDriver(f.store, f.objects, f.provider, f.registry, cfg)
	require.NoError(t, err)
	return driver
}

func (f *driverFixture) seedObject(t *testing.T, identity core.ObjectIdentity, content []byte) core.JobDescriptor {
	t.Helper()
	require.NoError(t, f.objects.Write(context.Background(), identity, content))
	return core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
}

// pdfWithPages builds minimal PDF-ish bytes carrying the given number of
// page object markers.
func pdfWithPages(pages int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&buf, "%d 0 obj << /Type /Page >> endobj\n", i+3)
	}
	return buf.Bytes()
}

func TestNewDriverRequiresDependencies(t *testing.T) {
	f := newDriverFixture(t)

	_, err := NewDriver(nil, f.objects, f.provider, f.registry, DriverConfig{})
	require.ErrorIs(t, err, ErrRecordStoreRequired)

	_, err = NewDriver(f.store, nil, f.provider, f.registry, DriverConfig{})
	require.ErrorIs(t, err, ErrObjectStoreRequired)

	_, err = NewDriver(f.store, f.objects, nil, f.registry, DriverConfig{})
	require.ErrorIs(t, err, ErrProviderRequired)

	_, err = NewDriver(f.store, f.objects, f.provider, nil, DriverConfig{})
	require.ErrorIs(t, err, ErrSchemaRegistryRequired)
}

func TestDriverRunCompletes(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{})

	identity := core.ObjectIdentity{Container: "invoices", Path: "sample.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(2))
	record := core.NewDocumentRecord(job)

	require.NoError(t, driver.Run(context.Background(), job, record))

	assert.Equal(t, core.StageCompleted, record.Run.Stage)
	assert.NotEmpty(t, record.Run.Artifacts.OCRText)
	assert.JSONEq(t, validInvoiceInstance, record.Run.Artifacts.ExtractedJSON)
	assert.True(t, record.Run.Artifacts.Scored)
	assert.InDelta(t, 0.9, record.Run.Artifacts.Score, 0.001)
	assert.NotEmpty(t, record.Run.Artifacts.Summary)
	assert.False(t, record.Run.FinishedAt.IsZero())

	// Terminal state persisted.
	stored, err := f.store.Get(context.Background(), identity)
	require.NoError(t, err)
	assert.Equal(t, core.StageCompleted, stored.Run.Stage)
	assert.Equal(t, job.CorrelationID, stored.Run.CorrelationID)
}

func TestDriverRunFailsWhenObjectMissing(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{})

	identity := core.ObjectIdentity{Container: "invoices", Path: "ghost.pdf"}
	job := core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
	record := core.NewDocumentRecord(job)

	err := driver.Run(context.Background(), job, record)
	require.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, core.StageFailed, record.Run.Stage)
	require.NotNil(t, record.Run.Failure)
	assert.Equal(t, core.StageOCR, record.Run.Failure.Stage)
	assert.Equal(t, "permanent", record.Run.Failure.Kind)
	assert.Equal(t, 1, record.Run.Failure.Attempts)
}

func TestDriverRetriesTransientOCRThenSucceeds(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{StageAttempts: 3})

	var mu sync.Mutex
	calls := 0
	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n < 3 {
			return nil, core.Transient(core.TransientTimeout, errors.New("recognition timeout"))
		}
		return &ai.LayoutResult{Text: "INVOICE INV-2026-001", Pages: 1}, nil
	}

	identity := core.ObjectIdentity{Container: "invoices", Path: "retry.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))
	record := core.NewDocumentRecord(job)

	require.NoError(t, driver.Run(context.Background(), job, record))

	assert.Equal(t, core.StageCompleted, record.Run.Stage)
	assert.Equal(t, 2, record.Run.Retries[core.StageOCR])
	assert.Nil(t, record.Run.Failure)
}

func TestDriverFailsAfterRetryExhaustion(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{StageAttempts: 3})

	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		return nil, core.Transient(core.TransientRateLimit, errors.New("throttled"))
	}

	identity := core.ObjectIdentity{Container: "invoices", Path: "hot.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))
	record := core.NewDocumentRecord(job)

	err := driver.Run(context.Background(), job, record)
	require.Error(t, err)

	assert.Equal(t, core.StageFailed, record.Run.Stage)
	require.NotNil(t, record.Run.Failure)
	assert.Equal(t, core.StageOCR, record.Run.Failure.Stage)
	assert.Equal(t, "rate-limit", record.Run.Failure.Kind)
	assert.Equal(t, 3, record.Run.Failure.Attempts)
	assert.Equal(t, 2, record.Run.Retries[core.StageOCR])
}

func TestDriverRejectsNonConformingExtraction(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{StageAttempts: 3})

	f.provider.GetMockFieldExtractor().ExtractFunc = func(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error) {
		return `{"vendor":"nobody"}`, nil
	}

	identity := core.ObjectIdentity{Container: "invoices", Path: "bad-extract.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(1))
	record := core.NewDocumentRecord(job)

	err := driver.Run(context.Background(), job, record)
	require.ErrorIs(t, err, schema.ErrInstanceInvalid)

	assert.Equal(t, core.StageFailed, record.Run.Stage)
	require.NotNil(t, record.Run.Failure)
	assert.Equal(t, core.StageExtracting, record.Run.Failure.Stage)
	assert.Equal(t, "permanent", record.Run.Failure.Kind)
	// Schema violations are not retried.
	assert.Equal(t, 1, record.Run.Failure.Attempts)
	// Recognition output from the completed stage is retained.
	assert.NotEmpty(t, record.Run.Artifacts.OCRText)
}

func TestDriverFansOutLargeDocuments(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{PageRangeSize: 10, RangeWorkers: 2})

	var mu sync.Mutex
	var seen []ai.PageRange
	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		mu.Lock()
		seen = append(seen, pages)
		mu.Unlock()
		return &ai.LayoutResult{
			Text:  fmt.Sprintf("pages %d-%d", pages.Start, pages.End),
			Pages: pages.End - pages.Start + 1,
		}, nil
	}

	identity := core.ObjectIdentity{Container: "invoices", Path: "large.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(25))
	record := core.NewDocumentRecord(job)

	require.NoError(t, driver.Run(context.Background(), job, record))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.ElementsMatch(t, []ai.PageRange{{Start: 1, End: 10}, {Start: 11, End: 20}, {Start: 21, End: 25}}, seen)

	// Merged text preserves page order regardless of completion order.
	text := record.Run.Artifacts.OCRText
	assert.Less(t, strings.Index(text, "pages 1-10"), strings.Index(text, "pages 11-20"))
	assert.Less(t, strings.Index(text, "pages 11-20"), strings.Index(text, "pages 21-25"))
}

func TestDriverFanOutFailsWhenAnyRangeFails(t *testing.T) {
	f := newDriverFixture(t)
	driver := f.newDriver(t, DriverConfig{StageAttempts: 1, PageRangeSize: 10, RangeWorkers: 2})

	f.provider.GetMockLayoutExtractor().ExtractLayoutFunc = func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
		if pages.Start == 11 {
			return nil, errors.New("page 12 unreadable")
		}
		return &ai.LayoutResult{Text: "ok", Pages: pages.End - pages.Start + 1}, nil
	}

	identity := core.ObjectIdentity{Container: "invoices", Path: "torn.pdf"}
	job := f.seedObject(t, identity, pdfWithPages(25))
	record := core.NewDocumentRecord(job)

	err := driver.Run(context.Background(), job, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pages 11-20")
	assert.Equal(t, core.StageFailed, record.Run.Stage)
}

func TestCountPDFPages(t *testing.T) {
	assert.Equal(t, 25, countPDFPages(pdfWithPages(25)))
	assert.Equal(t, 1, countPDFPages([]byte("plain text, no markers")))
	assert.Equal(t, 1, countPDFPages(nil))
	// Compact marker form without a space.
	assert.Equal(t, 2, countPDFPages([]byte("<< /Type/Page >> << /Type/Page >> << /Type/Pages >>")))
}
