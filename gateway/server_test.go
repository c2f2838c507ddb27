package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborline/docflow/core"
	"github.com/harborline/docflow/engine"
	"github.com/harborline/docflow/storage"
	"github.com/harborline/docflow/workflowsync"
)

// fakePipeline is a hand-rolled engine double.
type fakePipeline struct {
	mu         sync.Mutex
	submitted  []core.JobDescriptor
	submitErr  error
	duplicates map[string]uuid.UUID
	records    map[string]*core.DocumentRecord
	limit      int
	inFlight   int
	queued     int
	reconfErr  error
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		duplicates: map[string]uuid.UUID{},
		records:    map[string]*core.DocumentRecord{},
		limit:      8,
	}
}

func (f *fakePipeline) Submit(ctx context.Context, job core.JobDescriptor) (engine.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := core.ValidateJobDescriptor(job); err != nil {
		return engine.Submission{}, err
	}
	if f.submitErr != nil {
		return engine.Submission{}, f.submitErr
	}
	if existing, ok := f.duplicates[job.Identity.String()]; ok {
		return engine.Submission{Existing: existing}, nil
	}
	f.submitted = append(f.submitted, job)
	return engine.Submission{Accepted: true, CorrelationID: job.CorrelationID}, nil
}

func (f *fakePipeline) Lookup(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error) {
	if err := core.ValidateIdentity(identity); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[identity.String()]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakePipeline) Reconfigure(limit int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reconfErr != nil {
		return f.reconfErr
	}
	f.limit = limit
	return nil
}

func (f *fakePipeline) InFlight() int { return f.inFlight }
func (f *fakePipeline) Queued() int   { return f.queued }
func (f *fakePipeline) Limit() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.limit
}

func (f *fakePipeline) submittedJobs() []core.JobDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.JobDescriptor(nil), f.submitted...)
}

// fakeStore satisfies both store interfaces for health checks.
type fakeStore struct {
	pingErr error
}

func (f *fakeStore) Get(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) Upsert(ctx context.Context, record *core.DocumentRecord) error { return nil }
func (f *fakeStore) ListStale(ctx context.Context, olderThan time.Time) ([]*core.DocumentRecord, error) {
	return nil, nil
}
func (f *fakeStore) Read(ctx context.Context, identity core.ObjectIdentity) ([]byte, error) {
	return nil, storage.ErrNotFound
}
func (f *fakeStore) Write(ctx context.Context, identity core.ObjectIdentity, content []byte) error {
	return nil
}
func (f *fakeStore) List(ctx context.Context, container, prefix string) ([]core.ObjectIdentity, error) {
	return nil, nil
}
func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error                   { return nil }

type fakeSync struct {
	external int
	getErr   error
	setErr   error
	setCalls int
	lastSet  int
}

func (f *fakeSync) GetExternalConcurrency(ctx context.Context) (int, error) {
	return f.external, f.getErr
}

func (f *fakeSync) SetExternalConcurrency(ctx context.Context, runs int) error {
	f.setCalls++
	f.lastSet = runs
	if f.setErr != nil {
		return f.setErr
	}
	f.external = runs
	return nil
}

type fixture struct {
	pipeline *fakePipeline
	records  *fakeStore
	objects  *fakeStore
	syncer   *fakeSync
	server   *Server
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		pipeline: newFakePipeline(),
		records:  &fakeStore{},
		objects:  &fakeStore{},
	}
	f.server = NewServer(f.pipeline, f.records, f.objects, opts...)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestEventsBatchAccepted(t *testing.T) {
	f := newFixture(t)

	batch := []EventEnvelope{
		{ID: "ev-1", EventType: "storage.object.created", Data: EventData{Container: "invoices", Path: "a.pdf", ContentType: "application/pdf"}},
		{ID: "ev-2", EventType: "s3:ObjectCreated:Put", Data: EventData{Container: "invoices", Path: "b.pdf"}},
	}
	rec := f.do(t, http.MethodPost, "/v1/events", batch)

	require.Equal(t, http.StatusAccepted, rec.Code)
	jobs := f.pipeline.submittedJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, core.TriggerPushEvent, jobs[0].Source)
	assert.Equal(t, "invoices", jobs[0].Identity.Container)
	assert.Equal(t, "a.pdf", jobs[0].Identity.Path)

	body := decodeBody(t, rec)
	results := body["results"].([]any)
	require.Len(t, results, 2)
	first := results[0].(map[string]any)
	assert.Equal(t, "accepted", first["status"])
	assert.NotEmpty(t, first["correlationId"])
}

func TestEventsRejectsPerItemWithoutFailingBatch(t *testing.T) {
	f := newFixture(t)

	batch := []EventEnvelope{
		{ID: "ev-1", EventType: "storage.object.deleted", Data: EventData{Container: "invoices", Path: "gone.pdf"}},
		{ID: "ev-2", EventType: "storage.object.created", Data: EventData{Container: "", Path: "b.pdf"}},
		{ID: "ev-3", EventType: "storage.object.created", Data: EventData{Container: "invoices", Path: "ok.pdf"}},
	}
	rec := f.do(t, http.MethodPost, "/v1/events", batch)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.pipeline.submittedJobs(), 1)

	body := decodeBody(t, rec)
	results := body["results"].([]any)
	require.Len(t, results, 3)
	assert.Equal(t, "rejected", results[0].(map[string]any)["status"])
	assert.Contains(t, results[0].(map[string]any)["reason"], "unsupported event type")
	assert.Equal(t, "rejected", results[1].(map[string]any)["status"])
	assert.Equal(t, "accepted", results[2].(map[string]any)["status"])
}

func TestEventsMalformedBatchIs400(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader([]byte(`{"not":"an array"`)))
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.pipeline.submittedJobs())
}

func TestEventsDuplicateAcknowledged(t *testing.T) {
	f := newFixture(t)
	existing := uuid.New()
	f.pipeline.duplicates["invoices/dup.pdf"] = existing

	batch := []EventEnvelope{
		{ID: "ev-1", EventType: "storage.object.created", Data: EventData{Container: "invoices", Path: "dup.pdf"}},
	}
	rec := f.do(t, http.MethodPost, "/v1/events", batch)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	result := body["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "duplicate", result["status"])
	assert.Equal(t, existing.String(), result["correlationId"])
}

func TestManualTrigger(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/documents", manualTriggerRequest{
		Container: "invoices", Path: "manual.pdf", ContentType: "application/pdf",
	})

	require.Equal(t, http.StatusAccepted, rec.Code)
	jobs := f.pipeline.submittedJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, core.TriggerManual, jobs[0].Source)

	body := decodeBody(t, rec)
	assert.Equal(t, "accepted", body["status"])
}

func TestManualTriggerValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/documents", manualTriggerRequest{Container: "", Path: "x.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.pipeline.submittedJobs())
}

func TestGetDocument(t *testing.T) {
	f := newFixture(t)
	identity := core.ObjectIdentity{Container: "invoices", Path: "2026/q3/inv.pdf"}
	job := core.NewJobDescriptor(identity, "application/pdf", core.TriggerPushEvent)
	record := core.NewDocumentRecord(job)
	record.AdvanceTo(core.StageCompleted)
	f.pipeline.records[identity.String()] = record

	rec := f.do(t, http.MethodGet, "/v1/documents/invoices/2026/q3/inv.pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got core.DocumentRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, identity, got.Identity)
	assert.Equal(t, core.StageCompleted, got.Run.Stage)
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/documents/invoices/absent.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.objects.pingErr = fmt.Errorf("%w: minio offline", core.ErrUnreachable)
	rec = f.do(t, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["records"])
	assert.Contains(t, body["objects"], "minio offline")
}

func TestGetConcurrency(t *testing.T) {
	f := newFixture(t)
	f.pipeline.inFlight = 3
	f.pipeline.queued = 2

	rec := f.do(t, http.MethodGet, "/v1/config/concurrency", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 8, body["limit"])
	assert.EqualValues(t, 3, body["inFlight"])
	assert.EqualValues(t, 2, body["queued"])
	_, hasExternal := body["external"]
	assert.False(t, hasExternal)
}

func TestGetConcurrencyWithSync(t *testing.T) {
	syncer := &fakeSync{external: 4}
	f := newFixture(t, WithConcurrencySync(syncer))

	rec := f.do(t, http.MethodGet, "/v1/config/concurrency", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 4, body["external"])
	assert.Equal(t, false, body["inSync"])
}

func TestPutConcurrencyMirrors(t *testing.T) {
	syncer := &fakeSync{external: 8}
	f := newFixture(t, WithConcurrencySync(syncer))

	rec := f.do(t, http.MethodPut, "/v1/config/concurrency", concurrencyUpdateRequest{Limit: 5})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 5, f.pipeline.Limit())
	assert.Equal(t, 1, syncer.setCalls)
	assert.Equal(t, 5, syncer.lastSet)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["mirrored"])
}

func TestPutConcurrencyConflictIs409(t *testing.T) {
	syncer := &fakeSync{setErr: workflowsync.ErrConfigurationConflict}
	f := newFixture(t, WithConcurrencySync(syncer))

	rec := f.do(t, http.MethodPut, "/v1/config/concurrency", concurrencyUpdateRequest{Limit: 5})
	assert.Equal(t, http.StatusConflict, rec.Code)
	// The local bound was applied even though the mirror failed.
	assert.Equal(t, 5, f.pipeline.Limit())
}

func TestPutConcurrencyInvalidLimit(t *testing.T) {
	f := newFixture(t)
	f.pipeline.reconfErr = engine.ErrInvalidConcurrency

	rec := f.do(t, http.MethodPut, "/v1/config/concurrency", concurrencyUpdateRequest{Limit: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutConcurrencyUnreachableMirror(t *testing.T) {
	syncer := &fakeSync{setErr: errors.New("connection refused")}
	f := newFixture(t, WithConcurrencySync(syncer))

	rec := f.do(t, http.MethodPut, "/v1/config/concurrency", concurrencyUpdateRequest{Limit: 5})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
