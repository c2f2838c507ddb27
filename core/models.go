package core

import (
	"time"

	"github.com/google/uuid"
)

// ObjectIdentity is the stable key identifying one document in the object
// store: the container it lives in plus its path within the container.
type ObjectIdentity struct {
	Container string `json:"container"`
	Path      string `json:"path"`
}

// String returns the canonical "container/path" form used as a storage key.
func (o ObjectIdentity) String() string {
	return o.Container + "/" + o.Path
}

// IsZero reports whether the identity is empty.
func (o ObjectIdentity) IsZero() bool {
	return o.Container == "" && o.Path == ""
}

// TriggerSource identifies how a processing request entered the system.
type TriggerSource string

const (
	// TriggerPushEvent marks jobs created from object-store notifications.
	TriggerPushEvent TriggerSource = "push-event"
	// TriggerManual marks jobs created by an explicit trigger request.
	TriggerManual TriggerSource = "manual"
)

// JobDescriptor identifies one processing request. It is immutable once
// created; a fresh descriptor (with a fresh correlation ID) is minted for
// every attempt, including resubmissions of previously failed documents.
type JobDescriptor struct {
	Identity      ObjectIdentity
	ContentType   string
	Source        TriggerSource
	CorrelationID uuid.UUID
	SubmittedAt   time.Time
}

// NewJobDescriptor creates a descriptor with a generated correlation ID.
func NewJobDescriptor(identity ObjectIdentity, contentType string, source TriggerSource) JobDescriptor {
	return JobDescriptor{
		Identity:      identity,
		ContentType:   contentType,
		Source:        source,
		CorrelationID: uuid.New(),
		SubmittedAt:   time.Now().UTC(),
	}
}

// Stage is the lifecycle position of a document run.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageOCR         Stage = "ocr"
	StageExtracting  Stage = "extracting"
	StageEvaluating  Stage = "evaluating"
	StageSummarizing Stage = "summarizing"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

var allStages = []Stage{
	StageQueued,
	StageOCR,
	StageExtracting,
	StageEvaluating,
	StageSummarizing,
	StageCompleted,
	StageFailed,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	stage := Stage(value)
	_, ok := stageSet[stage]
	return stage, ok
}

// IsTerminal reports whether a stage is a terminal outcome.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Artifacts holds the per-stage outputs of one run. Fields are populated as
// stages complete and are never cleared within a run; a failed run keeps
// whatever it produced for diagnostics.
type Artifacts struct {
	OCRText       string  `json:"ocr_text,omitempty"`
	OCRLayoutJSON string  `json:"ocr_layout_json,omitempty"`
	ExtractedJSON string  `json:"extracted_json,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Scored        bool    `json:"scored,omitempty"`
	Summary       string  `json:"summary,omitempty"`
}

// FailureDetail captures why a run terminated in StageFailed.
type FailureDetail struct {
	Stage    Stage  `json:"stage"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// RunRecord is the per-run portion of a DocumentRecord: everything that is
// reset when a fresh run starts for the same identity.
type RunRecord struct {
	CorrelationID uuid.UUID           `json:"correlation_id"`
	Source        TriggerSource       `json:"source"`
	Stage         Stage               `json:"stage"`
	StageTimes    map[Stage]time.Time `json:"stage_times,omitempty"`
	Retries       map[Stage]int       `json:"retries,omitempty"`
	Artifacts     Artifacts           `json:"artifacts"`
	Failure       *FailureDetail      `json:"failure,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at,omitzero"`
}

// DocumentRecord is the persisted unit of work state for one object identity.
// It is created on first admission, mutated only by the pipeline driver for
// the owning run, and never deleted by the engine.
type DocumentRecord struct {
	Identity    ObjectIdentity `json:"identity"`
	ContentType string         `json:"content_type,omitempty"`
	Run         RunRecord      `json:"run"`
	History     []RunRecord    `json:"history,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewDocumentRecord creates a record in StageQueued for a fresh admission.
func NewDocumentRecord(job JobDescriptor) *DocumentRecord {
	now := time.Now().UTC()
	return &DocumentRecord{
		Identity:    job.Identity,
		ContentType: job.ContentType,
		Run:         newRun(job, now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newRun(job JobDescriptor, now time.Time) RunRecord {
	return RunRecord{
		CorrelationID: job.CorrelationID,
		Source:        job.Source,
		Stage:         StageQueued,
		StageTimes:    map[Stage]time.Time{StageQueued: now},
		Retries:       map[Stage]int{},
		StartedAt:     now,
	}
}

// BeginRun archives the current run into history and starts a fresh one for
// the given descriptor. Partial outputs of the previous run stay visible in
// History; nothing is reused by the new run.
func (r *DocumentRecord) BeginRun(job JobDescriptor) {
	now := time.Now().UTC()
	r.History = append(r.History, r.Run)
	r.Run = newRun(job, now)
	r.ContentType = job.ContentType
	r.UpdatedAt = now
}

// AdvanceTo moves the run to the given stage, stamping the transition time.
func (r *DocumentRecord) AdvanceTo(stage Stage) {
	now := time.Now().UTC()
	r.Run.Stage = stage
	if r.Run.StageTimes == nil {
		r.Run.StageTimes = map[Stage]time.Time{}
	}
	r.Run.StageTimes[stage] = now
	if stage.IsTerminal() {
		r.Run.FinishedAt = now
	}
	r.UpdatedAt = now
}

// RecordRetry bumps the retry counter for a stage.
func (r *DocumentRecord) RecordRetry(stage Stage) {
	if r.Run.Retries == nil {
		r.Run.Retries = map[Stage]int{}
	}
	r.Run.Retries[stage]++
	r.UpdatedAt = time.Now().UTC()
}

// SetFailed marks the run failed with the captured detail. Prior stage
// outputs are retained.
func (r *DocumentRecord) SetFailed(detail FailureDetail) {
	r.Run.Failure = &detail
	r.AdvanceTo(StageFailed)
}

// IsTerminal reports whether the current run has reached a terminal stage.
func (r *DocumentRecord) IsTerminal() bool {
	return r.Run.Stage.IsTerminal()
}
