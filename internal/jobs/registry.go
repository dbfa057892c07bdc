package jobs

import (
	"sync"
	"time"

	"github.com/gwlsn/vrsd/internal/logger"
)

// stageIndex maps a non-terminal stage to its position among
// total_stages, so overall_progress = (stage_index + stage_progress) /
// total_stages lands exactly on stage boundaries.
var stageIndex = map[Stage]int{
	StageQueued:      0,
	StageFetching:    0,
	StageTranscoding: 1,
	StageFinalizing:  2,
}

// legalTransitions enforces the forward-only state machine from the job
// registry's design: queued->fetching->transcoding->finalizing->complete,
// with any non-terminal stage allowed to transition to failed.
var legalTransitions = map[Stage]map[Stage]bool{
	StageQueued:      {StageFetching: true, StageFailed: true},
	StageFetching:    {StageTranscoding: true, StageFailed: true},
	StageTranscoding: {StageFinalizing: true, StageFailed: true},
	StageFinalizing:  {StageComplete: true, StageFailed: true},
}

// record pairs a Job with the mutex guarding its mutable fields. The
// registry's map-wide mutex guards only insertion/lookup of
// records; field mutation goes through the record's own mutex so
// concurrent reads of other jobs are never blocked by one job's writer.
type record struct {
	mu  sync.Mutex
	job *Job
}

// Registry is the in-memory, process-lifetime job store: a narrow
// create/transition/update/get contract with explicit state-machine
// enforcement.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]*record)}
}

// Create inserts a new job in StageQueued and returns it.
func (r *Registry) Create(sourceKind string, totalStages int) *Job {
	job := NewJob(sourceKind, totalStages)

	r.mu.Lock()
	r.records[job.ID] = &record{job: job}
	r.order = append(r.order, job.ID)
	r.mu.Unlock()

	logger.Info("job created", "job_id", job.ID, "source", sourceKind)
	return job
}

// Transition moves a job to next, enforcing the legal edge set. Calling
// it on an ID that doesn't exist returns ErrJobNotFound. Calling it with
// an edge not present in legalTransitions returns ErrIllegalTransition.
// A transition into StageFailed accepts an optional failure; it is
// ignored for any other target stage.
func (r *Registry) Transition(id string, next Stage, fail *Failure) error {
	rec := r.lookup(id)
	if rec == nil {
		return jobNotFoundError(id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	job := rec.job
	if job.Stage.Terminal() {
		return illegalTransitionError(job.Stage, next)
	}
	if next != StageFailed && !legalTransitions[job.Stage][next] {
		return illegalTransitionError(job.Stage, next)
	}

	now := time.Now()
	job.Stage = next
	if next != StageFailed {
		job.StageProgress = 0
	}
	job.stageEnteredAt = now
	job.LastUpdate = now

	if idx, ok := stageIndex[next]; ok {
		job.StageIndex = idx
	}

	switch next {
	case StageComplete:
		job.StageIndex = job.TotalStages
		job.StageProgress = 1
	case StageFailed:
		if fail != nil {
			job.Error = fail
		}
	}

	logger.Info("job stage transition", "job_id", id, "stage", string(next))
	return nil
}

// UpdateStageProgress sets the current stage's progress fraction,
// clamped to [0,1] and never allowed to move backward within a stage —
// a late-arriving out-of-order update from a progress parser is
// silently dropped rather than regressing the monotonicity invariant.
func (r *Registry) UpdateStageProgress(id string, fraction float64, diagnostic string) error {
	rec := r.lookup(id)
	if rec == nil {
		return jobNotFoundError(id)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	job := rec.job
	if job.Stage.Terminal() {
		return nil
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	if fraction < job.StageProgress {
		return nil
	}

	job.StageProgress = fraction
	if diagnostic != "" {
		job.Diagnostic = diagnostic
	}
	job.LastUpdate = time.Now()
	return nil
}

// SetStaged records the local path an ingest driver produced.
func (r *Registry) SetStaged(id string, path string) error {
	rec := r.lookup(id)
	if rec == nil {
		return jobNotFoundError(id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.job.StagedPath = path
	rec.job.LastUpdate = time.Now()
	return nil
}

// SetEncoder records which encoder the planner selected.
func (r *Registry) SetEncoder(id string, encoder string) error {
	rec := r.lookup(id)
	if rec == nil {
		return jobNotFoundError(id)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.job.Encoder = encoder
	rec.job.LastUpdate = time.Now()
	return nil
}

// Fail transitions a non-terminal job straight to StageFailed.
// Equivalent to Transition(id, StageFailed, fail) but named for
// call-site clarity at the edges that only ever fail, never advance.
func (r *Registry) Fail(id string, fail Failure) error {
	return r.Transition(id, StageFailed, &fail)
}

// Complete publishes the mezzanine path and transitions to StageComplete.
func (r *Registry) Complete(id string, mezzaninePath string) error {
	rec := r.lookup(id)
	if rec == nil {
		return jobNotFoundError(id)
	}

	rec.mu.Lock()
	job := rec.job
	if job.Stage != StageFinalizing {
		rec.mu.Unlock()
		return illegalTransitionError(job.Stage, StageComplete)
	}
	job.MezzaninePath = mezzaninePath
	rec.mu.Unlock()

	return r.Transition(id, StageComplete, nil)
}

// Get returns an immutable snapshot of the job, or ok=false if it
// doesn't exist. elapsed/eta/overall_progress are derived at this read.
func (r *Registry) Get(id string) (Snapshot, bool) {
	rec := r.lookup(id)
	if rec == nil {
		return Snapshot{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job.snapshot(), true
}

// MezzaninePath returns the published path for a complete job, or ""
// if the job isn't found or hasn't completed.
func (r *Registry) MezzaninePath(id string) string {
	rec := r.lookup(id)
	if rec == nil {
		return ""
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.job.Stage != StageComplete {
		return ""
	}
	return rec.job.MezzaninePath
}

// All returns snapshots for every job, oldest first.
func (r *Registry) All() []Snapshot {
	r.mu.RLock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if s, ok := r.Get(id); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *Registry) lookup(id string) *record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.records[id]
}
