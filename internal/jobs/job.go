// Package jobs is the in-memory job registry: the single shared mutable
// surface the ingest drivers, transcode planner, and HTTP layer
// communicate through. Job state does not survive a restart; see
// internal/eventlog for the durable audit trail that does.
package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Stage is one step of the ingest->transcode->finalize pipeline.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageFetching    Stage = "fetching"
	StageTranscoding Stage = "transcoding"
	StageFinalizing  Stage = "finalizing"
	StageComplete    Stage = "complete"
	StageFailed      Stage = "failed"
)

// Terminal reports whether a stage ends the job's lifecycle.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// FailureKind categorizes why a job failed, mirrored from internal/apierr
// so a job snapshot can report it without importing the HTTP layer.
type FailureKind string

// Failure is the structured error recorded on a job once it reaches
// StageFailed. It is non-nil if and only if the job is failed.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// Job is one ingest-to-publish pipeline run. Field access outside this
// package must go through Registry — Job itself has no external lock.
type Job struct {
	ID    string
	Stage Stage

	StageIndex  int
	TotalStages int

	// StageProgress is the fraction complete within the current stage,
	// reset to 0 on every stage transition except into failed (which keeps
	// the last value) and monotonic within a stage.
	StageProgress float64

	// Diagnostic is a free-form status string from the active driver or
	// encoder (e.g. "3.2MiB/s" or "1.8x realtime"), for display only.
	Diagnostic string

	Error *Failure

	// SourceKind records which ingest driver produced this job, for
	// logging and the event log; it does not affect total_stages.
	SourceKind string

	// StagedPath is the local file the active ingest driver produced,
	// populated once the fetch stage completes.
	StagedPath string

	// MezzaninePath is the published output, populated once complete.
	MezzaninePath string

	// Encoder is the ffmpeg hwaccel identifier actually used, populated
	// once the transcode stage starts.
	Encoder string

	CreatedAt  time.Time
	StartedAt  time.Time
	LastUpdate time.Time

	// stageEnteredAt tracks when the current stage began, for ETA's
	// linear extrapolation from stage_progress.
	stageEnteredAt time.Time
}

// NewJob creates a fresh job in StageQueued. sourceKind is one of
// "upload", "remote", "torrent", "extractor".
func NewJob(sourceKind string, totalStages int) *Job {
	now := time.Now()
	return &Job{
		ID:             uuid.New().String(),
		Stage:          StageQueued,
		StageIndex:     0,
		TotalStages:    totalStages,
		SourceKind:     sourceKind,
		CreatedAt:      now,
		StartedAt:      now,
		LastUpdate:     now,
		stageEnteredAt: now,
	}
}

// OverallProgress computes (stage_index + stage_progress) / total_stages,
// the job's monotonic overall completion fraction.
func (j *Job) OverallProgress() float64 {
	if j.TotalStages <= 0 {
		return 0
	}
	if j.Stage == StageComplete {
		return 1.0
	}
	frac := (float64(j.StageIndex) + j.StageProgress) / float64(j.TotalStages)
	if frac > 1 {
		frac = 1
	}
	if frac < 0 {
		frac = 0
	}
	return frac
}

// Elapsed is the time since the job started.
func (j *Job) Elapsed() time.Duration {
	return time.Since(j.StartedAt)
}

// ETA estimates remaining time via linear extrapolation from
// stage_progress over the time spent in the current stage, then scales
// that per-stage rate across the stages still to come. Returns 0 if
// there isn't enough data yet, or the job is terminal.
func (j *Job) ETA() time.Duration {
	if j.Stage.Terminal() {
		return 0
	}
	if j.StageProgress <= 0 {
		return 0
	}
	inStage := time.Since(j.stageEnteredAt)
	if inStage <= 0 {
		return 0
	}
	remainingInStage := float64(inStage) * (1 - j.StageProgress) / j.StageProgress
	remainingStages := j.TotalStages - j.StageIndex - 1
	perStageEstimate := float64(inStage) / j.StageProgress
	return time.Duration(remainingInStage) + time.Duration(float64(remainingStages)*perStageEstimate)
}

// Snapshot is an immutable, external view of a Job returned by the
// registry's read path, matching the JobSnapshot shape the HTTP layer
// serializes.
type Snapshot struct {
	ID                        string  `json:"id"`
	Stage                     Stage   `json:"stage"`
	Progress                  float64 `json:"progress"`
	StageProgress             float64 `json:"stage_progress"`
	CurrentStageIndex         int     `json:"current_stage_index"`
	TotalStages               int     `json:"total_stages"`
	ElapsedSeconds            float64 `json:"elapsed_seconds"`
	EstimatedRemainingSeconds float64 `json:"estimated_remaining_seconds"`
	Error                     *string `json:"error"`
	Diagnostic                string  `json:"diagnostic,omitempty"`
	MezzaninePath             string  `json:"mezzanine_path,omitempty"`
	StartedAtUnixMs           int64   `json:"started_at_unix_ms"`
	LastUpdateUnixMs          int64   `json:"last_update_unix_ms"`
}

// snapshot builds a Snapshot from the job's current state. The caller
// must hold the job's lock (see Registry.Get).
func (j *Job) snapshot() Snapshot {
	s := Snapshot{
		ID:                        j.ID,
		Stage:                     j.Stage,
		Progress:                  j.OverallProgress(),
		StageProgress:             j.StageProgress,
		CurrentStageIndex:         j.StageIndex,
		TotalStages:               j.TotalStages,
		ElapsedSeconds:            j.Elapsed().Seconds(),
		EstimatedRemainingSeconds: j.ETA().Seconds(),
		Diagnostic:                j.Diagnostic,
		MezzaninePath:             j.MezzaninePath,
		StartedAtUnixMs:           j.StartedAt.UnixMilli(),
		LastUpdateUnixMs:          j.LastUpdate.UnixMilli(),
	}
	if j.Error != nil {
		msg := string(j.Error.Kind) + ": " + j.Error.Message
		s.Error = &msg
	}
	return s
}
