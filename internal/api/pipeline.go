// Package api wires the HTTP surface onto the job registry, ingest
// drivers, transcode planner, publication layer, and lazy rendition
// generator. Ingest endpoints respond with a job id (the multipart
// upload endpoint only after staging the request body) and drive the
// rest of the pipeline — fetch -> transcode -> publish — in a background
// goroutine per job.
package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gwlsn/vrsd/internal/apierr"
	"github.com/gwlsn/vrsd/internal/eventlog"
	"github.com/gwlsn/vrsd/internal/ffmpeg"
	"github.com/gwlsn/vrsd/internal/humanize"
	"github.com/gwlsn/vrsd/internal/ingest"
	"github.com/gwlsn/vrsd/internal/jobs"
	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/proc/progress"
	"github.com/gwlsn/vrsd/internal/publish"
)

// totalStages is uniform for every job regardless of source kind: a
// multipart upload still walks through fetching (copying the upload
// into place is a near-zero-width fetch stage), so every job shares one
// stage_index table and clients poll one consistent shape.
const totalStages = 3

// pipeline runs one job end to end: ingest, transcode, publish. It holds
// no state of its own beyond what the Handler already owns; run and
// runStaged are called from a goroutine spawned by the ingest handlers,
// while the multipart handler calls record and fail directly during
// staging.
type pipeline struct {
	registry *jobs.Registry
	planner  *ffmpeg.Planner
	cfg      pipelineConfig
	eventLog *eventlog.Log
}

type pipelineConfig struct {
	IncomingDir string
	StorageRoot string
}

// run drives job through fetching, transcoding, and finalizing, then
// marks it complete or failed. driver and req stage the source file;
// sourceKind labels the job for the event log.
func (p *pipeline) run(ctx context.Context, job *jobs.Job, sourceKind string, driver ingest.Driver, req ingest.Request, transReq ffmpeg.TranscodeRequest) {
	id := job.ID

	if err := p.registry.Transition(id, jobs.StageFetching, nil); err != nil {
		logger.Error("pipeline: enter fetching", "job_id", id, "error", err)
		return
	}
	p.record(id, sourceKind)

	stagedDir := filepath.Join(p.cfg.IncomingDir, id)
	stagedPath, err := driver.Stage(ctx, stagedDir, req, func(u progress.Update) {
		p.registry.UpdateStageProgress(id, u.Fraction, u.Speed)
	})
	if err != nil {
		p.fail(id, sourceKind, apierr.KindFetchFailed, err)
		os.RemoveAll(stagedDir)
		return
	}

	p.runStaged(ctx, job, sourceKind, stagedPath, transReq)
}

// runStaged picks the pipeline up after the fetch stage: the staged
// source file exists and the job is still in StageFetching. The
// multipart upload endpoint enters here directly, having staged the
// request body synchronously while it was still readable.
func (p *pipeline) runStaged(ctx context.Context, job *jobs.Job, sourceKind, stagedPath string, transReq ffmpeg.TranscodeRequest) {
	id := job.ID
	stagedDir := filepath.Join(p.cfg.IncomingDir, id)
	p.registry.SetStaged(id, stagedPath)

	if err := p.registry.Transition(id, jobs.StageTranscoding, nil); err != nil {
		logger.Error("pipeline: enter transcoding", "job_id", id, "error", err)
		os.RemoveAll(stagedDir)
		return
	}
	p.record(id, sourceKind)

	tempDir := filepath.Join(p.cfg.IncomingDir, id, "out")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		p.fail(id, sourceKind, apierr.KindIOError, err)
		os.RemoveAll(stagedDir)
		return
	}

	result, err := p.planner.Transcode(ctx, stagedPath, tempDir, transReq,
		func(encoder ffmpeg.HWAccel) {
			p.registry.SetEncoder(id, string(encoder))
			p.registry.UpdateStageProgress(id, 0, "")
		},
		func(u progress.Update) {
			p.registry.UpdateStageProgress(id, u.Fraction, u.Speed)
		},
	)
	if err != nil {
		kind := apierr.KindTranscodeFailed
		if errors.Is(err, ffmpeg.ErrEncoderStart) {
			kind = apierr.KindEncoderUnavailable
		}
		p.fail(id, sourceKind, kind, err)
		os.RemoveAll(stagedDir)
		return
	}

	if err := p.registry.Transition(id, jobs.StageFinalizing, nil); err != nil {
		logger.Error("pipeline: enter finalizing", "job_id", id, "error", err)
		os.RemoveAll(stagedDir)
		return
	}
	p.record(id, sourceKind)

	finalPath, err := publish.Publish(result.OutputPath, p.cfg.StorageRoot, id)
	if err != nil {
		p.fail(id, sourceKind, apierr.KindIOError, err)
		os.RemoveAll(stagedDir)
		return
	}
	os.RemoveAll(stagedDir)

	if err := p.registry.Complete(id, finalPath); err != nil {
		logger.Error("pipeline: complete", "job_id", id, "error", err)
		return
	}
	p.record(id, sourceKind)

	if snap, ok := p.registry.Get(id); ok {
		logger.Info("job complete",
			"job_id", id,
			"source", sourceKind,
			"encoder", result.Encoder,
			"input_size", humanize.Bytes(result.InputSize),
			"output_size", humanize.Bytes(result.OutputSize),
			"elapsed", humanize.Duration(time.Duration(snap.ElapsedSeconds*float64(time.Second))),
		)
	}
}

func (p *pipeline) fail(id, sourceKind string, kind apierr.Kind, err error) {
	logger.Warn("pipeline: job failed", "job_id", id, "kind", kind, "error", err)
	p.registry.Fail(id, jobs.Failure{Kind: jobs.FailureKind(kind), Message: err.Error()})
	p.record(id, sourceKind)
}

func (p *pipeline) record(id, sourceKind string) {
	if snap, ok := p.registry.Get(id); ok {
		p.eventLog.Record(id, sourceKind, snap)
	}
}

// backgroundContext bounds pipeline execution independent of the HTTP
// request that triggered it. The ceiling is generous since a software
// AV1 transcode can legitimately run for hours.
func backgroundContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 24*time.Hour)
}

