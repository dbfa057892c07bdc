package jobs_test

import (
	"errors"
	"testing"

	"github.com/gwlsn/vrsd/internal/jobs"
)

func TestRegistryCreateAndGet(t *testing.T) {
	reg := jobs.NewRegistry()

	job := reg.Create("upload", 3)
	if job.ID == "" {
		t.Fatal("job ID should not be empty")
	}
	if job.Stage != jobs.StageQueued {
		t.Errorf("expected stage queued, got %s", job.Stage)
	}

	snap, ok := reg.Get(job.ID)
	if !ok {
		t.Fatal("expected job to be found")
	}
	if snap.Stage != jobs.StageQueued {
		t.Errorf("expected stage queued, got %s", snap.Stage)
	}
	if snap.Progress != 0 {
		t.Errorf("expected progress 0, got %f", snap.Progress)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	reg := jobs.NewRegistry()
	if _, ok := reg.Get("does-not-exist"); ok {
		t.Fatal("expected missing job to report ok=false")
	}
}

func TestRegistryLegalTransitions(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("remote", 3)

	steps := []jobs.Stage{jobs.StageFetching, jobs.StageTranscoding, jobs.StageFinalizing, jobs.StageComplete}
	for _, next := range steps {
		if err := reg.Transition(job.ID, next, nil); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}

	snap, _ := reg.Get(job.ID)
	if snap.Stage != jobs.StageComplete {
		t.Errorf("expected stage complete, got %s", snap.Stage)
	}
	if snap.Progress != 1.0 {
		t.Errorf("expected progress 1.0, got %f", snap.Progress)
	}
	if snap.Error != nil {
		t.Errorf("expected no error, got %v", *snap.Error)
	}
}

func TestRegistryIllegalTransitionRejected(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("upload", 3)

	err := reg.Transition(job.ID, jobs.StageFinalizing, nil)
	if !errors.Is(err, jobs.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

func TestRegistryTerminalStageIsSticky(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("upload", 3)

	if err := reg.Fail(job.ID, jobs.Failure{Kind: "FetchFailed", Message: "boom"}); err != nil {
		t.Fatalf("fail: %v", err)
	}

	if err := reg.Transition(job.ID, jobs.StageFetching, nil); !errors.Is(err, jobs.ErrIllegalTransition) {
		t.Fatalf("expected transition out of a terminal stage to be rejected, got %v", err)
	}

	snap, _ := reg.Get(job.ID)
	if snap.Error == nil {
		t.Fatal("expected failed job to carry an error")
	}
}

func TestRegistryStageProgressMonotonic(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("upload", 3)
	reg.Transition(job.ID, jobs.StageFetching, nil)

	if err := reg.UpdateStageProgress(job.ID, 0.5, "3.1MiB/s"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := reg.UpdateStageProgress(job.ID, 0.2, ""); err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, _ := reg.Get(job.ID)
	if snap.StageProgress != 0.5 {
		t.Errorf("expected stage progress to stay at 0.5 after a regressive update, got %f", snap.StageProgress)
	}
	if snap.Diagnostic != "3.1MiB/s" {
		t.Errorf("expected diagnostic to be preserved, got %q", snap.Diagnostic)
	}
}

func TestRegistryOverallProgressAcrossStages(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("upload", 3)

	reg.Transition(job.ID, jobs.StageFetching, nil)
	reg.UpdateStageProgress(job.ID, 1.0, "")
	fetchSnap, _ := reg.Get(job.ID)

	reg.Transition(job.ID, jobs.StageTranscoding, nil)
	midSnap, _ := reg.Get(job.ID)

	if midSnap.Progress < fetchSnap.Progress {
		t.Errorf("overall progress regressed across a stage transition: %f -> %f", fetchSnap.Progress, midSnap.Progress)
	}
	if midSnap.StageProgress != 0 {
		t.Errorf("expected stage progress to reset on transition, got %f", midSnap.StageProgress)
	}
}

func TestRegistryFailOnUnknownJob(t *testing.T) {
	reg := jobs.NewRegistry()
	err := reg.Fail("nope", jobs.Failure{Kind: "IOError", Message: "x"})
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestRegistryCompleteRequiresFinalizing(t *testing.T) {
	reg := jobs.NewRegistry()
	job := reg.Create("upload", 3)

	if err := reg.Complete(job.ID, "/data/x/download.mkv"); !errors.Is(err, jobs.ErrIllegalTransition) {
		t.Fatalf("expected completing a queued job to be rejected, got %v", err)
	}
}
