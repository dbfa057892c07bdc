package janitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gwlsn/vrsd/internal/jobs"
)

func TestCandidatesSkipsNonTerminalJobs(t *testing.T) {
	root := t.TempDir()
	reg := jobs.NewRegistry()

	running := reg.Create("remote", 3)
	complete := reg.Create("remote", 3)
	reg.Transition(complete.ID, jobs.StageFetching, nil)
	reg.Transition(complete.ID, jobs.StageTranscoding, nil)
	reg.Transition(complete.ID, jobs.StageFinalizing, nil)
	reg.Complete(complete.ID, filepath.Join(root, "download.mkv"))

	for _, id := range []string{running.ID, complete.ID} {
		if err := os.MkdirAll(filepath.Join(root, id), 0755); err != nil {
			t.Fatal(err)
		}
	}

	j := New(Config{TempRoots: []string{root}, BatchSize: 5}, reg)
	got := j.candidates()

	if len(got) != 1 {
		t.Fatalf("candidates() returned %d entries, want 1 (only the complete job)", len(got))
	}
	if got[0].path != filepath.Join(root, complete.ID) {
		t.Errorf("candidate path = %q, want the complete job's dir", got[0].path)
	}
}

func TestCandidatesOrderedLeastRecentFirst(t *testing.T) {
	root := t.TempDir()
	reg := jobs.NewRegistry()

	older := reg.Create("remote", 3)
	newer := reg.Create("remote", 3)
	for _, j := range []*jobs.Job{older, newer} {
		reg.Transition(j.ID, jobs.StageFetching, nil)
		reg.Transition(j.ID, jobs.StageTranscoding, nil)
		reg.Transition(j.ID, jobs.StageFinalizing, nil)
		reg.Complete(j.ID, "x")
	}

	olderDir := filepath.Join(root, older.ID)
	newerDir := filepath.Join(root, newer.ID)
	os.MkdirAll(olderDir, 0755)
	os.MkdirAll(newerDir, 0755)

	past := time.Now().Add(-time.Hour)
	now := time.Now()
	os.Chtimes(olderDir, past, past)
	os.Chtimes(newerDir, now, now)

	jn := New(Config{TempRoots: []string{root}, BatchSize: 5}, reg)
	got := jn.candidates()
	if len(got) != 2 {
		t.Fatalf("candidates() returned %d entries, want 2", len(got))
	}
	if got[0].path != olderDir {
		t.Errorf("expected older job first, got %q then %q", got[0].path, got[1].path)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	reg := jobs.NewRegistry()
	j := New(Config{TempRoots: nil, Interval: time.Millisecond, BatchSize: 1, MinFreeBytes: 0, MinFreeRatio: 0}, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
