package proc

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCleanExit(t *testing.T) {
	s := New()
	outcome := s.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "exit 0"},
	})
	if outcome.Status != StatusOK {
		t.Fatalf("status = %v, want ok (err: %v)", outcome.Status, outcome.Err)
	}
	if outcome.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", outcome.ExitCode)
	}
}

func TestRunNonZeroExitCapturesStderrTail(t *testing.T) {
	s := New()
	outcome := s.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "echo first failure line >&2; echo second failure line >&2; exit 3"},
	})
	if outcome.Status != StatusNonZero {
		t.Fatalf("status = %v, want non_zero", outcome.Status)
	}
	if outcome.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", outcome.ExitCode)
	}
	tail := JoinTail(outcome.StderrTail)
	if !strings.Contains(tail, "first failure line") || !strings.Contains(tail, "second failure line") {
		t.Errorf("stderr tail missing expected lines: %q", tail)
	}
}

func TestRunSpawnFailed(t *testing.T) {
	s := New()
	outcome := s.Run(context.Background(), Spec{Binary: "/nonexistent/binary-xyz"})
	if outcome.Status != StatusSpawnFailed {
		t.Fatalf("status = %v, want spawn_failed", outcome.Status)
	}
	if outcome.Err == nil {
		t.Error("expected a wrapped os error")
	}
}

func TestRunStderrSinkReceivesLines(t *testing.T) {
	s := New()
	var lines []string
	outcome := s.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "echo a >&2; echo b >&2"},
		StderrSink: LineSinkFunc(func(line string) {
			lines = append(lines, line)
		}),
	})
	if outcome.Status != StatusOK {
		t.Fatalf("status = %v, want ok", outcome.Status)
	}
	// Run guarantees the sink is drained before returning, so no
	// synchronization is needed here.
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Errorf("sink lines = %v, want [a b]", lines)
	}
}

func TestRunStdoutSinkReceivesLines(t *testing.T) {
	s := New()
	var lines []string
	outcome := s.Run(context.Background(), Spec{
		Binary: "sh",
		Args:   []string{"-c", "echo progress-25; echo progress-50"},
		StdoutSink: LineSinkFunc(func(line string) {
			lines = append(lines, line)
		}),
	})
	if outcome.Status != StatusOK {
		t.Fatalf("status = %v, want ok", outcome.Status)
	}
	if len(lines) != 2 || lines[0] != "progress-25" {
		t.Errorf("stdout sink lines = %v", lines)
	}
}

func TestRunStdinSource(t *testing.T) {
	s := New()
	var out bytes.Buffer
	outcome := s.Run(context.Background(), Spec{
		Binary: "cat",
		Stdin:  strings.NewReader("streamed body"),
		Stdout: &out,
	})
	if outcome.Status != StatusOK {
		t.Fatalf("status = %v, want ok", outcome.Status)
	}
	if out.String() != "streamed body" {
		t.Errorf("stdout = %q, want the stdin payload", out.String())
	}
}

func TestRunCancellation(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan ExitOutcome, 1)
	go func() {
		done <- s.Run(ctx, Spec{Binary: "sleep", Args: []string{"30"}})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case outcome := <-done:
		if outcome.Status != StatusCancelled {
			t.Fatalf("status = %v, want cancelled", outcome.Status)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestTailBufferDropsOldest(t *testing.T) {
	tb := newTailBuffer(3)
	for _, l := range []string{"1", "2", "3", "4", "5"} {
		tb.add(l)
	}
	got := tb.lines()
	if len(got) != 3 || got[0] != "3" || got[2] != "5" {
		t.Errorf("tail lines = %v, want [3 4 5]", got)
	}
}
