package progress

import (
	"testing"
	"time"
)

func TestFFmpegParserCombinesBatch(t *testing.T) {
	p := NewFFmpegProgressParser(100 * time.Second)

	if _, ok := p.Parse("out_time_us=25000000"); ok {
		t.Error("out_time_us alone should not emit an update")
	}
	if _, ok := p.Parse("speed=2.00x"); ok {
		t.Error("speed alone should not emit an update")
	}

	u, ok := p.Parse("progress=continue")
	if !ok {
		t.Fatal("progress=continue should close out the batch")
	}
	if u.Fraction != 0.25 {
		t.Errorf("fraction = %f, want 0.25", u.Fraction)
	}
	if u.Speed != "2.00x" {
		t.Errorf("speed = %q, want 2.00x", u.Speed)
	}
	// 75s of media remaining at 2x encodes in 37.5s.
	if u.ETA != 37500*time.Millisecond {
		t.Errorf("eta = %v, want 37.5s", u.ETA)
	}
	if u.Done {
		t.Error("continue should not be done")
	}
}

func TestFFmpegParserEnd(t *testing.T) {
	p := NewFFmpegProgressParser(10 * time.Second)
	p.Parse("out_time_us=10000000")
	u, ok := p.Parse("progress=end")
	if !ok || !u.Done {
		t.Fatalf("progress=end should emit a done update, got (%+v, %v)", u, ok)
	}
	if u.Fraction != 1.0 {
		t.Errorf("fraction = %f, want 1.0", u.Fraction)
	}
}

func TestFFmpegParserClampsOvershoot(t *testing.T) {
	p := NewFFmpegProgressParser(10 * time.Second)
	p.Parse("out_time_us=15000000")
	u, ok := p.Parse("progress=continue")
	if !ok {
		t.Fatal("expected an update")
	}
	if u.Fraction != 1.0 {
		t.Errorf("fraction = %f, want clamp to 1.0", u.Fraction)
	}
}

func TestFFmpegParserUnknownDuration(t *testing.T) {
	p := NewFFmpegProgressParser(0)
	p.Parse("out_time_us=5000000")
	u, ok := p.Parse("progress=continue")
	if !ok {
		t.Fatal("expected an indeterminate update")
	}
	if u.Fraction != 0 {
		t.Errorf("fraction = %f, want 0 with unknown duration", u.Fraction)
	}
}

func TestFFmpegParserIgnoresNoise(t *testing.T) {
	p := NewFFmpegProgressParser(time.Minute)
	for _, line := range []string{
		"frame=  120",
		"out_time_us=N/A",
		"speed=N/A",
		"not a key value line",
		"",
	} {
		if _, ok := p.Parse(line); ok {
			t.Errorf("line %q should not emit an update", line)
		}
	}
}

func TestDownloaderPercentParser(t *testing.T) {
	var p DownloaderPercentParser

	u, ok := p.Parse("[download]  42.7% of 1.34GiB at 3.21MiB/s ETA 00:32")
	if !ok {
		t.Fatal("expected a match")
	}
	if u.Fraction < 0.426 || u.Fraction > 0.428 {
		t.Errorf("fraction = %f, want ~0.427", u.Fraction)
	}
	if u.ETA != 32*time.Second {
		t.Errorf("eta = %v, want 32s", u.ETA)
	}

	if _, ok := p.Parse("[info] extracting formats"); ok {
		t.Error("non-progress line should not match")
	}
}

func TestAriaStyleParser(t *testing.T) {
	var p AriaStyleParser

	u, ok := p.Parse("[#3cf0de 128MiB/512MiB(25%) CN:4 DL:3.2MiB ETA:1m58s]")
	if !ok {
		t.Fatal("expected a match")
	}
	if u.Fraction != 0.25 {
		t.Errorf("fraction = %f, want 0.25", u.Fraction)
	}
	if u.Speed != "3.2MiB" {
		t.Errorf("speed = %q, want 3.2MiB", u.Speed)
	}
	if u.ETA != time.Minute+58*time.Second {
		t.Errorf("eta = %v, want 1m58s", u.ETA)
	}

	// Final summary line has no ETA token.
	u, ok = p.Parse("[#3cf0de 512MiB/512MiB(100%) CN:0 DL:4.0MiB]")
	if !ok {
		t.Fatal("expected a match for the final line")
	}
	if !u.Done {
		t.Error("100% should report done")
	}
}

func TestParseClockDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"00:32":    32 * time.Second,
		"01:02:03": time.Hour + 2*time.Minute + 3*time.Second,
		"bogus":    0,
	}
	for in, want := range cases {
		if got := parseClockDuration(in); got != want {
			t.Errorf("parseClockDuration(%q) = %v, want %v", in, got, want)
		}
	}
}
