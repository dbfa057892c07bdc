package ffmpeg

import "testing"

func TestNormalizeOverride(t *testing.T) {
	cases := []struct {
		in   string
		want HWAccel
	}{
		{"", ""},
		{"videotoolbox", HWAccelVideoToolbox},
		{"nvenc", HWAccelNVENC},
		{"qsv", HWAccelQSV},
		{"vaapi", HWAccelVAAPI},
		{"software", HWAccelNone},
		{"bogus", ""},
	}
	for _, c := range cases {
		if got := normalizeOverride(c.in); got != c.want {
			t.Errorf("normalizeOverride(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPlannerFirstEncoderRespectsOverride(t *testing.T) {
	p := NewPlanner("ffmpeg", "ffprobe", "vaapi", "")
	if got := p.firstEncoder(); got != HWAccelVAAPI {
		t.Errorf("firstEncoder() = %q, want vaapi", got)
	}
}

func TestPlannerFirstEncoderAutoWithoutOverride(t *testing.T) {
	p := NewPlanner("ffmpeg", "ffprobe", "", "")
	if p.Override != "" {
		t.Fatalf("expected no override, got %q", p.Override)
	}
	// With no detection run, GetBestEncoder falls back to software; the
	// planner must still return a usable first candidate rather than "".
	if got := p.firstEncoder(); got == "" {
		t.Error("firstEncoder() returned empty HWAccel with no override configured")
	}
}

func TestPlannerNextEncoderDisabledByOverride(t *testing.T) {
	p := NewPlanner("ffmpeg", "ffprobe", "nvenc", "")
	if got := p.nextEncoder(HWAccelNVENC); got != "" {
		t.Errorf("nextEncoder() = %q, want empty: an override must disable fallback", got)
	}
}

func TestPlannerNextEncoderFollowsPriorityWithoutOverride(t *testing.T) {
	p := NewPlanner("ffmpeg", "ffprobe", "", "")
	got := p.nextEncoder(HWAccelVideoToolbox)
	want := GetFallbackEncoder(HWAccelVideoToolbox)
	if want == nil {
		if got != "" {
			t.Errorf("nextEncoder() = %q, want empty when GetFallbackEncoder has no next", got)
		}
		return
	}
	if got != want.Accel {
		t.Errorf("nextEncoder() = %q, want %q", got, want.Accel)
	}
}

func TestPlannerNextEncoderExhaustsAtSoftware(t *testing.T) {
	p := NewPlanner("ffmpeg", "ffprobe", "", "")
	if got := p.nextEncoder(HWAccelNone); got != "" {
		t.Errorf("nextEncoder(none) = %q, want empty: software is the last candidate", got)
	}
}

func TestTranscodeRequestDefaults(t *testing.T) {
	var req TranscodeRequest
	if req.crfOrDefault() != DefaultCRF {
		t.Errorf("crfOrDefault() = %d, want %d", req.crfOrDefault(), DefaultCRF)
	}
	if req.cpuUsedOrDefault() != DefaultCPUUsed {
		t.Errorf("cpuUsedOrDefault() = %d, want %d", req.cpuUsedOrDefault(), DefaultCPUUsed)
	}

	crf, cpu := 20, 4
	req = TranscodeRequest{CRF: &crf, CPUUsed: &cpu}
	if req.crfOrDefault() != 20 {
		t.Errorf("crfOrDefault() = %d, want 20", req.crfOrDefault())
	}
	if req.cpuUsedOrDefault() != 4 {
		t.Errorf("cpuUsedOrDefault() = %d, want 4", req.cpuUsedOrDefault())
	}
}
