package ffmpeg

import "testing"

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"30000/1001", 29.97002997002997},
		{"30/1", 30},
		{"0/0", 0},
		{"", 0},
		{"25", 25},
	}

	for _, tt := range tests {
		result := parseFrameRate(tt.input)
		if result != tt.expected {
			t.Errorf("parseFrameRate(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestInferBitDepth(t *testing.T) {
	tests := []struct {
		pixFmt   string
		expected int
	}{
		{"yuv420p", 8},
		{"yuv420p10le", 10},
		{"yuv420p10be", 10},
		{"p010le", 10},
		{"yuv420p12le", 12},
		{"", 8},
	}

	for _, tt := range tests {
		result := inferBitDepth(tt.pixFmt)
		if result != tt.expected {
			t.Errorf("inferBitDepth(%q) = %d, expected %d", tt.pixFmt, result, tt.expected)
		}
	}
}

func TestIsAV1Codec(t *testing.T) {
	if !isAV1Codec("av1") || !isAV1Codec("libaom-av1") || !isAV1Codec("libsvtav1") {
		t.Error("expected known AV1 codec names to match")
	}
	if isAV1Codec("hevc") {
		t.Error("expected hevc to not match as AV1")
	}
}

func TestIsVideoFile(t *testing.T) {
	cases := map[string]bool{
		"/data/movie.mkv":  true,
		"/data/movie.MP4":  true,
		"/data/readme.txt": false,
		"/data/archive.zip": false,
	}
	for path, want := range cases {
		if got := IsVideoFile(path); got != want {
			t.Errorf("IsVideoFile(%q) = %v, want %v", path, got, want)
		}
	}
}
