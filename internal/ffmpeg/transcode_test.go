package ffmpeg

import "testing"

func TestBuildTempPath(t *testing.T) {
	tests := []struct {
		input    string
		tempDir  string
		expected string
	}{
		{
			"/media/movie.mkv",
			"/tmp",
			"/tmp/movie.vrsd.tmp.mkv",
		},
		{
			"/media/tv/show/episode.mp4",
			"/media/tv/show",
			"/media/tv/show/episode.vrsd.tmp.mkv",
		},
		{
			"/data/video.avi",
			"/data",
			"/data/video.vrsd.tmp.mkv",
		},
	}

	for _, tt := range tests {
		result := BuildTempPath(tt.input, tt.tempDir)
		if result != tt.expected {
			t.Errorf("BuildTempPath(%s, %s) = %s, expected %s",
				tt.input, tt.tempDir, result, tt.expected)
		}
	}
}
