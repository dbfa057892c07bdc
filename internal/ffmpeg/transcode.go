package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/proc"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// ErrEncoderStart marks failures where the encoder process never ran at
// all (missing binary, spawn error), as opposed to running and exiting
// nonzero. Callers use it to tell "encoder unavailable" apart from
// "transcode failed".
var ErrEncoderStart = errors.New("encoder failed to start")

// TranscodeResult contains the result of a transcode operation.
type TranscodeResult struct {
	InputPath  string        `json:"input_path"`
	OutputPath string        `json:"output_path"`
	InputSize  int64         `json:"input_size"`
	OutputSize int64         `json:"output_size"`
	Duration   time.Duration `json:"duration"`
}

// Transcoder wraps ffmpeg transcoding by way of internal/proc's
// external-process supervisor.
type Transcoder struct {
	ffmpegPath string
	supervisor *proc.Supervisor
}

// NewTranscoder creates a new Transcoder with the given ffmpeg path.
func NewTranscoder(ffmpegPath string) *Transcoder {
	return &Transcoder{ffmpegPath: ffmpegPath, supervisor: proc.New()}
}

// Transcode runs ffmpeg against the given mezzanine profile, reporting
// progress updates through onProgress as the process runs. A non-nil
// error always means outputPath was not produced or was removed.
func (t *Transcoder) Transcode(
	ctx context.Context,
	inputPath string,
	outputPath string,
	prof *Profile,
	src *ProbeResult,
	onProgress func(progress.Update),
) (*TranscodeResult, error) {
	startTime := time.Now()

	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input file: %w", err)
	}
	inputSize := inputInfo.Size()

	// Progress goes to pipe:2 (stderr) rather than pipe:1: the supervisor's
	// tail buffer only captures stderr, so key=value progress lines are
	// interleaved there with ffmpeg's normal logging instead of stdout.
	args := BuildInputArgs(prof, src)
	args = append(args, "-i", inputPath, "-y", "-progress", "pipe:2", "-nostats")
	args = append(args, BuildProfileArgs(prof)...)
	args = append(args, outputPath)

	logger.Debug("ffmpeg command", "args", strings.Join(args, " "))

	var duration time.Duration
	if src != nil {
		duration = src.Duration
	}
	parser := progress.NewFFmpegProgressParser(duration)
	spec := proc.Spec{
		Binary: t.ffmpegPath,
		Args:   args,
		StderrSink: proc.LineSinkFunc(func(line string) {
			if upd, ok := parser.Parse(line); ok && onProgress != nil {
				onProgress(upd)
			}
		}),
	}

	outcome := t.supervisor.Run(ctx, spec)
	if outcome.Status != proc.StatusOK {
		os.Remove(outputPath)
		logger.Error("ffmpeg failed", "status", outcome.Status, "stderr", outcome.StderrTail)
		if outcome.Status == proc.StatusSpawnFailed {
			return nil, fmt.Errorf("%w: %v", ErrEncoderStart, outcome.Err)
		}
		if outcome.Err != nil {
			return nil, fmt.Errorf("ffmpeg failed: %w", outcome.Err)
		}
		return nil, fmt.Errorf("ffmpeg exited with status %v", outcome.Status)
	}

	outputInfo, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}

	return &TranscodeResult{
		InputPath:  inputPath,
		OutputPath: outputPath,
		InputSize:  inputSize,
		OutputSize: outputInfo.Size(),
		Duration:   time.Since(startTime),
	}, nil
}

// BuildTempPath generates a temporary output path for a transcode attempt.
func BuildTempPath(inputPath, tempDir string) string {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	tempName := fmt.Sprintf("%s.vrsd.tmp.mkv", name)
	return filepath.Join(tempDir, tempName)
}
