package ffmpeg

import (
	"context"
	"fmt"

	"github.com/gwlsn/vrsd/internal/logger"
	"github.com/gwlsn/vrsd/internal/proc/progress"
)

// TranscodeRequest carries a job's optional crf/cpu_used overrides,
// already range-validated by internal/jobs.ValidCRF/ValidCPUUsed at the
// HTTP layer before the planner ever sees them.
type TranscodeRequest struct {
	CRF     *int
	CPUUsed *int
}

func (r TranscodeRequest) crfOrDefault() int {
	if r.CRF != nil {
		return *r.CRF
	}
	return DefaultCRF
}

func (r TranscodeRequest) cpuUsedOrDefault() int {
	if r.CPUUsed != nil {
		return *r.CPUUsed
	}
	return DefaultCPUUsed
}

// Planner chooses an encoder, builds its mezzanine invocation, and
// drives the fallback chain: exhaust the probe's encoder priority list,
// ending with software, resetting stage progress on every attempt.
type Planner struct {
	transcoder *Transcoder
	prober     *Prober

	ffmpegPath string
	// Override forces a single encoder and disables fallback when
	// non-empty, set from VRSD_ENCODER / encoder_override.
	Override    HWAccel
	VAAPIDevice string
}

// NewPlanner returns a Planner invoking ffmpeg/ffprobe at the given
// paths. override is one of "videotoolbox", "nvenc", "qsv", "vaapi",
// "software", or "" for auto-detected fallback.
func NewPlanner(ffmpegPath, ffprobePath, override, vaapiDevice string) *Planner {
	return &Planner{
		transcoder:  NewTranscoder(ffmpegPath),
		prober:      NewProber(ffprobePath),
		ffmpegPath:  ffmpegPath,
		Override:    normalizeOverride(override),
		VAAPIDevice: vaapiDevice,
	}
}

func normalizeOverride(s string) HWAccel {
	switch s {
	case "videotoolbox", "nvenc", "qsv", "vaapi":
		return HWAccel(s)
	case "software":
		return HWAccelNone
	default:
		return ""
	}
}

// firstEncoder returns the encoder the planner should attempt first:
// the override if one is configured, otherwise the best detected
// encoder in EncoderPriority order.
func (p *Planner) firstEncoder() HWAccel {
	if p.Override != "" {
		return p.Override
	}
	return GetBestEncoder().Accel
}

// nextEncoder returns the next fallback candidate after current, or ""
// if none remain or an override disables the fallback chain entirely.
func (p *Planner) nextEncoder(current HWAccel) HWAccel {
	if p.Override != "" {
		return ""
	}
	fb := GetFallbackEncoder(current)
	if fb == nil {
		return ""
	}
	return fb.Accel
}

// Result bundles the transcode output together with the encoder that
// actually produced it, for the registry's SetEncoder.
type Result struct {
	*TranscodeResult
	Encoder HWAccel
}

// Transcode pre-probes sourcePath's duration, then tries encoders
// starting from firstEncoder and following the fallback chain on
// failure, resetting progress on each attempt via onAttemptStart.
// onProgress receives normalized fractional updates for the currently
// running attempt. Once the candidates are exhausted the returned error
// wraps the last attempt's failure; a probe failure or a cancelled ctx
// returns that error instead. The caller maps it to an apierr.Kind (EncoderUnavailable vs
// TranscodeFailed) when it fails the job.
func (p *Planner) Transcode(
	ctx context.Context,
	sourcePath, tempDir string,
	req TranscodeRequest,
	onAttemptStart func(encoder HWAccel),
	onProgress func(progress.Update),
) (*Result, error) {
	probeResult, err := p.prober.Probe(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("duration probe failed: %w", err)
	}

	encoder := p.firstEncoder()
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if onAttemptStart != nil {
			onAttemptStart(encoder)
		}

		prof := &Profile{
			Encoder:  encoder,
			CRF:      req.crfOrDefault(),
			CPUUsed:  req.cpuUsedOrDefault(),
			VAAPIDev: p.VAAPIDevice,
		}

		attemptPath := BuildTempPath(sourcePath, tempDir)
		result, err := p.transcoder.Transcode(ctx, sourcePath, attemptPath, prof, probeResult, onProgress)
		if err == nil {
			return &Result{TranscodeResult: result, Encoder: encoder}, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logger.Warn("transcode attempt failed", "encoder", encoder, "error", err)
		lastErr = err

		next := p.nextEncoder(encoder)
		if next == "" {
			return nil, fmt.Errorf("all encoder candidates exhausted: %w", lastErr)
		}
		encoder = next
	}
}
