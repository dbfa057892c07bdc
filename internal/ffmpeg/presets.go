package ffmpeg

import "fmt"

// Profile describes the transcode target for one job: a single
// mezzanine profile (AV1 video, Opus audio, streaming-friendly
// container) parameterized by encoder and quality overrides. Every job
// targets the same mezzanine shape; only the encoder and its quality
// knobs vary.
type Profile struct {
	Encoder  HWAccel
	CRF      int // validated [0,63] by internal/jobs.ValidCRF before this is built
	CPUUsed  int // validated [0,8]; ignored by hardware paths
	VAAPIDev string
}

// DefaultCRF and DefaultCPUUsed mirror internal/config's defaults,
// applied when a transcode request omits an override.
const (
	DefaultCRF     = 30
	DefaultCPUUsed = 6
)

// encoderSettings carries the FFmpeg flags for one encoder.
type encoderSettings struct {
	encoder     string
	qualityFlag string // -crf, -q:v, -cq, -global_quality, -qp
	extraArgs   []string
}

var encoderConfigs = map[HWAccel]encoderSettings{
	HWAccelNone: {
		encoder:     "libaom-av1",
		qualityFlag: "-crf",
		extraArgs:   []string{"-b:v", "0"},
	},
	HWAccelVideoToolbox: {
		encoder:     "av1_videotoolbox",
		qualityFlag: "-q:v",
		extraArgs:   []string{"-allow_sw", "1"},
	},
	HWAccelNVENC: {
		encoder:     "av1_nvenc",
		qualityFlag: "-cq",
		extraArgs:   []string{"-preset", "p4", "-tune", "hq", "-rc", "vbr"},
	},
	HWAccelQSV: {
		encoder:     "av1_qsv",
		qualityFlag: "-global_quality",
		extraArgs:   []string{"-preset", "medium"},
	},
	HWAccelVAAPI: {
		encoder:     "av1_vaapi",
		qualityFlag: "-qp",
	},
}

// BuildProfileArgs builds the ffmpeg output arguments for the mezzanine
// profile with the given encoder and quality overrides. It does not
// include "-i <input>" or the output path; the caller assembles the
// full command line around this.
func BuildProfileArgs(p *Profile) []string {
	config, ok := encoderConfigs[p.Encoder]
	if !ok {
		config = encoderConfigs[HWAccelNone]
	}

	var args []string

	if p.Encoder == HWAccelVAAPI {
		args = append(args, "-vf", "format=nv12,hwupload")
	}

	args = append(args, "-c:v", config.encoder, config.qualityFlag, fmt.Sprintf("%d", p.CRF))
	if p.Encoder == HWAccelNone {
		args = append(args, "-cpu-used", fmt.Sprintf("%d", p.CPUUsed))
	}
	args = append(args, config.extraArgs...)

	// Opus audio on every path; only the primary audio track is kept —
	// the mezzanine is a single playback-ready asset, not a archival copy.
	args = append(args, "-map", "0:v:0", "-map", "0:a:0?", "-c:a", "libopus", "-b:a", "128k")

	// cues up front so HTTP range requests can seek before the full
	// file downloads.
	args = append(args, "-f", "matroska", "-reserve_index_space", "200k")

	if p.Encoder == HWAccelVAAPI {
		device := p.VAAPIDev
		if device == "" {
			device = GetVAAPIDevice()
		}
		args = append([]string{"-vaapi_device", device}, args...)
	}

	return args
}

// BuildInputArgs builds the decoder-side arguments placed before
// "-i <input>". Hardware decode is only requested when the source is
// known to be hardware-decodable for the chosen encoder; otherwise
// ffmpeg decodes in software and only the encode path is accelerated.
func BuildInputArgs(p *Profile, src *ProbeResult) []string {
	if p.Encoder == HWAccelNone || src == nil {
		return nil
	}
	if RequiresSoftwareDecode(src.VideoCodec, src.Profile, src.BitDepth, p.Encoder) {
		return nil
	}

	switch p.Encoder {
	case HWAccelVideoToolbox:
		return []string{"-hwaccel", "videotoolbox"}
	case HWAccelNVENC:
		if GetNVENCInitMode() == NVENCInitExplicit {
			return []string{"-init_hw_device", "cuda=cu:0", "-hwaccel", "cuda"}
		}
		return []string{"-hwaccel", "cuda"}
	case HWAccelQSV:
		if GetQSVInitMode() == QSVInitVAAPI {
			device := p.VAAPIDev
			if device == "" {
				device = GetVAAPIDevice()
			}
			return []string{"-init_hw_device", "vaapi=va:" + device, "-init_hw_device", "qsv=qs@va", "-hwaccel", "qsv"}
		}
		return []string{"-hwaccel", "qsv"}
	}

	// VAAPI decodes in software; the output chain hwuploads before encode.
	return nil
}

// WithEncoder returns a copy of the profile targeting a different
// encoder, used by the fallback chain after a failed attempt.
func (p *Profile) WithEncoder(accel HWAccel) *Profile {
	cp := *p
	cp.Encoder = accel
	return &cp
}
