package ffmpeg

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// HWAccel represents a hardware acceleration method. The mezzanine
// profile is AV1-only, so encoders are keyed by HWAccel alone rather
// than the (accel, codec) pair a multi-codec table would need.
type HWAccel string

const (
	HWAccelNone         HWAccel = "none"         // Software encoding (libaom-av1)
	HWAccelVideoToolbox HWAccel = "videotoolbox" // Apple Silicon / Intel Mac
	HWAccelNVENC        HWAccel = "nvenc"        // NVIDIA GPU
	HWAccelQSV          HWAccel = "qsv"          // Intel Quick Sync
	HWAccelVAAPI        HWAccel = "vaapi"        // Linux VA-API (Intel/AMD)
)

// HWEncoder contains info about an AV1 encoder.
type HWEncoder struct {
	Accel       HWAccel `json:"accel"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Encoder     string  `json:"encoder"` // FFmpeg encoder name (e.g., av1_videotoolbox)
	Available   bool    `json:"available"`
}

// QSVInitMode indicates how QSV should be initialized on Linux.
type QSVInitMode int

const (
	QSVInitDirect QSVInitMode = iota // -init_hw_device qsv=qsv (works on most Docker setups)
	QSVInitVAAPI                     // -init_hw_device vaapi=va:... -init_hw_device qsv=qs@va (Jellyfin style)
)

// NVENCInitMode indicates how NVENC should be initialized.
type NVENCInitMode int

const (
	NVENCInitSimple   NVENCInitMode = iota // -hwaccel cuda (works on most Docker setups)
	NVENCInitExplicit                      // -init_hw_device cuda=cu:0 (required for CUDA filters)
)

// AvailableEncoders holds the detected AV1 encoders.
type AvailableEncoders struct {
	mu            sync.RWMutex
	encoders      map[HWAccel]*HWEncoder
	detected      bool
	vaapiDevice   string        // Auto-detected VAAPI device path (e.g., /dev/dri/renderD128)
	qsvInitMode   QSVInitMode   // Which QSV init method works on this system
	nvencInitMode NVENCInitMode // Which NVENC init method works on this system
}

// Global encoder detection cache.
var availableEncoders = &AvailableEncoders{
	encoders: make(map[HWAccel]*HWEncoder),
}

// allEncoderDefs defines every candidate AV1 encoder, in fallback priority
// order: VideoToolbox > NVENC > QSV > VAAPI > software (libaom-av1).
var allEncoderDefs = []*HWEncoder{
	{
		Accel:       HWAccelVideoToolbox,
		Name:        "VideoToolbox AV1",
		Description: "Apple Silicon (M3+) hardware AV1 encoding",
		Encoder:     "av1_videotoolbox",
	},
	{
		Accel:       HWAccelNVENC,
		Name:        "NVENC AV1",
		Description: "NVIDIA GPU (RTX 40+) hardware AV1 encoding",
		Encoder:     "av1_nvenc",
	},
	{
		Accel:       HWAccelQSV,
		Name:        "Quick Sync AV1",
		Description: "Intel Arc hardware AV1 encoding",
		Encoder:     "av1_qsv",
	},
	{
		Accel:       HWAccelVAAPI,
		Name:        "VAAPI AV1",
		Description: "Linux VA-API hardware AV1 encoding (Intel/AMD)",
		Encoder:     "av1_vaapi",
	},
	{
		Accel:       HWAccelNone,
		Name:        "Software AV1",
		Description: "CPU-based AV1 encoding (libaom)",
		Encoder:     "libaom-av1",
		Available:   true, // Software is always available (if ffmpeg has it)
	},
}

// EncoderPriority is the fallback order tried when the planner needs the
// next candidate after one fails.
var EncoderPriority = []HWAccel{HWAccelVideoToolbox, HWAccelNVENC, HWAccelQSV, HWAccelVAAPI, HWAccelNone}

// softwareEncoder is the always-available terminal fallback.
func softwareEncoder() *HWEncoder {
	return &HWEncoder{
		Accel:       HWAccelNone,
		Name:        "Software AV1",
		Description: "CPU-based AV1 encoding (libaom)",
		Encoder:     "libaom-av1",
		Available:   true,
	}
}

// DetectEncoders probes FFmpeg to detect available AV1 encoders.
func DetectEncoders(ffmpegPath string) map[HWAccel]*HWEncoder {
	availableEncoders.mu.Lock()
	defer availableEncoders.mu.Unlock()

	if availableEncoders.detected {
		return copyEncoders(availableEncoders.encoders)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath, "-encoders", "-hide_banner")
	output, err := cmd.Output()
	if err != nil {
		availableEncoders.encoders[HWAccelNone] = softwareEncoder()
		availableEncoders.detected = true
		return copyEncoders(availableEncoders.encoders)
	}

	encoderList := string(output)

	for _, enc := range allEncoderDefs {
		encCopy := *enc

		if !strings.Contains(encoderList, enc.Encoder) {
			encCopy.Available = false
			availableEncoders.encoders[enc.Accel] = &encCopy
			continue
		}

		if enc.Accel == HWAccelNone {
			encCopy.Available = true
		} else {
			encCopy.Available = testEncoder(ffmpegPath, enc.Encoder)
		}
		availableEncoders.encoders[enc.Accel] = &encCopy
	}

	availableEncoders.detected = true
	return copyEncoders(availableEncoders.encoders)
}

// detectVAAPIDevice finds the first available VAAPI render device.
func detectVAAPIDevice() string {
	driPath := "/dev/dri"
	entries, err := os.ReadDir(driPath)
	if err != nil {
		return ""
	}

	var devices []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "renderD") {
			devices = append(devices, filepath.Join(driPath, entry.Name()))
		}
	}
	sort.Strings(devices)

	if len(devices) > 0 {
		return devices[0]
	}
	return ""
}

// testEncoder tries a quick test encode to verify a hardware encoder
// actually works, not just that ffmpeg was built with it.
func testEncoder(ffmpegPath string, encoder string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var args []string

	switch {
	case strings.Contains(encoder, "qsv") && runtime.GOOS == "linux":
		directArgs := []string{
			"-init_hw_device", "qsv=qsv",
			"-filter_hw_device", "qsv",
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-vf", "format=nv12,hwupload=extra_hw_frames=64",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}
		if exec.CommandContext(ctx, ffmpegPath, directArgs...).Run() == nil {
			availableEncoders.qsvInitMode = QSVInitDirect
			return true
		}

		device := detectVAAPIDevice()
		if device == "" {
			return false
		}
		availableEncoders.vaapiDevice = device
		args = []string{
			"-init_hw_device", "vaapi=va:" + device,
			"-init_hw_device", "qsv=qs@va",
			"-filter_hw_device", "qs",
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-vf", "format=nv12,hwupload=extra_hw_frames=64",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}
		if exec.CommandContext(ctx, ffmpegPath, args...).Run() == nil {
			availableEncoders.qsvInitMode = QSVInitVAAPI
			return true
		}
		return false

	case strings.Contains(encoder, "vaapi"):
		device := detectVAAPIDevice()
		if device == "" {
			return false
		}
		availableEncoders.vaapiDevice = device
		args = []string{
			"-init_hw_device", "vaapi=va:" + device,
			"-filter_hw_device", "va",
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-vf", "format=nv12,hwupload",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}

	case strings.Contains(encoder, "nvenc"):
		simpleArgs := []string{
			"-hwaccel", "cuda",
			"-hwaccel_output_format", "cuda",
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}
		if exec.CommandContext(ctx, ffmpegPath, simpleArgs...).Run() == nil {
			availableEncoders.nvencInitMode = NVENCInitSimple
			return true
		}

		explicitArgs := []string{
			"-init_hw_device", "cuda=cu:0",
			"-filter_hw_device", "cu",
			"-hwaccel", "cuda",
			"-hwaccel_output_format", "cuda",
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}
		if exec.CommandContext(ctx, ffmpegPath, explicitArgs...).Run() == nil {
			availableEncoders.nvencInitMode = NVENCInitExplicit
			return true
		}
		return false

	default:
		args = []string{
			"-f", "lavfi",
			"-i", "color=c=black:s=256x256:d=0.1",
			"-frames:v", "1",
			"-c:v", encoder,
			"-f", "null",
			"-",
		}
	}

	return exec.CommandContext(ctx, ffmpegPath, args...).Run() == nil
}

// GetVAAPIDevice returns the auto-detected VAAPI device path, or a default.
func GetVAAPIDevice() string {
	availableEncoders.mu.RLock()
	defer availableEncoders.mu.RUnlock()
	if availableEncoders.vaapiDevice != "" {
		return availableEncoders.vaapiDevice
	}
	return "/dev/dri/renderD128"
}

// GetQSVInitMode returns the detected QSV initialization mode.
func GetQSVInitMode() QSVInitMode {
	availableEncoders.mu.RLock()
	defer availableEncoders.mu.RUnlock()
	return availableEncoders.qsvInitMode
}

// GetNVENCInitMode returns the detected NVENC initialization mode.
func GetNVENCInitMode() NVENCInitMode {
	availableEncoders.mu.RLock()
	defer availableEncoders.mu.RUnlock()
	return availableEncoders.nvencInitMode
}

// GetEncoder returns a specific encoder by accel type.
func GetEncoder(accel HWAccel) *HWEncoder {
	availableEncoders.mu.RLock()
	defer availableEncoders.mu.RUnlock()
	if enc, ok := availableEncoders.encoders[accel]; ok {
		encCopy := *enc
		return &encCopy
	}
	return nil
}

// IsEncoderAvailable checks if a specific encoder is available.
func IsEncoderAvailable(accel HWAccel) bool {
	enc := GetEncoder(accel)
	return enc != nil && enc.Available
}

// GetBestEncoder returns the best available AV1 encoder, preferring
// hardware in EncoderPriority order, falling back to software.
func GetBestEncoder() *HWEncoder {
	for _, accel := range EncoderPriority {
		if IsEncoderAvailable(accel) {
			return GetEncoder(accel)
		}
	}
	return softwareEncoder()
}

// GetFallbackEncoder returns the next available encoder after current,
// following EncoderPriority. Returns nil if current is already software.
func GetFallbackEncoder(current HWAccel) *HWEncoder {
	currentIdx := -1
	for i, accel := range EncoderPriority {
		if accel == current {
			currentIdx = i
			break
		}
	}

	if currentIdx == -1 || current == HWAccelNone {
		return nil
	}

	for i := currentIdx + 1; i < len(EncoderPriority); i++ {
		accel := EncoderPriority[i]
		if enc := GetEncoder(accel); enc != nil && enc.Available {
			return enc
		}
		if accel == HWAccelNone {
			return softwareEncoder()
		}
	}

	return nil
}

// ListAvailableEncoders returns available encoders in priority order.
func ListAvailableEncoders() []*HWEncoder {
	availableEncoders.mu.RLock()
	defer availableEncoders.mu.RUnlock()

	var result []*HWEncoder
	for _, accel := range EncoderPriority {
		if enc, ok := availableEncoders.encoders[accel]; ok && enc.Available {
			encCopy := *enc
			result = append(result, &encCopy)
		}
	}
	return result
}

func copyEncoders(src map[HWAccel]*HWEncoder) map[HWAccel]*HWEncoder {
	dst := make(map[HWAccel]*HWEncoder)
	for k, v := range src {
		encCopy := *v
		dst[k] = &encCopy
	}
	return dst
}

// RequiresSoftwareDecode returns true if the video cannot be hardware
// decoded by the given encoder's associated hardware decoder, so the
// planner can proactively choose software decode instead of wasting
// time on a failed hardware attempt.
func RequiresSoftwareDecode(codec, profile string, bitDepth int, encoder HWAccel) bool {
	if encoder == HWAccelNone {
		return false
	}

	codec = strings.ToLower(codec)
	profile = strings.ToLower(profile)

	if (codec == "h264" || codec == "avc") && bitDepth >= 10 && encoder != HWAccelNVENC {
		return true
	}

	switch encoder {
	case HWAccelQSV:
		if codec == "vc1" || codec == "wmv3" {
			return true
		}
		if codec == "mpeg4" && !strings.HasPrefix(profile, "simple") {
			return true
		}
	case HWAccelVAAPI:
		if codec == "vc1" || codec == "wmv3" {
			return true
		}
	case HWAccelNVENC:
		if codec == "vc1" {
			return true
		}
	case HWAccelVideoToolbox:
		// Good codec coverage on Apple Silicon, 10-bit H.264 already caught above.
	}

	return false
}
