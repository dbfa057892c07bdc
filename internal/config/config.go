// Package config loads and persists the server's configuration: a
// defaults struct, YAML load with write-back of a default file when
// absent, and environment variable overrides layered on top after load.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the server's runtime configuration.
type Config struct {
	// BindAddr is the address the HTTP server listens on.
	BindAddr string `yaml:"bind_addr"`

	// StorageRoot is where published mezzanine files live, one directory
	// per job id: <storage_root>/<id>/download.<ext>.
	StorageRoot string `yaml:"storage_root"`

	// TempRoot is the root of the staging/rendition-cache tree:
	// <temp_root>/incoming, <temp_root>/hls, <temp_root>/dash.
	TempRoot string `yaml:"temp_root"`

	// EncoderOverride forces a single encoder and disables fallback.
	// One of "videotoolbox", "nvenc", "qsv", "vaapi", "software", or "" (auto).
	EncoderOverride string `yaml:"encoder_override"`

	// VAAPIDevice is the VA-API render node used when the vaapi encoder
	// is selected.
	VAAPIDevice string `yaml:"vaapi_device"`

	// MinFreeBytes is the free-space floor below which a janitor pass
	// prunes (up to CleanupBatch caches per pass).
	MinFreeBytes int64 `yaml:"min_free_bytes"`

	// MinFreeRatio is the free/total-space floor below which a janitor
	// pass prunes (up to CleanupBatch caches per pass).
	MinFreeRatio float64 `yaml:"min_free_ratio"`

	// CleanupBatch bounds how many rendition caches one janitor pass prunes.
	CleanupBatch int `yaml:"cleanup_batch"`

	// JanitorInterval is how often the janitor checks free space.
	JanitorInterval string `yaml:"janitor_interval"`

	// LogLevel controls logging verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// FFmpegPath is the path to the ffmpeg binary (encode + remux).
	FFmpegPath string `yaml:"ffmpeg_path"`

	// FFprobePath is the path to the ffprobe binary (duration pre-probe).
	FFprobePath string `yaml:"ffprobe_path"`

	// AriaPath is the path to the high-throughput downloader binary
	// (aria2c), used by the remote and torrent ingest drivers.
	AriaPath string `yaml:"aria_path"`

	// ExtractorPath is the path to the site-specific extractor binary
	// (yt-dlp), used by the extractor ingest driver.
	ExtractorPath string `yaml:"extractor_path"`

	// EventLogPath is where the SQLite job event journal is written.
	EventLogPath string `yaml:"event_log_path"`

	// DefaultCRF is carried in the config file only; the planner does not
	// read it and applies ffmpeg.DefaultCRF when a request omits crf.
	DefaultCRF int `yaml:"default_crf"`

	// DefaultCPUUsed is carried in the config file only; the planner does
	// not read it and applies ffmpeg.DefaultCPUUsed when a request omits
	// cpu_used (ignored by hardware encoder paths).
	DefaultCPUUsed int `yaml:"default_cpu_used"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:        "0.0.0.0:3000",
		StorageRoot:     "./data",
		TempRoot:        "",
		EncoderOverride: "",
		VAAPIDevice:     "/dev/dri/renderD128",
		MinFreeBytes:    5 * 1024 * 1024 * 1024,
		MinFreeRatio:    0.1,
		CleanupBatch:    5,
		JanitorInterval: "60s",
		LogLevel:        "info",
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		AriaPath:        "aria2c",
		ExtractorPath:   "yt-dlp",
		EventLogPath:    "",
		DefaultCRF:      30,
		DefaultCPUUsed:  6,
	}
}

// Load reads config from a YAML file, applying defaults for missing
// values. If the file doesn't exist, a default one is written in its
// place and the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if saveErr := cfg.Save(path); saveErr != nil {
				fmt.Printf("Warning: could not create config file: %v\n", saveErr)
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.BindAddr == "" {
		c.BindAddr = "0.0.0.0:3000"
	}
	if c.StorageRoot == "" {
		c.StorageRoot = "./data"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.AriaPath == "" {
		c.AriaPath = "aria2c"
	}
	if c.ExtractorPath == "" {
		c.ExtractorPath = "yt-dlp"
	}
	if c.VAAPIDevice == "" {
		c.VAAPIDevice = "/dev/dri/renderD128"
	}
	if c.MinFreeBytes <= 0 {
		c.MinFreeBytes = 5 * 1024 * 1024 * 1024
	}
	if c.MinFreeRatio <= 0 {
		c.MinFreeRatio = 0.1
	}
	if c.CleanupBatch <= 0 {
		c.CleanupBatch = 5
	}
	if c.JanitorInterval == "" {
		c.JanitorInterval = "60s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DefaultCRF <= 0 {
		c.DefaultCRF = 30
	}
	if c.DefaultCPUUsed < 0 {
		c.DefaultCPUUsed = 6
	}
}

// ApplyEnv overrides config fields from recognized environment variables,
// applied after Load so the environment wins over the config file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("VRSD_BIND_ADDR"); v != "" {
		c.BindAddr = v
	}
	if v := getenv("VRSD_STORAGE_ROOT"); v != "" {
		c.StorageRoot = v
	}
	if v := getenv("VRSD_TEMP_ROOT"); v != "" {
		c.TempRoot = v
	}
	if v := getenv("VRSD_ENCODER"); v != "" {
		c.EncoderOverride = v
	}
	if v := getenv("VRSD_VAAPI_DEVICE"); v != "" {
		c.VAAPIDevice = v
	}
	if v := getenv("VRSD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Save writes the config to a YAML file, creating its directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// IncomingDir is the staging directory for ingest drivers.
func (c *Config) IncomingDir() string {
	return filepath.Join(c.tempRootOrDefault(), "incoming")
}

// RenditionDir is the lazy-rendition cache root for the given format
// ("hls" or "dash").
func (c *Config) RenditionDir(format string) string {
	return filepath.Join(c.tempRootOrDefault(), format)
}

// TempRootForRenditions is the shared root a single rendition.Generator
// is constructed against; it holds the "hls" and "dash" subtrees
// Generator.Dir resolves per-format.
func (c *Config) TempRootForRenditions() string {
	return c.tempRootOrDefault()
}

func (c *Config) tempRootOrDefault() string {
	if c.TempRoot != "" {
		return c.TempRoot
	}
	return filepath.Join(os.TempDir(), "vrs")
}

// JobDir is the published directory for a job id under the storage root.
func (c *Config) JobDir(id string) string {
	return filepath.Join(c.StorageRoot, id)
}
