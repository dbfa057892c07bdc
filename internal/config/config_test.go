package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vrsd.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BindAddr != "0.0.0.0:3000" {
		t.Errorf("BindAddr = %q, want default", cfg.BindAddr)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected Load to write a default config file: %v", err)
	}
}

func TestLoadAppliesDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vrsd.yaml")
	if err := os.WriteFile(path, []byte("storage_root: /custom/path\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageRoot != "/custom/path" {
		t.Errorf("StorageRoot = %q, want /custom/path", cfg.StorageRoot)
	}
	if cfg.FFmpegPath != "ffmpeg" {
		t.Errorf("FFmpegPath = %q, want default ffmpeg", cfg.FFmpegPath)
	}
	if cfg.DefaultCRF != 30 {
		t.Errorf("DefaultCRF = %d, want 30", cfg.DefaultCRF)
	}
}

func TestApplyEnvOverridesConfigFile(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"VRSD_BIND_ADDR": "127.0.0.1:9000",
		"VRSD_ENCODER":   "vaapi",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.BindAddr != "127.0.0.1:9000" {
		t.Errorf("BindAddr = %q, want override", cfg.BindAddr)
	}
	if cfg.EncoderOverride != "vaapi" {
		t.Errorf("EncoderOverride = %q, want vaapi", cfg.EncoderOverride)
	}
}

func TestIncomingAndRenditionDirsNestUnderTempRoot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TempRoot = "/tmp/vrs-test"

	if got := cfg.IncomingDir(); got != filepath.Join("/tmp/vrs-test", "incoming") {
		t.Errorf("IncomingDir() = %q", got)
	}
	if got := cfg.RenditionDir("hls"); got != filepath.Join("/tmp/vrs-test", "hls") {
		t.Errorf("RenditionDir(hls) = %q", got)
	}
	if got := cfg.TempRootForRenditions(); got != "/tmp/vrs-test" {
		t.Errorf("TempRootForRenditions() = %q", got)
	}
}

func TestJobDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageRoot = "/data"
	if got := cfg.JobDir("abc"); got != filepath.Join("/data", "abc") {
		t.Errorf("JobDir() = %q", got)
	}
}
