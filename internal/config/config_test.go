package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"batchmux/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BATCHMUX_FFMPEG", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "batchmux", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogs := filepath.Join(tempHome, ".local", "share", "batchmux", "logs")
	if cfg.Logging.Dir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Logging.Dir, wantLogs)
	}
	if cfg.History.Path != filepath.Join(tempHome, ".local", "share", "batchmux", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.History.Path)
	}
	if cfg.Engine.FFmpegBinary != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Engine.FFmpegBinary)
	}
	if !cfg.Engine.CopyStreams || !cfg.Engine.AtomicWrites {
		t.Fatalf("unexpected engine defaults: %+v", cfg.Engine)
	}
	if cfg.Batch.Extension != ".mp4" || cfg.Batch.Naming != config.NamingSequence || cfg.Batch.Prefix != "video" {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if cfg.Batch.InputSeparator != ";" || cfg.Batch.Progress != config.ProgressText {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Batch)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Logging.Dir, filepath.Dir(cfg.History.Path)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "batchmux.toml")

	type payload struct {
		Engine struct {
			FFmpegBinary   string `toml:"ffmpeg_binary"`
			TimeoutSeconds int    `toml:"timeout_seconds"`
		} `toml:"engine"`
		Batch struct {
			OutputDir string `toml:"output_dir"`
			Extension string `toml:"extension"`
			Naming    string `toml:"naming"`
		} `toml:"batch"`
	}
	custom := payload{}
	custom.Engine.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	custom.Engine.TimeoutSeconds = 600
	custom.Batch.OutputDir = filepath.Join(tempDir, "out")
	custom.Batch.Extension = "MKV"
	custom.Batch.Naming = " Original "

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BATCHMUX_FFMPEG", "")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Engine.FFmpegBinary != "/opt/ffmpeg/bin/ffmpeg" || cfg.Engine.TimeoutSeconds != 600 {
		t.Fatalf("unexpected engine: %+v", cfg.Engine)
	}
	if cfg.Batch.Extension != ".mkv" {
		t.Fatalf("expected normalized extension, got %q", cfg.Batch.Extension)
	}
	if cfg.Batch.Naming != config.NamingOriginal {
		t.Fatalf("expected normalized naming, got %q", cfg.Batch.Naming)
	}
	if cfg.Batch.OutputDir != filepath.Join(tempDir, "out") {
		t.Fatalf("unexpected output dir %q", cfg.Batch.OutputDir)
	}
}

func TestLoadRejectsOverwriteToggle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overwrite.toml")
	if err := os.WriteFile(path, []byte("[engine]\noverwrite = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected overwrite to be rejected as an unknown key")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[engine]\nffmpeg = \"x\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesFFmpegBinary(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BATCHMUX_FFMPEG", "/usr/local/bin/ffmpeg7")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Engine.FFmpegBinary != "/usr/local/bin/ffmpeg7" {
		t.Fatalf("expected env override, got %q", cfg.Engine.FFmpegBinary)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"extension", func(c *config.Config) { c.Batch.Extension = ".avi" }, "batch.extension"},
		{"naming", func(c *config.Config) { c.Batch.Naming = "random" }, "batch.naming"},
		{"progress", func(c *config.Config) { c.Batch.Progress = "bar" }, "batch.progress"},
		{"copy streams", func(c *config.Config) { c.Engine.CopyStreams = false }, "engine.copy_streams"},
		{"timeout", func(c *config.Config) { c.Engine.TimeoutSeconds = -1 }, "engine.timeout_seconds"},
		{"binary", func(c *config.Config) { c.Engine.FFmpegBinary = " " }, "engine.ffmpeg_binary"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"retention", func(c *config.Config) { c.Logging.RetentionDays = -2 }, "logging.retention_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
		})
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"":       "",
		"mp4":    ".mp4",
		".MKV":   ".mkv",
		" .mp4 ": ".mp4",
	}
	for in, want := range tests {
		if got := config.NormalizeExtension(in); got != want {
			t.Fatalf("NormalizeExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BATCHMUX_FFMPEG", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config did not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	want := config.Default()
	if cfg.Batch.Extension != want.Batch.Extension || cfg.Batch.Prefix != want.Batch.Prefix {
		t.Fatalf("sample diverges from defaults: %+v", cfg.Batch)
	}
}
