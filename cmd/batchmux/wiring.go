package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"batchmux/internal/config"
	"batchmux/internal/engine"
	"batchmux/internal/history"
	"batchmux/internal/progress"
	"batchmux/internal/services"
)

const outputLockName = ".batchmux.lock"

func newEngine(cfg *config.Config, logger *slog.Logger) *engine.FFmpeg {
	return engine.NewFFmpeg(engine.Options{
		Binary:       cfg.Engine.FFmpegBinary,
		Timeout:      time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
		AtomicWrites: cfg.Engine.AtomicWrites,
	}, logger)
}

func newProgressSink(mode string, out io.Writer, logger *slog.Logger) (progress.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case config.ProgressText:
		return progress.NewText(out), nil
	case config.ProgressLog:
		return progress.NewLog(logger, 10), nil
	case config.ProgressNone:
		return progress.Nop{}, nil
	default:
		return nil, fmt.Errorf("%w: --progress must be text, log, or none; got %q", services.ErrValidation, mode)
	}
}

// lockOutputDir takes an exclusive lock inside dir so two batches never
// write into the same directory at once.
func lockOutputDir(dir string) (func(), error) {
	lock := flock.New(filepath.Join(dir, outputLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another batchmux run is writing to %s", services.ErrValidation, dir)
	}
	return func() { _ = lock.Unlock() }, nil
}

// openHistory returns nil when the archive is disabled.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func resolveExtension(flagValue string, cfg *config.Config) (string, error) {
	ext := cfg.Batch.Extension
	if strings.TrimSpace(flagValue) != "" {
		ext = config.NormalizeExtension(flagValue)
	}
	if !slices.Contains(config.SupportedExtensions, ext) {
		return "", fmt.Errorf("%w: extension must be one of %s, got %q",
			services.ErrValidation, strings.Join(config.SupportedExtensions, ", "), ext)
	}
	return ext, nil
}

// checkSourceExtensions rejects inputs that are not MP4 or MKV files.
func checkSourceExtensions(paths []string) error {
	var rejected []string
	for _, p := range paths {
		if !slices.Contains(config.SupportedExtensions, strings.ToLower(filepath.Ext(p))) {
			rejected = append(rejected, p)
		}
	}
	if len(rejected) == 0 {
		return nil
	}
	return fmt.Errorf("%w: unsupported input file(s) %s (use --any-input to allow other containers)",
		services.ErrValidation, strings.Join(rejected, ", "))
}

func checkOutputExtension(output string) error {
	ext := strings.ToLower(filepath.Ext(output))
	if !slices.Contains(config.SupportedExtensions, ext) {
		return fmt.Errorf("%w: output %s must end in %s", services.ErrValidation, output, joinExtensions(config.SupportedExtensions))
	}
	return nil
}
