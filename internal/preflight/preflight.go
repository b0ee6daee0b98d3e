package preflight

import (
	"errors"
	"fmt"
	"strings"

	"batchmux/internal/config"
	"batchmux/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the ffmpeg binary and, when set, the output directory.
// outputDir overrides batch.output_dir from cfg.
func RunAll(cfg *config.Config, outputDir string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{CheckFFmpeg(cfg.Engine.FFmpegBinary)}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = cfg.Batch.OutputDir
	}
	if outputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", outputDir))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}
	return results
}

// Err joins every failed result into one error, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: preflight failed: %w", services.ErrConfiguration, errors.Join(errs...))
}
