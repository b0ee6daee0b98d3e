package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"batchmux/internal/config"
	"batchmux/internal/engine"
	"batchmux/internal/logging"
	"batchmux/internal/preflight"
	"batchmux/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			dir := strings.TrimSpace(outputDir)
			if dir != "" {
				if dir, err = expandUserPath(dir); err != nil {
					return err
				}
			}
			results := preflight.RunAll(cfg, dir)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if results[0].Passed {
				eng := engine.NewFFmpeg(engine.Options{Binary: cfg.Engine.FFmpegBinary}, logging.NewNop())
				if version, err := eng.Version(cmd.Context()); err == nil {
					fmt.Fprintln(out, renderStatusLine("FFmpeg version", statusInfo, version, colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("FFmpeg version", statusWarn, err.Error(), colorize))
				}
			}
			if cfg.History.Enabled {
				fmt.Fprintln(out, renderStatusLine("History", statusInfo, cfg.History.Path, colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("History", statusInfo, "disabled", colorize))
			}

			if err := preflight.Err(results); err != nil {
				return &exitError{code: 1, err: err}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory to check (default batch.output_dir)")
	return cmd
}

func expandUserPath(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", services.ErrValidation, path, err)
	}
	return expanded, nil
}
