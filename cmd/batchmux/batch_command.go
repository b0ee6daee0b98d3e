package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"batchmux/internal/batch"
	"batchmux/internal/config"
	"batchmux/internal/naming"
	"batchmux/internal/preflight"
	"batchmux/internal/services"
)

type batchOptions struct {
	inputs       string
	outputDir    string
	originalName bool
	prefix       string
	prefixSet    bool
	extension    string
	progress     string
	dryRun       bool
	anyInput     bool
	noHistory    bool
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch [INPUT...]",
		Short: "Convert multiple files into an output directory",
		Long: "Convert every input into --output-dir, one file at a time. Inputs come from\n" +
			"positional arguments and/or --inputs, a list joined by the configured\n" +
			"separator (\";\" by default). Output names either keep the input's base name\n" +
			"(--original-name) or follow a numbered sequence (--prefix video gives\n" +
			"video0.mp4, video1.mp4, ...).",
		Example: "  batchmux batch --inputs \"/rips/a.mkv;/rips/b.mkv\" -o /media/out --prefix episode\n" +
			"  batchmux batch -o /media/out --original-name --extension .mkv clips/*.mp4",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.prefixSet = cmd.Flags().Changed("prefix")
			return runBatch(cmd, ctx, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.inputs, "inputs", "", "Input files joined by the input separator")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "Directory for converted files (default batch.output_dir)")
	flags.BoolVar(&opts.originalName, "original-name", false, "Keep each input's base name")
	flags.StringVar(&opts.prefix, "prefix", "", "Name outputs PREFIX0, PREFIX1, ... (default batch.prefix)")
	flags.StringVarP(&opts.extension, "extension", "e", "", "Target extension: "+joinExtensions(config.SupportedExtensions))
	flags.StringVar(&opts.progress, "progress", "", "Progress output: text, log, or none (default batch.progress)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Print the planned jobs without converting")
	flags.BoolVar(&opts.anyInput, "any-input", false, "Accept inputs other than "+joinExtensions(config.SupportedExtensions))
	flags.BoolVar(&opts.noHistory, "no-history", false, "Do not archive this run")
	cmd.MarkFlagsMutuallyExclusive("original-name", "prefix")

	return cmd
}

// buildBatchRequest merges flags, positional inputs, and configuration into
// a batch request. It performs no filesystem writes.
func buildBatchRequest(cfg *config.Config, opts batchOptions, args []string) (batch.Request, error) {
	inputs := make([]string, 0, len(args))
	for _, arg := range args {
		if arg = strings.TrimSpace(arg); arg != "" {
			inputs = append(inputs, arg)
		}
	}
	inputs = append(inputs, batch.ParseInputList(opts.inputs, cfg.Batch.InputSeparator)...)
	if !opts.anyInput {
		if err := checkSourceExtensions(inputs); err != nil {
			return batch.Request{}, err
		}
	}

	outputDir := strings.TrimSpace(opts.outputDir)
	if outputDir == "" {
		outputDir = cfg.Batch.OutputDir
	}
	if outputDir == "" {
		return batch.Request{}, fmt.Errorf("%w: --output-dir is required (or set batch.output_dir)", services.ErrValidation)
	}
	expanded, err := config.ExpandPath(outputDir)
	if err != nil {
		return batch.Request{}, fmt.Errorf("%w: output dir: %w", services.ErrValidation, err)
	}

	extension, err := resolveExtension(opts.extension, cfg)
	if err != nil {
		return batch.Request{}, err
	}

	var policy naming.Policy
	switch {
	case opts.originalName:
		policy = naming.OriginalName()
	case opts.prefixSet:
		policy = naming.SequencePrefix(opts.prefix)
	default:
		policy, err = naming.ParsePolicy(cfg.Batch.Naming, cfg.Batch.Prefix)
		if err != nil {
			return batch.Request{}, err
		}
	}

	if err := policy.Validate(); err != nil {
		return batch.Request{}, err
	}

	return batch.Request{
		InputPaths:                inputs,
		OutputDirectory:           expanded,
		Extension:                 extension,
		Policy:                    policy,
		CaseInsensitiveCollisions: cfg.Batch.CaseInsensitiveCollisions,
	}, nil
}

func runBatch(cmd *cobra.Command, ctx *commandContext, opts batchOptions, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	req, err := buildBatchRequest(cfg, opts, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	// Planning first rejects collisions before anything is created on disk.
	jobs, err := batch.Plan(req)
	if err != nil {
		return err
	}
	if opts.dryRun {
		fmt.Fprint(out, renderPlan(req, jobs))
		return nil
	}

	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		// Nothing to convert, so ffmpeg, the output directory and the lock are not needed.
		result, runErr := batch.New(newEngine(cfg, logger), nil, logger).Run(cmd.Context(), req)
		if runErr != nil {
			return runErr
		}
		fmt.Fprint(out, renderSummary(result, colorize))
		return nil
	}
	if err := os.MkdirAll(req.OutputDirectory, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "batch", "create output directory", req.OutputDirectory, err)
	}
	if err := preflight.Err(preflight.RunAll(cfg, req.OutputDirectory)); err != nil {
		return err
	}
	unlock, err := lockOutputDir(req.OutputDirectory)
	if err != nil {
		return err
	}
	defer unlock()

	mode := opts.progress
	if strings.TrimSpace(mode) == "" {
		mode = cfg.Batch.Progress
	}
	sink, err := newProgressSink(mode, out, logger)
	if err != nil {
		return err
	}

	var orchOpts []batch.Option
	if !opts.noHistory {
		store, err := openHistory(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			orchOpts = append(orchOpts, batch.WithRecorder(store))
		}
	}

	orch := batch.New(newEngine(cfg, logger), sink, logger, orchOpts...)
	result, runErr := orch.Run(cmd.Context(), req)
	if result.State != batch.StateNotStarted {
		fmt.Fprint(out, renderSummary(result, colorize))
	}
	if runErr != nil {
		return runErr
	}
	if code := batch.ExitCode(result, nil); code != 0 {
		return &exitError{code: code, err: fmt.Errorf("%d of %d jobs failed", len(result.Failures), result.Total)}
	}
	return nil
}
