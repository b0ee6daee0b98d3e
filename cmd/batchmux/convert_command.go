package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"batchmux/internal/batch"
	"batchmux/internal/config"
	"batchmux/internal/services"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var anyInput bool

	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert a single file",
		Long: "Remux INPUT into OUTPUT, copying audio and video streams. The container\n" +
			"is chosen from the OUTPUT extension (.mp4 or .mkv).",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input, output := args[0], args[1]
			if !anyInput {
				if err := checkSourceExtensions([]string{input}); err != nil {
					return err
				}
			}
			if err := checkOutputExtension(output); err != nil {
				return err
			}
			if dir := filepath.Dir(output); dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return services.Wrap(services.ErrConfiguration, "convert", "create output directory", dir, err)
				}
			}

			orch := batch.New(newEngine(cfg, logger), nil, logger)
			if err := orch.ConvertFile(cmd.Context(), input, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %s -> %s\n", input, output)
			return nil
		},
	}

	cmd.Flags().BoolVar(&anyInput, "any-input", false, "Accept inputs other than "+joinExtensions(config.SupportedExtensions))
	return cmd
}
