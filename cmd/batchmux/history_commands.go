package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"batchmux/internal/history"
	"batchmux/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect archived batch runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func withHistory(cmd *cobra.Command, ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("%w: history is disabled (history.enabled = false)", services.ErrConfiguration)
	}
	store, err := openHistory(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent batch runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				batches, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(batches) == 0 {
					fmt.Fprintln(out, "No batches recorded")
					return nil
				}
				rows := make([][]string, 0, len(batches))
				for _, b := range batches {
					rows = append(rows, []string{
						shortID(b.ID),
						formatLocal(b.StartedAt),
						b.Naming,
						b.Extension,
						fmt.Sprintf("%d/%d", b.Completed, b.Total),
						strconv.Itoa(b.Failed),
						batchStatus(b),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Started", "Naming", "Ext", "Done", "Failed", "Status"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one batch run and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd, ctx, func(store *history.Store) error {
				b, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Batch "+b.ID, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Status", statusKindFor(b), batchStatus(*b), colorize))
				fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatLocal(b.StartedAt), colorize))
				fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond).String(), colorize))
				fmt.Fprintln(out, renderStatusLine("Output dir", statusInfo, b.OutputDir, colorize))
				fmt.Fprintln(out, renderStatusLine("Naming", statusInfo, b.Naming+" "+b.Extension, colorize))
				fmt.Fprintln(out, renderStatusLine("Completed", statusInfo, fmt.Sprintf("%d/%d", b.Completed, b.Total), colorize))

				rows := make([][]string, 0, len(b.Jobs))
				for _, j := range b.Jobs {
					rows = append(rows, []string{strconv.Itoa(j.Index), j.Input, j.Output, j.Status, j.Error})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Input", "Output", "Status", "Error"}, rows, []columnAlignment{alignRight}))
				return nil
			})
		},
	}
}

func batchStatus(b history.Batch) string {
	switch {
	case b.Canceled:
		return "canceled"
	case b.Failed > 0:
		return "failed"
	default:
		return "ok"
	}
}

func statusKindFor(b *history.Batch) statusKind {
	switch batchStatus(*b) {
	case "ok":
		return statusOK
	case "canceled":
		return statusWarn
	default:
		return statusError
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatLocal(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
