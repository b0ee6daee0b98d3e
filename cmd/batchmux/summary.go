package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"batchmux/internal/batch"
	"batchmux/internal/engine"
)

func joinExtensions(exts []string) string {
	return strings.Join(exts, "/")
}

func renderSummary(result batch.Result, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader("Batch summary", colorize) {
		b.WriteString(line + "\n")
	}

	kind := statusOK
	switch {
	case result.Canceled:
		kind = statusWarn
	case len(result.Failures) > 0:
		kind = statusError
	}
	b.WriteString(renderStatusLine("Completed", kind, fmt.Sprintf("%d/%d", result.Completed, result.Total), colorize) + "\n")
	if len(result.Failures) > 0 {
		b.WriteString(renderStatusLine("Failed", statusError, strconv.Itoa(len(result.Failures)), colorize) + "\n")
	}
	if result.Canceled {
		skipped := result.Total - result.Completed - len(result.Failures)
		b.WriteString(renderStatusLine("Canceled", statusWarn, fmt.Sprintf("%d job(s) not attempted", skipped), colorize) + "\n")
	}
	b.WriteString(renderStatusLine("Elapsed", statusInfo, result.Elapsed().Round(time.Millisecond).String(), colorize) + "\n")
	if result.BatchID != "" {
		b.WriteString(renderStatusLine("Batch ID", statusInfo, result.BatchID, colorize) + "\n")
	}

	if len(result.Failures) > 0 {
		rows := make([][]string, 0, len(result.Failures))
		for _, f := range result.Failures {
			rows = append(rows, []string{strconv.Itoa(f.Index), f.InputPath, failureKind(f.Err), failureMessage(f.Err)})
		}
		b.WriteString(renderTable([]string{"#", "Input", "Kind", "Error"}, rows, []columnAlignment{alignRight}) + "\n")
	}
	return b.String()
}

func renderPlan(req batch.Request, jobs []batch.Job) string {
	if len(jobs) == 0 {
		return "No inputs; nothing to convert\n"
	}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{strconv.Itoa(job.Index), job.InputPath, job.OutputPath})
	}
	header := fmt.Sprintf("%d job(s), naming %s, extension %s\n", len(jobs), req.Policy, req.Extension)
	return header + renderTable([]string{"#", "Input", "Output"}, rows, []columnAlignment{alignRight}) + "\n"
}

func failureKind(err error) string {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return string(engErr.Kind)
	}
	return "-"
}

func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return engErr.Message
	}
	return err.Error()
}
