// Package logging assembles structured slog loggers and formatting helpers used
// across batchmux.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so orchestrator code can tag log
// lines with batch IDs and job positions. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Console output defaults to stderr so the stdout progress contract stays
// machine-readable.
package logging
