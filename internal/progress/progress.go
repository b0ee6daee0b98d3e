// Package progress delivers batch completion percentages to observers.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"batchmux/internal/logging"
	"batchmux/internal/services"
)

// Sink receives completion percentages in the range 0..100.
type Sink interface {
	Report(ctx context.Context, percent int) error
}

// Func adapts a plain function into a Sink.
type Func func(ctx context.Context, percent int) error

// Report calls f.
func (f Func) Report(ctx context.Context, percent int) error {
	return f(ctx, percent)
}

// Nop discards progress.
type Nop struct{}

// Report does nothing.
func (Nop) Report(context.Context, int) error { return nil }

type flusher interface {
	Flush() error
}

// TextSink writes one "Progress N" line per report and flushes buffered
// writers after every line so line-oriented consumers see updates promptly.
type TextSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText wraps w in a TextSink.
func NewText(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Report writes the progress line.
func (s *TextSink) Report(_ context.Context, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "Progress %d\n", percent); err != nil {
		return fmt.Errorf("write progress: %w", err)
	}
	if f, ok := s.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flush progress: %w", err)
		}
	}
	return nil
}

// LogSink records progress as structured log entries, sampled in buckets.
type LogSink struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

// NewLog constructs a LogSink logging every bucketSize percent.
func NewLog(logger *slog.Logger, bucketSize int) *LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSink{logger: logger, sampler: logging.NewProgressSampler(bucketSize)}
}

// Report logs the percentage when it crosses a new bucket.
func (s *LogSink) Report(ctx context.Context, percent int) error {
	batchID, _ := services.BatchIDFromContext(ctx)
	if !s.sampler.ShouldLog(percent, batchID) {
		return nil
	}
	logging.WithContext(ctx, s.logger).Info("batch progress",
		logging.Int("percent", percent),
		logging.String(logging.FieldEventType, "batch_progress"),
	)
	return nil
}

// Multi fans each report out to every sink and joins their errors.
type Multi []Sink

// Report forwards percent to each sink in order.
func (m Multi) Report(ctx context.Context, percent int) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Report(ctx, percent); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
