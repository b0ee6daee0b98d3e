package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"batchmux/internal/logging"
	"batchmux/internal/services"
)

// partialPrefix marks in-progress outputs written when atomic writes are enabled.
const partialPrefix = ".partial-"

// Request describes a single conversion.
type Request struct {
	Input       string
	Output      string
	CopyStreams bool
	Overwrite   bool
}

// Options configures an FFmpeg engine.
type Options struct {
	Binary       string
	Timeout      time.Duration // zero disables the per-job timeout
	AtomicWrites bool
}

// commandRunner executes name with args and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFmpeg converts media files by invoking the ffmpeg binary.
type FFmpeg struct {
	opts   Options
	logger *slog.Logger
	run    commandRunner
}

// NewFFmpeg constructs an engine. An empty binary defaults to "ffmpeg".
func NewFFmpeg(opts Options, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = "ffmpeg"
	}
	return &FFmpeg{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "engine"),
		run:    defaultCommandRunner,
	}
}

// WithCommandRunner allows injecting a custom command runner for tests.
func (f *FFmpeg) WithCommandRunner(r commandRunner) {
	if f != nil && r != nil {
		f.run = r
	}
}

// Binary returns the ffmpeg executable the engine invokes.
func (f *FFmpeg) Binary() string {
	return f.opts.Binary
}

// Convert remuxes req.Input into req.Output. It blocks until ffmpeg exits.
func (f *FFmpeg) Convert(ctx context.Context, req Request) error {
	if f == nil {
		return errors.New("engine not initialized")
	}
	input := strings.TrimSpace(req.Input)
	output := strings.TrimSpace(req.Output)
	if input == "" || output == "" {
		return newError(req, KindInvalidRequest, "input and output paths are required", nil)
	}
	if sameFile(input, output) {
		return newError(req, KindInvalidRequest, "output path must differ from input path", nil)
	}
	if _, err := os.Stat(input); err != nil {
		return newError(req, KindInputUnreadable, "input not readable", err)
	}
	if !req.Overwrite {
		if _, err := os.Stat(output); err == nil {
			return newError(req, KindOutputExists, "output already exists and overwrite is disabled", nil)
		}
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return newError(req, classifyOSError(err), "create output directory", err)
	}

	target := output
	if f.opts.AtomicWrites {
		target = partialPath(output)
	}

	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	args := BuildArgs(input, target, req.CopyStreams, req.Overwrite || f.opts.AtomicWrites)
	f.logger.Debug("executing ffmpeg",
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
		logging.String("args", strings.Join(args, " ")),
	)

	started := time.Now()
	out, err := f.run(ctx, f.opts.Binary, args...)
	if err != nil {
		if target != output {
			_ = os.Remove(target)
		}
		return f.failure(ctx, req, string(out), err)
	}

	if target != output {
		if _, statErr := os.Stat(target); statErr != nil {
			return newError(req, KindUnknown, "ffmpeg did not produce output file", statErr)
		}
		if err := os.Rename(target, output); err != nil {
			_ = os.Remove(target)
			return newError(req, classifyOSError(err), "move output into place", err)
		}
	}

	f.logger.Debug("ffmpeg finished",
		logging.String(logging.FieldOutput, output),
		logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
	)
	return nil
}

func (f *FFmpeg) failure(ctx context.Context, req Request, stderr string, err error) error {
	kind := Classify(stderr)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		kind = KindTimeout
		err = fmt.Errorf("%w: %w: %w", services.ErrTimeout, err, context.DeadlineExceeded)
	case errors.Is(ctx.Err(), context.Canceled):
		kind = KindCanceled
		err = fmt.Errorf("%w: %w", err, context.Canceled)
	case errors.Is(err, exec.ErrNotFound):
		kind = KindMissingBinary
	}
	message := tail(stderr, 3)
	if message == "" {
		message = err.Error()
	}
	return newError(req, kind, message, err)
}

// BuildArgs returns the ffmpeg arguments for one conversion. Streams are
// copied when copyStreams is set; overwrite selects -y over -n.
func BuildArgs(input, output string, copyStreams, overwrite bool) []string {
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "error"}
	if overwrite {
		args = append(args, "-y")
	} else {
		args = append(args, "-n")
	}
	args = append(args, "-i", input)
	if copyStreams {
		args = append(args, "-c:v", "copy", "-c:a", "copy")
	}
	return append(args, output)
}

func partialPath(output string) string {
	return filepath.Join(filepath.Dir(output), partialPrefix+filepath.Base(output))
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// tail returns the last n non-empty lines of s joined by "; ".
func tail(s string, n int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "; ")
}

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}
