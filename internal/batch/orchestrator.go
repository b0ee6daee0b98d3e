package batch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"batchmux/internal/engine"
	"batchmux/internal/logging"
	"batchmux/internal/progress"
	"batchmux/internal/services"
)

// Engine performs one blocking conversion.
type Engine interface {
	Convert(ctx context.Context, req engine.Request) error
}

// Recorder archives finished runs.
type Recorder interface {
	Record(ctx context.Context, req Request, result Result) error
}

// Orchestrator runs batches sequentially against an Engine.
type Orchestrator struct {
	engine   Engine
	sink     progress.Sink
	logger   *slog.Logger
	recorder Recorder
	observer func(Outcome)
	newID    func() string
	now      func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder archives every run that reaches the running state.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithObserver is called after every attempted job.
func WithObserver(fn func(Outcome)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithIDGenerator overrides batch ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.now = fn
		}
	}
}

// New constructs an Orchestrator. A nil sink discards progress.
func New(eng Engine, sink progress.Sink, logger *slog.Logger, opts ...Option) *Orchestrator {
	if sink == nil {
		sink = progress.Nop{}
	}
	o := &Orchestrator{
		engine: eng,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "batch"),
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run plans and executes req. Validation failures abort before any engine
// call and return a result still in StateNotStarted. Engine failures are
// collected in the result and never returned. If ctx is canceled the run
// stops before the next job and returns the partial result with an error
// wrapping ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	result := Result{
		BatchID: o.newID(),
		State:   StateNotStarted,
		Total:   len(req.InputPaths),
	}
	if o.engine == nil {
		return result, fmt.Errorf("%w: engine not configured", ErrInvalidRequest)
	}
	ctx = services.WithBatchID(ctx, result.BatchID)
	logger := logging.WithContext(ctx, o.logger)

	jobs, err := Plan(req)
	if err != nil {
		logging.ErrorWithContext(logger, "batch rejected", "batch_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the inputs or naming options and retry"),
		)
		return result, err
	}

	result.State = StateRunning
	result.StartedAt = o.now()
	logger.Info("batch started",
		logging.Int(logging.FieldJobTotal, len(jobs)),
		logging.String("output_dir", req.OutputDirectory),
		logging.String("naming", req.Policy.String()),
		logging.String("extension", req.Extension),
	)

	for _, job := range jobs {
		if ctx.Err() != nil {
			result.Canceled = true
			break
		}
		outcome := o.runJob(ctx, job)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Status == JobSucceeded {
			result.Completed++
		} else {
			result.Failures = append(result.Failures, Failure{Index: job.Index, InputPath: job.InputPath, Err: outcome.Err})
		}
		if o.observer != nil {
			o.observer(outcome)
		}
		if err := o.sink.Report(ctx, ProgressPercent(job.Index, len(jobs))); err != nil {
			logging.WarnWithContext(logger, "progress report failed", "progress_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "progress consumer may show stale value"),
			)
		}
	}

	for i := len(result.Outcomes); i < len(jobs); i++ {
		result.Outcomes = append(result.Outcomes, Outcome{Job: jobs[i], Status: JobSkipped})
	}
	result.State = StateFinished
	result.FinishedAt = o.now()

	logger.Info("batch finished",
		logging.Int("completed", result.Completed),
		logging.Int(logging.FieldJobTotal, result.Total),
		logging.Int("failed", len(result.Failures)),
		logging.Bool("canceled", result.Canceled),
		logging.Duration("elapsed", result.Elapsed().Round(time.Millisecond)),
	)

	o.record(ctx, req, result)

	if result.Canceled {
		return result, fmt.Errorf("batch canceled after %d of %d jobs: %w", len(result.Failures)+result.Completed, result.Total, context.Cause(ctx))
	}
	return result, nil
}

func (o *Orchestrator) runJob(ctx context.Context, job Job) Outcome {
	jobCtx := services.WithJobIndex(ctx, job.Index)
	logger := logging.WithContext(jobCtx, o.logger).With(
		logging.String(logging.FieldInput, job.InputPath),
		logging.String(logging.FieldOutput, job.OutputPath),
	)
	logger.Debug("job started")

	started := o.now()
	err := o.engine.Convert(context.WithoutCancel(jobCtx), engine.Request{
		Input:       job.InputPath,
		Output:      job.OutputPath,
		CopyStreams: true,
		Overwrite:   true,
	})
	outcome := Outcome{Job: job, Duration: o.now().Sub(started)}
	if err != nil {
		outcome.Status = JobFailed
		outcome.Err = err
		logging.WarnWithContext(logger, "job failed", "job_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "inspect the input file with ffprobe"),
			logging.String(logging.FieldImpact, "output not written; batch continues"),
		)
		return outcome
	}
	outcome.Status = JobSucceeded
	logger.Info("job converted", logging.Duration("elapsed", outcome.Duration.Round(time.Millisecond)))
	return outcome
}

func (o *Orchestrator) record(ctx context.Context, req Request, result Result) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(context.WithoutCancel(ctx), req, result); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "history record failed", "history_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "batch not listed in history"),
		)
	}
}

// ConvertFile converts a single input to an explicit output path. The naming
// policy is bypassed and no progress is reported.
func (o *Orchestrator) ConvertFile(ctx context.Context, input, output string) error {
	if o.engine == nil {
		return fmt.Errorf("%w: engine not configured", ErrInvalidRequest)
	}
	if strings.TrimSpace(input) == "" || strings.TrimSpace(output) == "" {
		return fmt.Errorf("%w: input and output are required", ErrInvalidRequest)
	}
	logger := o.logger.With(
		logging.String(logging.FieldInput, input),
		logging.String(logging.FieldOutput, output),
	)
	started := o.now()
	if err := o.engine.Convert(ctx, engine.Request{
		Input:       input,
		Output:      output,
		CopyStreams: true,
		Overwrite:   true,
	}); err != nil {
		logging.ErrorWithContext(logger, "conversion failed", "convert_failed", logging.Error(err))
		return err
	}
	logger.Info("file converted", logging.Duration("elapsed", o.now().Sub(started).Round(time.Millisecond)))
	return nil
}

// ExitCode maps a run outcome to a process exit status.
func ExitCode(result Result, err error) int {
	if err != nil {
		return services.ExitCode(err)
	}
	if len(result.Failures) > 0 || result.Completed < result.Total {
		return 1
	}
	return 0
}

// ProgressPercent returns round((index+1)/total*100), or 0 when total is 0.
func ProgressPercent(index, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(index+1) / float64(total) * 100))
}
