package batch

import (
	"time"

	"batchmux/internal/naming"
)

// Request is the fully resolved input to a batch run.
type Request struct {
	InputPaths      []string
	OutputDirectory string
	Extension       string
	Policy          naming.Policy
	// CaseInsensitiveCollisions treats outputs differing only in letter case
	// as the same file.
	CaseInsensitiveCollisions bool
}

// Job is one resolved input/output pair.
type Job struct {
	Index      int
	InputPath  string
	OutputPath string
}

// State tracks the lifecycle of a single run.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// JobStatus is the outcome of one job.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	// JobSkipped marks jobs never attempted because the batch was canceled.
	JobSkipped JobStatus = "skipped"
)

// Outcome records what happened to a job.
type Outcome struct {
	Job      Job
	Status   JobStatus
	Err      error
	Duration time.Duration
}

// Failure is a job the engine could not convert.
type Failure struct {
	Index     int
	InputPath string
	Err       error
}

// Result accumulates per-job outcomes for one run.
type Result struct {
	BatchID    string
	State      State
	Completed  int
	Total      int
	Failures   []Failure
	Outcomes   []Outcome
	Canceled   bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// OK reports whether every job completed.
func (r Result) OK() bool {
	return !r.Canceled && len(r.Failures) == 0 && r.Completed == r.Total
}

// Elapsed returns the wall time of the run.
func (r Result) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedInputs lists failure inputs in job order.
func (r Result) FailedInputs() []string {
	inputs := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		inputs = append(inputs, f.InputPath)
	}
	return inputs
}
