package entities

import (
	"time"

	"github.com/google/uuid"
)

// Status is the scheduling state of a job within a run
type Status string

// Job status values
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is final
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailure, StatusSkipped, StatusCancelled:
		return true
	default:
		return false
	}
}

// SatisfiesDependents reports whether a dependent job may start after this
// status. Skipped counts as satisfied so a gated run still completes cleanly.
func (s Status) SatisfiesDependents() bool {
	return s == StatusSuccess || s == StatusSkipped
}

// Run is a single execution of a pipeline
type Run struct {
	ID        string
	Timestamp string // shared run timestamp, used to key artifact names
	StartedAt time.Time
	Pipeline  *Pipeline
	Jobs      map[string]*JobResult
	Gated     bool   // skip marker matched; jobs were bypassed
	GateText  string // the text the gate inspected
}

// NewRun creates a run with a fresh ID and timestamp
func NewRun(p *Pipeline) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.NewString(),
		Timestamp: now.Format("20060102150405"),
		StartedAt: now,
		Pipeline:  p,
		Jobs:      make(map[string]*JobResult),
	}
}

// JobResult is the outcome of one job instance (one matrix variant counts as
// its own instance)
type JobResult struct {
	Job        string
	Variant    string // empty for non-matrix jobs
	Status     Status
	SoftFailed bool // at least one step hit a tolerated exit code
	Outputs    map[string]string
	Steps      []StepResult
	StartedAt  time.Time
	Duration   time.Duration
	Error      error
}

// InstanceName returns the display name of the job instance
func (r *JobResult) InstanceName() string {
	if r.Variant == "" {
		return r.Job
	}
	return r.Job + " (" + r.Variant + ")"
}

// StepResult is the outcome of a single step
type StepResult struct {
	Name       string
	ExitCode   int
	SoftFailed bool
	Stdout     string
	Stderr     string
	Duration   time.Duration
	Error      error
}
