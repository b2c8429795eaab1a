package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// Reporter renders the terminal summary of a run.
//
// The banner is a pure function of the terminal statuses of the build and
// test jobs and is produced for every run, including gated or cancelled ones.
type Reporter struct {
	BuildJob string
	TestJob  string
}

// NewReporter creates a reporter watching the given build and test jobs
func NewReporter(buildJob, testJob string) *Reporter {
	return &Reporter{BuildJob: buildJob, TestJob: testJob}
}

// Banner returns the one-line verdict for the run
func (r *Reporter) Banner(buildStatus, testStatus entities.Status) string {
	if buildStatus == entities.StatusSuccess && testStatus == entities.StatusSuccess {
		return "All stages passed"
	}
	if buildStatus == entities.StatusSkipped && testStatus == entities.StatusSkipped {
		return "Pipeline skipped"
	}
	return fmt.Sprintf("Pipeline failed (build: %s, test: %s)", buildStatus, testStatus)
}

// Annotations returns error annotation lines for non-successful watched jobs.
// Skipped jobs produce no annotation.
func (r *Reporter) Annotations(buildStatus, testStatus entities.Status) []string {
	var out []string
	if buildStatus != entities.StatusSuccess && buildStatus != entities.StatusSkipped {
		out = append(out, fmt.Sprintf("::error::%s job concluded with status %s", r.BuildJob, buildStatus))
	}
	if testStatus != entities.StatusSuccess && testStatus != entities.StatusSkipped {
		out = append(out, fmt.Sprintf("::error::%s job concluded with status %s", r.TestJob, testStatus))
	}
	return out
}

// JobStatus aggregates the instance results of a job into one status.
//
// Any failure wins, then cancelled, then running; a job whose instances all
// skipped is skipped.
func (r *Reporter) JobStatus(run *entities.Run, job string) entities.Status {
	var results []*entities.JobResult
	for _, jr := range run.Jobs {
		if jr.Job == job {
			results = append(results, jr)
		}
	}
	if len(results) == 0 {
		return entities.StatusSkipped
	}

	agg := entities.StatusSuccess
	allSkipped := true
	for _, jr := range results {
		if jr.Status != entities.StatusSkipped {
			allSkipped = false
		}
		switch jr.Status {
		case entities.StatusFailure:
			return entities.StatusFailure
		case entities.StatusCancelled:
			agg = entities.StatusCancelled
		case entities.StatusRunning, entities.StatusPending:
			if agg == entities.StatusSuccess {
				agg = entities.StatusRunning
			}
		}
	}
	if allSkipped {
		return entities.StatusSkipped
	}
	return agg
}

// Summary renders the full human-readable run summary
func (r *Reporter) Summary(run *entities.Run) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Pipeline: %s\n", run.Pipeline.Name)
	fmt.Fprintf(&b, "Run: %s (%s)\n", run.ID, run.Timestamp)
	if run.Gated {
		b.WriteString("Skip marker detected; jobs were bypassed\n")
	}
	b.WriteString("\n")

	names := make([]string, 0, len(run.Jobs))
	for name := range run.Jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		jr := run.Jobs[name]
		line := fmt.Sprintf("  %-40s %s", jr.InstanceName(), jr.Status)
		if jr.SoftFailed {
			line += " (test failures recorded)"
		}
		if jr.Duration > 0 {
			line += fmt.Sprintf(" [%v]", jr.Duration.Round(1e6))
		}
		b.WriteString(line + "\n")
	}

	buildStatus := r.JobStatus(run, r.BuildJob)
	testStatus := r.JobStatus(run, r.TestJob)

	b.WriteString("\n" + r.Banner(buildStatus, testStatus) + "\n")
	for _, a := range r.Annotations(buildStatus, testStatus) {
		b.WriteString(a + "\n")
	}
	return b.String()
}
