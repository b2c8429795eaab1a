package services

import (
	"fmt"

	"github.com/cascadeci/cascade/internal/domain/entities"
)

// JobInstance is a concrete, runnable expansion of a job: either the job
// itself or one matrix variant of it.
type JobInstance struct {
	Job     *entities.Job
	Variant string
	Params  map[string]string
}

// InstanceName returns the display name of the instance
func (i *JobInstance) InstanceName() string {
	if i.Variant == "" {
		return i.Job.Name
	}
	return fmt.Sprintf("%s (%s)", i.Job.Name, i.Variant)
}

// ExpandMatrix expands a job into its runnable instances.
//
// Non-matrix jobs yield exactly one instance. Matrix variants must carry
// unique, non-empty names so derived artifact names cannot collide.
func ExpandMatrix(job *entities.Job) ([]JobInstance, error) {
	if !job.IsMatrix() {
		return []JobInstance{{Job: job}}, nil
	}

	seen := make(map[string]bool, len(job.Matrix))
	out := make([]JobInstance, 0, len(job.Matrix))
	for _, v := range job.Matrix {
		if v.Name == "" {
			return nil, fmt.Errorf("job %q has a matrix variant without a name", job.Name)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("job %q has duplicate matrix variant %q", job.Name, v.Name)
		}
		seen[v.Name] = true
		out = append(out, JobInstance{Job: job, Variant: v.Name, Params: v.Params})
	}
	return out, nil
}

// ArtifactName derives the collision-free stored name for an artifact
// declared by this instance: the declared base, the matrix variant (when
// present), and the shared run timestamp.
func (i *JobInstance) ArtifactName(base, runTimestamp string) string {
	if i.Variant == "" {
		return fmt.Sprintf("%s-%s", base, runTimestamp)
	}
	return fmt.Sprintf("%s-%s-%s", base, i.Variant, runTimestamp)
}
