// Package entities defines core domain models and data structures.
package entities

import "time"

// Pipeline represents a declarative pipeline definition: an ordered set of
// jobs connected by dependency edges, plus the trigger surface that decides
// when a run starts.
type Pipeline struct {
	Name    string
	Trigger Trigger
	Env     map[string]string
	Scripts ScriptSource
	Jobs    []Job
}

// Trigger describes when the pipeline runs
type Trigger struct {
	Branches       []string
	ManualDispatch bool
}

// ScriptSource points at the sibling repository that provides the external
// build/test scripts. The scripts themselves are opaque collaborators; only
// their location and ref are part of the definition.
type ScriptSource struct {
	RepoURL string
	Ref     string
	Dir     string // checkout directory inside the run workspace
}

// Job is an independently scheduled unit of work
type Job struct {
	Name           string
	Needs          []string
	Always         bool // run regardless of upstream outcome ("if: always")
	Image          string
	RunsAs         string // non-privileged account the steps run under
	Env            map[string]string
	Timeout        time.Duration
	Matrix         []MatrixVariant
	Steps          []Step
	Uploads        []ArtifactDecl
	Downloads      []ArtifactRef
	VerifyBinaries []string // paths asserted executable after the steps finish
}

// MatrixVariant is one parameter set of a matrixed job
type MatrixVariant struct {
	Name   string
	Params map[string]string
}

// Step is a single script invocation inside a job
type Step struct {
	Name          string
	Script        string // inline shell, mutually exclusive with ScriptFile
	ScriptFile    string // path relative to the fetched script checkout
	Env           map[string]string
	Timeout       time.Duration
	SoftExitCodes []int // exit codes recorded as soft failure, job continues
}

// ArtifactDecl declares an upload produced by a job
type ArtifactDecl struct {
	Name          string
	Paths         []string
	RetentionDays int
}

// ArtifactRef declares a download consumed by a job
type ArtifactRef struct {
	Name string
	Dest string
}

// JobByName returns the job with the given name
func (p *Pipeline) JobByName(name string) (*Job, bool) {
	for i := range p.Jobs {
		if p.Jobs[i].Name == name {
			return &p.Jobs[i], true
		}
	}
	return nil, false
}

// IsMatrix reports whether the job expands into multiple variants
func (j *Job) IsMatrix() bool {
	return len(j.Matrix) > 0
}
