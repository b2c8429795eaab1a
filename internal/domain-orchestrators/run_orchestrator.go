// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cascadeci/cascade/internal/domain/entities"
	"github.com/cascadeci/cascade/internal/domain/interfaces"
	"github.com/cascadeci/cascade/internal/domain/services"
)

// StepRunner interface for executing step scripts
type StepRunner interface {
	RunStep(
		ctx context.Context,
		step entities.Step,
		scriptDir, workDir string,
		env map[string]string,
		outputFile string,
	) (entities.StepResult, map[string]string, error)
}

// ArtifactGateway interface for artifact upload/download
type ArtifactGateway interface {
	Upload(ctx context.Context, runID, name string, paths []string, retentionDays int) (*entities.Artifact, error)
	Download(ctx context.Context, runID, name, destDir string) (*entities.Artifact, error)
}

// SourceFetcher interface for fetching the external script repository
type SourceFetcher interface {
	Fetch(ctx context.Context, src entities.ScriptSource, destDir string) (string, error)
}

// InstallVerifier interface for asserting install integrity
type InstallVerifier interface {
	VerifyBinaries(paths []string) error
}

// RunOrchestratorConfig holds configuration for the orchestrator
type RunOrchestratorConfig struct {
	Workspace        string // run working area; required
	BuildJob         string // job the report watches as "build" (default: build)
	TestJob          string // job the report watches as "test" (default: test)
	DefaultRetention int    // retention days when an upload declares none
}

// RunOrchestrator executes a pipeline run: gate, DAG traversal, artifact
// hand-off, and final report.
type RunOrchestrator struct {
	steps     StepRunner
	artifacts ArtifactGateway
	fetcher   SourceFetcher
	installs  InstallVerifier
	gate      *services.SkipGate
	reporter  *services.Reporter
	logger    interfaces.Logger
	config    RunOrchestratorConfig
}

// NewRunOrchestrator creates a new run orchestrator
func NewRunOrchestrator(
	steps StepRunner,
	artifacts ArtifactGateway,
	fetcher SourceFetcher,
	installs InstallVerifier,
	logger interfaces.Logger,
	config RunOrchestratorConfig,
) *RunOrchestrator {
	if config.BuildJob == "" {
		config.BuildJob = "build"
	}
	if config.TestJob == "" {
		config.TestJob = "test"
	}
	if config.DefaultRetention < 1 {
		config.DefaultRetention = 1
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &RunOrchestrator{
		steps:     steps,
		artifacts: artifacts,
		fetcher:   fetcher,
		installs:  installs,
		gate:      services.NewSkipGate(),
		reporter:  services.NewReporter(config.BuildJob, config.TestJob),
		logger:    logger,
		config:    config,
	}
}

// Reporter returns the reporter configured for this orchestrator
func (o *RunOrchestrator) Reporter() *services.Reporter {
	return o.reporter
}

// Execute runs the pipeline to completion and returns the run record.
//
// The returned error covers setup failures (invalid DAG, script fetch);
// job failures are recorded in the run and reported via Failed.
func (o *RunOrchestrator) Execute(ctx context.Context, p *entities.Pipeline, gateText string) (*entities.Run, error) {
	graph, err := services.BuildJobGraph(p)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	run := entities.NewRun(p)
	run.GateText = gateText

	// Skip gate: a marker bypasses every job and the run concludes successfully
	if skip, marker := o.gate.ShouldSkip(gateText); skip {
		o.logger.Info("skip marker found, bypassing all jobs", interfaces.F("marker", marker))
		run.Gated = true
		for i := range p.Jobs {
			o.markJob(run, &p.Jobs[i], entities.StatusSkipped)
		}
		return run, nil
	}

	scriptDir := ""
	if p.Scripts.RepoURL != "" {
		dir := p.Scripts.Dir
		if dir == "" {
			dir = "scripts"
		}
		scriptDir, err = o.fetcher.Fetch(ctx, p.Scripts, filepath.Join(o.config.Workspace, dir))
		if err != nil {
			return nil, fmt.Errorf("fetching script repository: %w", err)
		}
		o.logger.Info("fetched script repository", interfaces.F("dir", scriptDir))
	}

	state := make(map[string]entities.Status, len(p.Jobs))
	for i := range p.Jobs {
		state[p.Jobs[i].Name] = entities.StatusPending
	}
	outputs := make(map[string]map[string]string)

	for {
		if ctx.Err() != nil {
			o.cancelPending(run, p, state)
			break
		}

		ready := graph.ReadyJobs(state)
		ready = append(ready, o.readyAlwaysJobs(p, graph, state)...)
		if len(ready) == 0 {
			break
		}

		// One wave: ready jobs run concurrently, matrix instances too. The
		// ready set only ever contains jobs with no ordering between them.
		// Instances read a snapshot of upstream outputs; writes land in the
		// live map only after the wave.
		snapshot := make(map[string]map[string]string, len(outputs))
		for k, v := range outputs {
			snapshot[k] = v
		}

		expanded := make(map[string][]services.JobInstance, len(ready))
		for _, name := range ready {
			job, _ := p.JobByName(name)
			state[name] = entities.StatusRunning

			instances, err := services.ExpandMatrix(job)
			if err != nil {
				return nil, fmt.Errorf("invalid pipeline: %w", err)
			}
			expanded[name] = instances
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, name := range ready {
			wg.Add(1)
			go func(jobName string, instances []services.JobInstance) {
				defer wg.Done()

				var instWG sync.WaitGroup
				results := make([]*entities.JobResult, len(instances))
				for i := range instances {
					instWG.Add(1)
					go func(slot int, inst services.JobInstance) {
						defer instWG.Done()
						jr := o.runInstance(ctx, run, inst, scriptDir, snapshot)
						mu.Lock()
						results[slot] = jr
						run.Jobs[jr.InstanceName()] = jr
						mu.Unlock()
					}(i, instances[i])
				}
				instWG.Wait()

				jobStatus := entities.StatusSuccess
				merged := make(map[string]string)
				for _, jr := range results {
					if jr.Status == entities.StatusFailure {
						jobStatus = entities.StatusFailure
					}
					for k, v := range jr.Outputs {
						merged[k] = v
					}
				}

				mu.Lock()
				state[jobName] = jobStatus
				outputs[jobName] = merged
				mu.Unlock()
			}(name, expanded[name])
		}

		wg.Wait()

		for _, name := range ready {
			if state[name] == entities.StatusFailure {
				o.skipDependents(run, p, graph, state, name)
			}
		}
	}

	return run, nil
}

// Failed reports whether the run should conclude non-zero
func (o *RunOrchestrator) Failed(run *entities.Run) bool {
	for _, jr := range run.Jobs {
		if jr.Status == entities.StatusFailure || jr.Status == entities.StatusCancelled {
			return true
		}
	}
	return false
}

// readyAlwaysJobs returns pending always-jobs whose dependencies all reached
// a terminal state, whatever that state was.
func (o *RunOrchestrator) readyAlwaysJobs(
	p *entities.Pipeline,
	graph *services.JobGraph,
	state map[string]entities.Status,
) []string {
	var out []string
	for i := range p.Jobs {
		job := &p.Jobs[i]
		if !job.Always || state[job.Name] != entities.StatusPending {
			continue
		}
		allTerminal := true
		allSatisfied := true
		for _, need := range graph.Needs(job.Name) {
			if !state[need].IsTerminal() {
				allTerminal = false
				break
			}
			if !state[need].SatisfiesDependents() {
				allSatisfied = false
			}
		}
		// Jobs whose needs all satisfied are picked up by ReadyJobs already
		if allTerminal && !allSatisfied {
			out = append(out, job.Name)
		}
	}
	return out
}

// skipDependents marks every downstream non-always job as skipped-by-failure
func (o *RunOrchestrator) skipDependents(
	run *entities.Run,
	p *entities.Pipeline,
	graph *services.JobGraph,
	state map[string]entities.Status,
	failed string,
) {
	for _, dep := range graph.Dependents(failed) {
		job, _ := p.JobByName(dep)
		if job.Always || state[dep] != entities.StatusPending {
			continue
		}
		state[dep] = entities.StatusSkipped
		o.markJob(run, job, entities.StatusSkipped)
		o.logger.Warn("skipping job, upstream failed",
			interfaces.F("job", dep), interfaces.F("failed", failed))
	}
}

// cancelPending records cancelled results for jobs that never got to run
func (o *RunOrchestrator) cancelPending(
	run *entities.Run,
	p *entities.Pipeline,
	state map[string]entities.Status,
) {
	for i := range p.Jobs {
		job := &p.Jobs[i]
		if state[job.Name] == entities.StatusPending {
			state[job.Name] = entities.StatusCancelled
			o.markJob(run, job, entities.StatusCancelled)
		}
	}
}

// markJob records a terminal result for every instance of a job without
// executing anything
func (o *RunOrchestrator) markJob(run *entities.Run, job *entities.Job, status entities.Status) {
	instances, err := services.ExpandMatrix(job)
	if err != nil {
		// Invalid matrix on a bypassed job: record the job itself
		instances = []services.JobInstance{{Job: job}}
	}
	for _, inst := range instances {
		jr := &entities.JobResult{Job: job.Name, Variant: inst.Variant, Status: status}
		run.Jobs[jr.InstanceName()] = jr
	}
}

// runInstance executes one job instance end to end: downloads, steps,
// install verification, uploads.
func (o *RunOrchestrator) runInstance(
	ctx context.Context,
	run *entities.Run,
	inst services.JobInstance,
	scriptDir string,
	outputs map[string]map[string]string,
) *entities.JobResult {
	job := inst.Job
	jr := &entities.JobResult{
		Job:       job.Name,
		Variant:   inst.Variant,
		Status:    entities.StatusRunning,
		Outputs:   make(map[string]string),
		StartedAt: time.Now().UTC(),
	}
	defer func() { jr.Duration = time.Since(jr.StartedAt) }()

	var log interfaces.Logger = o.logger
	if wl, ok := o.logger.(*interfaces.WriterLogger); ok {
		log = wl.WithPrefix(jr.InstanceName())
	}
	log.Info("job started")

	interp := &services.InterpContext{
		RunID:        run.ID,
		RunTimestamp: run.Timestamp,
		Matrix:       inst.Params,
		JobOutputs:   outputs,
	}

	workDir := filepath.Join(o.config.Workspace, sanitize(jr.InstanceName()))
	if err := os.MkdirAll(workDir, 0750); err != nil {
		jr.Status = entities.StatusFailure
		jr.Error = fmt.Errorf("creating job workspace: %w", err)
		return jr
	}

	jobCtx := ctx
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	fail := func(err error) *entities.JobResult {
		jr.Status = entities.StatusFailure
		jr.Error = err
		log.Error("job failed", interfaces.F("error", err))
		return jr
	}

	// Pipeline env then job env, both interpolated
	env, err := interp.ExpandMap(run.Pipeline.Env)
	if err != nil {
		return fail(fmt.Errorf("expanding pipeline env: %w", err))
	}
	if env == nil {
		env = make(map[string]string)
	}
	jobEnv, err := interp.ExpandMap(job.Env)
	if err != nil {
		return fail(fmt.Errorf("expanding job env: %w", err))
	}
	for k, v := range jobEnv {
		env[k] = v
	}
	for k, v := range inst.Params {
		env["MATRIX_"+toEnvKey(k)] = v
	}

	// Downloads: produced-before-consumed is guaranteed by the DAG
	for _, ref := range job.Downloads {
		name := fmt.Sprintf("%s-%s", ref.Name, run.Timestamp)
		dest := filepath.Join(workDir, ref.Dest)
		if _, err := o.artifacts.Download(jobCtx, run.ID, name, dest); err != nil {
			return fail(fmt.Errorf("downloading artifact %q: %w", ref.Name, err))
		}
		log.Info("artifact downloaded", interfaces.F("artifact", name))
	}

	// Steps run sequentially; first hard failure aborts the job
	outputFile := filepath.Join(workDir, "outputs")
	for _, step := range job.Steps {
		stepEnv, err := interp.ExpandMap(step.Env)
		if err != nil {
			return fail(fmt.Errorf("step %q: %w", step.Name, err))
		}
		expanded := step
		expanded.Env = stepEnv

		sr, stepOutputs, err := o.steps.RunStep(jobCtx, expanded, scriptDir, workDir, env, outputFile)
		jr.Steps = append(jr.Steps, sr)
		if err != nil {
			return fail(fmt.Errorf("step %q: %w", step.Name, err))
		}
		if sr.Error != nil {
			return fail(fmt.Errorf("step %q: %w", step.Name, sr.Error))
		}
		if sr.SoftFailed {
			jr.SoftFailed = true
			log.Warn("step recorded failures, continuing",
				interfaces.F("step", step.Name), interfaces.F("exit_code", sr.ExitCode))
		}
		for k, v := range stepOutputs {
			jr.Outputs[k] = v
		}
	}

	// Install verification
	if len(job.VerifyBinaries) > 0 {
		paths := make([]string, 0, len(job.VerifyBinaries))
		for _, p := range job.VerifyBinaries {
			expanded, err := interp.Expand(p)
			if err != nil {
				return fail(fmt.Errorf("expanding verify path: %w", err))
			}
			paths = append(paths, expanded)
		}
		if err := o.installs.VerifyBinaries(paths); err != nil {
			return fail(fmt.Errorf("install verification: %w", err))
		}
		log.Info("install verified", interfaces.F("binaries", len(paths)))
	}

	// Uploads may reference the job's own outputs
	selfInterp := &services.InterpContext{
		RunID:        run.ID,
		RunTimestamp: run.Timestamp,
		Matrix:       inst.Params,
		JobOutputs:   withSelf(outputs, job.Name, jr.Outputs),
	}
	for _, decl := range job.Uploads {
		paths := make([]string, 0, len(decl.Paths))
		for _, p := range decl.Paths {
			expanded, err := selfInterp.Expand(p)
			if err != nil {
				return fail(fmt.Errorf("expanding upload path: %w", err))
			}
			paths = append(paths, resolveUploadPath(workDir, expanded)...)
		}
		retention := decl.RetentionDays
		if retention < 1 {
			retention = o.config.DefaultRetention
		}
		name := inst.ArtifactName(decl.Name, run.Timestamp)
		if _, err := o.artifacts.Upload(jobCtx, run.ID, name, paths, retention); err != nil {
			return fail(fmt.Errorf("uploading artifact %q: %w", decl.Name, err))
		}
		log.Info("artifact uploaded", interfaces.F("artifact", name))
	}

	jr.Status = entities.StatusSuccess
	log.Info("job finished", interfaces.F("soft_failed", jr.SoftFailed))
	return jr
}

// resolveUploadPath anchors a declared upload path at the job's working
// directory and expands glob patterns. A pattern with no matches passes
// through literally so the store reports the missing source.
func resolveUploadPath(workDir, p string) []string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(workDir, p)
	}
	matches, err := filepath.Glob(p)
	if err != nil || len(matches) == 0 {
		return []string{p}
	}
	return matches
}

// withSelf overlays a job's own outputs onto the shared outputs view
func withSelf(outputs map[string]map[string]string, job string, own map[string]string) map[string]map[string]string {
	merged := make(map[string]map[string]string, len(outputs)+1)
	for k, v := range outputs {
		merged[k] = v
	}
	merged[job] = own
	return merged
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func toEnvKey(k string) string {
	out := make([]rune, 0, len(k))
	for _, r := range k {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r-'a'+'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
