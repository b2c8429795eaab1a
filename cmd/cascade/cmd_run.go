// Package main provides the cascade CLI for running declarative pipelines.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cascadeci/cascade/internal/domain-adapters/gateways"
	orchestrators "github.com/cascadeci/cascade/internal/domain-orchestrators"
	"github.com/cascadeci/cascade/internal/domain/interfaces"
	"github.com/cascadeci/cascade/internal/domain/services"
	gitadapter "github.com/cascadeci/cascade/internal/external-adapters/git"
	"github.com/cascadeci/cascade/internal/external-adapters/yaml"
)

func runRun(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		file          = fs.String("f", "", "Pipeline definition file (YAML)")
		message       = fs.String("message", "", "Commit message the skip gate inspects")
		repo          = fs.String("repo", "", "Git repository to read the HEAD commit message from")
		workspace     = fs.String("workspace", "", "Run working directory (default: a temp directory)")
		artifactsRoot = fs.String("artifacts-root", "", "Artifact store root (default: XDG data dir)")
		buildVersion  = fs.String("build-version", "", "Semver version to stamp onto the run (exported as CBDB_VERSION)")
		buildNumber   = fs.Int("build-number", 1, "Build number paired with --build-version (exported as BUILD_NUMBER)")
		buildJob      = fs.String("build-job", "build", "Job the final report treats as the build stage")
		testJob       = fs.String("test-job", "test", "Job the final report treats as the test stage")
		quiet         = fs.Bool("quiet", false, "Quiet mode - only the final summary")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cascade run -f <pipeline.yml> [options]

Execute a pipeline definition: gate, jobs in dependency order, artifacts,
and the final report.

Examples:
  cascade run -f pipelines/build-cloudberry.yml --message "$(git log -1 --pretty=%%B)"
  cascade run -f pipelines/build-cloudberry.yml --repo .
  cascade run -f pipelines/build-cloudberry.yml --build-version 2.0.0 --build-number 42

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *file == "" {
		fmt.Fprintf(os.Stderr, "Error: -f <pipeline.yml> is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	pipeline, err := yaml.NewPipelineParser().ParseFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	gateText := *message
	if gateText == "" && *repo != "" {
		gateText, err = gitadapter.HeadMessage(*repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to read HEAD commit message: %v\n", err)
			os.Exit(1)
		}
	}

	// Version stamp is validated before anything runs; a build that cannot
	// be versioned must not start.
	if *buildVersion != "" {
		stamp, err := services.StampVersion(*buildVersion, *buildNumber)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		if pipeline.Env == nil {
			pipeline.Env = make(map[string]string)
		}
		pipeline.Env["CBDB_VERSION"] = stamp.Version
		pipeline.Env["BUILD_NUMBER"] = fmt.Sprintf("%d", stamp.Release)
	}

	ws := *workspace
	if ws == "" {
		ws, err = os.MkdirTemp("", "cascade-run-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to create workspace: %v\n", err)
			os.Exit(1)
		}
	}

	var logger interfaces.Logger = interfaces.NewWriterLogger(os.Stderr)
	if *quiet {
		logger = &interfaces.NoOpLogger{}
	}

	o := orchestrators.NewRunOrchestrator(
		gateways.NewScriptExecutor(),
		gateways.NewArtifactStore(*artifactsRoot),
		gitadapter.NewScriptFetcher(),
		gateways.NewInstallChecker(),
		logger,
		orchestrators.RunOrchestratorConfig{
			Workspace: ws,
			BuildJob:  *buildJob,
			TestJob:   *testJob,
		},
	)

	run, err := o.Execute(ctx, pipeline, gateText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	r := o.Reporter()
	fmt.Println(r.Summary(run))
	for _, line := range r.Annotations(r.JobStatus(run, *buildJob), r.JobStatus(run, *testJob)) {
		fmt.Println(line)
	}

	if o.Failed(run) {
		os.Exit(1)
	}
}
