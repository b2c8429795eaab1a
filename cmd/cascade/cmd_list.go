package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cascadeci/cascade/internal/domain/interfaces/repositories"
	"github.com/cascadeci/cascade/internal/external-adapters/yaml"
)

func runList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	pipelinesDir := fs.String("pipelines-dir", "pipelines", "Path to pipeline definitions directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cascade list [options]

List pipeline definitions in a directory.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	var repo repositories.PipelineRepository = yaml.NewPipelineRepository(*pipelinesDir)
	pipelines, err := repo.ListPipelines(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	if len(pipelines) == 0 {
		fmt.Printf("No pipelines found in %s\n", *pipelinesDir)
		return
	}

	for _, p := range pipelines {
		fmt.Printf("%-30s %d jobs\n", p.Name, len(p.Jobs))
	}
}
