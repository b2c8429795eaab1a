package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cascadeci/cascade/internal/domain/services"
	"github.com/cascadeci/cascade/internal/external-adapters/yaml"
)

func runValidate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cascade validate <pipeline.yml> [...]

Validate pipeline definitions without running them: YAML shape, job graph
(unknown needs, cycles), and matrix variants.

Examples:
  cascade validate pipelines/build-cloudberry.yml
  cascade validate pipelines/*.yml
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: at least one pipeline file is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	parser := yaml.NewPipelineParser()
	failed := 0
	for _, file := range fs.Args() {
		if err := validateFile(parser, file); err != nil {
			fmt.Printf("❌ %s: %v\n", file, err)
			failed++
			continue
		}
		fmt.Printf("✅ %s\n", file)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func validateFile(parser *yaml.PipelineParser, file string) error {
	pipeline, err := parser.ParseFile(file)
	if err != nil {
		return err
	}

	graph, err := services.BuildJobGraph(pipeline)
	if err != nil {
		return err
	}

	for i := range pipeline.Jobs {
		if _, err := services.ExpandMatrix(&pipeline.Jobs[i]); err != nil {
			return err
		}
	}

	fmt.Printf("   %d jobs, execution order: %v\n", len(pipeline.Jobs), graph.TopologicalOrder())
	return nil
}
