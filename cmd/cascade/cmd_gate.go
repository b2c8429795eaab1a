package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cascadeci/cascade/internal/domain/services"
	gitadapter "github.com/cascadeci/cascade/internal/external-adapters/git"
)

func runGate(_ context.Context, args []string) {
	fs := flag.NewFlagSet("gate", flag.ExitOnError)
	var (
		message = fs.String("message", "", "Commit message to inspect")
		repo    = fs.String("repo", "", "Git repository to read the HEAD commit message from")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cascade gate --message <text>
       cascade gate --repo <path>

Check a commit message against the skip markers. Exits 0 when the pipeline
should run, 2 when a marker says to skip it.

Examples:
  cascade gate --message "Fix planner crash"
  cascade gate --repo .

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	text := *message
	if text == "" && *repo != "" {
		var err error
		text, err = gitadapter.HeadMessage(*repo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Failed to read HEAD commit message: %v\n", err)
			os.Exit(1)
		}
	}
	if text == "" {
		fmt.Fprintf(os.Stderr, "Error: --message or --repo is required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	gate := services.NewSkipGate()
	if skip, marker := gate.ShouldSkip(text); skip {
		fmt.Printf("⏭️  Skip marker %q found, pipeline should not run\n", marker)
		os.Exit(2)
	}
	fmt.Println("✅ No skip marker, pipeline should run")
}
