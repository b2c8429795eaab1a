package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "run":
		runRun(ctx, os.Args[2:])
	case "validate":
		runValidate(ctx, os.Args[2:])
	case "gate":
		runGate(ctx, os.Args[2:])
	case "list":
		runList(ctx, os.Args[2:])
	case "artifacts":
		runArtifacts(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cascade - Declarative pipeline runner for build/test workflows

Usage:
  cascade <command> [options]

Commands:
  run        Execute a pipeline definition
  validate   Validate a pipeline definition without running it
  gate       Check a commit message against the skip markers
  list       List pipeline definitions in a directory
  artifacts  List, prune, or verify stored artifacts

Use "cascade <command> --help" for more information about a command.`)
}
