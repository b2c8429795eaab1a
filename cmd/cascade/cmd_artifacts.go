package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cascadeci/cascade/internal/domain-adapters/gateways"
	"github.com/cascadeci/cascade/internal/external-adapters/gpg"
)

func runArtifacts(ctx context.Context, args []string) {
	if len(args) < 1 {
		artifactsUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "list":
		runArtifactsList(ctx, args[1:])
	case "prune":
		runArtifactsPrune(ctx, args[1:])
	case "verify":
		runArtifactsVerify(ctx, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown artifacts subcommand: %s\n\n", args[0])
		artifactsUsage()
		os.Exit(1)
	}
}

func artifactsUsage() {
	fmt.Fprintln(os.Stderr, `Usage: cascade artifacts <list|prune|verify> [options]

Subcommands:
  list     List stored artifacts with their expiry
  prune    Remove artifacts past their retention window
  verify   Verify a detached GPG signature over an artifact file`)
}

func runArtifactsList(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("artifacts list", flag.ExitOnError)
	root := fs.String("artifacts-root", "", "Artifact store root (default: XDG data dir)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	store := gateways.NewArtifactStore(*root)
	artifacts, err := store.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
	if len(artifacts) == 0 {
		fmt.Printf("No artifacts in %s\n", store.Root())
		return
	}

	now := time.Now().UTC()
	for _, a := range artifacts {
		state := fmt.Sprintf("expires %s", a.ExpiresAt().Format(time.RFC3339))
		if a.Expired(now) {
			state = "expired"
		}
		fmt.Printf("%-50s run=%s files=%d %s\n", a.Name, a.RunID, len(a.Files), state)
	}
}

func runArtifactsPrune(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("artifacts prune", flag.ExitOnError)
	root := fs.String("artifacts-root", "", "Artifact store root (default: XDG data dir)")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	store := gateways.NewArtifactStore(*root)
	removed, err := store.Prune(ctx, time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	for _, name := range removed {
		fmt.Printf("🗑️  %s\n", name)
	}
	fmt.Printf("Pruned %d expired artifacts\n", len(removed))
}

func runArtifactsVerify(_ context.Context, args []string) {
	fs := flag.NewFlagSet("artifacts verify", flag.ExitOnError)
	var (
		keyFile = fs.String("key", "", "Public key file (armored or binary)")
		sigFile = fs.String("sig", "", "Detached signature file")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cascade artifacts verify --key <pubkey.asc> --sig <file.sig> <file>

Verify a detached GPG signature over an artifact file.

Example:
  cascade artifacts verify --key release.asc --sig pkg.rpm.sig pkg.rpm

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}
	if *keyFile == "" || *sigFile == "" || fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: --key, --sig, and a file argument are required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	verifier := gpg.NewVerifier()
	if err := verifier.ImportKeyFile(*keyFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to import key: %v\n", err)
		os.Exit(1)
	}
	if err := verifier.VerifyDetached(fs.Arg(0), *sigFile); err != nil {
		fmt.Printf("❌ Signature verification FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Signature verified (%d keys in keyring)\n", verifier.KeyringSize())
}
