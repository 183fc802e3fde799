package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/services"
	"github.com/ochairo/cauldron/internal/external-adapters/gpg"
)

func runValidateRelease(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("validate-release", pflag.ContinueOnError)
	var common planFlags
	common.register(fs)
	var (
		skipChecksums = fs.Bool("skip-checksums", false, "Do not verify checksum files against their artifacts")
		verifyKey     = fs.String("verify-key", "", "OpenPGP public key used to check every .asc signature in the dist directory")
		quiet         = fs.BoolP("quiet", "q", false, "Only output errors (exit code indicates success/failure)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron validate-release [options]

Validate that every planned artifact is present in the dist directory, that no
stray artifact claims a planned app, and that every checksum file matches.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Exit Codes:
  0  All releases ready
  1  Validation failed (missing or unexpected artifacts, checksum mismatch, ...)
  2  Usage error

Examples:
  cauldron validate-release --dist-dir target/distrib
  cauldron validate-release --config dist.yml --quiet
  cauldron validate-release --verify-key release.pub.asc
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger, err := common.logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	var verifier *gpg.Verifier
	if *verifyKey != "" {
		verifier = gpg.NewVerifier()
		if err := verifier.ImportKeyFromFile(*verifyKey); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load verification key: %v\n", err)
			return 2
		}
	}

	if err := executeValidateRelease(ctx, &common, !*skipChecksums, verifier, *quiet, logger); err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func executeValidateRelease(ctx context.Context, common *planFlags, verifyChecksums bool, verifier *gpg.Verifier, quiet bool, logger interfaces.Logger) error {
	opts := common.options()
	opts.DryRun = true
	result, err := common.plan(ctx, opts, logger)
	if err != nil {
		return err
	}
	graph := result.Graph
	distDir := filepath.FromSlash(graph.DistDir)

	if !quiet {
		fmt.Printf("🔍 Validating %d release(s) in %s\n", len(graph.Releases), distDir)
	}

	files, err := gateways.NewArtifactFinder().FindFiles(distDir)
	if err != nil {
		return fmt.Errorf("failed to find artifacts: %w", err)
	}
	if !quiet {
		fmt.Printf("📦 Found %d artifact files\n", len(files))
	}

	releaseService := services.NewReleaseService()
	var failed []string
	for ri := range graph.Releases {
		validation := releaseService.ValidateRelease(graph, entities.ReleaseIdx(ri), files)
		if !quiet {
			printValidation(validation)
		}
		if !validation.IsReady() {
			failed = append(failed, fmt.Sprintf("%s: %s", validation.Release, validation.ErrorMessage()))
		}
	}

	if verifyChecksums {
		failed = append(failed, verifyChecksumFiles(ctx, graph, files, quiet)...)
	}
	if verifier != nil {
		signatures, err := gateways.NewArtifactFinder().FindByGlob(distDir, "*.asc")
		if err != nil {
			return fmt.Errorf("failed to find signatures: %w", err)
		}
		failed = append(failed, verifySignatures(verifier, signatures, quiet)...)
	}

	if len(failed) > 0 {
		if !quiet {
			fmt.Printf("❌ FAILED\n")
		}
		return errors.New(strings.Join(failed, "\n"))
	}
	if !quiet {
		fmt.Println("✅ READY: All planned artifacts present")
	}
	return nil
}

func printValidation(validation *services.ReleaseValidation) {
	fmt.Printf("\n %s:\n", validation.Release)
	fmt.Printf("  Expected: %d artifacts\n", validation.ExpectedCount)
	fmt.Printf("  Available: %d artifacts\n", validation.AvailableCount)
	if len(validation.MissingArtifacts) > 0 {
		fmt.Printf("  Missing: %s\n", strings.Join(validation.MissingArtifacts, ", "))
	}
	if len(validation.UnexpectedArtifacts) > 0 {
		fmt.Printf("  Unexpected: %s\n", strings.Join(validation.UnexpectedArtifacts, ", "))
	}
	fmt.Printf("  Status: %s\n", validation.Status)
}

// verifyChecksumFiles checks every present per-artifact checksum file of the plan
func verifyChecksumFiles(ctx context.Context, graph *entities.DistGraph, files []string, quiet bool) []string {
	present := make(map[string]string, len(files))
	for _, f := range files {
		present[filepath.Base(f)] = f
	}

	checksummer := gateways.NewChecksummer()
	var failed []string
	for i := range graph.Artifacts {
		artifact := &graph.Artifacts[i]
		kind, ok := artifact.Kind.(entities.Checksum)
		if !ok {
			continue
		}
		checksumPath, ok := present[artifact.ID]
		if !ok {
			continue
		}
		if err := checksummer.VerifyChecksumFile(ctx, kind.Style, checksumPath); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", artifact.ID, err))
			continue
		}
		if !quiet {
			fmt.Printf("  ✓ %s\n", artifact.ID)
		}
	}
	return failed
}

// verifySignatures checks each detached .asc signature against the file it sits next to
func verifySignatures(verifier *gpg.Verifier, signatures []string, quiet bool) []string {
	var failed []string
	for _, sigPath := range signatures {
		signed := strings.TrimSuffix(sigPath, ".asc")
		if err := verifier.VerifySignatureFromFile(signed, sigPath); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", filepath.Base(sigPath), err))
			continue
		}
		if !quiet {
			fmt.Printf("  🔏 %s\n", filepath.Base(signed))
		}
	}
	return failed
}
