package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/services"
	"github.com/ochairo/cauldron/internal/external-adapters/codec"
)

// manifestFileName is written into the dist dir after a build
const manifestFileName = "dist-manifest.json"

func runBuild(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	var common planFlags
	common.register(fs)
	var (
		jobs        = fs.IntP("jobs", "j", 4, "Number of artifact groups packaged concurrently")
		prebuiltDir = fs.String("prebuilt-dir", "", "Directory of compiled binaries laid out as <dir>/<target>/<file>")
		updaterURL  = fs.String("updater-url", gateways.DefaultUpdaterURL, "Download URL template for prebuilt updaters ({target} is replaced)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: cauldron build [options]

Plan the workspace, then run the packaging steps locally: copy binaries and static
assets into staging dirs, write archives and checksums, run extra build commands,
archive the source tree and fetch updaters. Installer generation is skipped.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  cauldron build --prebuilt-dir target --jobs 8
  cauldron build --target x86_64-unknown-linux-gnu --dist-dir out
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

	if err := executeBuild(ctx, &common, *jobs, *prebuiltDir, *updaterURL, logger); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}

func executeBuild(ctx context.Context, common *planFlags, jobs int, prebuiltDir, updaterURL string, logger interfaces.Logger) error {
	result, err := common.plan(ctx, common.options(), logger)
	if err != nil {
		return err
	}
	graph := result.Graph
	if len(graph.Releases) == 0 {
		fmt.Println("Nothing to build")
		return nil
	}

	runner := gateways.NewCommandRunner(prebuiltDir, gateways.NewUpdaterFetcher(updaterURL, logger), logger)
	orch := orchestrators.NewBuildOrchestrator(
		gateways.NewPackager(),
		gateways.NewChecksummer(),
		gateways.NewCopier(),
		runner,
		orchestrators.BuildOrchestratorConfig{Jobs: jobs},
		logger,
	)

	fmt.Printf("🔨 Building %d release(s), %d artifact(s)\n", len(graph.Releases), len(graph.Artifacts))
	buildResult, err := orch.Execute(ctx, graph)
	if err != nil {
		return err
	}
	fmt.Println(buildResult.GetBuildSummary())

	data, err := codec.Encode(codec.FormatJSON, services.BuildManifest(graph))
	if err != nil {
		return err
	}
	manifestPath := filepath.Join(filepath.FromSlash(graph.DistDir), manifestFileName)
	if err := os.WriteFile(manifestPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	fmt.Printf("📄 Manifest: %s\n", manifestPath)
	return nil
}
