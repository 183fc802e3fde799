package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/ochairo/cauldron/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/cauldron/internal/domain-orchestrators"
	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/external-adapters/slogger"
	"github.com/ochairo/cauldron/internal/external-adapters/yaml"
)

// planFlags are shared by every command that plans
type planFlags struct {
	config     string
	targets    []string
	host       string
	packages   []string
	distDir    string
	logFormat  string
	verbose    bool
	linkageDir string
}

func (f *planFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.config, "config", "c", ".", "Workspace file, or directory holding dist.yml / dist.json")
	fs.StringSliceVarP(&f.targets, "target", "t", nil, "Target triple to plan for (repeatable; default: workspace targets)")
	fs.StringVar(&f.host, "host", "", "Host triple (default: workspace host, else the running platform)")
	fs.StringSliceVarP(&f.packages, "package", "p", nil, "Only plan these packages (repeatable)")
	fs.StringVar(&f.distDir, "dist-dir", "", "Dist directory (default: workspace dist-dir, else target/distrib)")
	fs.StringVar(&f.logFormat, "log-format", "text", "Log format: text or json")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	fs.StringVar(&f.linkageDir, "linkage-dir", "", "Directory of built staging dirs to read glibc linkage from")
}

func (f *planFlags) logger() (interfaces.Logger, error) {
	mode, err := slogger.ParseMode(f.logFormat)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	return slogger.New(mode, os.Stderr, level), nil
}

func (f *planFlags) options() orchestrators.PlanOptions {
	opts := orchestrators.PlanOptions{
		Host:     entities.TargetTriple(f.host),
		Packages: f.packages,
		DistDir:  f.distDir,
	}
	for _, t := range f.targets {
		opts.Targets = append(opts.Targets, entities.TargetTriple(t))
	}
	return opts
}

// plan loads the workspace and plans it. With a linkage dir the plan is made twice: once to
// learn the archive layout, then again with the linkage read from the built staging dirs.
func (f *planFlags) plan(ctx context.Context, opts orchestrators.PlanOptions, logger interfaces.Logger) (*orchestrators.PlanResult, error) {
	repo := yaml.NewWorkspaceRepository(f.config)
	ws, err := repo.GetWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	if ws.Host == "" && opts.Host == "" {
		opts.Host = detectPlatform()
	}

	result, err := orchestrators.PlanWorkspace(ws, opts, logger)
	if err != nil || f.linkageDir == "" || opts.DryRun {
		return result, err
	}

	opts.Linkage, err = readLinkage(result.Graph, f.linkageDir, logger)
	if err != nil {
		return nil, err
	}
	return orchestrators.PlanWorkspace(ws, opts, &interfaces.NoOpLogger{})
}

// readLinkage analyzes <linkage-dir>/<staging dir name> for every archive of the graph
func readLinkage(graph *entities.DistGraph, linkageDir string, logger interfaces.Logger) (map[string]entities.Linkage, error) {
	analyzer := gateways.NewLinkageAnalyzer()
	linkage := make(map[string]entities.Linkage)
	for i := range graph.Artifacts {
		artifact := &graph.Artifacts[i]
		if artifact.Archive == nil {
			continue
		}
		dir := filepath.Join(linkageDir, path.Base(artifact.Archive.DirPath))
		if _, err := os.Stat(dir); err != nil {
			logger.Debug("no staging dir for archive", interfaces.F("archive", artifact.ID), interfaces.F("dir", dir))
			continue
		}
		l, err := analyzer.AnalyzeStagingDir(artifact.ID, dir)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze %s: %w", dir, err)
		}
		linkage[artifact.ID] = l
	}
	return linkage, nil
}
