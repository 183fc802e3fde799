// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/interfaces/repositories"
	"github.com/ochairo/cauldron/internal/domain/services"
)

// PlanOptions are the per-run inputs layered over the workspace file
type PlanOptions struct {
	// Targets replaces the workspace targets when non-empty
	Targets []entities.TargetTriple
	// Host replaces the workspace host when set
	Host entities.TargetTriple
	// Infer asks for suggestions instead of a bare warning when there is nothing to release
	Infer  bool
	DryRun bool
	// Packages restricts planning to these package names or ids
	Packages           []string
	Linkage            map[string]entities.Linkage
	SigningCredentials bool
	DistDir            string
}

// PlanResult is a finished plan
type PlanResult struct {
	Graph *entities.DistGraph
	// InstallerErrors holds installers that were dropped because they had nothing to install
	InstallerErrors []error
}

// PlanOrchestrator loads a workspace and plans its release
type PlanOrchestrator struct {
	repo   repositories.WorkspaceRepository
	logger interfaces.Logger
}

// NewPlanOrchestrator creates a new plan orchestrator
func NewPlanOrchestrator(repo repositories.WorkspaceRepository, logger interfaces.Logger) *PlanOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &PlanOrchestrator{repo: repo, logger: logger}
}

// Plan loads the workspace and plans it
func (o *PlanOrchestrator) Plan(ctx context.Context, opts PlanOptions) (*PlanResult, error) {
	ws, err := o.repo.GetWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace: %w", err)
	}
	return PlanWorkspace(ws, opts, o.logger)
}

// PlanWorkspace builds the complete release graph of a workspace. Empty installers are
// reported in the result and do not fail the plan; every other planning error does.
func PlanWorkspace(ws *entities.Workspace, opts PlanOptions, logger interfaces.Logger) (*PlanResult, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	host := ws.Host
	if opts.Host != "" {
		host = opts.Host
	}
	if host == "" {
		return nil, errors.New("host target is not set")
	}
	targets := ws.Targets
	if len(opts.Targets) > 0 {
		targets = opts.Targets
	}
	if len(targets) == 0 {
		targets = []entities.TargetTriple{host}
	}
	distDir := ws.DistDir
	if opts.DistDir != "" {
		distDir = opts.DistDir
	}

	builder := services.NewGraphBuilder(services.PlannerOptions{
		DistDir:            distDir,
		Host:               host,
		DryRun:             opts.DryRun,
		Tools:              ws.Snapshot.Tools,
		Repo:               ws.Snapshot.Repo,
		Linkage:            opts.Linkage,
		SigningCredentials: opts.SigningCredentials,
	}, logger)
	result := &PlanResult{}

	packages, reasons := releasablePackages(ws, opts.Packages)
	var planned []plannedPackage
	for _, pkg := range packages {
		pkgTargets := packageTargets(pkg, targets)
		if len(pkgTargets) == 0 {
			reasons = append(reasons, fmt.Sprintf("%s has no targets among %s", pkg.Name, joinTargets(targets)))
			continue
		}
		planned = append(planned, plannedPackage{pkg: pkg, targets: pkgTargets})
	}
	if len(planned) == 0 {
		builder.NothingToRelease(opts.Infer, reasons)
		result.Graph = builder.Graph()
		return result, nil
	}
	for _, reason := range reasons {
		logger.Warn("package skipped", interfaces.F("reason", reason))
	}

	for _, p := range planned {
		pkg := p.pkg
		config := services.ResolveAppConfig(ws.Defaults, pkg.Config)
		releaseIdx := builder.AddRelease(pkg, config)
		for _, target := range p.targets {
			builder.AddVariant(releaseIdx, target)
		}

		builder.AddExecutableZip(releaseIdx)
		builder.AddUpdaters(releaseIdx)
		builder.AddSBOM(releaseIdx)
		builder.AddExtraArtifacts(releaseIdx)
		builder.AddSourceTarball(releaseIdx)
		builder.ComputePlatformSupport(releaseIdx)

		for _, kind := range config.Installers {
			err := builder.AddInstaller(releaseIdx, kind)
			if errors.Is(err, services.ErrEmptyInstaller) {
				logger.Warn("skipping installer", interfaces.F("package", pkg.Name), interfaces.F("error", err))
				result.InstallerErrors = append(result.InstallerErrors, err)
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	graph := builder.Graph()
	for ri := range graph.Releases {
		builder.ComputePlatformSupport(entities.ReleaseIdx(ri))
	}
	builder.AddUnifiedChecksum(graph.Releases[0].Config.Checksum)
	builder.PlanSigning()

	if err := services.CompileBuildSteps(graph); err != nil {
		return nil, err
	}

	logger.Info("plan complete",
		interfaces.F("releases", len(graph.Releases)),
		interfaces.F("artifacts", len(graph.Artifacts)),
		interfaces.F("warnings", len(graph.Warnings)))
	result.Graph = graph
	return result, nil
}

// releasablePackages keeps the packages selected by filter that have something to ship.
// reasons explains every package that was dropped.
func releasablePackages(ws *entities.Workspace, filter []string) ([]entities.Package, []string) {
	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[name] = true
	}

	var packages []entities.Package
	var reasons []string
	for _, pkg := range ws.Snapshot.Packages {
		switch {
		case len(wanted) > 0 && !wanted[pkg.Name] && !wanted[pkg.ID]:
			continue
		case pkg.Dist != nil && !*pkg.Dist:
			reasons = append(reasons, fmt.Sprintf("%s has dist disabled", pkg.Name))
		case pkg.Dist == nil && len(pkg.Binaries) == 0 && len(pkg.DynamicLibraries) == 0 && len(pkg.StaticLibraries) == 0:
			reasons = append(reasons, fmt.Sprintf("%s has no binaries or libraries", pkg.Name))
		default:
			packages = append(packages, pkg)
		}
	}
	if len(ws.Snapshot.Packages) == 0 {
		reasons = append(reasons, "the workspace has no packages")
	} else if len(packages) == 0 && len(reasons) == 0 {
		reasons = append(reasons, "no package matches the requested names")
	}
	return packages, reasons
}

type plannedPackage struct {
	pkg     entities.Package
	targets []entities.TargetTriple
}

func joinTargets(targets []entities.TargetTriple) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// packageTargets intersects the run targets with the package's own target list
func packageTargets(pkg entities.Package, targets []entities.TargetTriple) []entities.TargetTriple {
	if len(pkg.Targets) == 0 {
		return targets
	}
	allowed := make(map[entities.TargetTriple]bool, len(pkg.Targets))
	for _, t := range pkg.Targets {
		allowed[t] = true
	}
	var out []entities.TargetTriple
	for _, t := range targets {
		if allowed[t] {
			out = append(out, t)
		}
	}
	return out
}
