package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/interfaces/gateways"
)

// BuildOrchestrator executes the step groups of a plan on the local machine.
// Copy, archive and checksum steps are run by the packaging gateways; every other
// step goes to the optional StepRunner.
type BuildOrchestrator struct {
	packager    gateways.Packager
	checksummer gateways.Checksummer
	copier      gateways.Copier
	runner      gateways.StepRunner
	jobs        int
	logger      interfaces.Logger
}

// BuildOrchestratorConfig holds configuration for the orchestrator
type BuildOrchestratorConfig struct {
	// Jobs bounds how many local artifact groups run at once; 0 means 4
	Jobs int
}

// NewBuildOrchestrator creates a new build orchestrator. runner may be nil.
func NewBuildOrchestrator(
	packager gateways.Packager,
	checksummer gateways.Checksummer,
	copier gateways.Copier,
	runner gateways.StepRunner,
	config BuildOrchestratorConfig,
	logger interfaces.Logger,
) *BuildOrchestrator {
	jobs := config.Jobs
	if jobs <= 0 {
		jobs = 4
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	return &BuildOrchestrator{
		packager:    packager,
		checksummer: checksummer,
		copier:      copier,
		runner:      runner,
		jobs:        jobs,
		logger:      logger,
	}
}

// BuildResult contains the result of executing a plan
type BuildResult struct {
	GroupsRun int
	StepsRun  int
	// Skipped lists "group: step" for steps no executor could run
	Skipped       []string
	TotalDuration time.Duration
	Success       bool
	Error         error

	mu sync.Mutex
}

func (r *BuildResult) recordStep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StepsRun++
}

func (r *BuildResult) recordSkip(group string, step entities.BuildStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped = append(r.Skipped, fmt.Sprintf("%s: %s", group, step.StepName()))
}

func (r *BuildResult) recordGroup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.GroupsRun++
}

// Execute runs compile groups in order, then the remaining local groups concurrently,
// then the global groups in order. The first failing step cancels the run.
func (o *BuildOrchestrator) Execute(ctx context.Context, graph *entities.DistGraph) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{}

	var compile, local []entities.StepGroup
	for _, group := range graph.LocalSteps {
		if isCompileGroup(group) {
			compile = append(compile, group)
		} else {
			local = append(local, group)
		}
	}

	fail := func(err error) (*BuildResult, error) {
		result.Error = err
		result.TotalDuration = time.Since(startTime)
		return result, err
	}

	for _, group := range compile {
		if err := o.runGroup(ctx, graph, group, result); err != nil {
			return fail(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.jobs)
	for _, group := range local {
		g.Go(func() error {
			return o.runGroup(gctx, graph, group, result)
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	for _, group := range graph.GlobalSteps {
		if err := o.runGroup(ctx, graph, group, result); err != nil {
			return fail(err)
		}
	}

	result.Success = true
	result.TotalDuration = time.Since(startTime)
	return result, nil
}

func isCompileGroup(group entities.StepGroup) bool {
	for _, step := range group.Steps {
		if _, ok := step.(entities.CompileStep); !ok {
			return false
		}
	}
	return len(group.Steps) > 0
}

func (o *BuildOrchestrator) runGroup(ctx context.Context, graph *entities.DistGraph, group entities.StepGroup, result *BuildResult) error {
	o.logger.Debug("running step group", interfaces.F("group", group.Name), interfaces.F("steps", len(group.Steps)))
	for _, step := range group.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		ran, err := o.runStep(ctx, graph, step)
		if err != nil {
			return fmt.Errorf("%s: %s failed: %w", group.Name, step.StepName(), err)
		}
		if !ran {
			o.logger.Warn("no executor for build step, skipping",
				interfaces.F("group", group.Name), interfaces.F("step", step.StepName()))
			result.recordSkip(group.Name, step)
			continue
		}
		result.recordStep()
	}
	result.recordGroup()
	return nil
}

// runStep reports false when the step kind has no executor
func (o *BuildOrchestrator) runStep(ctx context.Context, graph *entities.DistGraph, step entities.BuildStep) (bool, error) {
	var err error
	switch s := step.(type) {
	case entities.CopyFileStep:
		err = o.copier.CopyFile(s.SrcPath, s.DestPath)
	case entities.CopyDirStep:
		err = o.copier.CopyDir(s.SrcPath, s.DestPath)
	case entities.CopyFileOrDirStep:
		err = o.copier.CopyFileOrDir(s.SrcPath, s.DestPath)
	case entities.ZipDirStep:
		err = o.packager.ZipDir(ctx, s.SrcPath, s.DestPath, s.WithRoot, s.ZipStyle)
	case entities.ChecksumStep:
		err = o.checksummer.WriteChecksum(s.Style, s.SrcPath, s.DestPath)
	case entities.UnifiedChecksumStep:
		err = o.checksummer.WriteUnifiedChecksum(s.Style, s.DestPath, s.SrcPaths)
	default:
		if o.runner == nil {
			return false, nil
		}
		err = o.runner.RunStep(ctx, graph, step)
		if errors.Is(err, gateways.ErrStepNotSupported) {
			return false, nil
		}
	}
	return err == nil, err
}

// GetBuildSummary returns a human-readable summary of the build
func (r *BuildResult) GetBuildSummary() string {
	if !r.Success {
		return fmt.Sprintf("Build failed: %v", r.Error)
	}

	summary := fmt.Sprintf(`Build successful!
Groups: %d
Steps: %d
Total: %v`,
		r.GroupsRun,
		r.StepsRun,
		r.TotalDuration,
	)
	if len(r.Skipped) > 0 {
		summary += fmt.Sprintf("\nSkipped: %s", strings.Join(r.Skipped, ", "))
	}
	return summary
}
