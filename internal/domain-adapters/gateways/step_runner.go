package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
	"github.com/ochairo/cauldron/internal/domain/interfaces/gateways"
)

// CommandRunner executes compile, extra-build, source-tarball and updater steps.
// Compile steps are satisfied from a directory of prebuilt binaries laid out as
// <prebuilt-dir>/<target>/<file-name>.
type CommandRunner struct {
	defaultTimeout time.Duration
	prebuiltDir    string
	copier         *Copier
	fetcher        *UpdaterFetcher
	logger         interfaces.Logger
}

// NewCommandRunner creates a new command runner. A nil fetcher leaves updater steps unsupported.
func NewCommandRunner(prebuiltDir string, fetcher *UpdaterFetcher, logger interfaces.Logger) *CommandRunner {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &CommandRunner{
		defaultTimeout: 30 * time.Minute,
		prebuiltDir:    prebuiltDir,
		copier:         NewCopier(),
		fetcher:        fetcher,
		logger:         logger,
	}
}

// ExecuteCommandConfig contains configuration for executing a command.
type ExecuteCommandConfig struct {
	Args        []string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// ExecuteResult contains the result of command execution
type ExecuteResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// ExecuteCommand runs a command with the given configuration
func (r *CommandRunner) ExecuteCommand(ctx context.Context, config ExecuteCommandConfig) *ExecuteResult {
	startTime := time.Now()
	result := &ExecuteResult{}

	if len(config.Args) == 0 {
		result.Error = errors.New("empty command")
		result.ExitCode = -1
		return result
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: Commands come from the workspace configuration
	cmd := exec.CommandContext(execCtx, config.Args[0], config.Args[1:]...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}
	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if config.Description != "" {
		r.logger.Info("executing", interfaces.F("step", config.Description))
	}

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("command timeout after %v", timeout)
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result
	}

	result.Success = true
	return result
}

// RunStep executes one step, or returns gateways.ErrStepNotSupported
func (r *CommandRunner) RunStep(ctx context.Context, graph *entities.DistGraph, step entities.BuildStep) error {
	switch s := step.(type) {
	case entities.CompileStep:
		return r.copyPrebuilt(graph, s)
	case entities.ExtraBuildStep:
		return r.runExtraBuild(ctx, s)
	case entities.GenerateSourceTarballStep:
		return r.generateSourceTarball(ctx, s)
	case entities.FetchUpdaterStep:
		if r.fetcher == nil {
			return fmt.Errorf("%s: %w", step.StepName(), gateways.ErrStepNotSupported)
		}
		return r.fetcher.FetchUpdater(ctx, s.Target, s.DestPath)
	default:
		return fmt.Errorf("%s: %w", step.StepName(), gateways.ErrStepNotSupported)
	}
}

// copyPrebuilt places prebuilt binaries wherever the plan expects compile outputs
func (r *CommandRunner) copyPrebuilt(graph *entities.DistGraph, step entities.CompileStep) error {
	if r.prebuiltDir == "" {
		return fmt.Errorf("compile for %s: %w", step.Target, gateways.ErrStepNotSupported)
	}
	for _, binIdx := range step.Binaries {
		binary := graph.Binary(binIdx)
		src := filepath.Join(r.prebuiltDir, string(binary.Target), binary.FileName)
		for _, dest := range binary.CopyExeTo {
			if err := r.copier.CopyFile(src, dest); err != nil {
				return fmt.Errorf("failed to stage %s: %w", binary.ID, err)
			}
		}
		if len(binary.CopySymbolsTo) == 0 {
			continue
		}
		symbols := filepath.Join(r.prebuiltDir, string(binary.Target), graph.Artifact(*binary.SymbolsArtifact).ID)
		if _, err := os.Stat(symbols); err != nil {
			r.logger.Warn("debug symbols not found, skipping", interfaces.F("binary", binary.ID))
			continue
		}
		for _, dest := range binary.CopySymbolsTo {
			if err := r.copier.CopyFile(symbols, dest); err != nil {
				return fmt.Errorf("failed to stage symbols of %s: %w", binary.ID, err)
			}
		}
	}
	return nil
}

func (r *CommandRunner) runExtraBuild(ctx context.Context, step entities.ExtraBuildStep) error {
	result := r.ExecuteCommand(ctx, ExecuteCommandConfig{
		Args:        step.Command,
		WorkingDir:  step.WorkingDir,
		Env:         map[string]string{"DIST_DIR": step.DistDir},
		Description: "extra build",
	})
	if !result.Success {
		return fmt.Errorf("extra build failed (exit %d): %w\nStderr: %s", result.ExitCode, result.Error, result.Stderr)
	}
	for _, artifact := range step.Artifacts {
		src := artifact
		if !filepath.IsAbs(src) && step.WorkingDir != "" {
			src = filepath.Join(step.WorkingDir, src)
		}
		if err := r.copier.CopyFile(src, filepath.Join(step.DistDir, filepath.Base(artifact))); err != nil {
			return fmt.Errorf("failed to collect extra artifact: %w", err)
		}
	}
	return nil
}

func (r *CommandRunner) generateSourceTarball(ctx context.Context, step entities.GenerateSourceTarballStep) error {
	dest, err := filepath.Abs(step.DestPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", step.DestPath, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	result := r.ExecuteCommand(ctx, ExecuteCommandConfig{
		Args: []string{
			"git", "archive",
			"--format=tar.gz",
			"--prefix=" + step.Prefix,
			"--output=" + dest,
			step.Committish,
		},
		WorkingDir:  step.WorkingDir,
		Description: "source tarball",
	})
	if !result.Success {
		return fmt.Errorf("git archive failed (exit %d): %w\nStderr: %s", result.ExitCode, result.Error, result.Stderr)
	}
	return nil
}
