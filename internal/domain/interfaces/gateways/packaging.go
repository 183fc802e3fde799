// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"
	"errors"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Packager bundles staging directories into archives
type Packager interface {
	// ZipDir writes srcDir to destPath in the given style, optionally nested under withRoot
	ZipDir(ctx context.Context, srcDir, destPath, withRoot string, style entities.ZipStyle) error
}

// Checksummer computes and writes checksum files
type Checksummer interface {
	// WriteChecksum writes "<hash>  <basename>" for srcPath to destPath
	WriteChecksum(style entities.ChecksumStyle, srcPath, destPath string) error

	// WriteUnifiedChecksum writes one line per source to destPath
	WriteUnifiedChecksum(style entities.ChecksumStyle, destPath string, srcPaths []string) error
}

// Copier copies files and directories into staging areas
type Copier interface {
	CopyFile(srcPath, destPath string) error
	CopyDir(srcPath, destPath string) error
	CopyFileOrDir(srcPath, destPath string) error
}

// ErrStepNotSupported is returned by a StepRunner for step kinds it does not execute
var ErrStepNotSupported = errors.New("build step not supported by this runner")

// StepRunner executes the build steps the local packaging gateways do not cover
type StepRunner interface {
	RunStep(ctx context.Context, graph *entities.DistGraph, step entities.BuildStep) error
}
