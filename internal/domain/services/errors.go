package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Sentinel errors, matched with errors.Is against the typed errors below
var (
	ErrEmptyInstaller          = errors.New("installer has nothing to install")
	ErrUnsupportedCrossCompile = errors.New("unsupported cross-compilation")
	ErrMultiPackageInstaller   = errors.New("installer cannot bundle multiple packages")
	ErrFeatureMismatch         = errors.New("packages disagree on features")
)

// EmptyInstallerError is returned when an installer is requested for an app with no
// executables and no installable libraries
type EmptyInstallerError struct {
	App       string
	Installer entities.InstallerKind
}

func (e *EmptyInstallerError) Error() string {
	return fmt.Sprintf("%s installer for %s: no binaries or installable libraries are configured", e.Installer, e.App)
}

// Is matches ErrEmptyInstaller
func (e *EmptyInstallerError) Is(target error) bool { return target == ErrEmptyInstaller }

// UnsupportedCrossCompileError is returned when no build wrapper can take host to target
type UnsupportedCrossCompileError struct {
	Host   entities.TargetTriple
	Target entities.TargetTriple
}

func (e *UnsupportedCrossCompileError) Error() string {
	return fmt.Sprintf("cannot build for %s on a %s host: no known build wrapper for %s -> %s",
		e.Target, e.Host, e.Host.OS(), e.Target.OS())
}

// Is matches ErrUnsupportedCrossCompile
func (e *UnsupportedCrossCompileError) Is(target error) bool {
	return target == ErrUnsupportedCrossCompile
}

// MultiPackageInstallerError is returned when a single-package installer would need
// binaries from two packages
type MultiPackageInstallerError struct {
	Installer entities.InstallerKind
	First     string
	Second    string
}

func (e *MultiPackageInstallerError) Error() string {
	return fmt.Sprintf("%s installers can only bundle one package, but binaries come from both %q and %q",
		e.Installer, e.First, e.Second)
}

// Is matches ErrMultiPackageInstaller
func (e *MultiPackageInstallerError) Is(target error) bool { return target == ErrMultiPackageInstaller }

// FeatureMismatchError is returned when packages built together ask for different features
type FeatureMismatchError struct {
	Target    entities.TargetTriple
	Manifests []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("packages built together for %s have different feature settings; enable precise-builds or align features in:\n  %s",
		e.Target, strings.Join(e.Manifests, "\n  "))
}

// Is matches ErrFeatureMismatch
func (e *FeatureMismatchError) Is(target error) bool { return target == ErrFeatureMismatch }
