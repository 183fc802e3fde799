package services

import (
	"fmt"
	"path"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// installerSupports reports whether an installer kind can serve target
func installerSupports(kind entities.InstallerKind, target entities.TargetTriple) bool {
	switch kind {
	case entities.InstallerShell:
		return !target.IsWindowsMSVC()
	case entities.InstallerPowershell:
		return target.IsWindows()
	case entities.InstallerNpm:
		return true
	case entities.InstallerHomebrew:
		return target.IsDarwin() || target.IsLinux()
	case entities.InstallerMsi:
		return target.IsWindowsMSVC()
	case entities.InstallerPkg:
		return target.IsDarwin()
	default:
		return false
	}
}

// hasInstallables reports whether a release has executables, or libraries it is
// configured to install
func hasInstallables(release *entities.Release) bool {
	if len(release.Executables) > 0 {
		return true
	}
	for _, names := range release.Config.Bins {
		if len(names) > 0 {
			return true
		}
	}
	installs := release.Config.InstallLibraries
	if entities.HasLibrary(installs, entities.LibraryDynamic) && len(release.DynamicLibraries) > 0 {
		return true
	}
	return entities.HasLibrary(installs, entities.LibraryStatic) && len(release.StaticLibraries) > 0
}

// installsBinary reports whether an installer payload should carry binary
func installsBinary(config entities.AppConfig, binary *entities.Binary) bool {
	switch binary.Kind {
	case entities.BinaryDynamicLibrary:
		return entities.HasLibrary(config.InstallLibraries, entities.LibraryDynamic)
	case entities.BinaryStaticLibrary:
		return entities.HasLibrary(config.InstallLibraries, entities.LibraryStatic)
	default:
		return true
	}
}

// AddInstaller dispatches to the installer-specific operation for kind
func (b *GraphBuilder) AddInstaller(releaseIdx entities.ReleaseIdx, kind entities.InstallerKind) error {
	switch kind {
	case entities.InstallerShell:
		return b.AddShellInstaller(releaseIdx)
	case entities.InstallerPowershell:
		return b.AddPowershellInstaller(releaseIdx)
	case entities.InstallerNpm:
		return b.AddNpmInstaller(releaseIdx)
	case entities.InstallerHomebrew:
		return b.AddHomebrewInstaller(releaseIdx)
	case entities.InstallerMsi:
		return b.AddMsiInstaller(releaseIdx)
	case entities.InstallerPkg:
		return b.AddPkgInstaller(releaseIdx)
	default:
		return fmt.Errorf("unknown installer %q", kind)
	}
}

// AddShellInstaller adds the curl-pipe-sh installer
func (b *GraphBuilder) AddShellInstaller(releaseIdx entities.ReleaseIdx) error {
	app := b.graph.Release(releaseIdx).AppName
	return b.addGlobalInstaller(releaseIdx, entities.InstallerShell, app+"-installer.sh", "", false)
}

// AddPowershellInstaller adds the irm-pipe-iex installer
func (b *GraphBuilder) AddPowershellInstaller(releaseIdx entities.ReleaseIdx) error {
	app := b.graph.Release(releaseIdx).AppName
	return b.addGlobalInstaller(releaseIdx, entities.InstallerPowershell, app+"-installer.ps1", "", false)
}

// AddNpmInstaller adds an npm package that fetches the right archive on install
func (b *GraphBuilder) AddNpmInstaller(releaseIdx entities.ReleaseIdx) error {
	release := b.graph.Release(releaseIdx)
	packageName := release.AppName
	if scope := release.Config.NpmScope; scope != "" {
		packageName = fmt.Sprintf("%s/%s", scope, release.AppName)
	}
	id := release.AppName + "-npm-package.tar.gz"
	return b.addGlobalInstaller(releaseIdx, entities.InstallerNpm, id, packageName, true)
}

// AddHomebrewInstaller adds a Homebrew formula
func (b *GraphBuilder) AddHomebrewInstaller(releaseIdx entities.ReleaseIdx) error {
	release := b.graph.Release(releaseIdx)
	formula := release.Config.HomebrewFormula
	if formula == "" {
		formula = release.AppName
	}
	return b.addGlobalInstaller(releaseIdx, entities.InstallerHomebrew, formula+".rb", formula, true)
}

// AddMsiInstaller adds one Windows installer per windows-msvc variant
func (b *GraphBuilder) AddMsiInstaller(releaseIdx entities.ReleaseIdx) error {
	return b.addLocalInstallers(releaseIdx, entities.InstallerMsi, ".msi")
}

// AddPkgInstaller adds one macOS installer package per darwin variant
func (b *GraphBuilder) AddPkgInstaller(releaseIdx entities.ReleaseIdx) error {
	return b.addLocalInstallers(releaseIdx, entities.InstallerPkg, ".pkg")
}

func (b *GraphBuilder) addGlobalInstaller(releaseIdx entities.ReleaseIdx, kind entities.InstallerKind, id, packageName string, conflate bool) error {
	release := b.graph.Release(releaseIdx)
	if !hasInstallables(release) {
		return &EmptyInstallerError{App: release.AppName, Installer: kind}
	}

	support := b.ComputePlatformSupport(releaseIdx)
	var fragments []entities.ExecutableZipFragment
	var targets []entities.TargetTriple
	var conditions entities.RuntimeConditions
	for _, fragment := range support.Fragments() {
		if !installerSupports(kind, fragment.Target) {
			continue
		}
		fragments = append(fragments, fragment)
		targets = append(targets, fragment.Target)
		for _, entry := range support.Platforms[fragment.Target] {
			conditions = conditions.Merge(entry.RuntimeConditions)
		}
	}
	if len(fragments) == 0 {
		b.warn("no targets left for installer, skipping",
			interfaces.F("installer", kind), interfaces.F("release", release.ID))
		return nil
	}

	installer := entities.Installer{
		Installer:   kind,
		Fragments:   fragments,
		PackageName: packageName,
	}
	if conflate {
		installer.RuntimeConditions = conditions
	}
	b.addGlobalArtifact(releaseIdx, entities.Artifact{
		ID:       id,
		Kind:     installer,
		Targets:  targets,
		FilePath: path.Join(b.opts.DistDir, id),
	})
	b.logger.Debug("added installer", interfaces.F("installer", kind), interfaces.F("targets", len(targets)))
	return nil
}

// addLocalInstallers creates per-variant installers that package binaries directly.
// Every eligible variant is validated before anything is added.
func (b *GraphBuilder) addLocalInstallers(releaseIdx entities.ReleaseIdx, kind entities.InstallerKind, ext string) error {
	release := b.graph.Release(releaseIdx)
	if !hasInstallables(release) {
		return &EmptyInstallerError{App: release.AppName, Installer: kind}
	}
	config := release.Config
	appName := release.AppName

	type plannedInstaller struct {
		variant  entities.VariantIdx
		binaries []entities.BinaryIdx
	}
	var planned []plannedInstaller
	for _, variantIdx := range release.Variants {
		variant := b.graph.Variant(variantIdx)
		if !installerSupports(kind, variant.Target) {
			continue
		}
		var binaries []entities.BinaryIdx
		firstPackage := ""
		for _, binIdx := range variant.Binaries {
			binary := b.graph.Binary(binIdx)
			if !installsBinary(config, binary) {
				continue
			}
			if firstPackage == "" {
				firstPackage = binary.PackageID
			} else if binary.PackageID != firstPackage {
				return &MultiPackageInstallerError{Installer: kind, First: firstPackage, Second: binary.PackageID}
			}
			binaries = append(binaries, binIdx)
		}
		if len(binaries) == 0 {
			continue
		}
		planned = append(planned, plannedInstaller{variant: variantIdx, binaries: binaries})
	}
	if len(planned) == 0 {
		b.warn("no targets left for installer, skipping",
			interfaces.F("installer", kind), interfaces.F("release", release.ID))
		return nil
	}

	support := b.ComputePlatformSupport(releaseIdx)
	for _, p := range planned {
		target := b.graph.Variant(p.variant).Target
		var fragments []entities.ExecutableZipFragment
		for _, fragment := range support.Fragments() {
			if fragment.Target == target {
				fragments = append(fragments, fragment)
			}
		}

		stagingDir := path.Join(b.opts.DistDir, fmt.Sprintf("%s-%s-%s", appName, target, kind))
		id := fmt.Sprintf("%s-%s%s", appName, target, ext)
		installerIdx := b.addLocalArtifact(p.variant, entities.Artifact{
			ID: id,
			Kind: entities.Installer{
				Installer:  kind,
				Fragments:  fragments,
				StagingDir: stagingDir,
			},
			Targets:  []entities.TargetTriple{target},
			FilePath: path.Join(b.opts.DistDir, id),
		})
		for _, binIdx := range p.binaries {
			fileName := b.graph.Binary(binIdx).FileName
			b.RequireBinary(installerIdx, p.variant, binIdx, path.Join(stagingDir, fileName))
		}
		if config.Checksum.Enabled() {
			b.addChecksum(installerIdx, config.Checksum)
		}
	}
	return nil
}
