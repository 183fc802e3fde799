package services

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// plannedRelease adds a release with one variant per target and its archives
func plannedRelease(b *GraphBuilder, pkg entities.Package, config entities.AppConfig, targets ...entities.TargetTriple) entities.ReleaseIdx {
	releaseIdx := b.AddRelease(pkg, config)
	for _, target := range targets {
		b.AddVariant(releaseIdx, target)
	}
	b.AddExecutableZip(releaseIdx)
	return releaseIdx
}

var mixedTargets = []entities.TargetTriple{
	entities.TargetX64LinuxGNU,
	entities.TargetX64WindowsMSVC,
	entities.TargetARM64MacOS,
}

func TestAddGlobalInstallers_Targets(t *testing.T) {
	tests := []struct {
		kind        entities.InstallerKind
		id          string
		wantTargets []entities.TargetTriple
	}{
		{
			kind: entities.InstallerShell,
			id:   "demo-installer.sh",
			wantTargets: []entities.TargetTriple{
				entities.TargetARM64MacOS,
				entities.TargetX64WindowsGNU,
				entities.TargetX64LinuxGNU,
			},
		},
		{
			kind: entities.InstallerPowershell,
			id:   "demo-installer.ps1",
			wantTargets: []entities.TargetTriple{
				entities.TargetARM64WindowsMSVC,
				entities.TargetX64WindowsGNU,
				entities.TargetX64WindowsMSVC,
			},
		},
		{
			kind:        entities.InstallerHomebrew,
			id:          "demo.rb",
			wantTargets: []entities.TargetTriple{entities.TargetARM64MacOS, entities.TargetX64LinuxGNU},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			b := newTestBuilder()
			releaseIdx := plannedRelease(b, demoPackage(), entities.DefaultAppConfig(), mixedTargets...)
			if err := b.AddInstaller(releaseIdx, tt.kind); err != nil {
				t.Fatalf("AddInstaller(%s) error = %v", tt.kind, err)
			}

			graph := b.Graph()
			installer := findArtifact(graph, tt.id)
			if installer == nil {
				t.Fatalf("installer %s missing, have %v", tt.id, artifactIDs(graph))
			}
			if !installer.IsGlobal {
				t.Errorf("%s installer is not global", tt.kind)
			}
			if diff := cmp.Diff(tt.wantTargets, installer.Targets); diff != "" {
				t.Errorf("targets mismatch (-want +got):\n%s", diff)
			}
			kind := installer.Kind.(entities.Installer)
			if len(kind.Fragments) != len(tt.wantTargets) {
				t.Errorf("fragments = %d, want one per target", len(kind.Fragments))
			}
		})
	}
}

func TestAddInstaller_Empty(t *testing.T) {
	pkg := demoPackage()
	pkg.Binaries = nil
	pkg.DynamicLibraries = []string{"demo"}

	for _, kind := range []entities.InstallerKind{entities.InstallerShell, entities.InstallerMsi} {
		t.Run(string(kind), func(t *testing.T) {
			b := newTestBuilder()
			releaseIdx := plannedRelease(b, pkg, entities.DefaultAppConfig(), entities.TargetX64WindowsMSVC)

			err := b.AddInstaller(releaseIdx, kind)
			if !errors.Is(err, ErrEmptyInstaller) {
				t.Fatalf("AddInstaller() error = %v, want ErrEmptyInstaller", err)
			}
			var empty *EmptyInstallerError
			if !errors.As(err, &empty) || empty.App != "demo" || empty.Installer != kind {
				t.Errorf("error = %#v, want app and installer filled in", err)
			}
			if n := len(b.Graph().Artifacts); n != 0 {
				t.Errorf("artifacts = %v, want none", artifactIDs(b.Graph()))
			}
		})
	}
}

func TestAddInstaller_InstallableLibraries(t *testing.T) {
	pkg := demoPackage()
	pkg.Binaries = nil
	pkg.DynamicLibraries = []string{"demo"}

	config := entities.DefaultAppConfig()
	config.PackageLibraries = []entities.LibraryKind{entities.LibraryDynamic}
	config.InstallLibraries = []entities.LibraryKind{entities.LibraryDynamic}

	b := newTestBuilder()
	releaseIdx := plannedRelease(b, pkg, config, entities.TargetX64LinuxGNU)
	if err := b.AddShellInstaller(releaseIdx); err != nil {
		t.Fatalf("AddShellInstaller() error = %v", err)
	}
	installer := findArtifact(b.Graph(), "demo-installer.sh")
	if installer == nil {
		t.Fatalf("installer missing, have %v", artifactIDs(b.Graph()))
	}
	fragments := installer.Kind.(entities.Installer).Fragments
	if diff := cmp.Diff([]string{"libdemo.so"}, fragments[0].DynamicLibraries); diff != "" {
		t.Errorf("fragment libraries mismatch (-want +got):\n%s", diff)
	}
}

func TestAddInstaller_NoTargetsLeft(t *testing.T) {
	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), entities.DefaultAppConfig(), entities.TargetX64LinuxGNU)

	for _, kind := range []entities.InstallerKind{entities.InstallerMsi, entities.InstallerPkg} {
		if err := b.AddInstaller(releaseIdx, kind); err != nil {
			t.Errorf("AddInstaller(%s) error = %v, want a warning only", kind, err)
		}
	}
	for _, a := range b.Graph().Artifacts {
		if _, ok := a.Kind.(entities.Installer); ok {
			t.Errorf("unexpected installer %s", a.ID)
		}
	}
	if len(b.Graph().Warnings) != 2 {
		t.Errorf("warnings = %v, want one per skipped installer", b.Graph().Warnings)
	}
}

func TestAddNpmInstaller(t *testing.T) {
	config := entities.DefaultAppConfig()
	config.NpmScope = "@acme"

	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), config, entities.TargetX64LinuxGNU, entities.TargetX64MacOS)
	if err := b.AddNpmInstaller(releaseIdx); err != nil {
		t.Fatalf("AddNpmInstaller() error = %v", err)
	}

	installer := findArtifact(b.Graph(), "demo-npm-package.tar.gz")
	if installer == nil {
		t.Fatalf("npm package missing, have %v", artifactIDs(b.Graph()))
	}
	kind := installer.Kind.(entities.Installer)
	if kind.PackageName != "@acme/demo" {
		t.Errorf("PackageName = %q, want %q", kind.PackageName, "@acme/demo")
	}
	conditions := kind.RuntimeConditions
	if !conditions.Rosetta2 || conditions.MinGlibcVersion == nil {
		t.Errorf("RuntimeConditions = %+v, want the conflated rosetta2 and glibc conditions", conditions)
	}
}

func TestAddHomebrewInstaller_FormulaName(t *testing.T) {
	config := entities.DefaultAppConfig()
	config.HomebrewFormula = "demo-cli"

	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), config, entities.TargetARM64MacOS)
	if err := b.AddHomebrewInstaller(releaseIdx); err != nil {
		t.Fatalf("AddHomebrewInstaller() error = %v", err)
	}
	installer := findArtifact(b.Graph(), "demo-cli.rb")
	if installer == nil {
		t.Fatalf("formula missing, have %v", artifactIDs(b.Graph()))
	}
	if name := installer.Kind.(entities.Installer).PackageName; name != "demo-cli" {
		t.Errorf("PackageName = %q, want %q", name, "demo-cli")
	}
}

func TestAddMsiInstaller(t *testing.T) {
	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), entities.DefaultAppConfig(), mixedTargets...)
	if err := b.AddMsiInstaller(releaseIdx); err != nil {
		t.Fatalf("AddMsiInstaller() error = %v", err)
	}

	graph := b.Graph()
	msi := findArtifact(graph, "demo-x86_64-pc-windows-msvc.msi")
	if msi == nil {
		t.Fatalf("msi missing, have %v", artifactIDs(graph))
	}
	if msi.IsGlobal {
		t.Errorf("msi should be local to its variant")
	}
	kind := msi.Kind.(entities.Installer)
	if kind.StagingDir != "dist/demo-x86_64-pc-windows-msvc-msi" {
		t.Errorf("StagingDir = %q", kind.StagingDir)
	}
	if diff := cmp.Diff([]entities.RequiredBinary{{Binary: 1, DestPath: "dist/demo-x86_64-pc-windows-msvc-msi/demo.exe"}}, msi.RequiredBinaries); diff != "" {
		t.Errorf("RequiredBinaries mismatch (-want +got):\n%s", diff)
	}
	if findArtifact(graph, "demo-x86_64-pc-windows-msvc.msi.sha256") == nil {
		t.Errorf("msi checksum missing")
	}
	if findArtifact(graph, "demo-aarch64-apple-darwin.msi") != nil {
		t.Errorf("msi planned for a mac target")
	}
}

func TestAddPkgInstaller_MultiplePackages(t *testing.T) {
	pkg := demoPackage()
	pkg.Binaries = []string{"demo", "helper"}

	b := newTestBuilder()
	releaseIdx := b.AddRelease(pkg, entities.DefaultAppConfig())
	b.AddVariant(releaseIdx, entities.TargetARM64MacOS)
	b.Graph().Binaries[1].PackageID = "helper-pkg"
	b.AddExecutableZip(releaseIdx)
	before := len(b.Graph().Artifacts)

	err := b.AddPkgInstaller(releaseIdx)
	if !errors.Is(err, ErrMultiPackageInstaller) {
		t.Fatalf("AddPkgInstaller() error = %v, want ErrMultiPackageInstaller", err)
	}
	if after := len(b.Graph().Artifacts); after != before {
		t.Errorf("artifacts grew from %d to %d on error", before, after)
	}
}

func TestAddInstaller_Unknown(t *testing.T) {
	b := newTestBuilder()
	releaseIdx := plannedRelease(b, demoPackage(), entities.DefaultAppConfig(), entities.TargetX64LinuxGNU)
	if err := b.AddInstaller(releaseIdx, "flatpak"); err == nil {
		t.Errorf("AddInstaller(flatpak) error = nil, want an error")
	}
}
