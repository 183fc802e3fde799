package yaml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

const demoWorkspace = `dist-dir: target/distrib
host: x86_64-unknown-linux-gnu
targets:
  - x86_64-unknown-linux-gnu
  - aarch64-apple-darwin
  - x86_64-pc-windows-msvc
repository:
  root: .
  head-commit: 0123abcd
tools:
  git: true
dist:
  installers: [shell, powershell]
  unix-archive: tar.gz
  checksum: sha512
  bins:
    "*": [demo]
    x86_64-pc-windows-msvc: [demo, demo-helper]
packages:
  - name: demo
    version: 1.2.0-rc.1
    description: A demo app
    license: MIT
    authors: [Jane Doe]
    repository: https://github.com/example/demo
    binaries: [demo, demo-helper]
    readme: README.md
    license-files: [LICENSE-MIT]
    dist-config:
      checksum: false
      install-updater: true
      extra-artifacts:
        - build: [make, docs]
          artifacts: [docs/manual.pdf]
`

func TestWorkspaceParser_Parse_Valid(t *testing.T) {
	parser := NewWorkspaceParser()

	ws, err := parser.Parse([]byte(demoWorkspace))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if ws.DistDir != "target/distrib" {
		t.Errorf("DistDir = %v, want target/distrib", ws.DistDir)
	}
	if ws.Host != entities.TargetX64LinuxGNU {
		t.Errorf("Host = %v, want %v", ws.Host, entities.TargetX64LinuxGNU)
	}
	wantTargets := []entities.TargetTriple{entities.TargetX64LinuxGNU, entities.TargetARM64MacOS, entities.TargetX64WindowsMSVC}
	if diff := cmp.Diff(wantTargets, ws.Targets); diff != "" {
		t.Errorf("Targets mismatch (-want +got):\n%s", diff)
	}
	if ws.Snapshot.Repo == nil || ws.Snapshot.Repo.HeadCommit != "0123abcd" {
		t.Errorf("Repo = %+v, want head commit 0123abcd", ws.Snapshot.Repo)
	}
	if !ws.Snapshot.Tools.Git || ws.Snapshot.Tools.CycloneDX {
		t.Errorf("Tools = %+v, want only git", ws.Snapshot.Tools)
	}

	wantInstallers := []entities.InstallerKind{entities.InstallerShell, entities.InstallerPowershell}
	if diff := cmp.Diff(wantInstallers, ws.Defaults.Installers); diff != "" {
		t.Errorf("Installers mismatch (-want +got):\n%s", diff)
	}
	if ws.Defaults.UnixArchive == nil || *ws.Defaults.UnixArchive != entities.ZipStyleTarGzip {
		t.Errorf("UnixArchive = %v, want .tar.gz", ws.Defaults.UnixArchive)
	}
	if ws.Defaults.WindowsArchive != nil {
		t.Errorf("WindowsArchive = %v, want unset", *ws.Defaults.WindowsArchive)
	}
	if got := ws.Defaults.Bins[entities.TargetX64WindowsMSVC]; len(got) != 2 {
		t.Errorf("Bins[windows] = %v, want 2 entries", got)
	}

	if len(ws.Snapshot.Packages) != 1 {
		t.Fatalf("Packages count = %d, want 1", len(ws.Snapshot.Packages))
	}
	pkg := ws.Snapshot.Packages[0]
	if pkg.ID != "demo" {
		t.Errorf("ID = %v, want demo (defaulted from name)", pkg.ID)
	}
	if pkg.RepositoryURL != "https://github.com/example/demo" {
		t.Errorf("RepositoryURL = %v", pkg.RepositoryURL)
	}
	if pkg.Config == nil {
		t.Fatal("Config should be set")
	}
	if pkg.Config.Checksum == nil || *pkg.Config.Checksum != entities.ChecksumNone {
		t.Errorf("Checksum = %v, want false", pkg.Config.Checksum)
	}
	wantExtras := []entities.ExtraArtifactConfig{{Build: []string{"make", "docs"}, Artifacts: []string{"docs/manual.pdf"}}}
	if diff := cmp.Diff(wantExtras, pkg.Config.ExtraArtifacts); diff != "" {
		t.Errorf("ExtraArtifacts mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkspaceParser_ParseJSONC(t *testing.T) {
	parser := NewWorkspaceParser()
	data := []byte(`{
  // planning targets
  "targets": ["x86_64-unknown-linux-musl"],
  "dist": {"installers": ["npm"], "npm-scope": "@demo",},
  "packages": [
    {"name": "demo", "version": "0.1.0", "binaries": ["demo"]}, /* trailing comma */
  ],
}`)

	ws, err := parser.ParseJSONC(data)
	if err != nil {
		t.Fatalf("ParseJSONC() error = %v", err)
	}
	if len(ws.Targets) != 1 || ws.Targets[0] != entities.TargetX64LinuxMusl {
		t.Errorf("Targets = %v, want [%v]", ws.Targets, entities.TargetX64LinuxMusl)
	}
	if ws.Defaults.NpmScope == nil || *ws.Defaults.NpmScope != "@demo" {
		t.Errorf("NpmScope = %v, want @demo", ws.Defaults.NpmScope)
	}
	if len(ws.Snapshot.Packages) != 1 || ws.Snapshot.Packages[0].Name != "demo" {
		t.Errorf("Packages = %+v", ws.Snapshot.Packages)
	}
}

func TestWorkspaceParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "packages:\n  - name: demo\n    invalid: [broken yaml\n"},
		{"missing name", "packages:\n  - version: 1.0.0\n"},
		{"missing version", "packages:\n  - name: demo\n"},
		{"duplicate package", "packages:\n  - {name: demo, version: 1.0.0}\n  - {name: demo, version: 2.0.0}\n"},
		{"bad target", "targets: [linux]\n"},
		{"bad installer", "dist:\n  installers: [deb]\n"},
		{"bad archive", "dist:\n  unix-archive: rar\n"},
		{"bad checksum", "dist:\n  checksum: md5\n"},
		{"bad library", "dist:\n  package-libraries: [rlib]\n"},
		{"bad package layer", "packages:\n  - name: demo\n    version: 1.0.0\n    dist-config: {windows-archive: 7z}\n"},
	}

	parser := NewWorkspaceParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parser.Parse([]byte(tt.data)); err == nil {
				t.Error("Parse() should return error")
			}
		})
	}
}

func TestWorkspaceParser_Parse_Empty(t *testing.T) {
	ws, err := NewWorkspaceParser().Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(ws.Snapshot.Packages) != 0 || ws.Snapshot.Repo != nil {
		t.Errorf("Parse(\"\") = %+v, want empty workspace", ws)
	}
}

func TestWorkspaceParser_ParseFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "dist.jsonc")
	if err := os.WriteFile(jsonPath, []byte(`{"packages": [{"name": "demo", "version": "1.0.0"}], /* ok */}`), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	ws, err := NewWorkspaceParser().ParseFile(jsonPath)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(ws.Snapshot.Packages) != 1 {
		t.Errorf("Packages count = %d, want 1", len(ws.Snapshot.Packages))
	}

	if _, err := NewWorkspaceParser().ParseFile(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("ParseFile() should return error for a missing file")
	}
}
