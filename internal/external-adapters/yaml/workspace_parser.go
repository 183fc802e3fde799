// Package yaml provides YAML and JSONC workspace parsing and repository implementations.
package yaml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// yamlWorkspace represents the raw workspace file structure
type yamlWorkspace struct {
	DistDir    string          `yaml:"dist-dir"`
	Host       string          `yaml:"host"`
	Targets    []string        `yaml:"targets"`
	Repository *yamlRepository `yaml:"repository"`
	Tools      yamlTools       `yaml:"tools"`
	Dist       yamlConfigLayer `yaml:"dist"`
	Packages   []yamlPackage   `yaml:"packages"`
}

type yamlRepository struct {
	Root       string `yaml:"root"`
	HeadCommit string `yaml:"head-commit"`
	Dirty      bool   `yaml:"dirty"`
}

type yamlTools struct {
	Git       bool `yaml:"git"`
	CycloneDX bool `yaml:"cyclonedx"`
	OmniBOR   bool `yaml:"omnibor"`
}

type yamlPackage struct {
	ID           string           `yaml:"id"`
	Name         string           `yaml:"name"`
	Version      string           `yaml:"version"`
	Description  string           `yaml:"description"`
	License      string           `yaml:"license"`
	Authors      []string         `yaml:"authors"`
	Repository   string           `yaml:"repository"`
	Homepage     string           `yaml:"homepage"`
	ManifestPath string           `yaml:"manifest-path"`
	Binaries     []string         `yaml:"binaries"`
	Cdylibs      []string         `yaml:"cdylibs"`
	Cstaticlibs  []string         `yaml:"cstaticlibs"`
	Dist         *bool            `yaml:"dist"`
	Targets      []string         `yaml:"targets"`
	Readme       string           `yaml:"readme"`
	LicenseFiles []string         `yaml:"license-files"`
	Changelog    string           `yaml:"changelog"`
	Config       *yamlConfigLayer `yaml:"dist-config"`
}

type yamlConfigLayer struct {
	Installers        []string            `yaml:"installers"`
	WindowsArchive    *string             `yaml:"windows-archive"`
	UnixArchive       *string             `yaml:"unix-archive"`
	Checksum          *string             `yaml:"checksum"`
	PackageLibraries  []string            `yaml:"package-libraries"`
	InstallLibraries  []string            `yaml:"install-libraries"`
	Bins              map[string][]string `yaml:"bins"`
	AutoIncludes      *bool               `yaml:"auto-includes"`
	Include           []string            `yaml:"include"`
	InstallUpdater    *bool               `yaml:"install-updater"`
	UpdaterFromSource *bool               `yaml:"updater-from-source"`
	CycloneDXSBOM     *bool               `yaml:"cyclonedx-sbom"`
	OmniBOR           *bool               `yaml:"omnibor"`
	SourceTarball     *bool               `yaml:"source-tarball"`
	ExtraArtifacts    []yamlExtraArtifact `yaml:"extra-artifacts"`
	Features          []string            `yaml:"features"`
	DefaultFeatures   *bool               `yaml:"default-features"`
	AllFeatures       *bool               `yaml:"all-features"`
	PreciseBuilds     *bool               `yaml:"precise-builds"`
	GPGSign           *bool               `yaml:"gpg-sign"`
	NpmScope          *string             `yaml:"npm-scope"`
	HomebrewFormula   *string             `yaml:"homebrew-formula"`
}

type yamlExtraArtifact struct {
	Build      []string `yaml:"build"`
	Artifacts  []string `yaml:"artifacts"`
	WorkingDir string   `yaml:"working-dir"`
}

// WorkspaceFileNames are the file names searched, in order, when a directory is given
var WorkspaceFileNames = []string{"dist.yml", "dist.yaml", "dist.json", "dist.jsonc"}

// WorkspaceParser parses workspace files
type WorkspaceParser struct{}

// NewWorkspaceParser creates a new workspace parser
func NewWorkspaceParser() *WorkspaceParser {
	return &WorkspaceParser{}
}

// ParseFile parses a workspace file into a Workspace entity. JSON files may carry comments.
func (p *WorkspaceParser) ParseFile(filePath string) (*entities.Workspace, error) {
	//nolint:gosec // G304: filePath is the workspace file chosen by the user
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json", ".jsonc":
		return p.ParseJSONC(data)
	default:
		return p.Parse(data)
	}
}

// ParseJSONC strips comments and trailing commas before parsing
func (p *WorkspaceParser) ParseJSONC(data []byte) (*entities.Workspace, error) {
	return p.Parse(jsonc.ToJSON(data))
}

// Parse parses YAML (or plain JSON) bytes into a Workspace entity
func (p *WorkspaceParser) Parse(data []byte) (*entities.Workspace, error) {
	var raw yamlWorkspace
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse workspace: %w", err)
	}

	targets, err := convertTargets(raw.Targets)
	if err != nil {
		return nil, err
	}
	defaults, err := convertConfigLayer(raw.Dist)
	if err != nil {
		return nil, fmt.Errorf("invalid dist config: %w", err)
	}

	ws := &entities.Workspace{
		Defaults: defaults,
		DistDir:  raw.DistDir,
		Host:     entities.TargetTriple(raw.Host),
		Targets:  targets,
		Snapshot: entities.WorkspaceSnapshot{
			Tools: entities.ToolAvailability{
				Git:       raw.Tools.Git,
				CycloneDX: raw.Tools.CycloneDX,
				OmniBOR:   raw.Tools.OmniBOR,
			},
		},
	}
	if raw.Repository != nil {
		ws.Snapshot.Repo = &entities.RepoState{
			Root:       raw.Repository.Root,
			HeadCommit: raw.Repository.HeadCommit,
			Dirty:      raw.Repository.Dirty,
		}
	}

	seen := make(map[string]bool, len(raw.Packages))
	for i, rp := range raw.Packages {
		pkg, err := convertPackage(rp)
		if err != nil {
			return nil, fmt.Errorf("package %d: %w", i, err)
		}
		if seen[pkg.ID] {
			return nil, fmt.Errorf("duplicate package id %q", pkg.ID)
		}
		seen[pkg.ID] = true
		ws.Snapshot.Packages = append(ws.Snapshot.Packages, pkg)
	}

	return ws, nil
}

func convertPackage(rp yamlPackage) (entities.Package, error) {
	if rp.Name == "" {
		return entities.Package{}, errors.New("package must have a name")
	}
	if rp.Version == "" {
		return entities.Package{}, fmt.Errorf("package %s must have a version", rp.Name)
	}
	id := rp.ID
	if id == "" {
		id = rp.Name
	}
	targets, err := convertTargets(rp.Targets)
	if err != nil {
		return entities.Package{}, fmt.Errorf("package %s: %w", rp.Name, err)
	}

	pkg := entities.Package{
		ID:               id,
		Name:             rp.Name,
		Version:          rp.Version,
		Description:      rp.Description,
		License:          rp.License,
		Authors:          rp.Authors,
		RepositoryURL:    rp.Repository,
		HomepageURL:      rp.Homepage,
		ManifestPath:     rp.ManifestPath,
		Binaries:         rp.Binaries,
		DynamicLibraries: rp.Cdylibs,
		StaticLibraries:  rp.Cstaticlibs,
		Dist:             rp.Dist,
		Targets:          targets,
		ReadmeFile:       rp.Readme,
		LicenseFiles:     rp.LicenseFiles,
		ChangelogFile:    rp.Changelog,
	}
	if rp.Config != nil {
		layer, err := convertConfigLayer(*rp.Config)
		if err != nil {
			return entities.Package{}, fmt.Errorf("package %s: invalid dist-config: %w", rp.Name, err)
		}
		pkg.Config = &layer
	}
	return pkg, nil
}

func convertTargets(raw []string) ([]entities.TargetTriple, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	targets := make([]entities.TargetTriple, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if strings.Count(t, "-") < 2 {
			return nil, fmt.Errorf("invalid target triple %q", t)
		}
		targets = append(targets, entities.TargetTriple(t))
	}
	return targets, nil
}

func convertConfigLayer(rc yamlConfigLayer) (entities.AppConfigLayer, error) {
	layer := entities.AppConfigLayer{
		Include:           rc.Include,
		AutoIncludes:      rc.AutoIncludes,
		InstallUpdater:    rc.InstallUpdater,
		UpdaterFromSource: rc.UpdaterFromSource,
		CycloneDXSBOM:     rc.CycloneDXSBOM,
		OmniBOR:           rc.OmniBOR,
		SourceTarball:     rc.SourceTarball,
		Features:          rc.Features,
		DefaultFeatures:   rc.DefaultFeatures,
		AllFeatures:       rc.AllFeatures,
		PreciseBuilds:     rc.PreciseBuilds,
		GPGSign:           rc.GPGSign,
		NpmScope:          rc.NpmScope,
		HomebrewFormula:   rc.HomebrewFormula,
	}

	if rc.Installers != nil {
		layer.Installers = make([]entities.InstallerKind, 0, len(rc.Installers))
		for _, s := range rc.Installers {
			kind, err := entities.ParseInstallerKind(s)
			if err != nil {
				return layer, err
			}
			layer.Installers = append(layer.Installers, kind)
		}
	}

	var err error
	if layer.WindowsArchive, err = parseOptional(rc.WindowsArchive, entities.ParseZipStyle); err != nil {
		return layer, fmt.Errorf("windows-archive: %w", err)
	}
	if layer.UnixArchive, err = parseOptional(rc.UnixArchive, entities.ParseZipStyle); err != nil {
		return layer, fmt.Errorf("unix-archive: %w", err)
	}
	if layer.Checksum, err = parseOptional(rc.Checksum, entities.ParseChecksumStyle); err != nil {
		return layer, err
	}
	if layer.PackageLibraries, err = parseLibraries(rc.PackageLibraries); err != nil {
		return layer, fmt.Errorf("package-libraries: %w", err)
	}
	if layer.InstallLibraries, err = parseLibraries(rc.InstallLibraries); err != nil {
		return layer, fmt.Errorf("install-libraries: %w", err)
	}

	if rc.Bins != nil {
		layer.Bins = make(map[entities.TargetTriple][]string, len(rc.Bins))
		for target, bins := range rc.Bins {
			layer.Bins[entities.TargetTriple(target)] = bins
		}
	}

	if rc.ExtraArtifacts != nil {
		layer.ExtraArtifacts = make([]entities.ExtraArtifactConfig, 0, len(rc.ExtraArtifacts))
		for _, extra := range rc.ExtraArtifacts {
			layer.ExtraArtifacts = append(layer.ExtraArtifacts, entities.ExtraArtifactConfig{
				Build:      extra.Build,
				Artifacts:  extra.Artifacts,
				WorkingDir: extra.WorkingDir,
			})
		}
	}

	return layer, nil
}

func parseOptional[T any](raw *string, parse func(string) (T, error)) (*T, error) {
	if raw == nil {
		return nil, nil
	}
	v, err := parse(*raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseLibraries(raw []string) ([]entities.LibraryKind, error) {
	if raw == nil {
		return nil, nil
	}
	kinds := make([]entities.LibraryKind, 0, len(raw))
	for _, s := range raw {
		kind, err := entities.ParseLibraryKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
