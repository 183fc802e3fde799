package services

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Manifest is the serializable summary of a plan consumed by publishing and CI tooling
type Manifest struct {
	AnnouncementID string             `json:"announcement_id" yaml:"announcement_id"`
	Prerelease     bool               `json:"announcement_is_prerelease" yaml:"announcement_is_prerelease"`
	DistDir        string             `json:"dist_dir" yaml:"dist_dir"`
	Releases       []ManifestRelease  `json:"releases" yaml:"releases"`
	Artifacts      []ManifestArtifact `json:"artifacts" yaml:"artifacts"`
	Warnings       []string           `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Signed         []string           `json:"signed,omitempty" yaml:"signed,omitempty"`
	Help           *entities.Help     `json:"help,omitempty" yaml:"help,omitempty"`
}

// ManifestRelease describes one app at one version
type ManifestRelease struct {
	AppName    string             `json:"app_name" yaml:"app_name"`
	AppVersion string             `json:"app_version" yaml:"app_version"`
	Prerelease bool               `json:"prerelease" yaml:"prerelease"`
	Artifacts  []string           `json:"artifacts" yaml:"artifacts"`
	Platforms  []ManifestPlatform `json:"platforms,omitempty" yaml:"platforms,omitempty"`
}

// ManifestPlatform is the ranked list of archives that can serve one target
type ManifestPlatform struct {
	Target  string                   `json:"target" yaml:"target"`
	Options []ManifestPlatformOption `json:"options" yaml:"options"`
}

// ManifestPlatformOption is one way to satisfy a target
type ManifestPlatformOption struct {
	Archive           string                      `json:"archive" yaml:"archive"`
	Quality           string                      `json:"quality" yaml:"quality"`
	RuntimeConditions *entities.RuntimeConditions `json:"runtime_conditions,omitempty" yaml:"runtime_conditions,omitempty"`
}

// ManifestArtifact describes one file of the release
type ManifestArtifact struct {
	Name      string   `json:"name" yaml:"name"`
	Kind      string   `json:"kind" yaml:"kind"`
	Path      string   `json:"path" yaml:"path"`
	Targets   []string `json:"target_triples,omitempty" yaml:"target_triples,omitempty"`
	Checksum  string   `json:"checksum,omitempty" yaml:"checksum,omitempty"`
	Installer string   `json:"installer,omitempty" yaml:"installer,omitempty"`
}

// announcementNamespace scopes announcement ids to this tool
var announcementNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ochairo/cauldron/announcement"))

// BuildManifest summarizes a graph. Equal graphs produce equal manifests.
func BuildManifest(graph *entities.DistGraph) *Manifest {
	manifest := &Manifest{
		DistDir:  graph.DistDir,
		Warnings: graph.Warnings,
		Help:     graph.Help,
	}
	if graph.Signing != nil {
		manifest.Signed = graph.Signing.Artifacts
	}

	releaseIDs := make([]string, 0, len(graph.Releases))
	for ri := range graph.Releases {
		release := &graph.Releases[ri]
		releaseIDs = append(releaseIDs, release.ID)
		manifest.Prerelease = manifest.Prerelease || release.Prerelease
		manifest.Releases = append(manifest.Releases, manifestRelease(graph, release))
	}
	manifest.AnnouncementID = uuid.NewSHA1(announcementNamespace, []byte(strings.Join(releaseIDs, "\n"))).String()

	for i := range graph.Artifacts {
		manifest.Artifacts = append(manifest.Artifacts, manifestArtifact(graph, &graph.Artifacts[i]))
	}
	sort.Slice(manifest.Artifacts, func(i, j int) bool {
		return manifest.Artifacts[i].Name < manifest.Artifacts[j].Name
	})
	return manifest
}

func manifestRelease(graph *entities.DistGraph, release *entities.Release) ManifestRelease {
	out := ManifestRelease{
		AppName:    release.AppName,
		AppVersion: release.Version,
		Prerelease: release.Prerelease,
	}
	for _, variantIdx := range release.Variants {
		for _, artifactIdx := range graph.Variant(variantIdx).LocalArtifacts {
			out.Artifacts = append(out.Artifacts, graph.Artifact(artifactIdx).ID)
		}
	}
	for _, artifactIdx := range release.GlobalArtifacts {
		out.Artifacts = append(out.Artifacts, graph.Artifact(artifactIdx).ID)
	}

	support := release.PlatformSupport
	for _, target := range support.Targets() {
		platform := ManifestPlatform{Target: string(target)}
		for _, entry := range support.Platforms[target] {
			option := ManifestPlatformOption{
				Archive: support.Archives[entry.Archive].ID,
				Quality: entry.Quality.String(),
			}
			if !entry.RuntimeConditions.IsZero() {
				conditions := entry.RuntimeConditions
				option.RuntimeConditions = &conditions
			}
			platform.Options = append(platform.Options, option)
		}
		out.Platforms = append(out.Platforms, platform)
	}
	return out
}

func manifestArtifact(graph *entities.DistGraph, artifact *entities.Artifact) ManifestArtifact {
	out := ManifestArtifact{
		Name: artifact.ID,
		Kind: artifact.Kind.KindName(),
		Path: artifact.FilePath,
	}
	for _, target := range artifact.Targets {
		out.Targets = append(out.Targets, string(target))
	}
	if artifact.Checksum != nil {
		out.Checksum = graph.Artifact(*artifact.Checksum).ID
	}
	if installer, ok := artifact.Kind.(entities.Installer); ok {
		out.Installer = string(installer.Installer)
	}
	return out
}
