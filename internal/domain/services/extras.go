package services

import (
	"fmt"
	"path"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// AddUpdaters adds a self-update helper next to every variant archive.
// Call it before the installers so their fragments reference the updater.
func (b *GraphBuilder) AddUpdaters(releaseIdx entities.ReleaseIdx) {
	release := b.graph.Release(releaseIdx)
	if !release.Config.InstallUpdater {
		return
	}
	fromSource := release.Config.UpdaterFromSource
	appName := release.AppName

	for _, variantIdx := range append([]entities.VariantIdx(nil), release.Variants...) {
		variant := b.graph.Variant(variantIdx)
		if !variantHasArchive(b.graph, variant) {
			continue
		}
		id := fmt.Sprintf("%s-%s-update", appName, variant.Target)
		b.addLocalArtifact(variantIdx, entities.Artifact{
			ID:       id,
			Kind:     entities.Updater{Target: variant.Target, FromSource: fromSource},
			Targets:  []entities.TargetTriple{variant.Target},
			FilePath: path.Join(b.opts.DistDir, id),
		})
	}
}

func variantHasArchive(graph *entities.DistGraph, variant *entities.ReleaseVariant) bool {
	for _, artifactIdx := range variant.LocalArtifacts {
		if _, ok := graph.Artifact(artifactIdx).Kind.(entities.ExecutableArchive); ok {
			return true
		}
	}
	return false
}

// AddSBOM adds the CycloneDX bill of materials written by the compile step
func (b *GraphBuilder) AddSBOM(releaseIdx entities.ReleaseIdx) {
	release := b.graph.Release(releaseIdx)
	if !release.Config.CycloneDXSBOM {
		return
	}
	if !b.opts.Tools.CycloneDX {
		b.warn("cyclonedx-sbom is enabled but the cyclonedx tool is not installed, skipping SBOM",
			interfaces.F("release", release.ID))
		return
	}
	id := release.AppName + ".cdx.xml"
	b.addGlobalArtifact(releaseIdx, entities.Artifact{
		ID:       id,
		Kind:     entities.SBOM{PackageID: release.PackageID},
		FilePath: path.Join(b.opts.DistDir, id),
	})
}

// AddExtraArtifacts adds the files produced by user-declared build commands
func (b *GraphBuilder) AddExtraArtifacts(releaseIdx entities.ReleaseIdx) {
	release := b.graph.Release(releaseIdx)
	config := release.Config
	releaseID := release.ID

	for group, extra := range config.ExtraArtifacts {
		if len(extra.Build) == 0 {
			b.warn("extra artifact has no build command, skipping",
				interfaces.F("release", releaseID), interfaces.F("artifacts", extra.Artifacts))
			continue
		}
		for _, file := range extra.Artifacts {
			id := path.Base(file)
			if b.HasArtifact(id) {
				b.warn("extra artifact collides with an existing artifact, skipping",
					interfaces.F("release", releaseID), interfaces.F("artifact", id))
				continue
			}
			artifactIdx := b.addGlobalArtifact(releaseIdx, entities.Artifact{
				ID: id,
				Kind: entities.ExtraArtifact{
					Group:      group,
					Command:    extra.Build,
					WorkingDir: extra.WorkingDir,
					SourcePath: file,
				},
				FilePath: path.Join(b.opts.DistDir, id),
			})
			if config.Checksum.Enabled() {
				b.addChecksum(artifactIdx, config.Checksum)
			}
		}
	}
}

// AddSourceTarball adds a git archive of the release commit. Only the first release
// that asks for it gets one; the tarball covers the whole repository.
func (b *GraphBuilder) AddSourceTarball(releaseIdx entities.ReleaseIdx) {
	release := b.graph.Release(releaseIdx)
	if !release.Config.SourceTarball || b.sourceTarball != nil {
		return
	}
	repo := b.opts.Repo
	switch {
	case repo == nil || !b.opts.Tools.Git:
		b.warn("not a git repository, skipping source tarball", interfaces.F("release", release.ID))
		return
	case repo.HeadCommit == "":
		b.warn("repository has no commits, skipping source tarball", interfaces.F("release", release.ID))
		return
	case repo.Dirty:
		b.warn("repository has uncommitted changes; the source tarball only contains committed files",
			interfaces.F("commit", repo.HeadCommit))
	}

	id := "source.tar.gz"
	idx := b.addGlobalArtifact(releaseIdx, entities.Artifact{
		ID: id,
		Kind: entities.SourceTarball{
			Committish: repo.HeadCommit,
			Prefix:     fmt.Sprintf("%s-%s/", release.AppName, release.Version),
			WorkingDir: repo.Root,
		},
		FilePath: path.Join(b.opts.DistDir, id),
	})
	b.sourceTarball = &idx
	if style := b.graph.Release(releaseIdx).Config.Checksum; style.Enabled() {
		b.addChecksum(idx, style)
	}
}

// AddUnifiedChecksum adds one checksum file over every artifact that has its own checksum.
// It must run after every other artifact is registered; later calls are ignored.
func (b *GraphBuilder) AddUnifiedChecksum(style entities.ChecksumStyle) {
	if b.unifiedChecksum != nil || !style.Enabled() || len(b.graph.Releases) == 0 {
		return
	}
	var sources []entities.ArtifactIdx
	for i := range b.graph.Artifacts {
		if b.graph.Artifacts[i].Checksum != nil {
			sources = append(sources, entities.ArtifactIdx(i))
		}
	}
	if len(sources) == 0 {
		return
	}
	id := style.Ext() + ".sum"
	idx := b.addGlobalArtifact(0, entities.Artifact{
		ID:       id,
		Kind:     entities.UnifiedChecksum{Style: style, Sources: sources},
		FilePath: path.Join(b.opts.DistDir, id),
	})
	b.unifiedChecksum = &idx
}

// PlanSigning lists the artifacts of releases with gpg-sign enabled. Without signing
// credentials it warns and leaves the plan unsigned.
func (b *GraphBuilder) PlanSigning() {
	var wanted []entities.ReleaseIdx
	for i := range b.graph.Releases {
		if b.graph.Releases[i].Config.GPGSign {
			wanted = append(wanted, entities.ReleaseIdx(i))
		}
	}
	if len(wanted) == 0 {
		return
	}
	if !b.opts.SigningCredentials {
		b.warn("gpg-sign is enabled but no signing key is available, artifacts will not be signed")
		return
	}

	plan := &entities.SigningPlan{}
	for _, releaseIdx := range wanted {
		release := b.graph.Release(releaseIdx)
		var owned []entities.ArtifactIdx
		for _, variantIdx := range release.Variants {
			owned = append(owned, b.graph.Variant(variantIdx).LocalArtifacts...)
		}
		owned = append(owned, release.GlobalArtifacts...)
		for _, artifactIdx := range owned {
			artifact := b.graph.Artifact(artifactIdx)
			switch artifact.Kind.(type) {
			case entities.Checksum, entities.ArtifactIdentity, entities.Symbols:
				continue
			}
			plan.Artifacts = append(plan.Artifacts, artifact.ID)
		}
	}
	b.graph.Signing = plan
}

// NothingToRelease records why the plan is empty. With infer set the graph carries
// suggestions for making the workspace releasable; otherwise it only warns.
func (b *GraphBuilder) NothingToRelease(infer bool, reasons []string) {
	if !infer {
		b.warn("nothing to release", interfaces.F("reasons", strings.Join(reasons, "; ")))
		return
	}
	b.graph.Help = &entities.Help{
		Reasons: reasons,
		Suggestions: []string{
			"list the executables to ship under `binaries` (or libraries under `cdylibs` / `cstaticlibs`)",
			"set `dist: true` on a package to release it even when it has nothing to build",
			"check that `--package` names a package of the workspace",
			"pass a `--target` that the package lists under `targets`",
		},
	}
}
