// Package services implements release planning: the graph builder, the platform
// compatibility resolver and the build step compiler.
package services

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// PlannerOptions are the run-wide inputs of the graph builder
type PlannerOptions struct {
	DistDir string
	Host    entities.TargetTriple
	// DryRun plans without real build outputs; linkage data is ignored
	DryRun  bool
	Tools   entities.ToolAvailability
	Repo    *entities.RepoState
	Linkage map[string]entities.Linkage // keyed by archive id
	// SigningCredentials reports whether signing material is available to the run
	SigningCredentials bool
}

// GraphBuilder incrementally builds a DistGraph. It performs no I/O.
type GraphBuilder struct {
	graph        *entities.DistGraph
	opts         PlannerOptions
	logger       interfaces.Logger
	binariesByID map[string]entities.BinaryIdx
	artifactIDs  map[string]entities.ArtifactIdx

	sourceTarball   *entities.ArtifactIdx
	unifiedChecksum *entities.ArtifactIdx
}

// NewGraphBuilder creates an empty graph builder
func NewGraphBuilder(opts PlannerOptions, logger interfaces.Logger) *GraphBuilder {
	if opts.DistDir == "" {
		opts.DistDir = "target/distrib"
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &GraphBuilder{
		graph: &entities.DistGraph{
			DistDir: opts.DistDir,
			Host:    opts.Host,
		},
		opts:         opts,
		logger:       logger,
		binariesByID: make(map[string]entities.BinaryIdx),
		artifactIDs:  make(map[string]entities.ArtifactIdx),
	}
}

// Graph returns the graph built so far
func (b *GraphBuilder) Graph() *entities.DistGraph {
	return b.graph
}

func (b *GraphBuilder) warn(msg string, fields ...interfaces.Field) {
	b.logger.Warn(msg, fields...)
	line := msg
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	b.graph.Warnings = append(b.graph.Warnings, line)
}

// AddRelease registers one app at one version
func (b *GraphBuilder) AddRelease(pkg entities.Package, config entities.AppConfig) entities.ReleaseIdx {
	version := "v" + strings.TrimPrefix(pkg.Version, "v")
	if !semver.IsValid(version) {
		b.warn("package version is not valid semver", interfaces.F("package", pkg.Name), interfaces.F("version", pkg.Version))
	}

	release := entities.Release{
		ID:            fmt.Sprintf("%s-v%s", pkg.Name, strings.TrimPrefix(pkg.Version, "v")),
		AppName:       pkg.Name,
		Version:       strings.TrimPrefix(pkg.Version, "v"),
		Prerelease:    semver.Prerelease(version) != "",
		Description:   pkg.Description,
		License:       pkg.License,
		Authors:       pkg.Authors,
		RepositoryURL: pkg.RepositoryURL,
		HomepageURL:   pkg.HomepageURL,
		PackageID:     pkg.ID,
		ManifestPath:  pkg.ManifestPath,
		Config:        config,
	}
	for _, name := range pkg.Binaries {
		release.Executables = append(release.Executables, entities.PackagedBinary{PackageID: pkg.ID, Name: name})
	}
	for _, name := range pkg.DynamicLibraries {
		release.DynamicLibraries = append(release.DynamicLibraries, entities.PackagedBinary{PackageID: pkg.ID, Name: name})
	}
	for _, name := range pkg.StaticLibraries {
		release.StaticLibraries = append(release.StaticLibraries, entities.PackagedBinary{PackageID: pkg.ID, Name: name})
	}

	staged := make(map[string]string)
	addAsset := func(kind entities.StaticAssetKind, assetPath string) {
		name := path.Base(assetPath)
		if prev, ok := staged[name]; ok {
			b.warn("static asset skipped, its name is already staged",
				interfaces.F("release", release.ID), interfaces.F("asset", assetPath), interfaces.F("staged", prev))
			return
		}
		staged[name] = assetPath
		release.StaticAssets = append(release.StaticAssets, entities.StaticAsset{Kind: kind, Path: assetPath})
	}
	if config.AutoIncludes {
		if pkg.ReadmeFile != "" {
			addAsset(entities.StaticAssetReadme, pkg.ReadmeFile)
		}
		for _, license := range pkg.LicenseFiles {
			addAsset(entities.StaticAssetLicense, license)
		}
		if pkg.ChangelogFile != "" {
			addAsset(entities.StaticAssetChangelog, pkg.ChangelogFile)
		}
	}
	for _, include := range config.Include {
		addAsset(entities.StaticAssetOther, include)
	}

	b.graph.Releases = append(b.graph.Releases, release)
	idx := entities.ReleaseIdx(len(b.graph.Releases) - 1)
	b.logger.Debug("added release", interfaces.F("release", release.ID))
	return idx
}

type wantedBinary struct {
	binary entities.PackagedBinary
	kind   entities.BinaryKind
}

// AddVariant adds the slice of a release built for target and resolves its binaries
func (b *GraphBuilder) AddVariant(releaseIdx entities.ReleaseIdx, target entities.TargetTriple) entities.VariantIdx {
	release := b.graph.Release(releaseIdx)
	config := release.Config
	variantID := fmt.Sprintf("%s-%s", release.ID, target)

	var wanted []wantedBinary
	names, overridden := config.Bins[target]
	if !overridden {
		names, overridden = config.Bins["*"]
	}
	if overridden {
		for _, name := range names {
			wanted = append(wanted, wantedBinary{entities.PackagedBinary{PackageID: release.PackageID, Name: name}, entities.BinaryExecutable})
		}
	} else {
		for _, exe := range release.Executables {
			wanted = append(wanted, wantedBinary{exe, entities.BinaryExecutable})
		}
	}
	if entities.HasLibrary(config.PackageLibraries, entities.LibraryDynamic) {
		for _, lib := range release.DynamicLibraries {
			wanted = append(wanted, wantedBinary{lib, entities.BinaryDynamicLibrary})
		}
	}
	if entities.HasLibrary(config.PackageLibraries, entities.LibraryStatic) {
		for _, lib := range release.StaticLibraries {
			wanted = append(wanted, wantedBinary{lib, entities.BinaryStaticLibrary})
		}
	}

	b.graph.Variants = append(b.graph.Variants, entities.ReleaseVariant{
		ID:      variantID,
		Release: releaseIdx,
		Target:  target,
	})
	variantIdx := entities.VariantIdx(len(b.graph.Variants) - 1)
	release.Variants = append(release.Variants, variantIdx)

	seen := make(map[entities.BinaryIdx]bool)
	for _, w := range wanted {
		binIdx := b.ensureBinary(variantID, target, w)
		if seen[binIdx] {
			continue
		}
		seen[binIdx] = true
		variant := b.graph.Variant(variantIdx)
		variant.Binaries = append(variant.Binaries, binIdx)
	}

	b.logger.Debug("added variant", interfaces.F("variant", variantID), interfaces.F("binaries", len(seen)))
	return variantIdx
}

// ensureBinary returns the existing binary with the derived id, or creates it
func (b *GraphBuilder) ensureBinary(variantID string, target entities.TargetTriple, w wantedBinary) entities.BinaryIdx {
	id := fmt.Sprintf("%s-%s-%s", variantID, w.kind, w.binary.Name)
	if idx, ok := b.binariesByID[id]; ok {
		return idx
	}
	b.graph.Binaries = append(b.graph.Binaries, entities.Binary{
		ID:        id,
		PackageID: w.binary.PackageID,
		Name:      w.binary.Name,
		FileName:  BinaryFileName(w.binary.Name, w.kind, target),
		Target:    target,
		Kind:      w.kind,
	})
	idx := entities.BinaryIdx(len(b.graph.Binaries) - 1)
	b.binariesByID[id] = idx
	return idx
}

// BinaryFileName returns the platform-correct file name of a compiled output
func BinaryFileName(name string, kind entities.BinaryKind, target entities.TargetTriple) string {
	switch kind {
	case entities.BinaryDynamicLibrary:
		switch {
		case target.IsWindows():
			return name + ".dll"
		case target.IsDarwin():
			return "lib" + name + ".dylib"
		default:
			return "lib" + name + ".so"
		}
	case entities.BinaryStaticLibrary:
		if target.IsWindowsMSVC() {
			return name + ".lib"
		}
		return "lib" + name + ".a"
	default:
		if target.IsWindows() {
			return name + ".exe"
		}
		return name
	}
}

// targetSymbols reports which debug-symbol format a target produces as a separate file.
// dSYM bundles and dwp files are directories or optional outputs, so only pdb is tracked.
func targetSymbols(target entities.TargetTriple) (entities.SymbolKind, bool) {
	if target.IsWindowsMSVC() {
		return entities.SymbolPdb, true
	}
	return "", false
}

// AddExecutableZip creates the default archive of every variant, plus its checksum
// and artifact identity when configured
func (b *GraphBuilder) AddExecutableZip(releaseIdx entities.ReleaseIdx) {
	release := b.graph.Release(releaseIdx)
	config := release.Config
	appName := release.AppName
	staticAssets := release.StaticAssets
	variants := append([]entities.VariantIdx(nil), release.Variants...)

	withIdentity := config.OmniBOR
	if withIdentity && !b.opts.Tools.OmniBOR {
		b.warn("omnibor is enabled but the omnibor tool is not installed, skipping artifact identities",
			interfaces.F("release", release.ID))
		withIdentity = false
	}

	for _, variantIdx := range variants {
		variant := b.graph.Variant(variantIdx)
		target := variant.Target
		binaries := append([]entities.BinaryIdx(nil), variant.Binaries...)
		if len(binaries) == 0 {
			b.warn("variant has nothing to package, skipping archive", interfaces.F("variant", variant.ID))
			continue
		}

		style := config.UnixArchive
		if target.IsWindows() {
			style = config.WindowsArchive
		}
		dirName := fmt.Sprintf("%s-%s", appName, target)
		dirPath := path.Join(b.opts.DistDir, dirName)
		withRoot := ""
		if style.IsTar() {
			withRoot = dirName
		}
		id := dirName + style.Ext()

		archiveIdx := b.addLocalArtifact(variantIdx, entities.Artifact{
			ID:       id,
			Kind:     entities.ExecutableArchive{},
			Targets:  []entities.TargetTriple{target},
			FilePath: path.Join(b.opts.DistDir, id),
			Archive: &entities.Archive{
				DirPath:      dirPath,
				WithRoot:     withRoot,
				ZipStyle:     style,
				StaticAssets: staticAssets,
			},
		})

		for _, binIdx := range binaries {
			fileName := b.graph.Binary(binIdx).FileName
			b.RequireBinary(archiveIdx, variantIdx, binIdx, path.Join(dirPath, fileName))
		}

		if config.Checksum.Enabled() {
			b.addChecksum(archiveIdx, config.Checksum)
		}
		if withIdentity {
			b.addArtifactIdentity(archiveIdx)
		}
	}
}

// RequireBinary records that artifactIdx needs binaryIdx copied to destPath. The first
// requester of a binary with separate debug symbols creates the one Symbols artifact.
func (b *GraphBuilder) RequireBinary(artifactIdx entities.ArtifactIdx, variantIdx entities.VariantIdx, binaryIdx entities.BinaryIdx, destPath string) {
	artifact := b.graph.Artifact(artifactIdx)
	artifact.RequiredBinaries = append(artifact.RequiredBinaries, entities.RequiredBinary{Binary: binaryIdx, DestPath: destPath})

	binary := b.graph.Binary(binaryIdx)
	binary.CopyExeTo = append(binary.CopyExeTo, destPath)
	if binary.SymbolsArtifact != nil || binary.Kind == entities.BinaryStaticLibrary {
		return
	}
	symbolKind, ok := targetSymbols(binary.Target)
	if !ok {
		return
	}

	stem := strings.ReplaceAll(binary.Name, "-", "_")
	id := fmt.Sprintf("%s-%s.%s", stem, binary.Target, symbolKind)
	filePath := path.Join(b.opts.DistDir, id)
	symbolsIdx := b.addLocalArtifact(variantIdx, entities.Artifact{
		ID:       id,
		Kind:     entities.Symbols{Kind: symbolKind, Binary: binaryIdx},
		Targets:  []entities.TargetTriple{binary.Target},
		FilePath: filePath,
	})

	binary = b.graph.Binary(binaryIdx)
	binary.SymbolsArtifact = &symbolsIdx
	binary.CopySymbolsTo = append(binary.CopySymbolsTo, filePath)
}

func (b *GraphBuilder) addChecksum(sourceIdx entities.ArtifactIdx, style entities.ChecksumStyle) entities.ArtifactIdx {
	source := b.graph.Artifact(sourceIdx)
	id := source.ID + "." + style.Ext()
	checksum := entities.Artifact{
		ID:       id,
		Kind:     entities.Checksum{Style: style, Source: sourceIdx},
		Targets:  source.Targets,
		FilePath: path.Join(b.opts.DistDir, id),
		IsGlobal: source.IsGlobal,
	}

	var idx entities.ArtifactIdx
	if source.IsGlobal {
		idx = b.addGlobalArtifact(b.owningRelease(sourceIdx), checksum)
	} else {
		idx = b.addLocalArtifact(b.owningVariant(sourceIdx), checksum)
	}
	b.graph.Artifact(sourceIdx).Checksum = &idx
	return idx
}

func (b *GraphBuilder) addArtifactIdentity(sourceIdx entities.ArtifactIdx) entities.ArtifactIdx {
	source := b.graph.Artifact(sourceIdx)
	id := source.ID + ".omnibor"
	return b.addLocalArtifact(b.owningVariant(sourceIdx), entities.Artifact{
		ID:       id,
		Kind:     entities.ArtifactIdentity{Source: sourceIdx},
		Targets:  source.Targets,
		FilePath: path.Join(b.opts.DistDir, id),
	})
}

func (b *GraphBuilder) registerArtifact(artifact entities.Artifact) entities.ArtifactIdx {
	if existing, ok := b.artifactIDs[artifact.ID]; ok {
		panic(fmt.Sprintf("artifact id %q registered twice (first as artifact %d)", artifact.ID, existing))
	}
	b.graph.Artifacts = append(b.graph.Artifacts, artifact)
	idx := entities.ArtifactIdx(len(b.graph.Artifacts) - 1)
	b.artifactIDs[artifact.ID] = idx
	return idx
}

// addLocalArtifact attaches a platform-specific artifact to exactly one variant
func (b *GraphBuilder) addLocalArtifact(variantIdx entities.VariantIdx, artifact entities.Artifact) entities.ArtifactIdx {
	artifact.IsGlobal = false
	idx := b.registerArtifact(artifact)
	variant := b.graph.Variant(variantIdx)
	variant.LocalArtifacts = append(variant.LocalArtifacts, idx)
	return idx
}

// addGlobalArtifact attaches a platform-independent artifact to a release
func (b *GraphBuilder) addGlobalArtifact(releaseIdx entities.ReleaseIdx, artifact entities.Artifact) entities.ArtifactIdx {
	artifact.IsGlobal = true
	idx := b.registerArtifact(artifact)
	release := b.graph.Release(releaseIdx)
	release.GlobalArtifacts = append(release.GlobalArtifacts, idx)
	return idx
}

// HasArtifact reports whether an artifact with this id (file name) exists
func (b *GraphBuilder) HasArtifact(id string) bool {
	_, ok := b.artifactIDs[id]
	return ok
}

func (b *GraphBuilder) owningVariant(artifactIdx entities.ArtifactIdx) entities.VariantIdx {
	for vi := range b.graph.Variants {
		for _, a := range b.graph.Variants[vi].LocalArtifacts {
			if a == artifactIdx {
				return entities.VariantIdx(vi)
			}
		}
	}
	panic(fmt.Sprintf("artifact %d is not attached to any variant", artifactIdx))
}

func (b *GraphBuilder) owningRelease(artifactIdx entities.ArtifactIdx) entities.ReleaseIdx {
	for ri := range b.graph.Releases {
		for _, a := range b.graph.Releases[ri].GlobalArtifacts {
			if a == artifactIdx {
				return entities.ReleaseIdx(ri)
			}
		}
	}
	panic(fmt.Sprintf("artifact %d is not attached to any release", artifactIdx))
}

// FetchableArchives lists the archive artifacts currently registered for a release
func (b *GraphBuilder) FetchableArchives(releaseIdx entities.ReleaseIdx) []entities.FetchableArchive {
	release := b.graph.Release(releaseIdx)
	var archives []entities.FetchableArchive
	for _, variantIdx := range release.Variants {
		variant := b.graph.Variant(variantIdx)
		updater := ""
		for _, artifactIdx := range variant.LocalArtifacts {
			if _, ok := b.graph.Artifact(artifactIdx).Kind.(entities.Updater); ok {
				updater = b.graph.Artifact(artifactIdx).ID
			}
		}
		for _, artifactIdx := range variant.LocalArtifacts {
			artifact := b.graph.Artifact(artifactIdx)
			if _, ok := artifact.Kind.(entities.ExecutableArchive); !ok {
				continue
			}
			archive := entities.FetchableArchive{
				ID:       artifact.ID,
				Artifact: artifactIdx,
				Targets:  artifact.Targets,
				ZipStyle: artifact.Archive.ZipStyle,
				Updater:  updater,
			}
			for _, req := range artifact.RequiredBinaries {
				bin := b.graph.Binary(req.Binary)
				switch bin.Kind {
				case entities.BinaryExecutable:
					archive.Executables = append(archive.Executables, bin.FileName)
				case entities.BinaryDynamicLibrary:
					archive.DynamicLibraries = append(archive.DynamicLibraries, bin.FileName)
				case entities.BinaryStaticLibrary:
					archive.StaticLibraries = append(archive.StaticLibraries, bin.FileName)
				}
			}
			var linkage *entities.Linkage
			if l, ok := b.opts.Linkage[artifact.ID]; ok {
				linkage = &l
			}
			archive.NativeRuntimeConditions = NativeRuntimeConditions(artifact.Targets, linkage, b.opts.DryRun)
			archives = append(archives, archive)
		}
	}
	return archives
}

// ComputePlatformSupport recomputes the release's PlatformSupport from its current archives.
// Callers must re-read the table after any archive is added.
func (b *GraphBuilder) ComputePlatformSupport(releaseIdx entities.ReleaseIdx) entities.PlatformSupport {
	support := ResolvePlatformSupport(b.FetchableArchives(releaseIdx))
	b.graph.Release(releaseIdx).PlatformSupport = support
	return support
}
