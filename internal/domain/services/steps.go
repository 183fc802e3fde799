package services

import (
	"fmt"
	"path"
	"slices"
	"sort"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// BuildWrapperFor picks the cross-compilation helper needed to build target on host
func BuildWrapperFor(host, target entities.TargetTriple) (entities.BuildWrapper, error) {
	if host == target {
		return entities.WrapperNone, nil
	}
	switch {
	case host.IsDarwin() && target.IsDarwin():
		return entities.WrapperNone, nil
	case host.IsWindows() && target.IsWindows():
		return entities.WrapperNone, nil
	case host.IsWindows():
		// no wrapper cross-compiles out of windows
	case !host.IsLinux() && !host.IsDarwin():
		// unknown host
	case target.IsLinux():
		return entities.WrapperZigbuild, nil
	case target.IsWindowsMSVC():
		return entities.WrapperXwin, nil
	case target.IsWindows():
		return entities.WrapperZigbuild, nil
	case target.IsDarwin() && host.IsLinux():
		return entities.WrapperZigbuild, nil
	}
	return "", &UnsupportedCrossCompileError{Host: host, Target: target}
}

// compileUnit is one package (or set of packages) built together for one target
type compileUnit struct {
	target   entities.TargetTriple
	packages []string
	binaries []entities.BinaryIdx
	features map[string]entities.FeatureSet // by package id
	manifest map[string]string              // by package id
	sbom     bool
}

// CompileBuildSteps lowers the finished artifact graph into step groups, replacing any
// previously compiled steps. Nothing is written to the graph when an error is returned.
func CompileBuildSteps(graph *entities.DistGraph) error {
	compileGroups, err := compileSteps(graph)
	if err != nil {
		return err
	}

	identities := make(map[entities.ArtifactIdx][]entities.ArtifactIdx)
	for i := range graph.Artifacts {
		if id, ok := graph.Artifacts[i].Kind.(entities.ArtifactIdentity); ok {
			identities[id.Source] = append(identities[id.Source], entities.ArtifactIdx(i))
		}
	}

	local := compileGroups
	for vi := range graph.Variants {
		for _, artifactIdx := range graph.Variants[vi].LocalArtifacts {
			steps, err := artifactSteps(graph, artifactIdx, identities)
			if err != nil {
				return err
			}
			if len(steps) > 0 {
				local = append(local, entities.StepGroup{Name: graph.Artifact(artifactIdx).ID, Steps: steps})
			}
		}
	}

	var global []entities.StepGroup
	var unified []entities.StepGroup
	extraGroups := make(map[string]int)
	for ri := range graph.Releases {
		for _, artifactIdx := range graph.Releases[ri].GlobalArtifacts {
			artifact := graph.Artifact(artifactIdx)
			switch kind := artifact.Kind.(type) {
			case entities.ExtraArtifact:
				// one build per command; every file it declares hangs off that build
				key := fmt.Sprintf("%d|%q|%s", ri, kind.Command, kind.WorkingDir)
				gi, seen := extraGroups[key]
				if !seen {
					global = append(global, entities.StepGroup{
						Name: fmt.Sprintf("%s-extra-%d", graph.Releases[ri].ID, kind.Group),
						Steps: []entities.BuildStep{entities.ExtraBuildStep{
							Command:    kind.Command,
							WorkingDir: kind.WorkingDir,
							DistDir:    graph.DistDir,
						}},
					})
					gi = len(global) - 1
					extraGroups[key] = gi
				}
				build := global[gi].Steps[0].(entities.ExtraBuildStep)
				build.Artifacts = append(build.Artifacts, kind.SourcePath)
				global[gi].Steps[0] = build
				if artifact.Checksum != nil {
					global[gi].Steps = append(global[gi].Steps, checksumStep(graph, artifactIdx))
				}
				continue
			case entities.UnifiedChecksum:
				step := entities.UnifiedChecksumStep{Style: kind.Style, DestPath: artifact.FilePath}
				for _, src := range kind.Sources {
					step.SrcPaths = append(step.SrcPaths, graph.Artifact(src).FilePath)
				}
				unified = append(unified, entities.StepGroup{Name: artifact.ID, Steps: []entities.BuildStep{step}})
				continue
			}
			steps, err := artifactSteps(graph, artifactIdx, identities)
			if err != nil {
				return err
			}
			if len(steps) > 0 {
				global = append(global, entities.StepGroup{Name: artifact.ID, Steps: steps})
			}
		}
	}
	global = append(global, unified...)

	graph.LocalSteps = local
	graph.GlobalSteps = global
	return nil
}

// artifactSteps returns the ordered steps producing one artifact, followed by its
// checksum and artifact identity steps
func artifactSteps(graph *entities.DistGraph, artifactIdx entities.ArtifactIdx, identities map[entities.ArtifactIdx][]entities.ArtifactIdx) ([]entities.BuildStep, error) {
	artifact := graph.Artifact(artifactIdx)
	var steps []entities.BuildStep

	switch kind := artifact.Kind.(type) {
	case entities.ExecutableArchive:
		if artifact.Archive == nil {
			return nil, fmt.Errorf("archive artifact %s has no archive layout", artifact.ID)
		}
		steps = append(steps, archiveSteps(artifact)...)
	case entities.Installer:
		steps = append(steps, entities.GenerateInstallerStep{
			Installer: kind.Installer,
			Artifact:  artifactIdx,
			DestPath:  artifact.FilePath,
		})
	case entities.SourceTarball:
		steps = append(steps, entities.GenerateSourceTarballStep{
			Committish: kind.Committish,
			Prefix:     kind.Prefix,
			WorkingDir: kind.WorkingDir,
			DestPath:   artifact.FilePath,
		})
	case entities.Updater:
		if kind.FromSource {
			wrapper, err := BuildWrapperFor(graph.Host, kind.Target)
			if err != nil {
				return nil, err
			}
			steps = append(steps, entities.BuildUpdaterStep{Target: kind.Target, Wrapper: wrapper, DestPath: artifact.FilePath})
		} else {
			steps = append(steps, entities.FetchUpdaterStep{Target: kind.Target, DestPath: artifact.FilePath})
		}
	case entities.Checksum, entities.ArtifactIdentity:
		// emitted in their source artifact's group
	case entities.Symbols, entities.SBOM:
		// produced as a side effect of the compile step
	case entities.ExtraArtifact, entities.UnifiedChecksum:
		// grouped separately by CompileBuildSteps
	default:
		return nil, fmt.Errorf("artifact %s has unknown kind %T", artifact.ID, kind)
	}

	if len(steps) == 0 {
		return nil, nil
	}
	if artifact.Checksum != nil {
		steps = append(steps, checksumStep(graph, artifactIdx))
	}
	for _, identityIdx := range identities[artifactIdx] {
		steps = append(steps, entities.ArtifactIdentityStep{
			SrcPath:  artifact.FilePath,
			DestPath: graph.Artifact(identityIdx).FilePath,
		})
	}
	return steps, nil
}

func archiveSteps(artifact *entities.Artifact) []entities.BuildStep {
	archive := artifact.Archive
	var steps []entities.BuildStep
	for _, asset := range archive.StaticAssets {
		dest := path.Join(archive.DirPath, path.Base(asset.Path))
		switch asset.Kind {
		case entities.StaticAssetOther:
			steps = append(steps, entities.CopyFileOrDirStep{SrcPath: asset.Path, DestPath: dest})
		default:
			steps = append(steps, entities.CopyFileStep{SrcPath: asset.Path, DestPath: dest})
		}
	}
	return append(steps, entities.ZipDirStep{
		SrcPath:  archive.DirPath,
		DestPath: artifact.FilePath,
		WithRoot: archive.WithRoot,
		ZipStyle: archive.ZipStyle,
	})
}

func checksumStep(graph *entities.DistGraph, sourceIdx entities.ArtifactIdx) entities.BuildStep {
	source := graph.Artifact(sourceIdx)
	checksum := graph.Artifact(*source.Checksum)
	kind := checksum.Kind.(entities.Checksum)
	return entities.ChecksumStep{Style: kind.Style, SrcPath: source.FilePath, DestPath: checksum.FilePath}
}

// compileSteps builds one compile group per target, or per target and package with
// precise builds. Every (host, target) pair is validated first.
func compileSteps(graph *entities.DistGraph) ([]entities.StepGroup, error) {
	var targets []entities.TargetTriple
	seenTarget := make(map[entities.TargetTriple]bool)
	precise := false
	for vi := range graph.Variants {
		target := graph.Variants[vi].Target
		if !seenTarget[target] {
			seenTarget[target] = true
			targets = append(targets, target)
		}
		if graph.Release(graph.Variants[vi].Release).Config.PreciseBuilds {
			precise = true
		}
	}

	wrappers := make(map[entities.TargetTriple]entities.BuildWrapper, len(targets))
	for _, target := range targets {
		wrapper, err := BuildWrapperFor(graph.Host, target)
		if err != nil {
			return nil, err
		}
		wrappers[target] = wrapper
	}

	var units []*compileUnit
	byKey := make(map[string]*compileUnit)
	for _, target := range targets {
		for vi := range graph.Variants {
			variant := &graph.Variants[vi]
			if variant.Target != target {
				continue
			}
			release := graph.Release(variant.Release)
			for _, binIdx := range variant.Binaries {
				binary := graph.Binary(binIdx)
				if len(binary.CopyExeTo) == 0 {
					continue
				}
				key := string(target)
				if precise {
					key += "|" + binary.PackageID
				}
				unit, ok := byKey[key]
				if !ok {
					unit = &compileUnit{
						target:   target,
						features: make(map[string]entities.FeatureSet),
						manifest: make(map[string]string),
					}
					byKey[key] = unit
					units = append(units, unit)
				}
				if _, known := unit.features[binary.PackageID]; !known {
					unit.packages = append(unit.packages, binary.PackageID)
					unit.features[binary.PackageID] = entities.FeatureSet{
						Features:        release.Config.Features,
						DefaultFeatures: release.Config.DefaultFeatures,
						AllFeatures:     release.Config.AllFeatures,
					}
					unit.manifest[binary.PackageID] = release.ManifestPath
				}
				unit.binaries = appendUniqueBinary(unit.binaries, binIdx)
				if releaseWantsSBOM(graph, release) {
					unit.sbom = true
				}
			}
		}
	}

	groups := make([]entities.StepGroup, 0, len(units))
	for _, unit := range units {
		features, err := sharedFeatures(unit)
		if err != nil {
			return nil, err
		}
		name := "compile-" + string(unit.target)
		if precise {
			name += "-" + unit.packages[0]
		}
		groups = append(groups, entities.StepGroup{
			Name: name,
			Steps: []entities.BuildStep{entities.CompileStep{
				Target:    unit.target,
				Wrapper:   wrappers[unit.target],
				Packages:  unit.packages,
				Features:  features,
				Binaries:  unit.binaries,
				CycloneDX: unit.sbom,
			}},
		})
	}
	return groups, nil
}

// sharedFeatures returns the single feature selection of a compile unit
func sharedFeatures(unit *compileUnit) (entities.FeatureSet, error) {
	first := unit.features[unit.packages[0]]
	for _, pkg := range unit.packages[1:] {
		if !sameFeatures(first, unit.features[pkg]) {
			manifests := make([]string, 0, len(unit.packages))
			for _, p := range unit.packages {
				manifest := unit.manifest[p]
				if manifest == "" {
					manifest = p
				}
				manifests = append(manifests, manifest)
			}
			sort.Strings(manifests)
			return entities.FeatureSet{}, &FeatureMismatchError{Target: unit.target, Manifests: manifests}
		}
	}
	return first, nil
}

// sameFeatures compares two selections, ignoring the order of the feature names
func sameFeatures(a, b entities.FeatureSet) bool {
	if a.DefaultFeatures != b.DefaultFeatures || a.AllFeatures != b.AllFeatures {
		return false
	}
	return slices.Equal(slices.Sorted(slices.Values(a.Features)), slices.Sorted(slices.Values(b.Features)))
}

func releaseWantsSBOM(graph *entities.DistGraph, release *entities.Release) bool {
	for _, artifactIdx := range release.GlobalArtifacts {
		if _, ok := graph.Artifact(artifactIdx).Kind.(entities.SBOM); ok {
			return true
		}
	}
	return false
}

func appendUniqueBinary(binaries []entities.BinaryIdx, idx entities.BinaryIdx) []entities.BinaryIdx {
	for _, b := range binaries {
		if b == idx {
			return binaries
		}
	}
	return append(binaries, idx)
}
