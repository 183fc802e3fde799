package services

import "github.com/ochairo/cauldron/internal/domain/entities"

// ApplyConfigLayer returns base overridden by every field set in layer.
//
// The result is built with an unkeyed composite literal on purpose: adding a field to
// AppConfig breaks this function until the new field is merged here.
func ApplyConfigLayer(base entities.AppConfig, layer entities.AppConfigLayer) entities.AppConfig {
	return entities.AppConfig{
		orSlice(layer.Installers, base.Installers),
		orValue(layer.WindowsArchive, base.WindowsArchive),
		orValue(layer.UnixArchive, base.UnixArchive),
		orValue(layer.Checksum, base.Checksum),
		orSlice(layer.PackageLibraries, base.PackageLibraries),
		orSlice(layer.InstallLibraries, base.InstallLibraries),
		mergeBins(base.Bins, layer.Bins),
		orValue(layer.AutoIncludes, base.AutoIncludes),
		orSlice(layer.Include, base.Include),
		orValue(layer.InstallUpdater, base.InstallUpdater),
		orValue(layer.UpdaterFromSource, base.UpdaterFromSource),
		orValue(layer.CycloneDXSBOM, base.CycloneDXSBOM),
		orValue(layer.OmniBOR, base.OmniBOR),
		orValue(layer.SourceTarball, base.SourceTarball),
		orSlice(layer.ExtraArtifacts, base.ExtraArtifacts),
		orSlice(layer.Features, base.Features),
		orValue(layer.DefaultFeatures, base.DefaultFeatures),
		orValue(layer.AllFeatures, base.AllFeatures),
		orValue(layer.PreciseBuilds, base.PreciseBuilds),
		orValue(layer.GPGSign, base.GPGSign),
		orValue(layer.NpmScope, base.NpmScope),
		orValue(layer.HomebrewFormula, base.HomebrewFormula),
	}
}

// ResolveAppConfig layers the workspace defaults and the package overrides on top of
// the built-in defaults
func ResolveAppConfig(workspace entities.AppConfigLayer, pkg *entities.AppConfigLayer) entities.AppConfig {
	config := ApplyConfigLayer(entities.DefaultAppConfig(), workspace)
	if pkg != nil {
		config = ApplyConfigLayer(config, *pkg)
	}
	return config
}

func orValue[T any](override *T, base T) T {
	if override != nil {
		return *override
	}
	return base
}

func orSlice[T any](override, base []T) []T {
	if override != nil {
		return override
	}
	return base
}

// mergeBins overlays per-target binary lists; a layer replaces whole targets, not names
func mergeBins(base, layer map[entities.TargetTriple][]string) map[entities.TargetTriple][]string {
	if len(base) == 0 && len(layer) == 0 {
		return nil
	}
	merged := make(map[entities.TargetTriple][]string, len(base)+len(layer))
	for target, bins := range base {
		merged[target] = bins
	}
	for target, bins := range layer {
		merged[target] = bins
	}
	return merged
}
