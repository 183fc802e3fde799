package services

import (
	"sort"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// NormalizeTarget rewrites a target into the form the compatibility rules match on.
// A bare musl target is statically linked, so it becomes "<system>musl<abi>-static";
// an eabihf suffix is set aside while matching and reattached after "musl".
func NormalizeTarget(target entities.TargetTriple) entities.TargetTriple {
	system := string(target)
	abi := ""
	if trimmed, ok := strings.CutSuffix(system, "eabihf"); ok {
		system = trimmed
		abi = "eabihf"
	}
	if trimmed, ok := strings.CutSuffix(system, "musl"); ok {
		return entities.TargetTriple(trimmed + "musl" + abi + "-static")
	}
	return target
}

// splitStaticMusl splits "<system>musl<abi>-static" into its system prefix and abi suffix
func splitStaticMusl(target entities.TargetTriple) (system, abi string, ok bool) {
	rest, ok := strings.CutSuffix(string(target), "-static")
	if !ok {
		return "", "", false
	}
	if trimmed, found := strings.CutSuffix(rest, "eabihf"); found {
		rest = trimmed
		abi = "eabihf"
	}
	system, ok = strings.CutSuffix(rest, "musl")
	return system, abi, ok
}

// splitWindows splits "<arch>-pc-windows-<env>" into arch and env
func splitWindows(target entities.TargetTriple) (arch, env string, ok bool) {
	arch, rest, found := strings.Cut(string(target), "-")
	if !found {
		return "", "", false
	}
	env, ok = strings.CutPrefix(rest, "pc-windows-")
	return arch, env, ok
}

type alternateTarget struct {
	target     entities.TargetTriple
	quality    entities.SupportQuality
	conditions entities.RuntimeConditions
}

// alternateTargets lists the other targets an archive for (normalized) target can serve
func alternateTargets(target entities.TargetTriple) []alternateTarget {
	var also []alternateTarget
	add := func(t string, q entities.SupportQuality) {
		also = append(also, alternateTarget{target: entities.TargetTriple(t), quality: q})
	}

	// a static build stands in for the dynamically linked flavors
	if system, abi, ok := splitStaticMusl(target); ok {
		add(system+"gnu"+abi, entities.ImperfectNative)
		add(system+"musl"+abi+"-dynamic", entities.ImperfectNative)
	}

	if target == entities.TargetUniversal2MacOS {
		add(string(entities.TargetX64MacOS), entities.BulkyNative)
		add(string(entities.TargetARM64MacOS), entities.BulkyNative)
	}

	if target == entities.TargetX64MacOS {
		also = append(also, alternateTarget{
			target:     entities.TargetARM64MacOS,
			quality:    entities.Emulated,
			conditions: entities.RuntimeConditions{Rosetta2: true},
		})
	}

	if arch, env, ok := splitWindows(target); ok {
		switch arch {
		case "i686":
			add("x86_64-pc-windows-"+env, entities.ImperfectNative)
			add("aarch64-pc-windows-"+env, entities.Hellmulated)
		case "x86_64":
			add("aarch64-pc-windows-"+env, entities.Emulated)
		}
		if env == "msvc" {
			add(arch+"-pc-windows-gnu", entities.ImperfectNative)
		}
	}

	return also
}

type targetEntry struct {
	target entities.TargetTriple
	entry  entities.PlatformEntry
}

// supportedTargets produces every (target, entry) pair one archive contributes
func supportedTargets(archiveIdx int, archive entities.FetchableArchive) []targetEntry {
	var pairs []targetEntry
	for _, declared := range archive.Targets {
		target := NormalizeTarget(declared)
		native := archive.NativeRuntimeConditions
		pairs = append(pairs, targetEntry{
			target: target,
			entry: entities.PlatformEntry{
				Quality:           entities.HostNative,
				RuntimeConditions: native,
				Archive:           archiveIdx,
			},
		})
		for _, alt := range alternateTargets(target) {
			pairs = append(pairs, targetEntry{
				target: alt.target,
				entry: entities.PlatformEntry{
					Quality:           alt.quality,
					RuntimeConditions: native.Merge(alt.conditions),
					Archive:           archiveIdx,
				},
			})
		}
	}
	return pairs
}

// ResolvePlatformSupport ranks, for every target reachable from archives, which archive
// best satisfies it. Entries are ordered by (quality, archive id); duplicate
// (target, archive) pairs produced by different rules are kept.
func ResolvePlatformSupport(archives []entities.FetchableArchive) entities.PlatformSupport {
	sorted := make([]entities.FetchableArchive, len(archives))
	copy(sorted, archives)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	platforms := make(map[entities.TargetTriple][]entities.PlatformEntry)
	for idx, archive := range sorted {
		for _, pair := range supportedTargets(idx, archive) {
			platforms[pair.target] = append(platforms[pair.target], pair.entry)
		}
	}

	for _, entries := range platforms {
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Quality != entries[j].Quality {
				return entries[i].Quality < entries[j].Quality
			}
			return sorted[entries[i].Archive].ID < sorted[entries[j].Archive].ID
		})
	}

	return entities.PlatformSupport{Archives: sorted, Platforms: platforms}
}

// NativeRuntimeConditions derives the conditions an archive imposes on its own targets.
// Without real linkage data (dry run or not built yet) glibc targets get the conservative floor.
func NativeRuntimeConditions(targets []entities.TargetTriple, linkage *entities.Linkage, dryRun bool) entities.RuntimeConditions {
	needsGlibc := false
	for _, t := range targets {
		if t.IsLinuxGNU() {
			needsGlibc = true
			break
		}
	}
	if !needsGlibc {
		return entities.RuntimeConditions{}
	}

	floor := entities.DefaultGlibcVersion
	if dryRun || linkage == nil {
		return entities.RuntimeConditions{MinGlibcVersion: &floor}
	}

	var conditions entities.RuntimeConditions
	for _, bin := range linkage.Binaries {
		if !bin.LinksGlibc {
			continue
		}
		version := floor
		if bin.HostGlibc != nil {
			version = *bin.HostGlibc
		}
		conditions = conditions.Merge(entities.RuntimeConditions{MinGlibcVersion: &version})
	}
	return conditions
}
