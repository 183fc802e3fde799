package entities

import (
	"fmt"
	"sort"
)

// SupportQuality ranks how well an archive satisfies a requested target. Lower is better.
type SupportQuality int

// Quality tiers, best first
const (
	HostNative SupportQuality = iota
	BulkyNative
	ImperfectNative
	Emulated
	Hellmulated
	HighwayToHellmulated
)

func (q SupportQuality) String() string {
	switch q {
	case HostNative:
		return "host-native"
	case BulkyNative:
		return "bulky-native"
	case ImperfectNative:
		return "imperfect-native"
	case Emulated:
		return "emulated"
	case Hellmulated:
		return "hellmulated"
	case HighwayToHellmulated:
		return "highway-to-hellmulated"
	default:
		return fmt.Sprintf("unknown(%d)", int(q))
	}
}

// LibcVersion is a major.series libc version such as glibc 2.31
type LibcVersion struct {
	Major  uint64 `json:"major" yaml:"major"`
	Series uint64 `json:"series" yaml:"series"`
}

// DefaultGlibcVersion is the conservative floor assumed when linkage is unknown
var DefaultGlibcVersion = LibcVersion{Major: 2, Series: 31}

// Less reports whether v is older than o
func (v LibcVersion) Less(o LibcVersion) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Series < o.Series
}

func (v LibcVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Series)
}

// RuntimeConditions are advisory checks an installer should make before trusting an archive
type RuntimeConditions struct {
	MinGlibcVersion *LibcVersion `json:"min_glibc_version,omitempty" yaml:"min_glibc_version,omitempty"`
	MinMuslVersion  *LibcVersion `json:"min_musl_version,omitempty" yaml:"min_musl_version,omitempty"`
	Rosetta2        bool         `json:"rosetta2,omitempty" yaml:"rosetta2,omitempty"`
}

// Merge combines two sets of conditions into the stricter one.
// Unset versions are the identity of the max operation.
func (r RuntimeConditions) Merge(o RuntimeConditions) RuntimeConditions {
	return RuntimeConditions{
		MinGlibcVersion: maxLibc(r.MinGlibcVersion, o.MinGlibcVersion),
		MinMuslVersion:  maxLibc(r.MinMuslVersion, o.MinMuslVersion),
		Rosetta2:        r.Rosetta2 || o.Rosetta2,
	}
}

// IsZero reports whether no condition is set
func (r RuntimeConditions) IsZero() bool {
	return r.MinGlibcVersion == nil && r.MinMuslVersion == nil && !r.Rosetta2
}

func maxLibc(a, b *LibcVersion) *LibcVersion {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	case a.Less(*b):
		v := *b
		return &v
	default:
		v := *a
		return &v
	}
}

// FetchableArchive is an archive artifact as seen by the compatibility resolver
type FetchableArchive struct {
	ID                      string
	Artifact                ArtifactIdx
	Targets                 []TargetTriple
	NativeRuntimeConditions RuntimeConditions
	Executables             []string
	DynamicLibraries        []string
	StaticLibraries         []string
	ZipStyle                ZipStyle
	Updater                 string
}

// PlatformEntry is one way to satisfy a target
type PlatformEntry struct {
	Quality           SupportQuality
	RuntimeConditions RuntimeConditions
	Archive           int // index into PlatformSupport.Archives
}

// PlatformSupport maps requested targets to their best-first list of archive options
type PlatformSupport struct {
	Archives  []FetchableArchive
	Platforms map[TargetTriple][]PlatformEntry
}

// ExecutableZipFragment is the preferred archive for one target, as consumed by installers
type ExecutableZipFragment struct {
	ID                string
	Target            TargetTriple
	Quality           SupportQuality
	Executables       []string
	DynamicLibraries  []string
	StaticLibraries   []string
	ZipStyle          ZipStyle
	RuntimeConditions RuntimeConditions
	Updater           string
}

// Targets returns the supported targets in sorted order
func (p PlatformSupport) Targets() []TargetTriple {
	targets := make([]TargetTriple, 0, len(p.Platforms))
	for t := range p.Platforms {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// Best returns the preferred entry for target
func (p PlatformSupport) Best(target TargetTriple) (PlatformEntry, bool) {
	entries := p.Platforms[target]
	if len(entries) == 0 {
		return PlatformEntry{}, false
	}
	return entries[0], true
}

// Fragments returns the preferred archive for every supported target, sorted by target
func (p PlatformSupport) Fragments() []ExecutableZipFragment {
	var fragments []ExecutableZipFragment
	for _, target := range p.Targets() {
		entry, ok := p.Best(target)
		if !ok {
			continue
		}
		archive := p.Archives[entry.Archive]
		fragments = append(fragments, ExecutableZipFragment{
			ID:                archive.ID,
			Target:            target,
			Quality:           entry.Quality,
			Executables:       archive.Executables,
			DynamicLibraries:  archive.DynamicLibraries,
			StaticLibraries:   archive.StaticLibraries,
			ZipStyle:          archive.ZipStyle,
			RuntimeConditions: entry.RuntimeConditions,
			Updater:           archive.Updater,
		})
	}
	return fragments
}

// ConflatedConditions merges every entry's conditions into one advisory, for installers
// that cannot branch per target
func (p PlatformSupport) ConflatedConditions() RuntimeConditions {
	var merged RuntimeConditions
	for _, target := range p.Targets() {
		for _, entry := range p.Platforms[target] {
			merged = merged.Merge(entry.RuntimeConditions)
		}
	}
	return merged
}
