package entities

import "fmt"

// Handles into the DistGraph arenas. Entities never hold pointers to each other.
type (
	ReleaseIdx  int
	VariantIdx  int
	BinaryIdx   int
	ArtifactIdx int
)

// PackagedBinary names one compiled output declared by a package
type PackagedBinary struct {
	PackageID string
	Name      string
}

// StaticAssetKind classifies files copied verbatim into archives
type StaticAssetKind string

// Static asset kinds
const (
	StaticAssetReadme    StaticAssetKind = "readme"
	StaticAssetLicense   StaticAssetKind = "license"
	StaticAssetChangelog StaticAssetKind = "changelog"
	StaticAssetOther     StaticAssetKind = "other"
)

// StaticAsset is a file or directory copied into an archive
type StaticAsset struct {
	Kind StaticAssetKind
	Path string
}

// Release is one app at one version
type Release struct {
	ID            string
	AppName       string
	Version       string
	Prerelease    bool
	Description   string
	License       string
	Authors       []string
	RepositoryURL string
	HomepageURL   string
	PackageID     string
	ManifestPath  string

	Executables      []PackagedBinary
	DynamicLibraries []PackagedBinary
	StaticLibraries  []PackagedBinary
	StaticAssets     []StaticAsset

	Variants        []VariantIdx
	GlobalArtifacts []ArtifactIdx
	Config          AppConfig
	PlatformSupport PlatformSupport
}

// ReleaseVariant is the slice of a Release built for one target
type ReleaseVariant struct {
	ID             string
	Release        ReleaseIdx
	Target         TargetTriple
	Binaries       []BinaryIdx
	LocalArtifacts []ArtifactIdx
}

// BinaryKind distinguishes executables from libraries
type BinaryKind string

// Binary kinds; the value doubles as the id fragment
const (
	BinaryExecutable     BinaryKind = "exe"
	BinaryDynamicLibrary BinaryKind = "cdylib"
	BinaryStaticLibrary  BinaryKind = "cstaticlib"
)

// Binary is one compiled output for one target
type Binary struct {
	ID              string
	PackageID       string
	Name            string
	FileName        string
	Target          TargetTriple
	Kind            BinaryKind
	SymbolsArtifact *ArtifactIdx
	CopyExeTo       []string
	CopySymbolsTo   []string
}

// RequiredBinary records that an artifact needs a binary at DestPath
type RequiredBinary struct {
	Binary   BinaryIdx
	DestPath string
}

// Archive describes bundling a staging directory
type Archive struct {
	DirPath      string
	WithRoot     string
	ZipStyle     ZipStyle
	StaticAssets []StaticAsset
}

// Artifact is a unit of distributable output. Its ID is the eventual file name.
type Artifact struct {
	ID               string
	Kind             ArtifactKind
	Targets          []TargetTriple
	FilePath         string
	RequiredBinaries []RequiredBinary
	Archive          *Archive
	IsGlobal         bool
	Checksum         *ArtifactIdx
}

// Linkage is post-build linkage metadata for one archive
type Linkage struct {
	Archive  string
	Binaries []BinaryLinkage
}

// BinaryLinkage describes what one built binary dynamically links
type BinaryLinkage struct {
	Name       string
	LinksGlibc bool
	// HostGlibc is the glibc version detected for the build, nil when unknown
	HostGlibc *LibcVersion
}

// Help is returned instead of a plan when there is nothing to release and inference was requested
type Help struct {
	Reasons     []string `json:"reasons" yaml:"reasons"`
	Suggestions []string `json:"suggestions" yaml:"suggestions"`
}

// SigningPlan lists artifacts the signing stage should sign
type SigningPlan struct {
	Artifacts []string
}

// DistGraph is the complete release plan
type DistGraph struct {
	DistDir string
	Host    TargetTriple

	Releases  []Release
	Variants  []ReleaseVariant
	Binaries  []Binary
	Artifacts []Artifact

	LocalSteps  []StepGroup
	GlobalSteps []StepGroup

	Warnings []string
	Help     *Help
	Signing  *SigningPlan
}

// Release returns the release for idx
func (g *DistGraph) Release(idx ReleaseIdx) *Release {
	if int(idx) < 0 || int(idx) >= len(g.Releases) {
		panic(fmt.Sprintf("release handle %d out of range (%d releases)", idx, len(g.Releases)))
	}
	return &g.Releases[idx]
}

// Variant returns the variant for idx
func (g *DistGraph) Variant(idx VariantIdx) *ReleaseVariant {
	if int(idx) < 0 || int(idx) >= len(g.Variants) {
		panic(fmt.Sprintf("variant handle %d out of range (%d variants)", idx, len(g.Variants)))
	}
	return &g.Variants[idx]
}

// Binary returns the binary for idx
func (g *DistGraph) Binary(idx BinaryIdx) *Binary {
	if int(idx) < 0 || int(idx) >= len(g.Binaries) {
		panic(fmt.Sprintf("binary handle %d out of range (%d binaries)", idx, len(g.Binaries)))
	}
	return &g.Binaries[idx]
}

// Artifact returns the artifact for idx
func (g *DistGraph) Artifact(idx ArtifactIdx) *Artifact {
	if int(idx) < 0 || int(idx) >= len(g.Artifacts) {
		panic(fmt.Sprintf("artifact handle %d out of range (%d artifacts)", idx, len(g.Artifacts)))
	}
	return &g.Artifacts[idx]
}

// LocalBuildSteps flattens the local step groups in order
func (g *DistGraph) LocalBuildSteps() []BuildStep {
	return flattenSteps(g.LocalSteps)
}

// GlobalBuildSteps flattens the global step groups in order
func (g *DistGraph) GlobalBuildSteps() []BuildStep {
	return flattenSteps(g.GlobalSteps)
}

func flattenSteps(groups []StepGroup) []BuildStep {
	var steps []BuildStep
	for _, group := range groups {
		steps = append(steps, group.Steps...)
	}
	return steps
}
