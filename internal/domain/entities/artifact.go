package entities

// ArtifactKind is the closed set of artifact payloads. Every Artifact carries exactly one.
type ArtifactKind interface {
	KindName() string
	isArtifactKind()
}

// ExecutableArchive is a zip/tar of a variant's binaries and static assets
type ExecutableArchive struct{}

// SymbolKind names a debug-symbol container format
type SymbolKind string

// Symbol formats
const (
	SymbolPdb  SymbolKind = "pdb"
	SymbolDsym SymbolKind = "dsym"
	SymbolDwp  SymbolKind = "dwp"
)

// Symbols is the debug-symbol file paired with one binary
type Symbols struct {
	Kind   SymbolKind
	Binary BinaryIdx
}

// Installer is any generated installer
type Installer struct {
	Installer InstallerKind
	Fragments []ExecutableZipFragment
	// RuntimeConditions is the conflated advisory for installers that cannot branch per target
	RuntimeConditions RuntimeConditions
	// StagingDir holds required binaries for installers that package them directly (msi, pkg)
	StagingDir string
	// PackageName is the published name for registry installers (npm, homebrew)
	PackageName string
}

// Checksum is the checksum file of a single artifact
type Checksum struct {
	Style  ChecksumStyle
	Source ArtifactIdx
}

// UnifiedChecksum is one checksum file covering many artifacts
type UnifiedChecksum struct {
	Style   ChecksumStyle
	Sources []ArtifactIdx
}

// SourceTarball is a git-archive of the release commit
type SourceTarball struct {
	Committish string
	Prefix     string
	WorkingDir string
}

// ExtraArtifact is produced by a user-declared build command
type ExtraArtifact struct {
	Group      int
	Command    []string
	WorkingDir string
	SourcePath string
}

// Updater is the self-update helper shipped next to an archive
type Updater struct {
	Target     TargetTriple
	FromSource bool
}

// SBOM is a CycloneDX bill of materials produced as a side effect of the build
type SBOM struct {
	PackageID string
}

// ArtifactIdentity is an OmniBOR artifact id for another artifact
type ArtifactIdentity struct {
	Source ArtifactIdx
}

func (ExecutableArchive) KindName() string { return "executable-zip" }
func (Symbols) KindName() string           { return "symbols" }
func (Installer) KindName() string         { return "installer" }
func (Checksum) KindName() string          { return "checksum" }
func (UnifiedChecksum) KindName() string   { return "unified-checksum" }
func (SourceTarball) KindName() string     { return "source-tarball" }
func (ExtraArtifact) KindName() string     { return "extra-artifact" }
func (Updater) KindName() string           { return "updater" }
func (SBOM) KindName() string              { return "sbom" }
func (ArtifactIdentity) KindName() string  { return "omnibor-artifact-id" }

func (ExecutableArchive) isArtifactKind() {}
func (Symbols) isArtifactKind()           {}
func (Installer) isArtifactKind()         {}
func (Checksum) isArtifactKind()          {}
func (UnifiedChecksum) isArtifactKind()   {}
func (SourceTarball) isArtifactKind()     {}
func (ExtraArtifact) isArtifactKind()     {}
func (Updater) isArtifactKind()           {}
func (SBOM) isArtifactKind()              {}
func (ArtifactIdentity) isArtifactKind()  {}
