package entities

// BuildStep is one concrete action of the plan. Only the step compiler creates them.
type BuildStep interface {
	StepName() string
	isBuildStep()
}

// StepGroup is an ordered run of steps belonging to one artifact or one compile target.
// Steps inside a group must run in order; groups of the same list are independent.
type StepGroup struct {
	Name  string
	Steps []BuildStep
}

// BuildWrapper selects the cross-compilation helper a compile step needs
type BuildWrapper string

// Build wrappers
const (
	WrapperNone     BuildWrapper = ""
	WrapperZigbuild BuildWrapper = "zigbuild"
	WrapperXwin     BuildWrapper = "xwin"
)

// FeatureSet is the feature selection passed to a compile
type FeatureSet struct {
	Features        []string
	DefaultFeatures bool
	AllFeatures     bool
}

// CompileStep builds binaries for one target
type CompileStep struct {
	Target    TargetTriple
	Wrapper   BuildWrapper
	Packages  []string
	Features  FeatureSet
	Binaries  []BinaryIdx
	CycloneDX bool
}

// CopyFileStep copies a single file
type CopyFileStep struct {
	SrcPath  string
	DestPath string
}

// CopyDirStep copies a directory tree
type CopyDirStep struct {
	SrcPath  string
	DestPath string
}

// CopyFileOrDirStep copies a path whose kind is only known at execution time
type CopyFileOrDirStep struct {
	SrcPath  string
	DestPath string
}

// ZipDirStep bundles a staging directory into an archive
type ZipDirStep struct {
	SrcPath  string
	DestPath string
	WithRoot string
	ZipStyle ZipStyle
}

// ChecksumStep writes the checksum file of one artifact
type ChecksumStep struct {
	Style    ChecksumStyle
	SrcPath  string
	DestPath string
}

// UnifiedChecksumStep writes one checksum file over many artifacts
type UnifiedChecksumStep struct {
	Style    ChecksumStyle
	DestPath string
	SrcPaths []string
}

// GenerateInstallerStep renders an installer; the procedure is owned by the installer backend
type GenerateInstallerStep struct {
	Installer InstallerKind
	Artifact  ArtifactIdx
	DestPath  string
}

// GenerateSourceTarballStep archives the repository at a commit
type GenerateSourceTarballStep struct {
	Committish string
	Prefix     string
	WorkingDir string
	DestPath   string
}

// ExtraBuildStep runs a user-declared command producing extra artifacts
type ExtraBuildStep struct {
	Command    []string
	WorkingDir string
	Artifacts  []string
	DistDir    string
}

// FetchUpdaterStep downloads a prebuilt updater
type FetchUpdaterStep struct {
	Target   TargetTriple
	DestPath string
}

// BuildUpdaterStep compiles the updater from source
type BuildUpdaterStep struct {
	Target   TargetTriple
	Wrapper  BuildWrapper
	DestPath string
}

// ArtifactIdentityStep computes an OmniBOR artifact id
type ArtifactIdentityStep struct {
	SrcPath  string
	DestPath string
}

func (CompileStep) StepName() string               { return "compile" }
func (CopyFileStep) StepName() string              { return "copy-file" }
func (CopyDirStep) StepName() string               { return "copy-dir" }
func (CopyFileOrDirStep) StepName() string         { return "copy-file-or-dir" }
func (ZipDirStep) StepName() string                { return "zip-dir" }
func (ChecksumStep) StepName() string              { return "checksum" }
func (UnifiedChecksumStep) StepName() string       { return "unified-checksum" }
func (GenerateInstallerStep) StepName() string     { return "generate-installer" }
func (GenerateSourceTarballStep) StepName() string { return "generate-source-tarball" }
func (ExtraBuildStep) StepName() string            { return "extra-build" }
func (FetchUpdaterStep) StepName() string          { return "fetch-updater" }
func (BuildUpdaterStep) StepName() string          { return "build-updater" }
func (ArtifactIdentityStep) StepName() string      { return "omnibor-artifact-id" }

func (CompileStep) isBuildStep()               {}
func (CopyFileStep) isBuildStep()              {}
func (CopyDirStep) isBuildStep()               {}
func (CopyFileOrDirStep) isBuildStep()         {}
func (ZipDirStep) isBuildStep()                {}
func (ChecksumStep) isBuildStep()              {}
func (UnifiedChecksumStep) isBuildStep()       {}
func (GenerateInstallerStep) isBuildStep()     {}
func (GenerateSourceTarballStep) isBuildStep() {}
func (ExtraBuildStep) isBuildStep()            {}
func (FetchUpdaterStep) isBuildStep()          {}
func (BuildUpdaterStep) isBuildStep()          {}
func (ArtifactIdentityStep) isBuildStep()      {}
