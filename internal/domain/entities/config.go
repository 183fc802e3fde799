package entities

import "fmt"

// InstallerKind is one of the installer flavors an app can request
type InstallerKind string

// Supported installers
const (
	InstallerShell      InstallerKind = "shell"
	InstallerPowershell InstallerKind = "powershell"
	InstallerNpm        InstallerKind = "npm"
	InstallerHomebrew   InstallerKind = "homebrew"
	InstallerMsi        InstallerKind = "msi"
	InstallerPkg        InstallerKind = "pkg"
)

// ParseInstallerKind validates an installer name from configuration
func ParseInstallerKind(s string) (InstallerKind, error) {
	switch k := InstallerKind(s); k {
	case InstallerShell, InstallerPowershell, InstallerNpm, InstallerHomebrew, InstallerMsi, InstallerPkg:
		return k, nil
	default:
		return "", fmt.Errorf("unknown installer %q", s)
	}
}

// ZipStyle describes how a staging directory is bundled
type ZipStyle string

// Archive formats. TempDir leaves the staging directory unbundled (installer staging).
const (
	ZipStyleZip     ZipStyle = ".zip"
	ZipStyleTarGzip ZipStyle = ".tar.gz"
	ZipStyleTarXz   ZipStyle = ".tar.xz"
	ZipStyleTarZstd ZipStyle = ".tar.zst"
	ZipStyleTempDir ZipStyle = ""
)

// ParseZipStyle accepts the archive-format spellings used in configuration
func ParseZipStyle(s string) (ZipStyle, error) {
	switch s {
	case ".zip", "zip":
		return ZipStyleZip, nil
	case ".tar.gz", "tar.gz", "tar+gzip":
		return ZipStyleTarGzip, nil
	case ".tar.xz", "tar.xz", "tar+xz":
		return ZipStyleTarXz, nil
	case ".tar.zst", "tar.zst", ".tar.zstd", "tar.zstd", "tar+zstd":
		return ZipStyleTarZstd, nil
	default:
		return "", fmt.Errorf("unknown archive format %q", s)
	}
}

// Ext returns the file extension including the leading dot
func (z ZipStyle) Ext() string {
	return string(z)
}

// IsTar reports whether the style produces a tarball
func (z ZipStyle) IsTar() bool {
	return z == ZipStyleTarGzip || z == ZipStyleTarXz || z == ZipStyleTarZstd
}

// ChecksumStyle is the checksum algorithm applied to archives
type ChecksumStyle string

// Supported checksum algorithms
const (
	ChecksumSha256  ChecksumStyle = "sha256"
	ChecksumSha512  ChecksumStyle = "sha512"
	ChecksumSha3256 ChecksumStyle = "sha3-256"
	ChecksumSha3512 ChecksumStyle = "sha3-512"
	ChecksumBlake2s ChecksumStyle = "blake2s"
	ChecksumBlake2b ChecksumStyle = "blake2b"
	ChecksumNone    ChecksumStyle = "false"
)

// ParseChecksumStyle validates a checksum name from configuration
func ParseChecksumStyle(s string) (ChecksumStyle, error) {
	switch c := ChecksumStyle(s); c {
	case ChecksumSha256, ChecksumSha512, ChecksumSha3256, ChecksumSha3512, ChecksumBlake2s, ChecksumBlake2b:
		return c, nil
	case ChecksumNone, "none", "":
		return ChecksumNone, nil
	default:
		return "", fmt.Errorf("unknown checksum style %q", s)
	}
}

// Ext returns the file extension used for checksum files (without dot)
func (c ChecksumStyle) Ext() string {
	return string(c)
}

// Enabled reports whether checksums should be produced
func (c ChecksumStyle) Enabled() bool {
	return c != ChecksumNone && c != ""
}

// LibraryKind selects which compiled library flavors get packaged or installed
type LibraryKind string

// Library kinds
const (
	LibraryDynamic LibraryKind = "cdylib"
	LibraryStatic  LibraryKind = "cstaticlib"
)

// ParseLibraryKind accepts "cdylib"/"dynamic" and "cstaticlib"/"static"
func ParseLibraryKind(s string) (LibraryKind, error) {
	switch s {
	case "cdylib", "dynamic":
		return LibraryDynamic, nil
	case "cstaticlib", "static":
		return LibraryStatic, nil
	default:
		return "", fmt.Errorf("unknown library kind %q", s)
	}
}

// ExtraArtifactConfig declares a user build command and the files it produces
type ExtraArtifactConfig struct {
	Build      []string
	Artifacts  []string
	WorkingDir string
}

// AppConfig is the fully-resolved configuration for one app
type AppConfig struct {
	Installers        []InstallerKind
	WindowsArchive    ZipStyle
	UnixArchive       ZipStyle
	Checksum          ChecksumStyle
	PackageLibraries  []LibraryKind
	InstallLibraries  []LibraryKind
	Bins              map[TargetTriple][]string
	AutoIncludes      bool
	Include           []string
	InstallUpdater    bool
	UpdaterFromSource bool
	CycloneDXSBOM     bool
	OmniBOR           bool
	SourceTarball     bool
	ExtraArtifacts    []ExtraArtifactConfig
	Features          []string
	DefaultFeatures   bool
	AllFeatures       bool
	PreciseBuilds     bool
	GPGSign           bool
	NpmScope          string
	HomebrewFormula   string
}

// DefaultAppConfig returns the settings used when nothing is configured
func DefaultAppConfig() AppConfig {
	return AppConfig{
		WindowsArchive:  ZipStyleZip,
		UnixArchive:     ZipStyleTarXz,
		Checksum:        ChecksumSha256,
		AutoIncludes:    true,
		SourceTarball:   true,
		DefaultFeatures: true,
	}
}

// AppConfigLayer is a partial AppConfig; nil fields inherit from the layer below
type AppConfigLayer struct {
	Installers        []InstallerKind
	WindowsArchive    *ZipStyle
	UnixArchive       *ZipStyle
	Checksum          *ChecksumStyle
	PackageLibraries  []LibraryKind
	InstallLibraries  []LibraryKind
	Bins              map[TargetTriple][]string
	AutoIncludes      *bool
	Include           []string
	InstallUpdater    *bool
	UpdaterFromSource *bool
	CycloneDXSBOM     *bool
	OmniBOR           *bool
	SourceTarball     *bool
	ExtraArtifacts    []ExtraArtifactConfig
	Features          []string
	DefaultFeatures   *bool
	AllFeatures       *bool
	PreciseBuilds     *bool
	GPGSign           *bool
	NpmScope          *string
	HomebrewFormula   *string
}

// HasLibrary reports whether kind is in the list
func HasLibrary(kinds []LibraryKind, kind LibraryKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
