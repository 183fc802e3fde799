package entities

// WorkspaceSnapshot is the normalized, read-only view of the workspace the planner consumes
type WorkspaceSnapshot struct {
	Packages []Package
	Repo     *RepoState // nil when the workspace is not a git repository
	Tools    ToolAvailability
}

// Package is one publishable unit of the workspace
type Package struct {
	ID            string
	Name          string
	Version       string
	Description   string
	License       string
	Authors       []string
	RepositoryURL string
	HomepageURL   string
	ManifestPath  string

	Binaries         []string
	DynamicLibraries []string
	StaticLibraries  []string

	// Dist forces (true) or suppresses (false) distribution; nil means "if it has something to ship"
	Dist *bool
	// Targets restricts the run's targets for this package when non-empty
	Targets []TargetTriple

	ReadmeFile    string
	LicenseFiles  []string
	ChangelogFile string

	Config *AppConfigLayer
}

// RepoState describes the git repository holding the workspace
type RepoState struct {
	Root       string
	HeadCommit string
	Dirty      bool
}

// ToolAvailability records which optional external tools exist on the planning machine
type ToolAvailability struct {
	Git       bool
	CycloneDX bool
	OmniBOR   bool
}

// Workspace bundles a snapshot with the workspace-level settings read from disk
type Workspace struct {
	Snapshot WorkspaceSnapshot
	Defaults AppConfigLayer
	DistDir  string
	Host     TargetTriple
	Targets  []TargetTriple
}
