package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// ReleaseStatus represents the readiness status of a release's dist directory
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady               ReleaseStatus = "ready"
	StatusNoArtifacts         ReleaseStatus = "no_artifacts"
	StatusMissingArtifacts    ReleaseStatus = "missing_artifacts"
	StatusUnexpectedArtifacts ReleaseStatus = "unexpected_artifacts"
)

// ReleaseValidation contains the validation result for one release
type ReleaseValidation struct {
	Release             string
	Status              ReleaseStatus
	ExpectedArtifacts   []string
	AvailableArtifacts  []string
	MissingArtifacts    []string
	UnexpectedArtifacts []string
	ExpectedCount       int
	AvailableCount      int
}

// IsReady returns true if every planned artifact is present and nothing else claims the app
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No artifacts found (expected: %d)", rv.ExpectedCount)
	case StatusMissingArtifacts:
		msg := fmt.Sprintf("Artifact count mismatch (expected: %d, have: %d)", rv.ExpectedCount, rv.AvailableCount)
		msg += fmt.Sprintf("\n   Missing: %s", strings.Join(rv.MissingArtifacts, ", "))
		if len(rv.UnexpectedArtifacts) > 0 {
			msg += fmt.Sprintf("\n   Unexpected: %s", strings.Join(rv.UnexpectedArtifacts, ", "))
		}
		return msg
	case StatusUnexpectedArtifacts:
		return fmt.Sprintf("Unexpected artifacts found: %s", strings.Join(rv.UnexpectedArtifacts, ", "))
	default:
		return "Unknown status"
	}
}

// ReleaseService handles release validation logic
type ReleaseService struct{}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{}
}

// ValidateRelease compares the planned artifacts of a release with the files found in a dist directory
func (s *ReleaseService) ValidateRelease(graph *entities.DistGraph, releaseIdx entities.ReleaseIdx, artifactPaths []string) *ReleaseValidation {
	release := graph.Release(releaseIdx)
	validation := &ReleaseValidation{Release: release.ID}

	validation.ExpectedArtifacts = s.expectedArtifacts(graph, release)
	validation.ExpectedCount = len(validation.ExpectedArtifacts)

	validation.AvailableArtifacts = s.availableArtifacts(release.AppName, validation.ExpectedArtifacts, artifactPaths)
	validation.AvailableCount = len(validation.AvailableArtifacts)

	validation.MissingArtifacts = difference(validation.ExpectedArtifacts, validation.AvailableArtifacts)
	validation.UnexpectedArtifacts = difference(validation.AvailableArtifacts, validation.ExpectedArtifacts)

	switch {
	case validation.AvailableCount == 0:
		validation.Status = StatusNoArtifacts
	case len(validation.MissingArtifacts) > 0:
		validation.Status = StatusMissingArtifacts
	case len(validation.UnexpectedArtifacts) > 0:
		validation.Status = StatusUnexpectedArtifacts
	default:
		validation.Status = StatusReady
	}

	return validation
}

// expectedArtifacts lists the file names of every artifact the release owns
func (s *ReleaseService) expectedArtifacts(graph *entities.DistGraph, release *entities.Release) []string {
	set := make(map[string]bool)
	for _, variantIdx := range release.Variants {
		for _, artifactIdx := range graph.Variant(variantIdx).LocalArtifacts {
			set[graph.Artifact(artifactIdx).ID] = true
		}
	}
	for _, artifactIdx := range release.GlobalArtifacts {
		set[graph.Artifact(artifactIdx).ID] = true
	}
	return sortedKeys(set)
}

// availableArtifacts keeps the files that are either planned or look like they belong to app
// Expected format of unplanned files: app-anything or app.anything. Detached .asc signatures are not artifacts.
func (s *ReleaseService) availableArtifacts(appName string, expected, artifactPaths []string) []string {
	planned := make(map[string]bool, len(expected))
	for _, name := range expected {
		planned[name] = true
	}

	set := make(map[string]bool)
	for _, path := range artifactPaths {
		basename := filepath.Base(path)
		if !planned[basename] && strings.HasSuffix(basename, ".asc") {
			continue
		}
		if planned[basename] || strings.HasPrefix(basename, appName+"-") || strings.HasPrefix(basename, appName+".") {
			set[basename] = true
		}
	}
	return sortedKeys(set)
}

// difference returns the entries of a that are not in b
func difference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}

	var out []string
	for _, s := range a {
		if !inB[s] {
			out = append(out, s)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
