package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ArtifactFinder provides utilities for locating built artifacts in a dist directory
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// FindFiles lists the regular files directly inside distDir, sorted.
// Staging directories are skipped.
func (f *ArtifactFinder) FindFiles(distDir string) ([]string, error) {
	if _, err := os.Stat(distDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", distDir)
	}

	entries, err := os.ReadDir(distDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifacts directory: %w", err)
	}

	var artifacts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		artifacts = append(artifacts, filepath.Join(distDir, entry.Name()))
	}
	sort.Strings(artifacts)
	return artifacts, nil
}

// FindByGlob lists the files of distDir matching any of the patterns
func (f *ArtifactFinder) FindByGlob(distDir string, patterns ...string) ([]string, error) {
	var artifacts []string
	for _, pattern := range patterns {
		fullPattern := filepath.Join(distDir, pattern)
		matches, err := filepath.Glob(fullPattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		artifacts = append(artifacts, matches...)
	}
	sort.Strings(artifacts)
	return artifacts, nil
}
