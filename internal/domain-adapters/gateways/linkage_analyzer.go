// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"debug/elf"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// LinkageAnalyzer reads dynamic linkage from built binaries using debug/elf.
// Non-ELF binaries (Mach-O, PE) never link glibc and report an empty linkage.
type LinkageAnalyzer struct{}

// NewLinkageAnalyzer creates a new linkage analyzer
func NewLinkageAnalyzer() *LinkageAnalyzer {
	return &LinkageAnalyzer{}
}

// AnalyzeBinary reports whether the binary links glibc and the newest GLIBC_x.y symbol version it needs
func (a *LinkageAnalyzer) AnalyzeBinary(binaryPath string) (entities.BinaryLinkage, error) {
	linkage := entities.BinaryLinkage{Name: filepath.Base(binaryPath)}

	f, err := elf.Open(binaryPath)
	if err != nil {
		var formatErr *elf.FormatError
		if errors.As(err, &formatErr) {
			return linkage, nil
		}
		return linkage, fmt.Errorf("failed to open binary: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	libraries, err := f.ImportedLibraries()
	if err != nil {
		return linkage, fmt.Errorf("failed to read imported libraries: %w", err)
	}
	for _, lib := range libraries {
		if strings.HasPrefix(lib, "libc.so") {
			linkage.LinksGlibc = true
			break
		}
	}
	if !linkage.LinksGlibc {
		return linkage, nil
	}

	symbols, err := f.ImportedSymbols()
	if err != nil {
		return linkage, fmt.Errorf("failed to read imported symbols: %w", err)
	}
	for _, sym := range symbols {
		version, ok := parseGlibcVersion(sym.Version)
		if !ok {
			continue
		}
		if linkage.HostGlibc == nil || linkage.HostGlibc.Less(version) {
			v := version
			linkage.HostGlibc = &v
		}
	}
	return linkage, nil
}

// AnalyzeStagingDir analyzes every regular file in an archive's staging directory
func (a *LinkageAnalyzer) AnalyzeStagingDir(archiveID, dir string) (entities.Linkage, error) {
	linkage := entities.Linkage{Archive: archiveID}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return linkage, fmt.Errorf("failed to read staging directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		bin, err := a.AnalyzeBinary(filepath.Join(dir, entry.Name()))
		if err != nil {
			return linkage, err
		}
		linkage.Binaries = append(linkage.Binaries, bin)
	}
	return linkage, nil
}

// parseGlibcVersion parses symbol versions such as "GLIBC_2.17"
func parseGlibcVersion(s string) (entities.LibcVersion, bool) {
	rest, ok := strings.CutPrefix(s, "GLIBC_")
	if !ok {
		return entities.LibcVersion{}, false
	}
	parts := strings.Split(rest, ".")
	if len(parts) < 2 {
		return entities.LibcVersion{}, false
	}
	major, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return entities.LibcVersion{}, false
	}
	series, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return entities.LibcVersion{}, false
	}
	return entities.LibcVersion{Major: major, Series: series}, true
}
