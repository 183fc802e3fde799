package gateways

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

func TestParseGlibcVersion(t *testing.T) {
	tests := []struct {
		in     string
		want   entities.LibcVersion
		wantOK bool
	}{
		{"GLIBC_2.17", entities.LibcVersion{Major: 2, Series: 17}, true},
		{"GLIBC_2.34", entities.LibcVersion{Major: 2, Series: 34}, true},
		{"GLIBC_2.3.4", entities.LibcVersion{Major: 2, Series: 3}, true},
		{"GLIBC_PRIVATE", entities.LibcVersion{}, false},
		{"GCC_3.0", entities.LibcVersion{}, false},
		{"", entities.LibcVersion{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseGlibcVersion(tt.in)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("parseGlibcVersion(%q) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLinkageAnalyzer_NotELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.exe")
	if err := os.WriteFile(path, []byte("MZ not really a PE file"), 0600); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	linkage, err := NewLinkageAnalyzer().AnalyzeBinary(path)
	if err != nil {
		t.Fatalf("AnalyzeBinary() error = %v", err)
	}
	if linkage.Name != "demo.exe" || linkage.LinksGlibc || linkage.HostGlibc != nil {
		t.Errorf("AnalyzeBinary() = %+v, want an empty linkage", linkage)
	}
}

func TestLinkageAnalyzer_Missing(t *testing.T) {
	if _, err := NewLinkageAnalyzer().AnalyzeBinary(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("AnalyzeBinary(missing) error = nil, want an error")
	}
}

func TestLinkageAnalyzer_AnalyzeStagingDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"README.md", "demo"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "docs"), 0750); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	linkage, err := NewLinkageAnalyzer().AnalyzeStagingDir("demo.tar.xz", dir)
	if err != nil {
		t.Fatalf("AnalyzeStagingDir() error = %v", err)
	}
	if linkage.Archive != "demo.tar.xz" {
		t.Errorf("Archive = %q, want %q", linkage.Archive, "demo.tar.xz")
	}
	if len(linkage.Binaries) != 2 {
		t.Errorf("Binaries = %+v, want one entry per regular file", linkage.Binaries)
	}
}

func TestLinkageAnalyzer_HostBinary(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("needs an ELF host")
	}
	// the test binary itself is an ELF file; a static Go binary does not link libc
	self, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	linkage, err := NewLinkageAnalyzer().AnalyzeBinary(self)
	if err != nil {
		t.Fatalf("AnalyzeBinary() error = %v", err)
	}
	if !linkage.LinksGlibc && linkage.HostGlibc != nil {
		t.Errorf("AnalyzeBinary() = %+v, HostGlibc set without glibc", linkage)
	}
}
