package gateways

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// stagingDir creates a staging directory with a binary and a nested doc
func stagingDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "demo-x86_64-unknown-linux-gnu")
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0750); err != nil {
		t.Fatalf("Failed to create staging dir: %v", err)
	}
	//nolint:gosec // G306: Test executable needs 0700 permissions
	if err := os.WriteFile(filepath.Join(dir, "demo"), []byte("fake demo binary"), 0700); err != nil {
		t.Fatalf("Failed to create binary: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "docs", "README.md"), []byte("# demo"), 0600); err != nil {
		t.Fatalf("Failed to create readme: %v", err)
	}
	return dir
}

// readTarEntries decompresses a tarball and returns its entry names and file contents
func readTarEntries(t *testing.T, path string, style entities.ZipStyle) ([]string, map[string]string) {
	t.Helper()

	//nolint:gosec // G304: path is a test fixture
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}

	var r io.Reader
	switch style {
	case entities.ZipStyleTarGzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Failed to create gzip reader: %v", err)
		}
		r = gz
	case entities.ZipStyleTarXz:
		xr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Failed to create xz reader: %v", err)
		}
		r = xr
	case entities.ZipStyleTarZstd:
		zr, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Failed to create zstd reader: %v", err)
		}
		defer zr.Close()
		r = zr
	default:
		t.Fatalf("not a tar style: %q", style)
	}

	var names []string
	contents := make(map[string]string)
	tr := tar.NewReader(r)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Failed to read tar entry: %v", err)
		}
		names = append(names, header.Name)
		if header.Typeflag == tar.TypeReg {
			body, err := io.ReadAll(tr)
			if err != nil {
				t.Fatalf("Failed to read %s: %v", header.Name, err)
			}
			contents[header.Name] = string(body)
		}
	}
	return names, contents
}

func TestPackager_ZipDir_Tarballs(t *testing.T) {
	styles := []entities.ZipStyle{entities.ZipStyleTarGzip, entities.ZipStyleTarXz, entities.ZipStyleTarZstd}

	for _, style := range styles {
		t.Run(string(style), func(t *testing.T) {
			src := stagingDir(t)
			dest := filepath.Join(t.TempDir(), "dist", "demo"+style.Ext())

			if err := NewPackager().ZipDir(context.Background(), src, dest, "demo-x86_64-unknown-linux-gnu", style); err != nil {
				t.Fatalf("ZipDir() error = %v", err)
			}

			names, contents := readTarEntries(t, dest, style)
			want := []string{
				"demo-x86_64-unknown-linux-gnu/",
				"demo-x86_64-unknown-linux-gnu/demo",
				"demo-x86_64-unknown-linux-gnu/docs/",
				"demo-x86_64-unknown-linux-gnu/docs/README.md",
			}
			if diff := cmp.Diff(want, names); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
			if got := contents["demo-x86_64-unknown-linux-gnu/demo"]; got != "fake demo binary" {
				t.Errorf("binary content = %q", got)
			}
		})
	}
}

func TestPackager_ZipDir_Zip(t *testing.T) {
	src := stagingDir(t)
	dest := filepath.Join(t.TempDir(), "demo.zip")

	if err := NewPackager().ZipDir(context.Background(), src, dest, "", entities.ZipStyleZip); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}

	reader, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	//nolint:errcheck // Defer close in test
	defer reader.Close()

	var names []string
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"demo", "docs/", "docs/README.md"}, names); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestPackager_ZipDir_Deterministic(t *testing.T) {
	src := stagingDir(t)
	out := t.TempDir()
	first := filepath.Join(out, "first.tar.gz")
	second := filepath.Join(out, "second.tar.gz")

	packager := NewPackager()
	for _, dest := range []string{first, second} {
		if err := packager.ZipDir(context.Background(), src, dest, "root", entities.ZipStyleTarGzip); err != nil {
			t.Fatalf("ZipDir() error = %v", err)
		}
	}

	a, _ := os.ReadFile(first)  //nolint:gosec // G304: test fixture
	b, _ := os.ReadFile(second) //nolint:gosec // G304: test fixture
	if !bytes.Equal(a, b) {
		t.Errorf("archives of the same directory differ")
	}
}

func TestPackager_ZipDir_TempDir(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "never-written")
	if err := NewPackager().ZipDir(context.Background(), "missing", dest, "", entities.ZipStyleTempDir); err != nil {
		t.Fatalf("ZipDir() error = %v", err)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("temp-dir style wrote an archive")
	}
}

func TestPackager_ZipDir_Errors(t *testing.T) {
	t.Run("missing source", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "demo.zip")
		if err := NewPackager().ZipDir(context.Background(), filepath.Join(t.TempDir(), "missing"), dest, "", entities.ZipStyleZip); err == nil {
			t.Errorf("ZipDir() error = nil, want an error")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		dest := filepath.Join(t.TempDir(), "demo.tar.xz")
		if err := NewPackager().ZipDir(ctx, stagingDir(t), dest, "", entities.ZipStyleTarXz); err == nil {
			t.Errorf("ZipDir() error = nil, want context.Canceled")
		}
	})
}
