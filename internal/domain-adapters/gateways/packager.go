package gateways

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Packager bundles staging directories into zip and tar archives
type Packager struct{}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{}
}

// ZipDir writes the contents of srcDir to destPath. Entries are nested under withRoot
// when it is set and are written in sorted order so equal inputs give equal archives.
func (p *Packager) ZipDir(ctx context.Context, srcDir, destPath, withRoot string, style entities.ZipStyle) error {
	if style == entities.ZipStyleTempDir {
		return nil
	}

	files, err := collectEntries(srcDir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	//nolint:gosec // G304: destPath is an artifact path inside the dist dir
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	//nolint:errcheck // Defer close; the explicit Close below reports errors
	defer out.Close()

	switch style {
	case entities.ZipStyleZip:
		err = p.writeZip(ctx, out, srcDir, withRoot, files)
	case entities.ZipStyleTarGzip, entities.ZipStyleTarXz, entities.ZipStyleTarZstd:
		err = p.writeCompressedTar(ctx, out, srcDir, withRoot, files, style)
	default:
		err = fmt.Errorf("unsupported archive style %q", style)
	}
	if err != nil {
		return err
	}
	return out.Close()
}

// archiveEntry is one path below the staging directory
type archiveEntry struct {
	rel  string // slash-separated
	info os.FileInfo
}

func collectEntries(srcDir string) ([]archiveEntry, error) {
	var entries []archiveEntry
	err := filepath.Walk(srcDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		if rel == "." {
			return nil
		}
		entries = append(entries, archiveEntry{rel: filepath.ToSlash(rel), info: info})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", srcDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].rel < entries[j].rel })
	return entries, nil
}

func (p *Packager) writeCompressedTar(ctx context.Context, out io.Writer, srcDir, withRoot string, files []archiveEntry, style entities.ZipStyle) error {
	var compressor io.WriteCloser
	var err error
	switch style {
	case entities.ZipStyleTarGzip:
		compressor, err = gzip.NewWriterLevel(out, gzip.BestCompression)
	case entities.ZipStyleTarXz:
		compressor, err = xz.NewWriter(out)
	case entities.ZipStyleTarZstd:
		compressor, err = zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		return fmt.Errorf("failed to create %s compressor: %w", style, err)
	}

	tarWriter := tar.NewWriter(compressor)
	if withRoot != "" {
		if err := tarWriter.WriteHeader(&tar.Header{
			Typeflag: tar.TypeDir,
			Name:     withRoot + "/",
			Mode:     0755,
		}); err != nil {
			return fmt.Errorf("failed to write tar header: %w", err)
		}
	}

	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.addTarEntry(tarWriter, srcDir, withRoot, entry); err != nil {
			return err
		}
	}

	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return fmt.Errorf("failed to finish %s stream: %w", style, err)
	}
	return nil
}

func (p *Packager) addTarEntry(tarWriter *tar.Writer, srcDir, withRoot string, entry archiveEntry) error {
	full := filepath.Join(srcDir, filepath.FromSlash(entry.rel))

	// Handle symlinks - read the link target
	var linkTarget string
	if entry.info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(full)
		if err != nil {
			return fmt.Errorf("failed to read symlink %s: %w", full, err)
		}
		linkTarget = target
	}

	header, err := tar.FileInfoHeader(entry.info, linkTarget)
	if err != nil {
		return fmt.Errorf("failed to create tar header: %w", err)
	}
	header.Name = path.Join(withRoot, entry.rel)
	if entry.info.IsDir() {
		header.Name += "/"
	}
	header.Uname, header.Gname = "", ""
	header.Uid, header.Gid = 0, 0

	if err := tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if !entry.info.Mode().IsRegular() {
		return nil
	}
	return copyFileInto(tarWriter, full)
}

func (p *Packager) writeZip(ctx context.Context, out io.Writer, srcDir, withRoot string, files []archiveEntry) error {
	zipWriter := zip.NewWriter(out)
	for _, entry := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(entry.info)
		if err != nil {
			return fmt.Errorf("failed to create zip header: %w", err)
		}
		header.Name = path.Join(withRoot, entry.rel)
		if entry.info.IsDir() {
			header.Name += "/"
		} else {
			header.Method = zip.Deflate
		}

		w, err := zipWriter.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write zip header: %w", err)
		}
		if entry.info.Mode().IsRegular() {
			if err := copyFileInto(w, filepath.Join(srcDir, filepath.FromSlash(entry.rel))); err != nil {
				return err
			}
		}
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish zip archive: %w", err)
	}
	return nil
}

func copyFileInto(w io.Writer, filePath string) error {
	//nolint:gosec // G304: File path comes from walking the staging directory
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", filePath, err)
	}
	return nil
}
