package gateways

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Copier copies files and directory trees into staging directories
type Copier struct{}

// NewCopier creates a new copier
func NewCopier() *Copier {
	return &Copier{}
}

// CopyFile copies srcPath to destPath, keeping the permission bits
func (c *Copier) CopyFile(srcPath, destPath string) error {
	//nolint:gosec // G304: Source path comes from the plan
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", srcPath)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	//nolint:gosec // G304: Destination path comes from the plan
	dest, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	if _, err := io.Copy(dest, src); err != nil {
		//nolint:errcheck // Already failing
		dest.Close()
		return fmt.Errorf("failed to copy %s: %w", srcPath, err)
	}
	return dest.Close()
}

// CopyDir copies the tree rooted at srcPath to destPath
func (c *Copier) CopyDir(srcPath, destPath string) error {
	return filepath.Walk(srcPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcPath, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		target := filepath.Join(destPath, rel)
		switch {
		case info.IsDir():
			return os.MkdirAll(target, 0750)
		case info.Mode()&os.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return fmt.Errorf("failed to read symlink: %w", err)
			}
			return os.Symlink(link, target)
		default:
			return c.CopyFile(p, target)
		}
	})
}

// CopyFileOrDir copies srcPath with CopyDir or CopyFile depending on what it is
func (c *Copier) CopyFileOrDir(srcPath, destPath string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}
	if info.IsDir() {
		return c.CopyDir(srcPath, destPath)
	}
	return c.CopyFile(srcPath, destPath)
}
