package gateways

import (
	"bufio"
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// Checksummer computes checksum files in the "<hex>  <name>" format of sha256sum
type Checksummer struct{}

// NewChecksummer creates a new checksummer
func NewChecksummer() *Checksummer {
	return &Checksummer{}
}

// newHash returns a fresh hash for style
func newHash(style entities.ChecksumStyle) (hash.Hash, error) {
	switch style {
	case entities.ChecksumSha256:
		return sha256.New(), nil
	case entities.ChecksumSha512:
		return sha512.New(), nil
	case entities.ChecksumSha3256:
		return sha3.New256(), nil
	case entities.ChecksumSha3512:
		return sha3.New512(), nil
	case entities.ChecksumBlake2s:
		return blake2s.New256(nil)
	case entities.ChecksumBlake2b:
		return blake2b.New512(nil)
	default:
		return nil, fmt.Errorf("checksum style %q does not produce checksums", style)
	}
}

// CalculateChecksum returns the hex digest of a file
func (c *Checksummer) CalculateChecksum(style entities.ChecksumStyle, filePath string) (string, error) {
	h, err := newHash(style)
	if err != nil {
		return "", err
	}

	//nolint:gosec // G304: File path is an artifact inside the dist dir
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksum writes the checksum line of srcPath to destPath
func (c *Checksummer) WriteChecksum(style entities.ChecksumStyle, srcPath, destPath string) error {
	return c.WriteUnifiedChecksum(style, destPath, []string{srcPath})
}

// WriteUnifiedChecksum writes one checksum line per source to destPath
func (c *Checksummer) WriteUnifiedChecksum(style entities.ChecksumStyle, destPath string, srcPaths []string) error {
	var b strings.Builder
	for _, src := range srcPaths {
		sum, err := c.CalculateChecksum(style, src)
		if err != nil {
			return fmt.Errorf("failed to checksum %s: %w", src, err)
		}
		fmt.Fprintf(&b, "%s  %s\n", sum, filepath.Base(src))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(destPath, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write checksum file: %w", err)
	}
	return nil
}

// VerifyChecksumFile checks every "<hex>  <name>" line of checksumPath against the
// files next to it
func (c *Checksummer) VerifyChecksumFile(ctx context.Context, style entities.ChecksumStyle, checksumPath string) error {
	//nolint:gosec // G304: File path is an artifact inside the dist dir
	f, err := os.Open(checksumPath)
	if err != nil {
		return fmt.Errorf("failed to open checksum file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	dir := filepath.Dir(checksumPath)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		expected, name, ok := strings.Cut(line, "  ")
		if !ok {
			return fmt.Errorf("malformed checksum line %q", line)
		}
		actual, err := c.CalculateChecksum(style, filepath.Join(dir, strings.TrimPrefix(name, "*")))
		if err != nil {
			return err
		}
		if actual != expected {
			return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", name, expected, actual)
		}
	}
	return scanner.Err()
}
