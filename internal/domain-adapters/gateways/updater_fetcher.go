package gateways

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
	"github.com/ochairo/cauldron/internal/domain/interfaces"
)

// DefaultUpdaterURL is where prebuilt updaters are downloaded from
const DefaultUpdaterURL = "https://github.com/axodotdev/axoupdater/releases/latest/download/axoupdater-cli-{target}.tar.gz"

// UpdaterFetcher downloads prebuilt self-update helpers
type UpdaterFetcher struct {
	httpClient  *http.Client
	urlTemplate string
	logger      interfaces.Logger
}

// NewUpdaterFetcher creates a new updater fetcher; an empty template uses DefaultUpdaterURL
func NewUpdaterFetcher(urlTemplate string, logger interfaces.Logger) *UpdaterFetcher {
	if urlTemplate == "" {
		urlTemplate = DefaultUpdaterURL
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &UpdaterFetcher{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // Long timeout for large downloads
		},
		urlTemplate: urlTemplate,
		logger:      logger,
	}
}

// BuildDownloadURL performs template substitution (exported for testing)
func (f *UpdaterFetcher) BuildDownloadURL(target entities.TargetTriple) string {
	return strings.ReplaceAll(f.urlTemplate, "{target}", string(target))
}

// FetchUpdater downloads the updater archive for target and writes its executable to destPath
func (f *UpdaterFetcher) FetchUpdater(ctx context.Context, target entities.TargetTriple, destPath string) error {
	url := f.BuildDownloadURL(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "cauldron/1.0")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if err := f.extractExecutable(resp.Body, destPath); err != nil {
		return fmt.Errorf("failed to extract updater from %s: %w", url, err)
	}
	f.logger.Info("fetched updater", interfaces.F("target", target), interfaces.F("path", destPath))
	return nil
}

// extractExecutable copies the first regular file named like the updater out of a .tar.gz stream
func (f *UpdaterFetcher) extractExecutable(r io.Reader, destPath string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	//nolint:errcheck // Defer close on gzip reader
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("no updater executable in archive")
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		name := strings.TrimSuffix(path.Base(header.Name), ".exe")
		if !strings.HasPrefix(name, "axoupdater") {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
			return fmt.Errorf("failed to create parent directory: %w", err)
		}
		//nolint:gosec // G302: The updater must stay executable
		out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		// Copy with size limit (1GB max to prevent decompression bombs)
		if _, err := io.Copy(out, io.LimitReader(tr, 1<<30)); err != nil {
			_ = out.Close()
			return fmt.Errorf("failed to write file: %w", err)
		}
		return out.Close()
	}
}
