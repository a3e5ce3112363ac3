package fetch

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

type downloader struct {
	client    *http.Client
	userAgent string
	fs        afero.Fs
	cacheDir  string
	log       *slog.Logger
}

func newDownloader(opts Options, log *slog.Logger) *downloader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &downloader{
		client:    client,
		userAgent: opts.UserAgent,
		fs:        fs,
		cacheDir:  opts.CacheDir,
		log:       log,
	}
}

// get downloads location, falling back to the cached copy when the download
// fails and a cache is configured.
func (d *downloader) get(ctx context.Context, source, location string) ([]byte, error) {
	data, err := d.download(ctx, location)
	if err == nil {
		if d.cacheDir != "" {
			if err := d.writeCache(source, location, data); err != nil {
				d.log.Warn("failed to write cache", "source", source, "url", location, "error", err)
			}
		}
		return data, nil
	}
	if d.cacheDir == "" {
		return nil, err
	}
	cached, cacheErr := d.readCache(source, location)
	if cacheErr != nil {
		return nil, fmt.Errorf("download failed: %w; cache error: %s", err, cacheErr.Error())
	}
	d.log.Warn("download failed, using cached copy", "source", source, "url", location, "error", err)
	return cached, nil
}

func (d *downloader) download(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.log.Warn("failed to close response body", "url", location, "error", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get %s: unexpected status %d", location, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (d *downloader) writeCache(source, location string, data []byte) error {
	if err := d.fs.MkdirAll(d.cacheDir, 0o750); err != nil {
		return err
	}
	return afero.WriteFile(d.fs, filepath.Join(d.cacheDir, cacheFileName(source, location)), data, 0o600)
}

func (d *downloader) readCache(source, location string) ([]byte, error) {
	return afero.ReadFile(d.fs, filepath.Join(d.cacheDir, cacheFileName(source, location)))
}

func cacheFileName(source, location string) string {
	hash := sha256.Sum256([]byte(location))
	id := sanitizeID(source)
	if id == "" {
		id = "custom"
	}
	return id + "-" + hex.EncodeToString(hash[:8]) + ".cache"
}

func sanitizeID(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	builder := strings.Builder{}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return builder.String()
}

// countEntries counts the non-blank lines of a list that do not start with
// one of the comment prefixes.
func countEntries(data []byte, commentPrefixes ...string) int {
	count := 0
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || hasAnyPrefix(line, commentPrefixes) {
			continue
		}
		count++
	}
	return count
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
