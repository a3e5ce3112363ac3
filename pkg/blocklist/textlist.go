package blocklist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// LoadBaseline reads the default configuration baseline from path.
func LoadBaseline(fs afero.Fs, path string) ([]SourceEntry, error) {
	return loadTextList(fs, path, BaselineSourceID, ParseBaseline)
}

// LoadLocalAdditions reads the local additions list from path.
func LoadLocalAdditions(fs afero.Fs, path string) ([]SourceEntry, error) {
	return loadTextList(fs, path, LocalSourceID, ParseLocalAdditions)
}

func loadTextList(fs afero.Fs, path, source string, parse func(io.Reader) ([]SourceEntry, error)) ([]SourceEntry, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, &MissingSourceError{Source: source, Path: path, Err: err}
	}
	defer func() {
		_ = file.Close()
	}()

	entries, err := parse(file)
	if err != nil {
		return nil, &MissingSourceError{Source: source, Path: path, Err: err}
	}
	return entries, nil
}

// ParseBaseline parses a dnscrypt-proxy domains-blocklist.conf. Uncommented
// lines are enabled entries; a comment holding only a URL is an entry that is
// disabled by default; any other comment is ignored. Trailing "# ..." notes
// are stripped in both cases.
func ParseBaseline(r io.Reader) ([]SourceEntry, error) {
	entries := make([]SourceEntry, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(stripBOM(scanner.Text()))
		if line == "" {
			continue
		}
		enabled := true
		if isCommentLine(line) {
			candidate := stripInlineComment(strings.TrimLeft(line, "#"))
			if !looksLikeURL(candidate) {
				continue
			}
			line = candidate
			enabled = false
		} else if line = stripInlineComment(line); line == "" {
			continue
		}
		entries = append(entries, SourceEntry{
			SourceID:          BaselineSourceID,
			CategoryRaw:       BaselineCategory,
			CategoryCanonical: BaselineCategory,
			URL:               line,
			EnabledByDefault:  enabled,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan baseline: %w", err)
	}
	return entries, nil
}

// ParseLocalAdditions parses a local additions file. Every uncommented line is
// an entry and is always enabled; trailing "# ..." comments are stripped.
func ParseLocalAdditions(r io.Reader) ([]SourceEntry, error) {
	entries := make([]SourceEntry, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(stripBOM(scanner.Text()))
		if line == "" || isCommentLine(line) {
			continue
		}
		if line = stripInlineComment(line); line == "" {
			continue
		}
		entries = append(entries, SourceEntry{
			SourceID:          LocalSourceID,
			CategoryRaw:       LocalCategory,
			CategoryCanonical: LocalCategory,
			URL:               line,
			EnabledByDefault:  true,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan local additions: %w", err)
	}
	return entries, nil
}

// stripInlineComment drops a trailing comment that starts with whitespace
// followed by '#'.
func stripInlineComment(line string) string {
	for i := 1; i < len(line); i++ {
		if line[i] == '#' && (line[i-1] == ' ' || line[i-1] == '\t') {
			line = line[:i]
			break
		}
	}
	return strings.TrimSpace(line)
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "#")
}

func looksLikeURL(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "file:")
}
