package blocklist

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// TempFilePrefix is the name prefix of files created during atomic writes.
const TempFilePrefix = ".blockmerge-"

// BaselineFileName is the file the baseline fetcher stores the upstream
// domains-blocklist.conf under.
const BaselineFileName = "blocklists_dnscrypt_default.md"

// DefaultLocalAdditionsFile is the conventional local additions file. It is
// optional: when it does not exist the run goes on without local additions.
const DefaultLocalAdditionsFile = "domains-blocklist-local-additions.txt"

// Record is one list URL in a source intermediate.
type Record struct {
	Order    int    `json:"order"`
	Category string `json:"category"`
	Name     string `json:"name,omitempty"`
	URL      string `json:"url"`
	Entries  int    `json:"entries,omitempty"`
}

// Intermediate is the structured output of a fetcher for one source.
type Intermediate struct {
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Records     []Record  `json:"records"`
}

// Categories returns the raw categories in first-appearance order.
func (in *Intermediate) Categories() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, record := range in.Records {
		if seen[record.Category] {
			continue
		}
		seen[record.Category] = true
		out = append(out, record.Category)
	}
	return out
}

// IntermediateFileName returns the file name of a source intermediate.
func IntermediateFileName(source string) string {
	return "blocklists_" + source + ".json"
}

// DocFileName returns the file name of a source's markdown documentation.
func DocFileName(source string) string {
	return "blocklists_" + source + ".md"
}

// Store reads and writes intermediates below a directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a Store rooted at dir.
func NewStore(fs afero.Fs, dir string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if dir == "" {
		dir = "."
	}
	return &Store{fs: fs, dir: dir}
}

// Path returns the location of name inside the store.
func (s *Store) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Load reads the intermediate of source. Records are returned sorted by their
// declared order.
func (s *Store) Load(source string) (*Intermediate, error) {
	path := s.Path(IntermediateFileName(source))
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, &MissingSourceError{Source: source, Path: path, Err: err}
	}

	var in Intermediate
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, &MissingSourceError{Source: source, Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	in.Source = strings.ToLower(strings.TrimSpace(in.Source))
	if in.Source != source {
		return nil, &MissingSourceError{Source: source, Path: path, Err: fmt.Errorf("file belongs to source %q", in.Source)}
	}
	sort.SliceStable(in.Records, func(i, j int) bool {
		return in.Records[i].Order < in.Records[j].Order
	})
	return &in, nil
}

// Save writes an intermediate atomically.
func (s *Store) Save(in *Intermediate) error {
	if in == nil || in.Source == "" {
		return errors.New("intermediate without source")
	}
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", in.Source, err)
	}
	return writeAtomic(s.fs, s.Path(IntermediateFileName(in.Source)), append(data, '\n'))
}

// SaveFile writes arbitrary content, such as documentation or the raw
// baseline, atomically into the store.
func (s *Store) SaveFile(name string, data []byte) error {
	return writeAtomic(s.fs, s.Path(name), data)
}

// writeAtomic replaces path with data through a temp file in the same
// directory, so readers never observe a partial file.
func writeAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmp, err := afero.TempFile(fs, dir, TempFilePrefix+"*")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		_ = fs.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
