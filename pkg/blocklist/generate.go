package blocklist

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
)

// StdoutPath selects standard output as the generation target.
const StdoutPath = "-"

// Options configures a generation run.
type Options struct {
	Fs       afero.Fs
	InputDir string
	// Sources lists the publisher sources in priority order.
	Sources []string
	// BaselinePath and LocalAdditionsPath are resolved against InputDir when
	// relative. Empty disables the input. A missing DefaultLocalAdditionsFile
	// is not an error.
	BaselinePath       string
	LocalAdditionsPath string
	// RulesPath selects a rule table file; empty uses the embedded table.
	RulesPath              string
	OutputPath             string
	Stdout                 io.Writer
	IgnoreRetrievalFailure bool
	Logger                 *slog.Logger
	ErrorLimit             int
}

// Report summarises a generation run.
type Report struct {
	Output     string
	Skipped    []string
	Malformed  int
	Active     int
	Disabled   int
	Duplicates int
	Bytes      int
}

// Generate merges all inputs and writes the output document. Fatal errors are
// detected before anything is written.
func Generate(opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	store := NewStore(fs, opts.InputDir)
	report := &Report{Output: opts.OutputPath}

	rules, err := LoadRules(fs, opts.RulesPath)
	if err != nil {
		return nil, err
	}

	skip := func(err error) error {
		var missing *MissingSourceError
		if !opts.IgnoreRetrievalFailure || !errors.As(err, &missing) {
			return err
		}
		logger.Warn("skipping source", "source", missing.Source, "path", missing.Path, "error", missing.Err)
		report.Skipped = append(report.Skipped, missing.Source)
		return nil
	}

	inputs := make([]SourceInput, 0, len(opts.Sources)+2)

	if opts.BaselinePath != "" {
		entries, err := LoadBaseline(fs, store.Path(opts.BaselinePath))
		if err != nil {
			if err := skip(err); err != nil {
				return nil, err
			}
		} else {
			inputs = append(inputs, SourceInput{Source: sourceDefinition(BaselineSourceID), Entries: entries})
		}
	}

	var unmapped []error
	for _, source := range opts.Sources {
		in, err := store.Load(source)
		if err != nil {
			if err := skip(err); err != nil {
				return nil, err
			}
			continue
		}
		entries, err := rules.Normalize(in)
		if err != nil {
			unmapped = append(unmapped, err)
			continue
		}
		logger.Debug("loaded source", "source", source, "records", len(entries))
		inputs = append(inputs, SourceInput{Source: sourceDefinition(source), Entries: entries})
	}
	if len(unmapped) > 0 {
		return nil, errors.Join(unmapped...)
	}

	if opts.LocalAdditionsPath != "" {
		entries, err := LoadLocalAdditions(fs, store.Path(opts.LocalAdditionsPath))
		switch {
		case err != nil && opts.LocalAdditionsPath == DefaultLocalAdditionsFile && errors.Is(err, os.ErrNotExist):
			logger.Info("no local additions found", "path", store.Path(opts.LocalAdditionsPath))
		case err != nil:
			if err := skip(err); err != nil {
				return nil, err
			}
		default:
			inputs = append(inputs, SourceInput{Source: sourceDefinition(LocalSourceID), Entries: entries})
		}
	}

	categories := append(rules.Categories(), BaselineCategory, LocalCategory)
	merged := Merge(inputs, MergeOptions{
		Categories: categories,
		Logger:     logger,
		ErrorLimit: opts.ErrorLimit,
	})
	report.Malformed = len(merged.Malformed)
	report.Active, report.Disabled, report.Duplicates = merged.Document.Counts()

	data := RenderBytes(merged.Document)
	report.Bytes = len(data)

	if err := writeOutput(fs, opts, data); err != nil {
		return nil, err
	}
	return report, nil
}

func writeOutput(fs afero.Fs, opts Options, data []byte) error {
	if opts.OutputPath == "" || opts.OutputPath == StdoutPath {
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		if _, err := w.Write(data); err != nil {
			return &WriteError{Path: StdoutPath, Err: err}
		}
		return nil
	}
	if err := writeAtomic(fs, opts.OutputPath, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
