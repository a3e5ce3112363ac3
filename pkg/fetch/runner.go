package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"blockmerge/pkg/blocklist"
)

// RunOptions configures Run.
type RunOptions struct {
	// Sources are fetched in parallel and written in this order.
	Sources     []string
	Concurrency int
	// IgnoreFailures writes the sources that succeeded and reports the rest.
	// Without it a single failure aborts the run before anything is written.
	IgnoreFailures bool
	Store          *blocklist.Store
	Fetch          Options
	Logger         *slog.Logger
}

// RunReport lists the outcome per source.
type RunReport struct {
	Written []string
	Failed  []string
}

// Run fetches every source and stores the intermediates, their documentation
// and the baseline text.
func Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Store == nil {
		return nil, errors.New("fetch: no store configured")
	}
	if opts.Fetch.Logger == nil {
		opts.Fetch.Logger = logger
	}

	fetchers := make([]Fetcher, 0, len(opts.Sources))
	for _, id := range opts.Sources {
		f, err := New(id, opts.Fetch)
		if err != nil {
			return nil, err
		}
		fetchers = append(fetchers, f)
	}

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]*Result, len(fetchers))
	failures := make([]error, len(fetchers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range fetchers {
		i, f := i, f
		g.Go(func() error {
			logger.Debug("fetching source", "source", f.ID())
			result, err := f.Fetch(gctx)
			if err != nil {
				err = fmt.Errorf("fetch %s: %w", f.ID(), err)
				failures[i] = err
				if opts.IgnoreFailures {
					logger.Warn("source fetch failed", "source", f.ID(), "error", err)
					return nil
				}
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &RunReport{}
	for i, f := range fetchers {
		if failures[i] != nil {
			report.Failed = append(report.Failed, f.ID())
			continue
		}
		if err := save(opts.Store, results[i]); err != nil {
			return report, err
		}
		logger.Info("stored source", "source", f.ID())
		report.Written = append(report.Written, f.ID())
	}
	return report, nil
}

func save(store *blocklist.Store, result *Result) error {
	if result.Intermediate == nil {
		return store.SaveFile(blocklist.BaselineFileName, result.Raw)
	}
	if err := store.Save(result.Intermediate); err != nil {
		return err
	}
	doc, err := RenderDoc(result.Intermediate)
	if err != nil {
		return fmt.Errorf("render %s documentation: %w", result.Source, err)
	}
	return store.SaveFile(blocklist.DocFileName(result.Source), doc)
}
