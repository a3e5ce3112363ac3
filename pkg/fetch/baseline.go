package fetch

import (
	"bytes"
	"context"
	"errors"

	"blockmerge/pkg/blocklist"
)

// baselineFetcher downloads the domains-blocklist.conf shipped with
// dnscrypt-proxy.
type baselineFetcher struct {
	base
}

func (f *baselineFetcher) Fetch(ctx context.Context) (*Result, error) {
	data, err := f.dl.get(ctx, f.id, f.url)
	if err != nil {
		return nil, err
	}
	entries, err := blocklist.ParseBaseline(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("baseline contains no list entries")
	}
	f.log.Info("fetched baseline", "entries", len(entries), "bytes", len(data))
	return &Result{Source: f.id, Raw: data}, nil
}
