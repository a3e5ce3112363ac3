package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"blockmerge/pkg/blocklist"
)

const nextDNSCategory = "NextDNS Recommended"

type nextDNSFetcher struct {
	base
}

type nextDNSList struct {
	Sources []struct {
		URL    string `json:"url"`
		Format string `json:"format"`
	} `json:"sources"`
}

func (f *nextDNSFetcher) Fetch(ctx context.Context) (*Result, error) {
	data, err := f.dl.get(ctx, f.id, f.url)
	if err != nil {
		return nil, err
	}
	var list nextDNSList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode recommended list: %w", err)
	}

	records := make([]blocklist.Record, 0, len(list.Sources))
	for _, source := range list.Sources {
		location := strings.TrimSpace(source.URL)
		if location == "" {
			continue
		}
		records = append(records, blocklist.Record{
			Category: nextDNSCategory,
			Name:     titleName(strings.TrimSuffix(path.Base(location), ".txt")),
			URL:      location,
		})
	}
	if len(records) == 0 {
		return nil, errors.New("recommended list has no sources")
	}
	return f.result(records), nil
}
