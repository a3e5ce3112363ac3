package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"blockmerge/pkg/blocklist"
)

// rethinkFetcher reads the serverless-dns blocklist configuration and files
// every list under RethinkDNS's "Category/Subcategory" taxonomy.
type rethinkFetcher struct {
	base
}

type rethinkEntry struct {
	VName    string          `json:"vname"`
	URL      json.RawMessage `json:"url"`
	Pack     []string        `json:"pack"`
	Level    []int           `json:"level"`
	Group    string          `json:"group"`
	Subgroup string          `json:"subg"`
}

func (f *rethinkFetcher) Fetch(ctx context.Context) (*Result, error) {
	data, err := f.dl.get(ctx, f.id, f.url)
	if err != nil {
		return nil, err
	}
	entries, err := parseRethinkConfig(data)
	if err != nil {
		return nil, err
	}

	records := make([]blocklist.Record, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		location := entry.firstURL()
		if entry.VName == "" || location == "" {
			skipped++
			continue
		}
		category, subcategory := rethinkCategory(entry)
		if category == "" {
			skipped++
			continue
		}
		records = append(records, blocklist.Record{
			Category: category + "/" + subcategory,
			Name:     entry.VName,
			URL:      location,
		})
	}
	if len(records) == 0 {
		return nil, errors.New("no categorized lists in configuration")
	}
	f.log.Info("fetched catalog", "lists", len(records), "uncategorized", skipped)
	return f.result(records), nil
}

// parseRethinkConfig accepts "conf" both as an array and as an object keyed
// by list index.
func parseRethinkConfig(data []byte) ([]rethinkEntry, error) {
	var raw struct {
		Conf json.RawMessage `json:"conf"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	conf := bytes.TrimSpace(raw.Conf)
	if len(conf) == 0 || bytes.Equal(conf, []byte("null")) {
		return nil, errors.New("invalid config format: conf not found")
	}

	if conf[0] == '[' {
		var entries []rethinkEntry
		if err := json.Unmarshal(conf, &entries); err != nil {
			return nil, fmt.Errorf("decode conf: %w", err)
		}
		return entries, nil
	}

	var byKey map[string]rethinkEntry
	if err := json.Unmarshal(conf, &byKey); err != nil {
		return nil, fmt.Errorf("decode conf: %w", err)
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil && a != b {
			return a < b
		}
		return keys[i] < keys[j]
	})
	entries := make([]rethinkEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, byKey[key])
	}
	return entries, nil
}

func (e rethinkEntry) firstURL() string {
	var single string
	if err := json.Unmarshal(e.URL, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(e.URL, &many); err == nil {
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				return u
			}
		}
	}
	return ""
}

// rethinkCategory assigns a list to RethinkDNS's configure-page taxonomy from
// its packs, levels and group. Packs are checked first, then levels, then the
// group; an empty category means the list is not offered there.
func rethinkCategory(e rethinkEntry) (string, string) {
	packs := make(map[string]bool, len(e.Pack))
	porn := false
	for _, p := range e.Pack {
		packs[p] = true
		if strings.Contains(strings.ToLower(p), "porn") {
			porn = true
		}
	}
	hasAny := func(names ...string) bool {
		for _, name := range names {
			if packs[name] {
				return true
			}
		}
		return false
	}
	maxLevel, hasLevel := 0, len(e.Pack) > 0 && len(e.Level) > 0
	for i, level := range e.Level {
		if i == 0 || level > maxLevel {
			maxLevel = level
		}
	}
	group := strings.ToLower(e.Group)

	switch {
	case packs["adult"] || porn:
		return "ParentalControl", "Adult"
	case hasAny("piracy", "torrents", "file-hosts"):
		return "ParentalControl", "Piracy"
	case packs["gambling"]:
		return "ParentalControl", "Gambling"
	case packs["dating"]:
		return "ParentalControl", "Dating"
	case hasAny("socialmedia", "facebook"):
		return "ParentalControl", "SocialMedia"
	case hasAny("malware", "phishing", "scams", "spam"):
		return "Security", "Full"
	case hasAny("crypto", "spyware"):
		return "Security", "Extra"
	case packs["liteprivacy"] || (hasLevel && maxLevel <= 0):
		return "Privacy", "Lite"
	case packs["aggressiveprivacy"] || (hasLevel && maxLevel == 1):
		return "Privacy", "Aggressive"
	case packs["extremeprivacy"] || (hasLevel && maxLevel >= 2):
		return "Privacy", "Extreme"
	case strings.Contains(group, "privacy"):
		return "Privacy", "Lite"
	case strings.Contains(group, "security"):
		return "Security", "Full"
	case strings.Contains(group, "parental"):
		return "ParentalControl", "Adult"
	}
	return "", ""
}
