// Package fetch retrieves publisher blocklist catalogs and turns them into
// blocklist intermediates.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"blockmerge/pkg/blocklist"
)

const defaultTimeout = 30 * time.Second

// Fetcher retrieves the catalog of one source.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context) (*Result, error)
}

// Result is the outcome of a single fetch. Publisher sources fill
// Intermediate; the baseline carries its configuration text in Raw.
type Result struct {
	Source       string
	Intermediate *blocklist.Intermediate
	Raw          []byte
}

// Options configures the fetchers.
type Options struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	// Fs and CacheDir enable the download cache used when a publisher is
	// unreachable. An empty CacheDir disables caching.
	Fs       afero.Fs
	CacheDir string
	Logger   *slog.Logger
	// URLs overrides the endpoint of a source, keyed by source ID.
	URLs map[string]string
	Now  func() time.Time
}

type constructor func(base) Fetcher

var registry = map[string]struct {
	url string
	new constructor
}{
	blocklist.BaselineSourceID: {
		url: "https://raw.githubusercontent.com/DNSCrypt/dnscrypt-proxy/master/utils/generate-domains-blocklist/domains-blocklist.conf",
		new: func(b base) Fetcher { return &baselineFetcher{base: b} },
	},
	"rethinkdns": {
		url: "https://raw.githubusercontent.com/serverless-dns/blocklists/main/config.json",
		new: func(b base) Fetcher { return &rethinkFetcher{base: b} },
	},
	"shadowwhisperer": {
		url: "https://raw.githubusercontent.com/ShadowWhisperer/BlockLists/master/Lists/",
		new: func(b base) Fetcher { return &shadowWhispererFetcher{base: b} },
	},
	"nextdns": {
		url: "https://raw.githubusercontent.com/nextdns/blocklists/main/blocklists/nextdns-recommended.json",
		new: func(b base) Fetcher { return &nextDNSFetcher{base: b} },
	},
	"frogeye": {
		url: "https://hostfiles.frogeye.fr/",
		new: func(b base) Fetcher { return &frogeyeFetcher{base: b} },
	},
	"firebog": {
		url: "https://v.firebog.net/",
		new: func(b base) Fetcher { return &firebogFetcher{base: b} },
	},
	"yokoffing": {
		url: "https://raw.githubusercontent.com/yokoffing/filterlists/main/",
		new: func(b base) Fetcher { return &yokoffingFetcher{base: b} },
	},
}

// Known returns the IDs of all sources that can be fetched, baseline first
// and then the publishers in default priority order.
func Known() []string {
	ids := make([]string, 0, len(registry))
	ids = append(ids, blocklist.BaselineSourceID)
	ids = append(ids, blocklist.DefaultSourceOrder...)
	return ids
}

// DefaultURL returns the built-in endpoint of a source.
func DefaultURL(id string) (string, bool) {
	entry, ok := registry[id]
	return entry.url, ok
}

// New returns the fetcher for the source id.
func New(id string, opts Options) (Fetcher, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	entry, ok := registry[id]
	if !ok {
		known := make([]string, 0, len(registry))
		for k := range registry {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown source %q (known: %s)", id, strings.Join(known, ", "))
	}

	endpoint := entry.url
	if override := strings.TrimSpace(opts.URLs[id]); override != "" {
		endpoint = override
	}
	return entry.new(newBase(id, endpoint, opts)), nil
}

// base carries what every fetcher needs.
type base struct {
	id  string
	url string
	dl  *downloader
	log *slog.Logger
	now func() time.Time
}

func newBase(id, endpoint string, opts Options) base {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return base{
		id:  id,
		url: endpoint,
		dl:  newDownloader(opts, log),
		log: log.With("source", id),
		now: now,
	}
}

func (b base) ID() string { return b.id }

// result numbers the records in the order given and wraps them.
func (b base) result(records []blocklist.Record) *Result {
	for i := range records {
		records[i].Order = i
	}
	return &Result{
		Source: b.id,
		Intermediate: &blocklist.Intermediate{
			Source:      b.id,
			GeneratedAt: b.now().UTC().Truncate(time.Second),
			Records:     records,
		},
	}
}

// join appends name to the endpoint, which is treated as a directory.
func (b base) join(name string) string {
	if strings.HasSuffix(b.url, "/") {
		return b.url + name
	}
	return b.url + "/" + name
}
