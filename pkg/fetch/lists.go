package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"blockmerge/pkg/blocklist"
)

// shadowWhispererCategories are the list files of the ShadowWhisperer
// repository; each file is its own category.
var shadowWhispererCategories = []string{
	"Ads", "Adult", "Apple", "Bloat", "Chat", "Cryptocurrency", "Dating", "DNS",
	"Dynamic", "Fonts", "Free", "Gambling", "Junk", "Malware", "Marketing",
	"Marketing-Email", "Microsoft", "Remote", "Risk", "Scam", "Shock",
	"Top_Level", "Tracking", "Tunnels", "Typo", "URL Shortener",
}

type shadowWhispererFetcher struct {
	base
	categories []string
}

func (f *shadowWhispererFetcher) Fetch(ctx context.Context) (*Result, error) {
	categories := f.categories
	if categories == nil {
		categories = shadowWhispererCategories
	}

	records := make([]blocklist.Record, 0, len(categories))
	for _, category := range categories {
		location := f.join(url.PathEscape(category))
		data, err := f.dl.get(ctx, f.id, location)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Warn("skipping list", "category", category, "url", location, "error", err)
			continue
		}
		entries := countEntries(data, "#", "//")
		if entries == 0 {
			f.log.Warn("skipping empty list", "category", category, "url", location)
			continue
		}
		records = append(records, blocklist.Record{
			Category: category,
			Name:     category,
			URL:      location,
			Entries:  entries,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no lists retrieved from %s", f.url)
	}
	return f.result(records), nil
}

type frogeyeList struct {
	category string
	name     string
	file     string
}

var frogeyeLists = []frogeyeList{
	{"First-party Trackers", "First-party Trackers", "firstparty-trackers.txt"},
	{"First-party Only", "First-party Only Trackers", "firstparty-only-trackers.txt"},
	{"Multi-party Trackers", "Multi-party Trackers", "multiparty-trackers.txt"},
	{"Multi-party Only", "Multi-party Only Trackers", "multiparty-only-trackers.txt"},
}

type frogeyeFetcher struct {
	base
}

func (f *frogeyeFetcher) Fetch(ctx context.Context) (*Result, error) {
	records := make([]blocklist.Record, 0, len(frogeyeLists))
	for _, list := range frogeyeLists {
		location := f.join(list.file)
		data, err := f.dl.get(ctx, f.id, location)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Warn("skipping list", "category", list.category, "url", location, "error", err)
			continue
		}
		records = append(records, blocklist.Record{
			Category: list.category,
			Name:     list.name,
			URL:      location,
			Entries:  countEntries(data, "#"),
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no lists retrieved from %s", f.url)
	}
	return f.result(records), nil
}

var yokoffingLists = []string{
	"adult_annoyance_list.txt",
	"annoyance_list.txt",
	"antipaywall_filters_without_element_hiding.txt",
	"block_third_party_fonts.txt",
	"clean_reading_experience.txt",
	"click2load.txt",
	"combined_annoyances_without_element_hiding",
	"enhanced_site_protection.txt",
	"personal.txt",
	"privacy_essentials.txt",
	"youtube_clear_view.txt",
}

type yokoffingFetcher struct {
	base
}

// Fetch lists every known filter file. A file that cannot be downloaded is
// still listed, with no entry count.
func (f *yokoffingFetcher) Fetch(ctx context.Context) (*Result, error) {
	records := make([]blocklist.Record, 0, len(yokoffingLists))
	for _, file := range yokoffingLists {
		location := f.join(file)
		entries := 0
		data, err := f.dl.get(ctx, f.id, location)
		switch {
		case err == nil:
			entries = countEntries(data, "!", "#")
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			f.log.Warn("failed to count list entries", "url", location, "error", err)
		}
		records = append(records, blocklist.Record{
			Category: yokoffingCategory(file),
			Name:     titleName(strings.TrimSuffix(file, ".txt")),
			URL:      location,
			Entries:  entries,
		})
	}
	return f.result(records), nil
}

func yokoffingCategory(file string) string {
	for _, marker := range []string{"privacy", "protection", "personal"} {
		if strings.Contains(file, marker) {
			return "Privacy"
		}
	}
	return "Annoyances"
}

// titleName turns a file stem such as "privacy_essentials" into
// "Privacy Essentials".
func titleName(stem string) string {
	stem = strings.NewReplacer("_", " ", "-", " ").Replace(stem)
	return cases.Title(language.Und).String(strings.TrimSpace(stem))
}
