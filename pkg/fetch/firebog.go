package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"blockmerge/pkg/blocklist"
)

// firebogFetcher scrapes the Firebog index page. Only lists hosted on the
// page's own host are kept.
type firebogFetcher struct {
	base
}

func (f *firebogFetcher) Fetch(ctx context.Context) (*Result, error) {
	data, err := f.dl.get(ctx, f.id, f.url)
	if err != nil {
		return nil, err
	}
	page, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	records, err := scrapeFirebog(data, page)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("no lists found on page")
	}
	f.log.Info("fetched catalog", "lists", len(records))
	return f.result(records), nil
}

// scrapeFirebog reads each "<Category> Lists" heading and the links of the
// list that follows it.
func scrapeFirebog(data []byte, page *url.URL) ([]blocklist.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	seen := make(map[string]bool)
	records := make([]blocklist.Record, 0)
	doc.Find("h2").Each(func(_ int, heading *goquery.Selection) {
		title := strings.TrimSpace(heading.Text())
		if !strings.Contains(title, "Lists") {
			return
		}
		category := strings.TrimSpace(strings.Replace(title, " Lists", "", 1))

		heading.NextAllFiltered("ul").First().Find("a[href]").Each(func(_ int, link *goquery.Selection) {
			href, _ := link.Attr("href")
			ref, err := page.Parse(strings.TrimSpace(href))
			if err != nil || !strings.EqualFold(ref.Host, page.Host) {
				return
			}
			location := ref.String()
			if seen[location] {
				return
			}
			seen[location] = true
			records = append(records, blocklist.Record{
				Category: category,
				Name:     firebogName(ref.Path),
				URL:      location,
			})
		})
	})
	return records, nil
}

// firebogName derives a display name from a list path: "/hosts/AdguardDNS.txt"
// becomes "Adguard D N S".
func firebogName(p string) string {
	stem := strings.TrimSuffix(path.Base(p), ".txt")
	var b strings.Builder
	for i, r := range stem {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return ""
	}
	runes := []rune(name)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
