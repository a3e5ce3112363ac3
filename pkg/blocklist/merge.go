package blocklist

import (
	"log/slog"
	"sort"
)

// SourceInput is the entry list of one source, in declared order.
type SourceInput struct {
	Source  SourceDefinition
	Entries []SourceEntry
}

// MergeOptions configures Merge.
type MergeOptions struct {
	// Categories is the canonical declaration order used to order the
	// sections of a source. Unlisted categories follow in first-seen order.
	Categories []string
	Logger     *slog.Logger
	ErrorLimit int
}

// MergeResult holds the merged document and the records that were skipped.
type MergeResult struct {
	Document  *MergedDocument
	Malformed []*MalformedRecordError
}

type seenEntry struct {
	source string
	order  int
}

// Merge deduplicates the inputs, which must already be in priority order.
// The first occurrence of a normalized URL keeps its own enablement; every
// later occurrence becomes a duplicate of it, whatever its own enablement.
// Local additions are the exception: their first occurrence is always active
// and keeps the earlier source as its origin.
func Merge(inputs []SourceInput, opts MergeOptions) *MergeResult {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rank := make(map[string]int, len(opts.Categories))
	for i, category := range opts.Categories {
		rank[category] = i
	}

	result := &MergeResult{Document: &MergedDocument{}}
	seen := make(map[string]seenEntry)
	// Local additions are active even when an earlier source has the URL.
	// Only a repeat inside the local list is a duplicate.
	localSeen := make(map[string]seenEntry)
	order := 0

	for _, input := range inputs {
		limiter := errorLimiter{limit: opts.ErrorLimit}
		sections := make([]*Section, 0)
		byCategory := make(map[string]*Section)

		for _, entry := range input.Entries {
			normalized, err := NormalizeURL(entry.URL)
			if err != nil {
				malformed := &MalformedRecordError{Source: input.Source.ID, URL: entry.URL, Reason: err}
				result.Malformed = append(result.Malformed, malformed)
				limiter.log(logger, malformed)
				continue
			}

			line := Line{
				URL:     normalized.Display,
				Key:     normalized.Key,
				Name:    entry.Name,
				Entries: entry.Entries,
			}
			first, ok := seen[normalized.Key]
			local, repeated := localSeen[normalized.Key]
			switch {
			case input.Source.ID == LocalSourceID && !repeated:
				localSeen[normalized.Key] = seenEntry{source: LocalSourceID, order: order}
				line.Status = StatusActive
				line.OriginSourceID = input.Source.ID
				line.FirstSeenOrder = order
				if ok {
					line.OriginSourceID = first.source
					line.FirstSeenOrder = first.order
				} else {
					seen[normalized.Key] = seenEntry{source: input.Source.ID, order: order}
				}
			case repeated:
				line.Status = StatusCommentedDuplicate
				line.OriginSourceID = local.source
				line.FirstSeenOrder = local.order
			case ok:
				line.Status = StatusCommentedDuplicate
				line.OriginSourceID = first.source
				line.FirstSeenOrder = first.order
			default:
				line.Status = StatusActive
				if !entry.EnabledByDefault {
					line.Status = StatusCommentedDisabled
				}
				line.OriginSourceID = input.Source.ID
				line.FirstSeenOrder = order
				seen[normalized.Key] = seenEntry{source: input.Source.ID, order: order}
			}
			order++

			section, ok := byCategory[entry.CategoryCanonical]
			if !ok {
				section = &Section{
					SourceID: input.Source.ID,
					Category: entry.CategoryCanonical,
					Title:    input.Source.Name + ": " + entry.CategoryCanonical,
					Notes:    input.Source.Notes(),
				}
				byCategory[entry.CategoryCanonical] = section
				sections = append(sections, section)
			}
			section.Lines = append(section.Lines, line)
		}
		limiter.summary(logger, input.Source.ID)

		sort.SliceStable(sections, func(i, j int) bool {
			return categoryRank(rank, sections[i].Category) < categoryRank(rank, sections[j].Category)
		})
		for _, section := range sections {
			result.Document.Sections = append(result.Document.Sections, *section)
		}
	}
	return result
}

func categoryRank(rank map[string]int, category string) int {
	if r, ok := rank[category]; ok {
		return r
	}
	return len(rank)
}
