package blocklist

// Status describes how a merged line is emitted.
type Status int

const (
	StatusActive Status = iota
	StatusCommentedDuplicate
	StatusCommentedDisabled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusCommentedDuplicate:
		return "duplicate"
	case StatusCommentedDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// SourceEntry is a single categorized list URL published by a source.
type SourceEntry struct {
	SourceID          string
	CategoryRaw       string
	CategoryCanonical string
	Name              string
	URL               string
	// Entries is the domain count reported by the publisher, 0 when unknown.
	Entries          int
	EnabledByDefault bool
}

// Line is one emitted entry of a merged document.
type Line struct {
	URL     string
	Key     string
	Name    string
	Entries int
	Status  Status
	// OriginSourceID is the source that first contributed the URL. For
	// duplicates it differs from the section's source unless the URL repeats
	// inside the same source.
	OriginSourceID string
	// FirstSeenOrder is the global processing index of the first occurrence.
	FirstSeenOrder int
}

// Section groups the lines of one (source, canonical category) pair.
type Section struct {
	SourceID string
	Category string
	Title    string
	Notes    []string
	Lines    []Line
}

// MergedDocument is the ordered result of a merge.
type MergedDocument struct {
	Sections []Section
}

// Counts tallies lines by status.
func (d *MergedDocument) Counts() (active, disabled, duplicates int) {
	if d == nil {
		return 0, 0, 0
	}
	for _, section := range d.Sections {
		for _, line := range section.Lines {
			switch line.Status {
			case StatusActive:
				active++
			case StatusCommentedDisabled:
				disabled++
			case StatusCommentedDuplicate:
				duplicates++
			}
		}
	}
	return active, disabled, duplicates
}

// LineCount returns the number of lines across all sections.
func (d *MergedDocument) LineCount() int {
	active, disabled, duplicates := d.Counts()
	return active + disabled + duplicates
}
