package blocklist

import "fmt"

// Synthetic source identifiers.
const (
	BaselineSourceID = "baseline"
	LocalSourceID    = "local"
)

// Canonical categories of the synthetic sources. They are fixed and never
// looked up in the rule table.
const (
	BaselineCategory = "Baseline"
	LocalCategory    = "LocalAdditions"
)

// SourceDefinition describes a publisher known to the generator.
type SourceDefinition struct {
	ID       string
	Name     string
	Homepage string
	License  string
	Note     string
}

// Notes returns the banner annotation lines of the source.
func (d SourceDefinition) Notes() []string {
	notes := make([]string, 0, 3)
	if d.Homepage != "" {
		notes = append(notes, "Source: "+d.Homepage)
	}
	if d.License != "" {
		notes = append(notes, "License: "+d.License)
	}
	if d.Note != "" {
		notes = append(notes, "Note: "+d.Note)
	}
	return notes
}

// Catalog lists every source in default priority order, synthetic sources at
// both ends.
var Catalog = []SourceDefinition{
	{
		ID:       BaselineSourceID,
		Name:     "DNSCrypt Default",
		Homepage: "https://github.com/DNSCrypt/dnscrypt-proxy/tree/master/utils/generate-domains-blocklist",
		Note:     "Official domains-blocklist.conf shipped with dnscrypt-proxy",
	},
	{
		ID:       "rethinkdns",
		Name:     "RethinkDNS",
		Homepage: "https://rethinkdns.com/configure",
		License:  "Mozilla Public License Version 2.0",
	},
	{
		ID:       "shadowwhisperer",
		Name:     "ShadowWhisperer",
		Homepage: "https://github.com/ShadowWhisperer/BlockLists",
		Note:     "Direct categorized blocklists from ShadowWhisperer",
	},
	{
		ID:       "nextdns",
		Name:     "NextDNS",
		Homepage: "https://github.com/nextdns/blocklists",
	},
	{
		ID:       "frogeye",
		Name:     "Geoffrey Frogeye",
		Homepage: "https://hostfiles.frogeye.fr/",
	},
	{
		ID:       "firebog",
		Name:     "The Firebog",
		Homepage: "https://v.firebog.net/",
		Note:     "Only using curated lists hosted directly at v.firebog.net",
	},
	{
		ID:       "yokoffing",
		Name:     "yokoffing",
		Homepage: "https://github.com/yokoffing/filterlists",
	},
	{
		ID:   LocalSourceID,
		Name: "Local Additions",
	},
}

// DefaultSourceOrder is the priority order of the publisher sources.
var DefaultSourceOrder = []string{"rethinkdns", "shadowwhisperer", "nextdns", "frogeye", "firebog", "yokoffing"}

// LookupSource returns the catalog definition for id.
func LookupSource(id string) (SourceDefinition, bool) {
	for _, def := range Catalog {
		if def.ID == id {
			return def, true
		}
	}
	return SourceDefinition{}, false
}

// IsPublisher reports whether id names a fetched, rule-mapped source.
func IsPublisher(id string) bool {
	if id == BaselineSourceID || id == LocalSourceID {
		return false
	}
	_, ok := LookupSource(id)
	return ok
}

// ValidateSourceOrder checks a configured priority order. An empty order is
// valid and leaves only the synthetic sources.
func ValidateSourceOrder(order []string) error {
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !IsPublisher(id) {
			return fmt.Errorf("unknown source %q", id)
		}
		if seen[id] {
			return fmt.Errorf("duplicate source %q", id)
		}
		seen[id] = true
	}
	return nil
}

func sourceDefinition(id string) SourceDefinition {
	if def, ok := LookupSource(id); ok {
		return def
	}
	return SourceDefinition{ID: id, Name: id}
}
