package blocklist

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps one raw source category onto the canonical taxonomy.
type Rule struct {
	Source    string `yaml:"source"`
	Category  string `yaml:"category"`
	Canonical string `yaml:"canonical"`
	Enabled   bool   `yaml:"enabled"`
}

type ruleFile struct {
	Categories []string `yaml:"categories"`
	Rules      []Rule   `yaml:"rules"`
}

type ruleKey struct {
	source   string
	category string
}

// RuleTable is the loaded category policy. Rules keep their file order; the
// lookup index is keyed by the composite (source, raw category) pair.
type RuleTable struct {
	categories []string
	rank       map[string]int
	rules      []Rule
	index      map[ruleKey]int
}

// DefaultRules returns the embedded rule table.
func DefaultRules() (*RuleTable, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads a rule table from path, or the embedded table when path is
// empty.
func LoadRules(fs afero.Fs, path string) (*RuleTable, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	table, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return table, nil
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*RuleTable, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, errors.New("rule table declares no categories")
	}

	table := &RuleTable{
		categories: make([]string, 0, len(file.Categories)),
		rank:       make(map[string]int, len(file.Categories)),
		rules:      make([]Rule, 0, len(file.Rules)),
		index:      make(map[ruleKey]int, len(file.Rules)),
	}
	for _, category := range file.Categories {
		category = strings.TrimSpace(category)
		if category == "" {
			return nil, errors.New("empty canonical category")
		}
		if _, dup := table.rank[category]; dup {
			return nil, fmt.Errorf("duplicate canonical category %q", category)
		}
		table.rank[category] = len(table.categories)
		table.categories = append(table.categories, category)
	}

	for i, rule := range file.Rules {
		rule.Source = strings.ToLower(strings.TrimSpace(rule.Source))
		rule.Category = strings.TrimSpace(rule.Category)
		rule.Canonical = strings.TrimSpace(rule.Canonical)
		if rule.Source == "" || rule.Category == "" {
			return nil, fmt.Errorf("rule %d: source and category are required", i+1)
		}
		if _, ok := table.rank[rule.Canonical]; !ok {
			return nil, fmt.Errorf("rule %d (%s/%s): undeclared canonical category %q", i+1, rule.Source, rule.Category, rule.Canonical)
		}
		key := ruleKey{source: rule.Source, category: rule.Category}
		if _, dup := table.index[key]; dup {
			return nil, fmt.Errorf("rule %d: duplicate rule for %s/%s", i+1, rule.Source, rule.Category)
		}
		table.index[key] = len(table.rules)
		table.rules = append(table.rules, rule)
	}
	return table, nil
}

// Lookup returns the rule for a raw category of a source.
func (t *RuleTable) Lookup(source, category string) (Rule, error) {
	i, ok := t.index[ruleKey{source: source, category: category}]
	if !ok {
		return Rule{}, &UnmappedCategoryError{Source: source, Category: category}
	}
	return t.rules[i], nil
}

// Categories returns the canonical categories in declaration order.
func (t *RuleTable) Categories() []string {
	out := make([]string, len(t.categories))
	copy(out, t.categories)
	return out
}

// Rules returns all rules in file order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Normalize maps every record of an intermediate onto its canonical category.
// All unmapped categories are reported together and no entries are returned
// when any exist.
func (t *RuleTable) Normalize(in *Intermediate) ([]SourceEntry, error) {
	entries := make([]SourceEntry, 0, len(in.Records))
	var errs []error
	reported := make(map[string]bool)
	for _, record := range in.Records {
		rule, err := t.Lookup(in.Source, record.Category)
		if err != nil {
			if !reported[record.Category] {
				reported[record.Category] = true
				errs = append(errs, err)
			}
			continue
		}
		entries = append(entries, SourceEntry{
			SourceID:          in.Source,
			CategoryRaw:       record.Category,
			CategoryCanonical: rule.Canonical,
			Name:              record.Name,
			URL:               record.URL,
			Entries:           record.Entries,
			EnabledByDefault:  rule.Enabled,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entries, nil
}
