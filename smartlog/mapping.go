package smartlog

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultCategory is used when no mapping entry matches a call site.
const DefaultCategory = "app.default"

// MappingEntry maps a source path fragment to a category.
type MappingEntry struct {
	Pattern  string `json:"pattern" mapstructure:"pattern" validate:"required"`
	Category string `json:"category" mapstructure:"category" validate:"required"`
}

// CategoryMapping classifies call sites by source path. Entries are tried
// in order; the first whose pattern occurs in the path wins.
type CategoryMapping struct {
	Entries []MappingEntry `json:"entries" mapstructure:"entries"`
	Default string         `json:"default" mapstructure:"default"`
}

// DefaultMapping returns the built-in directory-to-category table.
func DefaultMapping() CategoryMapping {
	return CategoryMapping{
		Entries: []MappingEntry{
			{Pattern: "/ui/", Category: "app.ui"},
			{Pattern: "/network/", Category: "app.network"},
			{Pattern: "/database/", Category: "app.database"},
			{Pattern: "/plugin/", Category: "app.plugin"},
			{Pattern: "/core/", Category: "app.core"},
			{Pattern: "/models/", Category: "app.models"},
			{Pattern: "/backend/", Category: "app.backend"},
			{Pattern: "/services/", Category: "app.services"},
			{Pattern: "/utils/", Category: "app.utils"},
			{Pattern: "/tests/", Category: "app.tests"},
		},
		Default: DefaultCategory,
	}
}

// Detect returns the category for a source path. Backslashes are treated
// as forward slashes and matching ignores case. Entries with an empty
// pattern or category are skipped.
func (m CategoryMapping) Detect(path string) string {
	fold := cases.Fold()
	normalized := fold.String(strings.ReplaceAll(path, `\`, "/"))

	for _, e := range m.Entries {
		if e.Pattern == "" || e.Category == "" {
			continue
		}
		pattern := fold.String(strings.ReplaceAll(e.Pattern, `\`, "/"))
		if strings.Contains(normalized, pattern) {
			return e.Category
		}
	}
	return m.defaultCategory()
}

// Categories lists every category the mapping can produce, in table order
// with the default last.
func (m CategoryMapping) Categories() []string {
	seen := make(map[string]bool, len(m.Entries)+1)
	out := make([]string, 0, len(m.Entries)+1)
	for _, e := range m.Entries {
		if e.Category == "" || seen[e.Category] {
			continue
		}
		seen[e.Category] = true
		out = append(out, e.Category)
	}
	if def := m.defaultCategory(); !seen[def] {
		out = append(out, def)
	}
	return out
}

func (m CategoryMapping) defaultCategory() string {
	if m.Default == "" {
		return DefaultCategory
	}
	return m.Default
}
