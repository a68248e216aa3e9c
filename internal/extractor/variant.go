package extractor

import "strings"

// VariantFilter rejects product names containing any configured keyword.
// Matching is a case-sensitive substring test, so "Petit Royales" also
// rejects "Petit Royalesque".
type VariantFilter struct {
	keywords []string
}

func NewVariantFilter(keywords []string) *VariantFilter {
	kept := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k != "" {
			kept = append(kept, k)
		}
	}
	return &VariantFilter{keywords: kept}
}

// DefaultVariantKeywords are the small formats excluded from the catalog.
func DefaultVariantKeywords() []string {
	return []string{
		"Cigarillo",
		"cigarillos",
		"Mini",
		"Puros",
		"Purito",
		"Puritos",
		"Minutos",
		"Panatella",
		"Panatela",
		"Panetela",
		"Panetelas",
		"Coronita",
		"Short",
		"Shorts",
		"Petit Royales",
		"Senoritas",
	}
}

// Match returns the first keyword contained in name.
func (f *VariantFilter) Match(name string) (string, bool) {
	for _, k := range f.keywords {
		if strings.Contains(name, k) {
			return k, true
		}
	}
	return "", false
}

func (f *VariantFilter) Rejects(name string) bool {
	_, ok := f.Match(name)
	return ok
}
