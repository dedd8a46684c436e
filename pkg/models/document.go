// Package models holds the plain data types shared across the audit
// pipeline. None of these types carry persistence or transport concerns —
// they are decoded from and encoded to JSON at the object-store boundary by
// the packages that own each artifact.
package models

import "sort"

// Category is a BSI document category. Every source document is classified
// into exactly one category.
type Category string

const (
	CategoryStrukturanalyse      Category = "Strukturanalyse"
	CategoryModellierung         Category = "Modellierung"
	CategoryNetzplan             Category = "Netzplan"
	CategorySicherheitsleitlinie Category = "Sicherheitsleitlinie"
	CategoryGrundschutzCheck     Category = "Grundschutz-Check"
	CategoryRisikoanalyse        Category = "Risikoanalyse"
	CategoryRealisierungsplan    Category = "Realisierungsplan"
	CategoryVorherigerAudit      Category = "Vorheriger-Auditbericht"
	CategorySonstiges            Category = "Sonstiges"
)

// Valid reports whether c is one of the enumerated BSI categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryStrukturanalyse, CategoryModellierung, CategoryNetzplan,
		CategorySicherheitsleitlinie, CategoryGrundschutzCheck,
		CategoryRisikoanalyse, CategoryRealisierungsplan,
		CategoryVorherigerAudit, CategorySonstiges:
		return true
	default:
		return false
	}
}

// DocumentClassification is one entry of the persisted document map.
type DocumentClassification struct {
	Filename string   `json:"filename"`
	Category Category `json:"category"`
}

// DocumentMap is the serialized form of `document_map.json`.
type DocumentMap struct {
	Documents []DocumentClassification `json:"documents"`
	Version   int                      `json:"version"`
}

// CategoriesOf returns the ordered, deduplicated set of document IDs
// classified under any of the given categories. Order is deterministic:
// documents are sorted lexicographically within a category, and categories
// are visited in the order given by the caller.
func (m *DocumentMap) CategoriesOf(categories ...Category) []string {
	want := make(map[Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	byCategory := make(map[Category][]string)
	for _, d := range m.Documents {
		if want[d.Category] {
			byCategory[d.Category] = append(byCategory[d.Category], d.Filename)
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range categories {
		docs := byCategory[c]
		sort.Strings(docs)
		for _, d := range docs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
