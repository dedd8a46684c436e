package models

import (
	"regexp"
	"time"
)

// Umsetzungsstatus is the implementation status of a requirement.
type Umsetzungsstatus string

const (
	StatusJa          Umsetzungsstatus = "Ja"
	StatusTeilweise   Umsetzungsstatus = "Teilweise"
	StatusNein        Umsetzungsstatus = "Nein"
	StatusEntbehrlich Umsetzungsstatus = "Entbehrlich"
)

// Valid reports whether s is one of the enumerated statuses.
func (s Umsetzungsstatus) Valid() bool {
	switch s {
	case StatusJa, StatusTeilweise, StatusNein, StatusEntbehrlich:
		return true
	default:
		return false
	}
}

// statusSeverity orders statuses from most to least severe for the
// duplicate-requirement merge rule: Nein > Teilweise > Ja > Entbehrlich.
var statusSeverity = map[Umsetzungsstatus]int{
	StatusNein:        4,
	StatusTeilweise:   3,
	StatusJa:          2,
	StatusEntbehrlich: 1,
}

// MoreSevere reports whether a is strictly more severe than b under the
// merge priority. Unknown statuses are treated as least severe.
func MoreSevere(a, b Umsetzungsstatus) bool {
	return statusSeverity[a] > statusSeverity[b]
}

// anforderungIDPattern matches BSI requirement identifiers such as
// "SYS.1.1.A3" or "ORP.2.A15".
var anforderungIDPattern = regexp.MustCompile(`^[A-Z]+(\.[0-9]+)+\.A[0-9]+$`)

// anforderungSuffixPattern strips the ".A<number>" suffix from a requirement
// ID to recover its baustein ID.
var anforderungSuffixPattern = regexp.MustCompile(`\.A[0-9]+$`)

// ValidAnforderungID reports whether id matches the BSI requirement-ID
// pattern `<baustein>.A<number>`.
func ValidAnforderungID(id string) bool {
	return anforderungIDPattern.MatchString(id)
}

// Requirement is one element of ExtractedRequirements, keyed uniquely by
// (ZielobjektKuerzel, AnforderungID) after merge.
type Requirement struct {
	ZielobjektKuerzel      string           `json:"zielobjekt_kuerzel"`
	AnforderungID          string           `json:"anforderung_id"`
	Titel                  string           `json:"titel"`
	Umsetzungsstatus       Umsetzungsstatus `json:"umsetzungsstatus"`
	Umsetzungserlaeuterung string           `json:"umsetzungserlaeuterung"`
	DatumLetztePruefung    *time.Time       `json:"datum_letzte_pruefung,omitempty"`
}

// Key returns the (ZielobjektKuerzel, AnforderungID) merge key.
func (r Requirement) Key() RequirementKey {
	return RequirementKey{Kuerzel: r.ZielobjektKuerzel, AnforderungID: r.AnforderungID}
}

// RequirementKey is the unique identity of a merged requirement.
type RequirementKey struct {
	Kuerzel       string
	AnforderungID string
}

// BausteinOf returns the baustein-ID prefix of an Anforderung-ID, i.e. the ID
// with its trailing ".A<number>" suffix stripped.
func (r Requirement) BausteinOf() string {
	loc := anforderungSuffixPattern.FindStringIndex(r.AnforderungID)
	if loc == nil {
		return r.AnforderungID
	}
	return r.AnforderungID[:loc[0]]
}
