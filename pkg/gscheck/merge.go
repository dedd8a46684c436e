package gscheck

import (
	"regexp"
	"strings"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// MergeAndRefine groups extracted requirements by (zielobjekt_kürzel,
// anforderung_id) and reduces each group to one requirement under the
// field-merge rules below. Output order is deterministic: groups are
// emitted sorted by key.
func MergeAndRefine(raw []models.Requirement) []models.Requirement {
	type group struct {
		key   models.RequirementKey
		items []models.Requirement
	}
	order := make([]models.RequirementKey, 0)
	groups := make(map[models.RequirementKey]*group)

	for _, r := range raw {
		if !models.ValidAnforderungID(r.AnforderungID) {
			continue
		}
		k := r.Key()
		g, ok := groups[k]
		if !ok {
			g = &group{key: k}
			groups[k] = g
			order = append(order, k)
		}
		g.items = append(g.items, r)
	}

	out := make([]models.Requirement, 0, len(order))
	for _, k := range sortedKeys(order) {
		out = append(out, mergeGroup(groups[k].items))
	}
	return out
}

func sortedKeys(keys []models.RequirementKey) []models.RequirementKey {
	out := append([]models.RequirementKey(nil), keys...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if a.Kuerzel > b.Kuerzel || (a.Kuerzel == b.Kuerzel && a.AnforderungID > b.AnforderungID) {
				out[j-1], out[j] = out[j], out[j-1]
			} else {
				break
			}
		}
	}
	return out
}

func mergeGroup(items []models.Requirement) models.Requirement {
	merged := models.Requirement{
		ZielobjektKuerzel: items[0].ZielobjektKuerzel,
		AnforderungID:     items[0].AnforderungID,
	}

	for _, it := range items {
		if len(it.Titel) > len(merged.Titel) {
			merged.Titel = it.Titel
		}
		if merged.Umsetzungsstatus == "" || models.MoreSevere(it.Umsetzungsstatus, merged.Umsetzungsstatus) {
			merged.Umsetzungsstatus = it.Umsetzungsstatus
		}
	}

	merged.Umsetzungserlaeuterung = mergeUniqueSentences(items)
	merged.DatumLetztePruefung = mostRecentDate(items)
	return merged
}

var sentenceSplit = regexp.MustCompile(`(?s)([^.!?]+[.!?]*)`)

// mergeUniqueSentences concatenates unique sentences from every version's
// explanation, preserving source order, with case-insensitive,
// whitespace-normalized equality.
func mergeUniqueSentences(items []models.Requirement) string {
	seen := make(map[string]bool)
	var kept []string
	for _, it := range items {
		for _, sentence := range sentenceSplit.FindAllString(it.Umsetzungserlaeuterung, -1) {
			trimmed := strings.TrimSpace(sentence)
			if trimmed == "" {
				continue
			}
			norm := normalize(trimmed)
			if seen[norm] {
				continue
			}
			seen[norm] = true
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

// mostRecentDate returns the most recent valid date among items, or nil if
// none is valid.
func mostRecentDate(items []models.Requirement) *time.Time {
	var latest *time.Time
	for _, it := range items {
		if it.DatumLetztePruefung == nil {
			continue
		}
		if latest == nil || it.DatumLetztePruefung.After(*latest) {
			t := *it.DatumLetztePruefung
			latest = &t
		}
	}
	return latest
}

// parseISODate parses an ISO-8601 date (YYYY-MM-DD), returning ok=false for
// an empty or malformed string rather than an error: an absent or invalid
// date is a valid state for datum_letzte_pruefung.
func parseISODate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
