package models

import "strings"

// Informationsverbund is the synthetic Zielobjekt representing the overall
// scope of the audit. Bausteins whose prefix is in InformationsverbundPrefixes
// are always assigned to it, regardless of what the Modellierung document says.
const Informationsverbund = "Informationsverbund"

// InformationsverbundPrefixes lists the baustein-ID prefixes that are
// deterministically assigned to the overall scope rather than a concrete
// Zielobjekt.
var InformationsverbundPrefixes = []string{"ISMS", "ORP", "CON", "OPS", "DER"}

// HasInformationsverbundPrefix reports whether bausteinID's dotted prefix
// (the segment before the first '.') is one of InformationsverbundPrefixes.
func HasInformationsverbundPrefix(bausteinID string) bool {
	prefix := bausteinID
	if idx := strings.IndexByte(bausteinID, '.'); idx >= 0 {
		prefix = bausteinID[:idx]
	}
	for _, p := range InformationsverbundPrefixes {
		if prefix == p {
			return true
		}
	}
	return false
}

// Zielobjekt is a target object in the customer's environment.
type Zielobjekt struct {
	Kuerzel string `json:"kuerzel"`
	Name    string `json:"name"`
}

// BausteinAssignment maps a baustein to the Zielobjekt it is modeled on.
type BausteinAssignment struct {
	BausteinID string `json:"baustein_id"`
	Kuerzel    string `json:"kuerzel"`
}

// SystemStructureMap is the serialized form of `system_structure_map.json`.
type SystemStructureMap struct {
	Zielobjekte         []Zielobjekt         `json:"zielobjekte"`
	BausteinAssignments []BausteinAssignment `json:"baustein_assignments"`
}

// KnownKuerzel reports whether kuerzel names a Zielobjekt in the map
// (including the synthetic Informationsverbund, which is always present).
func (m *SystemStructureMap) KnownKuerzel(kuerzel string) bool {
	if kuerzel == Informationsverbund {
		return true
	}
	for _, z := range m.Zielobjekte {
		if z.Kuerzel == kuerzel {
			return true
		}
	}
	return false
}

// ZielobjektNamed returns the Zielobjekt with the given kürzel and whether it
// was found. It does not synthesize Informationsverbund.
func (m *SystemStructureMap) ZielobjektNamed(kuerzel string) (Zielobjekt, bool) {
	for _, z := range m.Zielobjekte {
		if z.Kuerzel == kuerzel {
			return z, true
		}
	}
	return Zielobjekt{}, false
}
