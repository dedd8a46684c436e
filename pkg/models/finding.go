package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FindingCategory classifies a finding's severity/type.
type FindingCategory string

const (
	FindingMinorDeviation  FindingCategory = "AG" // geringfügige Abweichung
	FindingMajorDeviation  FindingCategory = "AS" // schwerwiegende Abweichung
	FindingRecommendation  FindingCategory = "E"  // Empfehlung
	FindingNothingToReport FindingCategory = "OK"
)

// Valid reports whether c is one of the enumerated finding categories.
func (c FindingCategory) Valid() bool {
	switch c {
	case FindingMinorDeviation, FindingMajorDeviation, FindingRecommendation, FindingNothingToReport:
		return true
	default:
		return false
	}
}

// Finding is a single audit finding, collected centrally by the controller.
type Finding struct {
	ID               string          `json:"id"`
	Category         FindingCategory `json:"category"`
	Description      string          `json:"description"`
	Status           string          `json:"status,omitempty"`
	OriginatingStage string          `json:"originating_stage,omitempty"`
}

// findingIDPattern matches IDs like "AG-01", "AS-12", "E-07".
var findingIDPattern = regexp.MustCompile(`^([A-Z]+)-([0-9]+)$`)

// ParseFindingID splits a finding ID into its category and sequence number.
func ParseFindingID(id string) (FindingCategory, int, bool) {
	m := findingIDPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return FindingCategory(m[1]), n, true
}

// FormatFindingID renders a category and sequence number as e.g. "AG-03".
func FormatFindingID(category FindingCategory, seq int) string {
	return fmt.Sprintf("%s-%02d", category, seq)
}

// NormalizedDescription returns a description normalized for
// duplicate-detection: case-folded, whitespace-collapsed.
func NormalizedDescription(desc string) string {
	fields := strings.Fields(strings.ToLower(desc))
	return strings.Join(fields, " ")
}

// DuplicateKey returns the key used to detect duplicate findings across
// stages: (category, normalized description).
func (f Finding) DuplicateKey() string {
	return string(f.Category) + "|" + NormalizedDescription(f.Description)
}
