package assembler

import (
	"sort"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// findingsTables is the populated content of subchapter 7.2: one ordered
// table per category.
type findingsTables struct {
	MinorDeviations []models.Finding `json:"minor_deviations"` // AG
	MajorDeviations []models.Finding `json:"major_deviations"` // AS
	Recommendations []models.Finding `json:"recommendations"`  // E
}

// buildFindingsTables filters findings into their category table and orders
// each table by ID within category. A finding without a parseable ID sorts
// after every finding that has one, in the order it was encountered.
func buildFindingsTables(findings []models.Finding) findingsTables {
	var tables findingsTables
	for _, f := range findings {
		switch f.Category {
		case models.FindingMinorDeviation:
			tables.MinorDeviations = append(tables.MinorDeviations, f)
		case models.FindingMajorDeviation:
			tables.MajorDeviations = append(tables.MajorDeviations, f)
		case models.FindingRecommendation:
			tables.Recommendations = append(tables.Recommendations, f)
		}
	}
	sortByID(tables.MinorDeviations)
	sortByID(tables.MajorDeviations)
	sortByID(tables.Recommendations)
	return tables
}

func sortByID(findings []models.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		_, seqI, okI := models.ParseFindingID(findings[i].ID)
		_, seqJ, okJ := models.ParseFindingID(findings[j].ID)
		if okI && okJ {
			return seqI < seqJ
		}
		return okI && !okJ
	})
}
