package stages

import (
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// findingSchema builds the schema for a Finding the LLM is asked to emit.
// requireID is true only for extractions that must carry forward an
// existing ID (the previous-report scan); freshly raised findings get their
// ID assigned later by the controller.
func findingSchema(requireID bool) *schema.Schema {
	required := []string{"category", "description"}
	if requireID {
		required = append([]string{"id"}, required...)
	}
	return schema.Object(map[string]*schema.Schema{
		"id":          schema.String(),
		"category":    schema.String(string(models.FindingMinorDeviation), string(models.FindingMajorDeviation), string(models.FindingRecommendation), string(models.FindingNothingToReport)),
		"description": schema.String(),
		"status":      schema.String(),
	}, required...)
}

// attachDocuments converts document IDs already filtered by category into
// attached-document references, applying the test-mode document cap.
func attachDocuments(rc *RunContext, docIDs []string) []llm.AttachedDocument {
	docIDs = limitDocuments(rc.Config, docIDs)
	attached := make([]llm.AttachedDocument, 0, len(docIDs))
	for _, id := range docIDs {
		attached = append(attached, llm.AttachedDocument{Key: rc.Finder.GetDocumentPath(id), DisplayName: id})
	}
	return attached
}

// outputLanguage returns the configured narrative language, defaulting to
// German since every BSI Grundschutz document this pipeline consumes is
// German by convention.
func outputLanguage(rc *RunContext) string {
	if rc.Config.OutputLanguage != "" {
		return rc.Config.OutputLanguage
	}
	return "German"
}
