package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Chapter1Key is the object-store key Chapter 1's result is persisted under.
const Chapter1Key = "results/Chapter-1.json"

// chapter1Subchapter is one entry of the Chapter 1 template. Automated
// subchapters are drafted from the source documents; manual ones (e.g.
// auditor/team logistics, not derivable from any document) are written as
// placeholders for the human editor.
type chapter1Subchapter struct {
	Key       string
	Title     string
	Automated bool
}

var chapter1Template = []chapter1Subchapter{
	{Key: "1.1", Title: "Anlass und Gegenstand der Auditierung", Automated: true},
	{Key: "1.2", Title: "Kurzdarstellung des Informationsverbunds", Automated: true},
	{Key: "1.3", Title: "Auditteam, Zeitraum und Vor-Ort-Termine", Automated: false},
}

type chapter1SubchapterResult struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Content     string `json:"content,omitempty"`
	Placeholder bool   `json:"placeholder"`
}

type chapter1Content struct {
	Subchapters []chapter1SubchapterResult `json:"subchapters"`
}

func chapter1GenerationSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"content": schema.String(),
	}, "content")
}

type chapter1GenerationResponse struct {
	Content string `json:"content"`
}

// Chapter1Runner drafts the introductory chapter. It has no hard DAG
// prerequisites: it reads source documents directly through the finder and,
// if present, the carried-forward context from the previous-report scan.
type Chapter1Runner struct{}

func NewChapter1Runner() *Chapter1Runner { return &Chapter1Runner{} }

func (r *Chapter1Runner) Name() models.StageName { return models.StageChapter1 }

func (r *Chapter1Runner) OutputKey() string { return Chapter1Key }

func (r *Chapter1Runner) Prerequisites() []models.StageName { return nil }

func (r *Chapter1Runner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	var previousContext string
	var scan scanReportContent
	if err := rc.Store.ReadJSON(ctx, ScanReportKey, &scan); err == nil {
		previousContext = scan.Chapter1Context
	}

	docIDs, err := rc.Finder.GetDocumentsForCategories(ctx,
		models.CategoryStrukturanalyse, models.CategorySicherheitsleitlinie)
	if err != nil {
		return nil, fmt.Errorf("chapter-1: %w", err)
	}
	attached := attachDocuments(rc, docIDs)

	results := make([]chapter1SubchapterResult, 0, len(chapter1Template))
	for _, sub := range chapter1Template {
		if !sub.Automated {
			results = append(results, chapter1SubchapterResult{Key: sub.Key, Title: sub.Title, Placeholder: true})
			continue
		}

		prompt := fmt.Sprintf(
			"Draft subchapter %s (%q) of a BSI Grundschutz audit report's chapter 1, in %s. Base it on the attached documents.",
			sub.Key, sub.Title, outputLanguage(rc))
		if previousContext != "" {
			prompt += " For continuity, the previous audit report's chapter 1 said: " + previousContext
		}

		var resp chapter1GenerationResponse
		if err := rc.Client.GenerateStructured(ctx, llm.GenerateRequest{
			Prompt:            prompt,
			Schema:            chapter1GenerationSchema(),
			AttachedDocuments: attached,
		}, &resp); err != nil {
			results = append(results, chapter1SubchapterResult{
				Key: sub.Key, Title: sub.Title, Placeholder: true,
				Content: fmt.Sprintf("generation failed: %v", err),
			})
			continue
		}
		results = append(results, chapter1SubchapterResult{Key: sub.Key, Title: sub.Title, Content: resp.Content})
	}

	content, err := json.Marshal(chapter1Content{Subchapters: results})
	if err != nil {
		return nil, fmt.Errorf("chapter-1: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
