package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Chapter7Key is the object-store key Chapter 7's result is persisted
// under. Only subchapter 7.1 is produced here; 7.2 (the findings tables) is
// populated directly by the assembler from all_findings.json, since it
// needs the controller's final, de-duplicated, ID-assigned list rather
// than any single stage's view.
const Chapter7Key = "results/Chapter-7.json"

type chapter7Content struct {
	SourceDocuments []models.DocumentClassification `json:"source_documents"`
}

// Chapter7Runner produces subchapter 7.1, the deterministic listing of
// every source document and its classified category.
type Chapter7Runner struct{}

func NewChapter7Runner() *Chapter7Runner { return &Chapter7Runner{} }

func (r *Chapter7Runner) Name() models.StageName { return models.StageChapter7 }

func (r *Chapter7Runner) OutputKey() string { return Chapter7Key }

func (r *Chapter7Runner) Prerequisites() []models.StageName { return nil }

func (r *Chapter7Runner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	docs, err := rc.Finder.AllClassifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("chapter-7: %w", err)
	}

	content, err := json.Marshal(chapter7Content{SourceDocuments: docs})
	if err != nil {
		return nil, fmt.Errorf("chapter-7: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
