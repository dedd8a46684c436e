package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/groundtruth"
	"github.com/bsi-grundschutz/auditpilot/pkg/gscheck"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// GsCheckExtractionResultKey is the stage-result key this runner's
// ChapterResult is written to. It is distinct from gscheck.MergedKey (the
// Extractor's own intermediate artifact) so the two writers never collide.
const GsCheckExtractionResultKey = "results/gs_check_extraction_result.json"

// gsCheckResultContent is the shape GsCheckExtractionRunner writes: the
// merged requirements plus the Phase E analysis and finding, so Chapter 3's
// subchapter 3.6.1 task can read this stage's output instead of re-running
// the extractor.
type gsCheckResultContent struct {
	Requirements []models.Requirement    `json:"requirements"`
	Warnings     []string                `json:"warnings,omitempty"`
	Analysis     *gscheck.AnalysisResult `json:"analysis"`
	Findings     []models.Finding        `json:"findings"`
}

// GsCheckExtractionRunner wraps gscheck.Extractor (Phases A-E) as a
// StageRunner. It depends on the ground-truth map.
type GsCheckExtractionRunner struct{}

func NewGsCheckExtractionRunner() *GsCheckExtractionRunner { return &GsCheckExtractionRunner{} }

func (r *GsCheckExtractionRunner) Name() models.StageName { return models.StageGsCheckExtraction }

func (r *GsCheckExtractionRunner) OutputKey() string { return GsCheckExtractionResultKey }

func (r *GsCheckExtractionRunner) Prerequisites() []models.StageName {
	return []models.StageName{models.StageGroundTruthMap}
}

func (r *GsCheckExtractionRunner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	var structure models.SystemStructureMap
	if err := rc.Store.ReadJSON(ctx, groundtruth.MapKey, &structure); err != nil {
		return nil, fmt.Errorf("%w: gs-check-extraction: system structure map: %v", ErrMissingPrerequisite, err)
	}

	requirements, warnings, err := rc.Extractor.Run(ctx, &structure, rc.Force)
	if err != nil {
		return nil, fmt.Errorf("gs-check-extraction: %w", err)
	}

	analysis, finding, err := rc.Extractor.RunAnalysisForMerged(ctx, rc.Catalog, rc.RunDate)
	if err != nil {
		return nil, fmt.Errorf("gs-check-extraction: phase E analysis: %w", err)
	}

	content, err := json.Marshal(gsCheckResultContent{
		Requirements: requirements,
		Warnings:     warnings,
		Analysis:     analysis,
		Findings:     []models.Finding{finding},
	})
	if err != nil {
		return nil, fmt.Errorf("gs-check-extraction: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
