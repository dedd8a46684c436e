package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/groundtruth"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// GroundTruthMapRunner wraps groundtruth.Mapper as a StageRunner. It is the
// second stage of the DAG and has no prerequisites beyond what the Document
// Finder itself enforces on first use.
type GroundTruthMapRunner struct{}

func NewGroundTruthMapRunner() *GroundTruthMapRunner { return &GroundTruthMapRunner{} }

func (r *GroundTruthMapRunner) Name() models.StageName { return models.StageGroundTruthMap }

func (r *GroundTruthMapRunner) OutputKey() string { return groundtruth.MapKey }

func (r *GroundTruthMapRunner) Prerequisites() []models.StageName { return nil }

func (r *GroundTruthMapRunner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	structure, err := rc.Mapper.Build(ctx, rc.Force)
	if err != nil {
		return nil, fmt.Errorf("ground-truth-map: %w", err)
	}
	content, err := json.Marshal(structure)
	if err != nil {
		return nil, fmt.Errorf("ground-truth-map: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
