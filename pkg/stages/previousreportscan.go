package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// ScanReportKey is the object-store key the previous-report scan writes to.
const ScanReportKey = "scan_report.json"

// scanReportContent is the persisted shape of scan_report.json.
type scanReportContent struct {
	Chapter1Context string           `json:"chapter1_context"`
	Chapter4Context string           `json:"chapter4_context"`
	Findings        []models.Finding `json:"findings"`
}

func chapterContextSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"summary": schema.String(),
	}, "summary")
}

type chapterContextResponse struct {
	Summary string `json:"summary"`
}

func chapter72Schema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"findings": schema.Array(findingSchema(true), 0, 0),
	}, "findings")
}

type chapter72Response struct {
	Findings []models.Finding `json:"findings"`
}

// PreviousReportScanRunner ingests a previously issued audit report, when
// one is classified, so its Chapter 1/4 narrative context and Chapter 7.2
// findings (with their original IDs) carry forward into this run. It has no
// DAG prerequisites; its precondition is purely "a Vorheriger-Auditbericht
// document exists", checked in Generate.
type PreviousReportScanRunner struct{}

func NewPreviousReportScanRunner() *PreviousReportScanRunner { return &PreviousReportScanRunner{} }

func (r *PreviousReportScanRunner) Name() models.StageName { return models.StagePreviousReportScan }

func (r *PreviousReportScanRunner) OutputKey() string { return ScanReportKey }

func (r *PreviousReportScanRunner) Prerequisites() []models.StageName { return nil }

func (r *PreviousReportScanRunner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	docIDs, err := rc.Finder.GetDocumentsForCategories(ctx, models.CategoryVorherigerAudit)
	if err != nil {
		return nil, fmt.Errorf("previous-report-scan: %w", err)
	}
	if len(docIDs) == 0 {
		return nil, ErrOptionalStageSkipped
	}
	documentKey := rc.Finder.GetDocumentPath(docIDs[0])
	attached := []llm.AttachedDocument{{Key: documentKey, DisplayName: "Vorheriger-Auditbericht"}}

	var chapter1, chapter4 chapterContextResponse
	var chapter72 chapter72Response

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rc.Client.GenerateStructured(gctx, llm.GenerateRequest{
			Prompt:            "Summarize chapter 1 (introduction and scope) of the attached previous audit report, in a few sentences suitable as context for drafting a new report's chapter 1.",
			Schema:            chapterContextSchema(),
			AttachedDocuments: attached,
		}, &chapter1)
	})
	g.Go(func() error {
		return rc.Client.GenerateStructured(gctx, llm.GenerateRequest{
			Prompt:            "Summarize the audit-plan context (chapter 4) of the attached previous audit report: which Bausteine and Zielobjekte were audited, and any commitments made for this audit cycle.",
			Schema:            chapterContextSchema(),
			AttachedDocuments: attached,
		}, &chapter4)
	})
	g.Go(func() error {
		return rc.Client.GenerateStructured(gctx, llm.GenerateRequest{
			Prompt:            "Extract every finding listed in chapter 7.2 of the attached previous audit report. Preserve each finding's original ID exactly as printed (e.g. \"AG-03\"), its category (AG, AS, E, or OK), its description, and its resolution status if stated.",
			Schema:            chapter72Schema(),
			AttachedDocuments: attached,
		}, &chapter72)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("previous-report-scan: %w", err)
	}

	for i := range chapter72.Findings {
		chapter72.Findings[i].OriginatingStage = string(r.Name())
	}

	content, err := json.Marshal(scanReportContent{
		Chapter1Context: chapter1.Summary,
		Chapter4Context: chapter4.Summary,
		Findings:        chapter72.Findings,
	})
	if err != nil {
		return nil, fmt.Errorf("previous-report-scan: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
