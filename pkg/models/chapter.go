package models

import "encoding/json"

// StageName identifies one of the fixed stages in the audit DAG.
type StageName string

const (
	StagePreviousReportScan StageName = "previous-report-scan"
	StageGroundTruthMap     StageName = "ground-truth-map"
	StageGsCheckExtraction  StageName = "gs-check-extraction"
	StageChapter4Cert       StageName = "chapter-4-cert"
	StageChapter4Surv1      StageName = "chapter-4-surv1"
	StageChapter4Surv2      StageName = "chapter-4-surv2"
	StageChapter1           StageName = "chapter-1"
	StageChapter3           StageName = "chapter-3"
	StageChapter5           StageName = "chapter-5"
	StageChapter7           StageName = "chapter-7"
)

// ChapterResult is the opaque, blueprint-shaped JSON output of one stage.
// Findings a stage places under the top-level "findings" key of Content are
// read out by the controller via ExtractEmbeddedFindings and appended to the
// central findings log; Content itself is persisted unchanged, findings
// included.
type ChapterResult struct {
	Stage   StageName       `json:"stage"`
	Content json.RawMessage `json:"content"`
}

// embeddedFindingsHolder is the shape a stage's Content must expose findings
// in, under the well-known "findings" key, for the controller to pick them up.
type embeddedFindingsHolder struct {
	Findings []Finding `json:"findings,omitempty"`
}

// ExtractEmbeddedFindings returns any Finding objects embedded in the
// chapter's content under a top-level "findings" key. A chapter result with
// no such key yields an empty slice, not an error.
func ExtractEmbeddedFindings(result *ChapterResult) ([]Finding, error) {
	if len(result.Content) == 0 {
		return nil, nil
	}
	var holder embeddedFindingsHolder
	if err := json.Unmarshal(result.Content, &holder); err != nil {
		return nil, err
	}
	return holder.Findings, nil
}

// RunSummary is the end-of-run status report across all stages.
type RunSummary struct {
	Stages []StageStatus `json:"stages"`
}

// StageStatus is the terminal status of a single stage within a run.
type StageStatus struct {
	Stage   StageName `json:"stage"`
	Status  string    `json:"status"` // "completed", "skipped", "failed"
	Message string    `json:"message,omitempty"`
}
