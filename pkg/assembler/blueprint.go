package assembler

import "github.com/bsi-grundschutz/auditpilot/pkg/models"

// Object-store keys of the stage results the default blueprint draws from.
// These duplicate the literal values pkg/stages defines as
// Chapter{1,3,4,5,7}Key: the assembler package deliberately does not import
// pkg/stages, since pkg/stages pulls in pkg/llm and pkg/docfinder, and the
// assembler must stay structurally incapable of calling either.
const (
	chapter1ResultKey = "results/Chapter-1.json"
	chapter3ResultKey = "results/Chapter-3.json"
	chapter4ResultKey = "results/Chapter-4.json"
	chapter5ResultKey = "results/Chapter-5.json"
	chapter7ResultKey = "results/Chapter-7.json"

	// AllFindingsKey duplicates pkg/controller.AllFindingsKey for the same
	// reason as the chapter result keys above.
	AllFindingsKey = "results/all_findings.json"

	// FinalReportKey is the object-store key the assembled report is
	// written to.
	FinalReportKey = "final_audit_report.json"
)

// DefaultBlueprint is the fixed report template: one slot per chapter
// section, each naming the chapter result it draws from and the path
// inside that result's JSON. Chapter 7.2 (the findings tables) is not a
// slot here — Assemble populates it directly from all_findings.json, since
// it needs the de-duplicated, ID-assigned list rather than any single
// chapter result.
func DefaultBlueprint() *models.ReportBlueprint {
	return &models.ReportBlueprint{
		Title: "BSI IT-Grundschutz Audit Report",
		Slots: []models.BlueprintSlot{
			{TargetPath: "chapter1.subchapters", SourceKey: chapter1ResultKey, SourcePath: "subchapters"},

			{TargetPath: "chapter3.subchapters", SourceKey: chapter3ResultKey, SourcePath: "subchapters"},

			{TargetPath: "chapter4.selections", SourceKey: chapter4ResultKey, SourcePath: "selections"},
			{TargetPath: "chapter4.narrative", SourceKey: chapter4ResultKey, SourcePath: "narrative"},

			{TargetPath: "chapter5.entries", SourceKey: chapter5ResultKey, SourcePath: "entries"},

			{TargetPath: "chapter7.source_documents", SourceKey: chapter7ResultKey, SourcePath: "source_documents"},
		},
	}
}
