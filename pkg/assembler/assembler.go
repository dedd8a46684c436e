// Package assembler implements the Report Assembler: the strictly
// deterministic final stage that merges every chapter result and the
// central findings log into the populated report blueprint. It must never
// call the LLM or the Document Finder; this is enforced structurally by not
// importing pkg/llm or pkg/docfinder anywhere in this package.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

// Assembler merges stage outputs into the final report.
type Assembler struct {
	store objectstore.Store
}

// New builds an Assembler over store.
func New(store objectstore.Store) *Assembler {
	return &Assembler{store: store}
}

// Assemble reads every chapter result the blueprint references plus
// all_findings.json, fills the blueprint's slots, and writes
// final_audit_report.json atomically. A missing chapter result or an
// unresolvable slot path is logged as a structured warning and the slot is
// left unset rather than aborting assembly — the run summary from
// pkg/controller already tells the operator which stages did not complete.
func (a *Assembler) Assemble(ctx context.Context, blueprint *models.ReportBlueprint) error {
	if blueprint == nil {
		blueprint = DefaultBlueprint()
	}

	contentCache := make(map[string]any)
	report := make(map[string]any)
	report["title"] = blueprint.Title

	for _, slot := range blueprint.Slots {
		content, err := a.loadContent(ctx, contentCache, slot.SourceKey)
		if err != nil {
			slog.Warn("assembler: chapter result unavailable, skipping slot",
				"source_key", slot.SourceKey, "target_path", slot.TargetPath, "error", err)
			continue
		}

		value, ok := navigate(content, slot.SourcePath)
		if !ok {
			slog.Warn("assembler: blueprint slot not found in chapter result",
				"source_key", slot.SourceKey, "source_path", slot.SourcePath, "target_path", slot.TargetPath)
			continue
		}

		setNested(report, slot.TargetPath, value)
	}

	findings, err := a.loadFindings(ctx)
	if err != nil {
		slog.Warn("assembler: all_findings.json unavailable, chapter 7.2 will be empty", "error", err)
		findings = nil
	}
	setNested(report, "chapter7.findings_tables", buildFindingsTables(findings))

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("assembler: marshalling final report: %w", err)
	}
	if err := a.store.UploadAtomic(ctx, FinalReportKey, body); err != nil {
		return fmt.Errorf("assembler: writing %s: %w", FinalReportKey, err)
	}
	return nil
}

func (a *Assembler) loadContent(ctx context.Context, cache map[string]any, key string) (any, error) {
	if v, ok := cache[key]; ok {
		return v, nil
	}
	var raw json.RawMessage
	if err := a.store.ReadJSON(ctx, key, &raw); err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	cache[key] = v
	return v, nil
}

func (a *Assembler) loadFindings(ctx context.Context) ([]models.Finding, error) {
	var findings []models.Finding
	if err := a.store.ReadJSON(ctx, AllFindingsKey, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

// navigate walks a dot-separated path through a JSON value decoded as
// map[string]any/[]any/scalars, returning the value at path and whether it
// was found.
func navigate(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	cur := v
	for _, segment := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// setNested writes value into tree at a dot-separated path, creating
// intermediate maps as needed.
func setNested(tree map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	cur := tree
	for _, segment := range segments[:len(segments)-1] {
		next, ok := cur[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[segment] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = value
}
