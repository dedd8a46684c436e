package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/gscheck"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Chapter5Key is the object-store key Chapter 5's result is persisted under.
const Chapter5Key = "results/Chapter-5.json"

// checklistEntry is one row of the Chapter 5 per-control checklist.
type checklistEntry struct {
	BausteinID             string                  `json:"baustein_id"`
	ZielobjektKuerzel      string                  `json:"zielobjekt_kuerzel"`
	AnforderungID          string                  `json:"anforderung_id,omitempty"`
	Titel                  string                  `json:"titel,omitempty"`
	Umsetzungsstatus       models.Umsetzungsstatus `json:"umsetzungsstatus,omitempty"`
	Umsetzungserlaeuterung string                  `json:"umsetzungserlaeuterung,omitempty"`
	Missing                bool                    `json:"missing"`
}

type chapter5Content struct {
	Entries  []checklistEntry `json:"entries"`
	Findings []models.Finding `json:"findings,omitempty"`
}

// Chapter5Runner is strictly deterministic: it never calls the LLM, only
// cross-references the chapter-4 audit plan against the BSI catalog and
// the extracted requirements.
type Chapter5Runner struct{}

func NewChapter5Runner() *Chapter5Runner { return &Chapter5Runner{} }

func (r *Chapter5Runner) Name() models.StageName { return models.StageChapter5 }

func (r *Chapter5Runner) OutputKey() string { return Chapter5Key }

func (r *Chapter5Runner) Prerequisites() []models.StageName { return nil }

func (r *Chapter5Runner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	var plan chapter4Content
	if err := rc.Store.ReadJSON(ctx, Chapter4Key, &plan); err != nil {
		return nil, fmt.Errorf("%w: chapter-5: chapter-4 audit plan: %v", ErrMissingPrerequisite, err)
	}

	requirements, err := gscheck.LoadMerged(ctx, rc.Store)
	if err != nil {
		return nil, fmt.Errorf("%w: chapter-5: extracted requirements: %v", ErrMissingPrerequisite, err)
	}
	byKey := make(map[models.RequirementKey]models.Requirement, len(requirements))
	for _, req := range requirements {
		byKey[req.Key()] = req
	}

	mussByBaustein := make(map[string][]string)
	for _, b := range rc.Catalog.Bausteine {
		mussByBaustein[b.ID] = b.MussAnforderungen
	}

	var entries []checklistEntry
	var missing int
	for _, sel := range plan.Selections {
		anforderungen := mussByBaustein[sel.BausteinID]
		if len(anforderungen) == 0 {
			entries = append(entries, checklistEntry{BausteinID: sel.BausteinID, ZielobjektKuerzel: sel.ZielobjektKuerzel, Missing: true})
			continue
		}
		for _, anforderungID := range anforderungen {
			key := models.RequirementKey{Kuerzel: sel.ZielobjektKuerzel, AnforderungID: anforderungID}
			req, ok := byKey[key]
			if !ok {
				missing++
				entries = append(entries, checklistEntry{
					BausteinID: sel.BausteinID, ZielobjektKuerzel: sel.ZielobjektKuerzel,
					AnforderungID: anforderungID, Missing: true,
				})
				continue
			}
			entries = append(entries, checklistEntry{
				BausteinID: sel.BausteinID, ZielobjektKuerzel: sel.ZielobjektKuerzel,
				AnforderungID: anforderungID, Titel: req.Titel,
				Umsetzungsstatus: req.Umsetzungsstatus, Umsetzungserlaeuterung: req.Umsetzungserlaeuterung,
			})
		}
	}

	var findings []models.Finding
	if missing > 0 {
		findings = append(findings, models.Finding{
			Category:         models.FindingMinorDeviation,
			Description:      fmt.Sprintf("%d MUSS-Anforderungen der geplanten Bausteine wurden im Grundschutz-Check nicht gefunden.", missing),
			OriginatingStage: string(r.Name()),
		})
	}

	content, err := json.Marshal(chapter5Content{Entries: entries, Findings: findings})
	if err != nil {
		return nil, fmt.Errorf("chapter-5: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}
