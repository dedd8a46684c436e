package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bsi-grundschutz/auditpilot/pkg/config"
	"github.com/bsi-grundschutz/auditpilot/pkg/groundtruth"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Chapter4Key is the object-store key Chapter 4's result is persisted
// under. Exactly one of the three variants ever runs for a given
// config.Config.AuditType, so they share a single output path.
const Chapter4Key = "results/Chapter-4.json"

// chapter4Variant captures the BSI rule a particular audit type enforces on
// the selection of (baustein, zielobjekt) pairs that make up the audit
// plan.
type chapter4Variant struct {
	stage            models.StageName
	auditType        config.AuditType
	minBausteine     int
	requireISMS1     bool
	minOthersOnISMS1 int
	description      string
}

var (
	chapter4CertVariant = chapter4Variant{
		stage: models.StageChapter4Cert, auditType: config.AuditTypeZertifizierung,
		minBausteine: 6,
		description:  "Erstzertifizierungsaudit: wähle mindestens 6 Bausteine, breit über den Informationsverbund verteilt.",
	}
	chapter4Surv1Variant = chapter4Variant{
		stage: models.StageChapter4Surv1, auditType: config.AuditTypeUeberwachung1,
		requireISMS1: true, minOthersOnISMS1: 2,
		description: "1. Überwachungsaudit: ISMS.1 muss enthalten sein, plus mindestens 2 weitere Bausteine.",
	}
	chapter4Surv2Variant = chapter4Variant{
		stage: models.StageChapter4Surv2, auditType: config.AuditTypeUeberwachung2,
		requireISMS1: true, minOthersOnISMS1: 2,
		description: "2. Überwachungsaudit: ISMS.1 muss enthalten sein, plus mindestens 2 weitere Bausteine, die im letzten Audit nicht geprüft wurden.",
	}
)

type bausteinSelection struct {
	BausteinID        string `json:"baustein_id"`
	ZielobjektKuerzel string `json:"zielobjekt_kuerzel"`
}

type chapter4Content struct {
	Selections []bausteinSelection `json:"selections"`
	Narrative  string              `json:"narrative"`
	Findings   []models.Finding    `json:"findings,omitempty"`
}

func chapter4Schema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"selections": schema.Array(schema.Object(map[string]*schema.Schema{
			"baustein_id":        schema.String(),
			"zielobjekt_kuerzel": schema.String(),
		}, "baustein_id", "zielobjekt_kuerzel"), 1, 0),
		"narrative": schema.String(),
	}, "selections", "narrative")
}

type chapter4Response struct {
	Selections []bausteinSelection `json:"selections"`
	Narrative  string              `json:"narrative"`
}

// Chapter4Runner drafts the audit plan for one audit-type variant.
type Chapter4Runner struct {
	variant chapter4Variant
}

func NewChapter4CertRunner() *Chapter4Runner  { return &Chapter4Runner{variant: chapter4CertVariant} }
func NewChapter4Surv1Runner() *Chapter4Runner { return &Chapter4Runner{variant: chapter4Surv1Variant} }
func NewChapter4Surv2Runner() *Chapter4Runner { return &Chapter4Runner{variant: chapter4Surv2Variant} }

func (r *Chapter4Runner) Name() models.StageName { return r.variant.stage }

func (r *Chapter4Runner) OutputKey() string { return Chapter4Key }

func (r *Chapter4Runner) Prerequisites() []models.StageName {
	return []models.StageName{models.StageGroundTruthMap}
}

func (r *Chapter4Runner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	if rc.Config.AuditType != r.variant.auditType {
		return nil, ErrOptionalStageSkipped
	}

	var structure models.SystemStructureMap
	if err := rc.Store.ReadJSON(ctx, groundtruth.MapKey, &structure); err != nil {
		return nil, fmt.Errorf("%w: chapter-4: system structure map: %v", ErrMissingPrerequisite, err)
	}

	var resp chapter4Response
	if err := rc.Client.GenerateStructured(ctx, llm.GenerateRequest{
		Prompt: chapter4Prompt(r.variant, &structure, rc),
		Schema: chapter4Schema(),
	}, &resp); err != nil {
		return nil, fmt.Errorf("chapter-4: %w", err)
	}

	valid, dropped := filterKnownSelections(resp.Selections, &structure)

	var findings []models.Finding
	if len(dropped) > 0 {
		findings = append(findings, models.Finding{
			Category:    models.FindingMinorDeviation,
			Description: fmt.Sprintf("Auditplan enthielt %d Baustein/Zielobjekt-Paare, die nicht in der Strukturkarte existieren; wurden verworfen.", len(dropped)),
		})
	}
	if !satisfiesVariant(r.variant, valid) {
		findings = append(findings, models.Finding{
			Category:    models.FindingMajorDeviation,
			Description: fmt.Sprintf("Auditplan erfüllt die Mindestanforderung für %s nicht: %s", r.variant.auditType, r.variant.description),
		})
	}
	for i := range findings {
		findings[i].OriginatingStage = string(r.Name())
	}

	content, err := json.Marshal(chapter4Content{Selections: valid, Narrative: resp.Narrative, Findings: findings})
	if err != nil {
		return nil, fmt.Errorf("chapter-4: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}

func chapter4Prompt(v chapter4Variant, structure *models.SystemStructureMap, rc *RunContext) string {
	var zielobjekte []string
	for _, z := range structure.Zielobjekte {
		zielobjekte = append(zielobjekte, fmt.Sprintf("%s (%s)", z.Kuerzel, z.Name))
	}
	return fmt.Sprintf(
		"Draft the chapter 4 audit plan in %s. %s Every selection's zielobjekt_kuerzel MUST be one of: %s, or %q. Every baustein_id MUST be one of: %s.",
		outputLanguage(rc), v.description,
		strings.Join(zielobjekte, ", "), models.Informationsverbund,
		strings.Join(rc.Catalog.BausteinIDs(), ", "))
}

// filterKnownSelections keeps only selections whose zielobjekt_kuerzel
// names a Zielobjekt of the system structure map (or Informationsverbund).
// It does not check that the map assigns the selected baustein to that
// Zielobjekt: a selection with a known kürzel is kept whatever its baustein.
func filterKnownSelections(selections []bausteinSelection, structure *models.SystemStructureMap) (valid, dropped []bausteinSelection) {
	for _, s := range selections {
		if structure.KnownKuerzel(s.ZielobjektKuerzel) {
			valid = append(valid, s)
		} else {
			dropped = append(dropped, s)
		}
	}
	return valid, dropped
}

func satisfiesVariant(v chapter4Variant, selections []bausteinSelection) bool {
	if v.minBausteine > 0 && len(selections) < v.minBausteine {
		return false
	}
	if v.requireISMS1 {
		hasISMS1 := false
		others := map[string]bool{}
		for _, s := range selections {
			if s.BausteinID == "ISMS.1" {
				hasISMS1 = true
			} else {
				others[s.BausteinID] = true
			}
		}
		if !hasISMS1 || len(others) < v.minOthersOnISMS1 {
			return false
		}
	}
	return true
}
