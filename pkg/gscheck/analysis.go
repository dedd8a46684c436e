package gscheck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/bsicatalog"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// dateRecencyWindow is the Q5 recency threshold: every datum_letzte_pruefung
// must fall within this window of the run.
const dateRecencyWindow = 12 * 30 * 24 * time.Hour

// AnalysisResult is the consolidated outcome of Phase E's five questions,
// consumed by subchapter 3.6.1.
type AnalysisResult struct {
	Q1MissingStatus      []models.RequirementKey
	Q2ImplausibleWaivers []EntbehrlichVerdict
	Q3UnmetMUSS          []MUSSVerdict
	Q4UncoveredFindings  []RealisierungsplanVerdict
	Q5StaleDates         []models.RequirementKey
}

// EntbehrlichVerdict is one Q2 judgment.
type EntbehrlichVerdict struct {
	Requirement models.RequirementKey
	Plausible   bool
	Rationale   string
}

// MUSSVerdict is one Q3 judgment: a Level-1 MUSS requirement not marked Ja.
type MUSSVerdict struct {
	Requirement models.RequirementKey
	Status      models.Umsetzungsstatus
	Confirmed   bool
}

// RealisierungsplanVerdict is one Q4 judgment.
type RealisierungsplanVerdict struct {
	Requirement     models.RequirementKey
	Covered         bool
	EvidenceSnippet string
}

// RunAnalysis answers all five Phase E questions over the merged
// requirements list and returns a single consolidated Finding for
// subchapter 3.6.1.
func RunAnalysis(ctx context.Context, client llm.Client, merged []models.Requirement, catalog *bsicatalog.Catalog, realisierungsplanKey string, runDate time.Time) (*AnalysisResult, models.Finding, error) {
	result := &AnalysisResult{
		Q1MissingStatus: answerQ1(merged),
		Q5StaleDates:    answerQ5(merged, runDate),
	}

	q2, err := answerQ2(ctx, client, merged)
	if err != nil {
		return nil, models.Finding{}, fmt.Errorf("gscheck: Q2 plausibility analysis: %w", err)
	}
	result.Q2ImplausibleWaivers = q2

	q3, err := answerQ3(ctx, client, merged, catalog)
	if err != nil {
		return nil, models.Finding{}, fmt.Errorf("gscheck: Q3 MUSS analysis: %w", err)
	}
	result.Q3UnmetMUSS = q3

	q4, err := answerQ4(ctx, client, merged, realisierungsplanKey)
	if err != nil {
		return nil, models.Finding{}, fmt.Errorf("gscheck: Q4 realisierungsplan coverage: %w", err)
	}
	result.Q4UncoveredFindings = q4

	return result, result.consolidatedFinding(), nil
}

// answerQ1 fails deterministically for any requirement lacking a status.
func answerQ1(merged []models.Requirement) []models.RequirementKey {
	var missing []models.RequirementKey
	for _, r := range merged {
		if !r.Umsetzungsstatus.Valid() {
			missing = append(missing, r.Key())
		}
	}
	return missing
}

// answerQ5 computes, deterministically, which requirements' last-checked
// dates are stale or absent.
func answerQ5(merged []models.Requirement, runDate time.Time) []models.RequirementKey {
	var stale []models.RequirementKey
	for _, r := range merged {
		if r.DatumLetztePruefung == nil || runDate.Sub(*r.DatumLetztePruefung) > dateRecencyWindow {
			stale = append(stale, r.Key())
		}
	}
	return stale
}

func entbehrlichItemSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"zielobjekt_kuerzel": schema.String(),
		"anforderung_id":     schema.String(),
		"plausible":          schema.Boolean(),
		"rationale":          schema.String(),
	}, "zielobjekt_kuerzel", "anforderung_id", "plausible", "rationale")
}

type entbehrlichResponse struct {
	Verdicts []struct {
		ZielobjektKuerzel string `json:"zielobjekt_kuerzel"`
		AnforderungID     string `json:"anforderung_id"`
		Plausible         bool   `json:"plausible"`
		Rationale         string `json:"rationale"`
	} `json:"verdicts"`
}

// answerQ2 sends only Entbehrlich-status items to the LLM for a
// plausibility judgment.
func answerQ2(ctx context.Context, client llm.Client, merged []models.Requirement) ([]EntbehrlichVerdict, error) {
	var subjects []models.Requirement
	for _, r := range merged {
		if r.Umsetzungsstatus == models.StatusEntbehrlich {
			subjects = append(subjects, r)
		}
	}
	if len(subjects) == 0 {
		return nil, nil
	}

	req := llm.GenerateRequest{
		Prompt: "For each requirement marked Entbehrlich (not applicable), assess whether its " +
			"umsetzungserlaeuterung plausibly justifies the waiver: " + describeRequirements(subjects),
		Schema: schema.Object(map[string]*schema.Schema{
			"verdicts": schema.Array(entbehrlichItemSchema(), 0, 0),
		}, "verdicts"),
	}
	var resp entbehrlichResponse
	if err := client.GenerateStructured(ctx, req, &resp); err != nil {
		return nil, err
	}

	out := make([]EntbehrlichVerdict, 0, len(resp.Verdicts))
	for _, v := range resp.Verdicts {
		out = append(out, EntbehrlichVerdict{
			Requirement: models.RequirementKey{Kuerzel: v.ZielobjektKuerzel, AnforderungID: v.AnforderungID},
			Plausible:   v.Plausible,
			Rationale:   v.Rationale,
		})
	}
	return out, nil
}

// answerQ3 computes the MUSS set deterministically, filters the merged list
// for requirements in that set not marked Ja, then asks the LLM to confirm
// wording only for ambiguous cases (status present but explanation suggests
// otherwise) — here, every unmet MUSS item, since Catalog carries no
// independent notion of "ambiguous" beyond status mismatch.
func answerQ3(ctx context.Context, client llm.Client, merged []models.Requirement, catalog *bsicatalog.Catalog) ([]MUSSVerdict, error) {
	muss := catalog.MussSet()
	var unmet []models.Requirement
	for _, r := range merged {
		if muss[r.AnforderungID] && r.Umsetzungsstatus != models.StatusJa {
			unmet = append(unmet, r)
		}
	}
	if len(unmet) == 0 {
		return nil, nil
	}

	req := llm.GenerateRequest{
		Prompt: "These requirements are BSI Level-1 MUSS requirements not marked umsetzungsstatus=Ja. " +
			"Confirm, from the wording of each explanation, whether the stated status is accurate: " +
			describeRequirements(unmet),
		Schema: schema.Object(map[string]*schema.Schema{
			"verdicts": schema.Array(entbehrlichItemSchema(), 0, 0),
		}, "verdicts"),
	}
	var resp entbehrlichResponse
	if err := client.GenerateStructured(ctx, req, &resp); err != nil {
		return nil, err
	}

	confirmedBy := make(map[models.RequirementKey]bool, len(resp.Verdicts))
	for _, v := range resp.Verdicts {
		confirmedBy[models.RequirementKey{Kuerzel: v.ZielobjektKuerzel, AnforderungID: v.AnforderungID}] = v.Plausible
	}

	out := make([]MUSSVerdict, 0, len(unmet))
	for _, r := range unmet {
		out = append(out, MUSSVerdict{Requirement: r.Key(), Status: r.Umsetzungsstatus, Confirmed: confirmedBy[r.Key()]})
	}
	return out, nil
}

func coverageItemSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"zielobjekt_kuerzel": schema.String(),
		"anforderung_id":     schema.String(),
		"covered":            schema.Boolean(),
		"evidence_snippet":   schema.String(),
	}, "zielobjekt_kuerzel", "anforderung_id", "covered")
}

type coverageResponse struct {
	Verdicts []struct {
		ZielobjektKuerzel string `json:"zielobjekt_kuerzel"`
		AnforderungID     string `json:"anforderung_id"`
		Covered           bool   `json:"covered"`
		EvidenceSnippet   string `json:"evidence_snippet,omitempty"`
	} `json:"verdicts"`
}

// answerQ4 checks whether every unmet requirement (Nein/Teilweise) is
// addressed in the Realisierungsplan document.
func answerQ4(ctx context.Context, client llm.Client, merged []models.Requirement, realisierungsplanKey string) ([]RealisierungsplanVerdict, error) {
	var unmet []models.Requirement
	for _, r := range merged {
		if r.Umsetzungsstatus == models.StatusNein || r.Umsetzungsstatus == models.StatusTeilweise {
			unmet = append(unmet, r)
		}
	}
	if len(unmet) == 0 || realisierungsplanKey == "" {
		return nil, nil
	}

	req := llm.GenerateRequest{
		Prompt: "For each unmet requirement below, determine whether the attached Realisierungsplan " +
			"covers it with a concrete remediation plan: " + describeRequirements(unmet),
		Schema: schema.Object(map[string]*schema.Schema{
			"verdicts": schema.Array(coverageItemSchema(), 0, 0),
		}, "verdicts"),
		AttachedDocuments: []llm.AttachedDocument{{Key: realisierungsplanKey, DisplayName: "Realisierungsplan"}},
	}
	var resp coverageResponse
	if err := client.GenerateStructured(ctx, req, &resp); err != nil {
		return nil, err
	}

	out := make([]RealisierungsplanVerdict, 0, len(resp.Verdicts))
	for _, v := range resp.Verdicts {
		out = append(out, RealisierungsplanVerdict{
			Requirement:     models.RequirementKey{Kuerzel: v.ZielobjektKuerzel, AnforderungID: v.AnforderungID},
			Covered:         v.Covered,
			EvidenceSnippet: v.EvidenceSnippet,
		})
	}
	return out, nil
}

func describeRequirements(reqs []models.Requirement) string {
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, fmt.Sprintf("[%s/%s: %s] %s", r.ZielobjektKuerzel, r.AnforderungID, r.Umsetzungsstatus, r.Umsetzungserlaeuterung))
	}
	return strings.Join(parts, "\n")
}

// consolidatedFinding builds the single Finding subchapter 3.6.1 consumes.
func (r *AnalysisResult) consolidatedFinding() models.Finding {
	var problems []string
	if n := len(r.Q1MissingStatus); n > 0 {
		problems = append(problems, fmt.Sprintf("%d requirement(s) missing umsetzungsstatus", n))
	}
	unconfirmedMuss := 0
	for _, v := range r.Q3UnmetMUSS {
		if !v.Confirmed {
			unconfirmedMuss++
		}
	}
	if n := len(r.Q3UnmetMUSS); n > 0 {
		problems = append(problems, fmt.Sprintf("%d Level-1 MUSS requirement(s) not marked Ja (%d unconfirmed)", n, unconfirmedMuss))
	}
	uncovered := 0
	for _, v := range r.Q4UncoveredFindings {
		if !v.Covered {
			uncovered++
		}
	}
	if uncovered > 0 {
		problems = append(problems, fmt.Sprintf("%d unmet requirement(s) not covered by the Realisierungsplan", uncovered))
	}
	implausible := 0
	for _, v := range r.Q2ImplausibleWaivers {
		if !v.Plausible {
			implausible++
		}
	}
	if implausible > 0 {
		problems = append(problems, fmt.Sprintf("%d Entbehrlich waiver(s) judged implausible", implausible))
	}
	if n := len(r.Q5StaleDates); n > 0 {
		problems = append(problems, fmt.Sprintf("%d requirement(s) with a stale or missing review date", n))
	}

	category := models.FindingNothingToReport
	if len(problems) > 0 {
		category = models.FindingMinorDeviation
	}

	description := "Grundschutz-Check targeted analysis: no issues found."
	if len(problems) > 0 {
		description = "Grundschutz-Check targeted analysis found: " + strings.Join(problems, "; ")
	}

	return models.Finding{
		Category:         category,
		Description:      description,
		OriginatingStage: string(models.StageGsCheckExtraction),
	}
}
