package stages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bsi-grundschutz/auditpilot/pkg/gscheck"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

// Chapter3Key is the object-store key Chapter 3's result is persisted under.
const Chapter3Key = "results/Chapter-3.json"

// gsCheckSubchapterKey is the Chapter 3 template key whose content is
// derived entirely from the Grundschutz-Check Extractor's Phase E analysis
// rather than a fresh LLM call.
const gsCheckSubchapterKey = "3.6.1"

// chapter3Subchapter is one task of the Chapter 3 template: it names the
// document categories it needs and the questions the auditor expects
// answered in its section.
type chapter3Subchapter struct {
	Key        string
	Title      string
	Categories []models.Category
	Questions  []string
}

var chapter3Template = []chapter3Subchapter{
	{
		Key: "3.1", Title: "Organisation und Rollen",
		Categories: []models.Category{models.CategorySicherheitsleitlinie},
		Questions:  []string{"Ist die Organisation der Informationssicherheit dokumentiert und den Beteiligten bekannt?"},
	},
	{
		Key: "3.2", Title: "IT-Strukturanalyse",
		Categories: []models.Category{models.CategoryStrukturanalyse, models.CategoryNetzplan},
		Questions:  []string{"Ist die Strukturanalyse vollständig und aktuell?", "Stimmt der Netzplan mit der beschriebenen Struktur überein?"},
	},
	{
		Key: "3.3", Title: "Modellierung",
		Categories: []models.Category{models.CategoryModellierung},
		Questions:  []string{"Sind alle Zielobjekte den relevanten Bausteinen zugeordnet?"},
	},
	{
		Key: "3.4", Title: "Risikoanalyse",
		Categories: []models.Category{models.CategoryRisikoanalyse},
		Questions:  []string{"Wurde für Zielobjekte mit erhöhtem Schutzbedarf eine Risikoanalyse durchgeführt?"},
	},
	{
		Key: "3.5", Title: "Realisierungsplanung",
		Categories: []models.Category{models.CategoryRealisierungsplan},
		Questions:  []string{"Ist für offene Anforderungen ein Realisierungsplan mit Terminen und Verantwortlichen vorhanden?"},
	},
	{
		Key:       gsCheckSubchapterKey,
		Title:     "Ergebnisse des Grundschutz-Checks",
		Questions: nil, // answered by gscheck.AnalysisResult instead of a fresh LLM call
	},
}

type chapter3SubchapterResult struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Content string   `json:"content,omitempty"`
	Answers []qaPair `json:"answers,omitempty"`
}

type qaPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type chapter3Content struct {
	Subchapters []chapter3SubchapterResult `json:"subchapters"`
	Findings    []models.Finding           `json:"findings"`
}

func chapter3GenerationSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"answers":  schema.Array(qaSchema(), 0, 0),
		"findings": schema.Array(findingSchema(false), 0, 0),
	}, "answers")
}

func qaSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"question": schema.String(),
		"answer":   schema.String(),
	}, "question", "answer")
}

type chapter3GenerationResponse struct {
	Answers  []qaPair         `json:"answers"`
	Findings []models.Finding `json:"findings"`
}

// Chapter3Runner runs one task per Chapter 3 subchapter. Subchapter 3.6.1
// is populated from the gs-check-extraction stage's output instead of a
// fresh generation call.
type Chapter3Runner struct{}

func NewChapter3Runner() *Chapter3Runner { return &Chapter3Runner{} }

func (r *Chapter3Runner) Name() models.StageName { return models.StageChapter3 }

func (r *Chapter3Runner) OutputKey() string { return Chapter3Key }

func (r *Chapter3Runner) Prerequisites() []models.StageName {
	return []models.StageName{models.StageGsCheckExtraction}
}

func (r *Chapter3Runner) Generate(ctx context.Context, rc *RunContext) (*models.ChapterResult, error) {
	var gsCheck gsCheckResultContent
	if err := rc.Store.ReadJSON(ctx, GsCheckExtractionResultKey, &gsCheck); err != nil {
		return nil, fmt.Errorf("%w: chapter-3: gs-check-extraction output: %v", ErrMissingPrerequisite, err)
	}

	results := make([]chapter3SubchapterResult, 0, len(chapter3Template))
	var findings []models.Finding

	for _, sub := range chapter3Template {
		if sub.Key == gsCheckSubchapterKey {
			results = append(results, chapter3SubchapterResult{
				Key:     sub.Key,
				Title:   sub.Title,
				Content: summarizeAnalysis(gsCheck.Analysis),
			})
			findings = append(findings, gsCheck.Findings...)
			continue
		}

		docIDs, err := rc.Finder.GetDocumentsForCategories(ctx, sub.Categories...)
		if err != nil {
			return nil, fmt.Errorf("chapter-3: subchapter %s: %w", sub.Key, err)
		}
		attached := attachDocuments(rc, docIDs)

		var resp chapter3GenerationResponse
		if err := rc.Client.GenerateStructured(ctx, llm.GenerateRequest{
			Prompt:            chapter3Prompt(sub, rc),
			Schema:            chapter3GenerationSchema(),
			AttachedDocuments: attached,
		}, &resp); err != nil {
			results = append(results, chapter3SubchapterResult{
				Key: sub.Key, Title: sub.Title,
				Content: fmt.Sprintf("generation failed: %v", err),
			})
			continue
		}
		results = append(results, chapter3SubchapterResult{Key: sub.Key, Title: sub.Title, Answers: resp.Answers})
		findings = append(findings, resp.Findings...)
	}

	for i := range findings {
		findings[i].OriginatingStage = string(r.Name())
	}

	content, err := json.Marshal(chapter3Content{Subchapters: results, Findings: findings})
	if err != nil {
		return nil, fmt.Errorf("chapter-3: marshalling result: %w", err)
	}
	return &models.ChapterResult{Stage: r.Name(), Content: content}, nil
}

func chapter3Prompt(sub chapter3Subchapter, rc *RunContext) string {
	prompt := fmt.Sprintf("Answer the following audit questions for subchapter %s (%q) in %s, based on the attached documents. Raise a finding for every deviation you observe.",
		sub.Key, sub.Title, outputLanguage(rc))
	for _, q := range sub.Questions {
		prompt += "\n- " + q
	}
	return prompt
}

func summarizeAnalysis(a *gscheck.AnalysisResult) string {
	if a == nil {
		return ""
	}
	return fmt.Sprintf(
		"%d Anforderungen ohne Umsetzungsstatus, %d fragwürdige Entbehrlich-Begründungen, %d unerfüllte MUSS-Anforderungen, %d nicht abgedeckte Feststellungen im Realisierungsplan, %d veraltete Prüfdaten.",
		len(a.Q1MissingStatus), len(a.Q2ImplausibleWaivers), len(a.Q3UnmetMUSS), len(a.Q4UncoveredFindings), len(a.Q5StaleDates))
}
