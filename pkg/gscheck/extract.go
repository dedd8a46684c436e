package gscheck

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

func requirementItemSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"zielobjekt_kuerzel":     schema.String(),
		"anforderung_id":         schema.String(),
		"titel":                  schema.String(),
		"umsetzungsstatus":       schema.String(string(models.StatusJa), string(models.StatusTeilweise), string(models.StatusNein), string(models.StatusEntbehrlich)),
		"umsetzungserlaeuterung": schema.String(),
		"datum_letzte_pruefung":  schema.StringFormat("date"),
	}, "zielobjekt_kuerzel", "anforderung_id", "titel", "umsetzungsstatus", "umsetzungserlaeuterung")
}

func chunkExtractionSchema() *schema.Schema {
	return schema.Object(map[string]*schema.Schema{
		"requirements": schema.Array(requirementItemSchema(), 0, 0),
	}, "requirements")
}

type rawRequirement struct {
	ZielobjektKuerzel      string `json:"zielobjekt_kuerzel"`
	AnforderungID          string `json:"anforderung_id"`
	Titel                  string `json:"titel"`
	Umsetzungsstatus       string `json:"umsetzungsstatus"`
	Umsetzungserlaeuterung string `json:"umsetzungserlaeuterung"`
	DatumLetztePruefung    string `json:"datum_letzte_pruefung,omitempty"`
}

type chunkExtractionResponse struct {
	Requirements []rawRequirement `json:"requirements"`
}

// extractChunk runs extraction for a single chunk: invoke
// generate_structured against the source document, scoped by a prompt
// naming the chunk's page range and kürzel. On terminal failure it returns
// an empty requirement list and a structural warning instead of an error,
// so a single bad chunk never blocks the run.
func extractChunk(ctx context.Context, client llm.Client, documentKey string, chunk Chunk) chunkResult {
	prompt := fmt.Sprintf(
		"All requirements on pages %d-%d of this document belong to Zielobjekt %q. "+
			"Extract each requirement as (anforderung_id, titel, umsetzungsstatus, umsetzungserlaeuterung, "+
			"datum_letzte_pruefung?) and set zielobjekt_kuerzel=%q on every item.",
		chunk.StartPage, chunk.EndPage, chunk.Kuerzel, chunk.Kuerzel)

	req := llm.GenerateRequest{
		Prompt:            prompt,
		Schema:            chunkExtractionSchema(),
		AttachedDocuments: []llm.AttachedDocument{{Key: documentKey, DisplayName: documentKey}},
	}

	var resp chunkExtractionResponse
	if err := client.GenerateStructured(ctx, req, &resp); err != nil {
		slog.Error("chunk extraction failed, emitting empty result", "kuerzel", chunk.Kuerzel, "start_page", chunk.StartPage, "end_page", chunk.EndPage, "error", err)
		return chunkResult{chunk: chunk, warning: fmt.Sprintf("extraction failed for %s pages %d-%d: %v", chunk.Kuerzel, chunk.StartPage, chunk.EndPage, err)}
	}

	reqs := make([]models.Requirement, 0, len(resp.Requirements))
	for _, r := range resp.Requirements {
		reqs = append(reqs, rawToRequirement(r, chunk.Kuerzel))
	}
	return chunkResult{chunk: chunk, requirements: reqs}
}

func rawToRequirement(r rawRequirement, fallbackKuerzel string) models.Requirement {
	kuerzel := r.ZielobjektKuerzel
	if kuerzel == "" {
		kuerzel = fallbackKuerzel
	}
	out := models.Requirement{
		ZielobjektKuerzel:      kuerzel,
		AnforderungID:          r.AnforderungID,
		Titel:                  r.Titel,
		Umsetzungsstatus:       models.Umsetzungsstatus(r.Umsetzungsstatus),
		Umsetzungserlaeuterung: r.Umsetzungserlaeuterung,
	}
	if t, ok := parseISODate(r.DatumLetztePruefung); ok {
		out.DatumLetztePruefung = &t
	}
	return out
}

// ExtractChunks runs Phase C across every chunk through a bounded worker
// pool (chunkpool.go), and returns every chunk's result plus the
// accumulated structural warnings. It never returns an error: per-chunk
// failures are captured in the returned warnings slice.
func ExtractChunks(ctx context.Context, client llm.Client, documentKey string, chunks []Chunk, concurrency int) ([]models.Requirement, []string) {
	pool := newChunkPool(ctx, concurrency, func(ctx context.Context, job chunkJob) chunkResult {
		return extractChunk(ctx, client, job.documentID, job.chunk)
	})

	jobs := make([]chunkJob, len(chunks))
	for i, c := range chunks {
		jobs[i] = chunkJob{chunk: c, documentID: documentKey}
	}

	results := pool.run(jobs)

	var all []models.Requirement
	var warnings []string
	for _, r := range results {
		all = append(all, r.requirements...)
		if r.warning != "" {
			warnings = append(warnings, r.warning)
		}
	}
	return all, warnings
}
