// Package groundtruth implements the Ground-Truth Mapper: it builds the
// authoritative SystemStructureMap from the Strukturanalyse and
// Modellierung documents, which every later stage treats as ground truth
// for which Zielobjekte and Bausteine exist in the customer's environment.
package groundtruth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bsi-grundschutz/auditpilot/pkg/docfinder"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

// MapKey is the object-store key the system structure map is persisted
// under, shared with pkg/stages so the ground-truth-map runner can report
// it as its OutputKey.
const MapKey = "system_structure_map.json"

func zielobjektSchema() *schema.Schema {
	item := schema.Object(map[string]*schema.Schema{
		"kuerzel": schema.String(),
		"name":    schema.String(),
	}, "kuerzel", "name")
	return schema.Object(map[string]*schema.Schema{
		"zielobjekte": schema.Array(item, 0, 0),
	}, "zielobjekte")
}

func assignmentSchema() *schema.Schema {
	item := schema.Object(map[string]*schema.Schema{
		"baustein_id": schema.String(),
		"kuerzel":     schema.String(),
	}, "baustein_id", "kuerzel")
	return schema.Object(map[string]*schema.Schema{
		"assignments": schema.Array(item, 0, 0),
	}, "assignments")
}

type zielobjekteResponse struct {
	Zielobjekte []models.Zielobjekt `json:"zielobjekte"`
}

type assignmentsResponse struct {
	Assignments []models.BausteinAssignment `json:"assignments"`
}

// Mapper builds the SystemStructureMap artifact.
type Mapper struct {
	store  objectstore.Store
	client llm.Client
	finder *docfinder.Finder
}

// New builds a Mapper.
func New(store objectstore.Store, client llm.Client, finder *docfinder.Finder) *Mapper {
	return &Mapper{store: store, client: client, finder: finder}
}

// Build runs the full mapping algorithm and persists
// system_structure_map.json. If the artifact already exists and force is
// false, it is loaded and returned unchanged (idempotence).
func (m *Mapper) Build(ctx context.Context, force bool) (*models.SystemStructureMap, error) {
	if !force {
		var existing models.SystemStructureMap
		if err := m.store.ReadJSON(ctx, MapKey, &existing); err == nil {
			return &existing, nil
		}
	}

	zielobjekte, err := m.buildZielobjekte(ctx)
	if err != nil {
		return nil, fmt.Errorf("groundtruth: building zielobjekte: %w", err)
	}

	result := &models.SystemStructureMap{Zielobjekte: zielobjekte}

	assignments, err := m.buildAssignments(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("groundtruth: building baustein assignments: %w", err)
	}
	result.BausteinAssignments = assignments

	if err := m.store.WriteJSON(ctx, MapKey, result); err != nil {
		return nil, fmt.Errorf("groundtruth: persisting system structure map: %w", err)
	}
	return result, nil
}

// buildZielobjekte runs step 1: extract (kürzel, name) pairs from every
// Strukturanalyse document, merging by kürzel.
func (m *Mapper) buildZielobjekte(ctx context.Context) ([]models.Zielobjekt, error) {
	docIDs, err := m.finder.GetDocumentsForCategories(ctx, models.CategoryStrukturanalyse)
	if err != nil {
		return nil, err
	}

	byKuerzel := make(map[string]string)
	order := make([]string, 0)

	for _, docID := range docIDs {
		var resp zielobjekteResponse
		req := llm.GenerateRequest{
			Prompt: "Extract every Zielobjekt (target object) defined in this Strukturanalyse document " +
				"as a (kuerzel, name) pair. Kürzel must be short, stable identifiers as used elsewhere in the document.",
			Schema:            zielobjektSchema(),
			AttachedDocuments: []llm.AttachedDocument{{Key: m.finder.GetDocumentPath(docID), DisplayName: docID}},
		}
		if err := m.client.GenerateStructured(ctx, req, &resp); err != nil {
			slog.Error("strukturanalyse extraction failed, skipping document", "document", docID, "error", err)
			continue
		}

		for _, z := range resp.Zielobjekte {
			if z.Kuerzel == "" {
				continue
			}
			// Later occurrences refine, never replace, a non-empty name
			// unless the new name is strictly longer.
			existing, seen := byKuerzel[z.Kuerzel]
			if !seen {
				byKuerzel[z.Kuerzel] = z.Name
				order = append(order, z.Kuerzel)
				continue
			}
			if z.Name != "" && len(z.Name) > len(existing) {
				byKuerzel[z.Kuerzel] = z.Name
			}
		}
	}

	out := make([]models.Zielobjekt, 0, len(order))
	for _, k := range order {
		out = append(out, models.Zielobjekt{Kuerzel: k, Name: byKuerzel[k]})
	}
	return out, nil
}

// buildAssignments runs steps 2-4: extract baustein-to-kürzel assignments,
// apply the Informationsverbund override, and drop assignments whose kürzel
// is unknown (recording a structural warning via slog).
func (m *Mapper) buildAssignments(ctx context.Context, structure *models.SystemStructureMap) ([]models.BausteinAssignment, error) {
	docIDs, err := m.finder.GetDocumentsForCategories(ctx, models.CategoryModellierung)
	if err != nil {
		return nil, err
	}

	var raw []models.BausteinAssignment
	for _, docID := range docIDs {
		var resp assignmentsResponse
		req := llm.GenerateRequest{
			Prompt: "Extract every baustein-to-Zielobjekt assignment modeled in this document as a " +
				"(baustein_id, kuerzel) pair, e.g. (\"SYS.1.1\", \"SRV-01\").",
			Schema:            assignmentSchema(),
			AttachedDocuments: []llm.AttachedDocument{{Key: m.finder.GetDocumentPath(docID), DisplayName: docID}},
		}
		if err := m.client.GenerateStructured(ctx, req, &resp); err != nil {
			slog.Error("modellierung extraction failed, skipping document", "document", docID, "error", err)
			continue
		}
		raw = append(raw, resp.Assignments...)
	}

	out := make([]models.BausteinAssignment, 0, len(raw))
	for _, a := range raw {
		if models.HasInformationsverbundPrefix(a.BausteinID) {
			a.Kuerzel = models.Informationsverbund
		}
		if !structure.KnownKuerzel(a.Kuerzel) {
			slog.Warn("dropping baustein assignment to unknown zielobjekt",
				"baustein_id", a.BausteinID, "kuerzel", a.Kuerzel)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
