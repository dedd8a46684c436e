package gscheck

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/bsicatalog"
	"github.com/bsi-grundschutz/auditpilot/pkg/docfinder"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

// MergedKey is the object-store key the merged requirements artifact is
// persisted under. Its value additionally carries the content hash and
// chunk warnings the idempotence check in Run needs; pkg/stages gives the
// Chapter-3.6.1 analysis that consumes it a separate OutputKey so the two
// writers never collide on this path.
const MergedKey = "results/intermediate/extracted_grundschutz_check_merged.json"

// mergedArtifact is the serialized form of extracted_grundschutz_check_merged.json.
type mergedArtifact struct {
	ContentHash  string               `json:"content_hash"`
	Requirements []models.Requirement `json:"requirements"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Extractor runs the full Grundschutz-Check Extractor (Phases A-D); Phase E
// is exposed separately via RunAnalysis since it is consumed directly by
// the stage runner for subchapter 3.6.1, not persisted as its own artifact.
type Extractor struct {
	store            objectstore.Store
	client           llm.Client
	finder           *docfinder.Finder
	chunkConcurrency int
	overlapPages     int
}

// New builds an Extractor.
func New(store objectstore.Store, client llm.Client, finder *docfinder.Finder, chunkConcurrency, overlapPages int) *Extractor {
	return &Extractor{store: store, client: client, finder: finder, chunkConcurrency: chunkConcurrency, overlapPages: overlapPages}
}

// Run executes Phases A-D and persists the merged artifact, idempotent
// under a content hash of its inputs: re-running with the same source
// document and structure map returns the cached artifact without
// re-invoking the LLM.
func (e *Extractor) Run(ctx context.Context, structure *models.SystemStructureMap, force bool) ([]models.Requirement, []string, error) {
	docIDs, err := e.finder.GetDocumentsForCategories(ctx, models.CategoryGrundschutzCheck)
	if err != nil {
		return nil, nil, fmt.Errorf("gscheck: listing grundschutz-check documents: %w", err)
	}
	if len(docIDs) == 0 {
		return nil, nil, fmt.Errorf("gscheck: no Grundschutz-Check document found")
	}
	documentKey := e.finder.GetDocumentPath(docIDs[0])

	pdfBytes, err := e.store.ReadBytes(ctx, documentKey)
	if err != nil {
		return nil, nil, fmt.Errorf("gscheck: reading grundschutz-check pdf: %w", err)
	}

	hash := contentHash(pdfBytes, structure)

	if !force {
		var existing mergedArtifact
		if err := e.store.ReadJSON(ctx, MergedKey, &existing); err == nil && existing.ContentHash == hash {
			return existing.Requirements, existing.Warnings, nil
		}
	}

	sections, err := PreScan(pdfBytes, structure)
	if err != nil {
		return nil, nil, fmt.Errorf("gscheck: phase A pre-scan: %w", err)
	}

	chunks := BuildChunks(sections, MaxPagesPerChunk, e.overlapPages)

	extracted, warnings := ExtractChunks(ctx, e.client, documentKey, chunks, e.chunkConcurrency)

	merged := MergeAndRefine(extracted)

	artifact := mergedArtifact{ContentHash: hash, Requirements: merged, Warnings: warnings}
	if err := e.store.WriteJSON(ctx, MergedKey, artifact); err != nil {
		return nil, nil, fmt.Errorf("gscheck: persisting merged requirements: %w", err)
	}

	return merged, warnings, nil
}

// RunAnalysisForMerged loads the merged artifact and runs Phase E over it,
// against the BSI catalog and Realisierungsplan document.
func (e *Extractor) RunAnalysisForMerged(ctx context.Context, catalog *bsicatalog.Catalog, runDate time.Time) (*AnalysisResult, models.Finding, error) {
	var artifact mergedArtifact
	if err := e.store.ReadJSON(ctx, MergedKey, &artifact); err != nil {
		return nil, models.Finding{}, fmt.Errorf("gscheck: loading merged requirements for analysis: %w", err)
	}

	realisierungsplanKey := ""
	docIDs, err := e.finder.GetDocumentsForCategories(ctx, models.CategoryRealisierungsplan)
	if err == nil && len(docIDs) > 0 {
		realisierungsplanKey = e.finder.GetDocumentPath(docIDs[0])
	}

	return RunAnalysis(ctx, e.client, artifact.Requirements, catalog, realisierungsplanKey, runDate)
}

// LoadMerged reads the persisted merged-requirements artifact directly,
// for consumers (Chapter 5) that need the requirement list without driving
// the extractor itself.
func LoadMerged(ctx context.Context, store objectstore.Store) ([]models.Requirement, error) {
	var artifact mergedArtifact
	if err := store.ReadJSON(ctx, MergedKey, &artifact); err != nil {
		return nil, fmt.Errorf("gscheck: loading merged requirements: %w", err)
	}
	return artifact.Requirements, nil
}

func contentHash(pdfBytes []byte, structure *models.SystemStructureMap) string {
	h := sha256.New()
	h.Write(pdfBytes)
	structureJSON, _ := json.Marshal(structure)
	h.Write(structureJSON)
	return hex.EncodeToString(h.Sum(nil))
}
