// Package docfinder classifies source documents into BSI categories once,
// caches the result, and answers category-based lookups for every
// downstream stage.
package docfinder

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

const documentMapKey = "document_map.json"

var allCategories = []models.Category{
	models.CategoryStrukturanalyse,
	models.CategoryModellierung,
	models.CategoryNetzplan,
	models.CategorySicherheitsleitlinie,
	models.CategoryGrundschutzCheck,
	models.CategoryRisikoanalyse,
	models.CategoryRealisierungsplan,
	models.CategoryVorherigerAudit,
	models.CategorySonstiges,
}

func categoryEnumStrings() []string {
	out := make([]string, len(allCategories))
	for i, c := range allCategories {
		out[i] = string(c)
	}
	return out
}

// classificationSchema requires exactly one category per input filename.
func classificationSchema() *schema.Schema {
	item := schema.Object(map[string]*schema.Schema{
		"filename": schema.String(),
		"category": schema.String(categoryEnumStrings()...),
	}, "filename", "category")
	return schema.Object(map[string]*schema.Schema{
		"documents": schema.Array(item, 0, 0),
	}, "documents")
}

type classificationResponse struct {
	Documents []models.DocumentClassification `json:"documents"`
}

// Finder is safe for concurrent use; EnsureInitialized resolves exactly
// once even when called from multiple goroutines, following a "first writer
// wins" idempotence rule that mirrors the object store's UploadIfAbsent CAS
// primitive.
type Finder struct {
	store        objectstore.Store
	client       llm.Client
	sourcePrefix string

	mu   sync.Mutex
	docs *models.DocumentMap
}

// New builds a Finder. sourcePrefix is the object-store prefix under which
// raw customer documents live (config.Config.SourcePrefix).
func New(store objectstore.Store, client llm.Client, sourcePrefix string) *Finder {
	return &Finder{store: store, client: client, sourcePrefix: sourcePrefix}
}

// EnsureInitialized blocks until the document map is built or loaded.
func (f *Finder) EnsureInitialized(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docs != nil {
		return nil
	}

	var existing models.DocumentMap
	if err := f.store.ReadJSON(ctx, documentMapKey, &existing); err == nil {
		f.docs = &existing
		return nil
	}

	docs, err := f.classify(ctx)
	if err != nil {
		slog.Error("document classification failed, falling back to Sonstiges for every document", "error", err)
		docs = f.degenerateMap(ctx)
	}

	wrote, err := uploadIfAbsentJSON(ctx, f.store, documentMapKey, docs)
	if err != nil {
		return fmt.Errorf("docfinder: persisting document map: %w", err)
	}
	if !wrote {
		// Another initializer won the race; load what it wrote.
		var winner models.DocumentMap
		if err := f.store.ReadJSON(ctx, documentMapKey, &winner); err != nil {
			return fmt.Errorf("docfinder: loading concurrently-written document map: %w", err)
		}
		docs = &winner
	}

	f.docs = docs
	return nil
}

// GetDocumentsForCategories returns the union of document IDs classified
// under any of the given categories, in deterministic order.
func (f *Finder) GetDocumentsForCategories(ctx context.Context, categories ...models.Category) ([]string, error) {
	if err := f.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs.CategoriesOf(categories...), nil
}

// AllClassifications returns every document's classification, in the order
// the document map stores them. Used by the Chapter 7.1 runner to list
// every source document regardless of category.
func (f *Finder) AllClassifications(ctx context.Context) ([]models.DocumentClassification, error) {
	if err := f.EnsureInitialized(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs.Documents, nil
}

// GetDocumentPath returns the object-store key for documentID.
func (f *Finder) GetDocumentPath(documentID string) string {
	return path.Join(f.sourcePrefix, documentID)
}

func (f *Finder) classify(ctx context.Context) (*models.DocumentMap, error) {
	filenames, err := f.store.List(ctx, f.sourcePrefix)
	if err != nil {
		return nil, fmt.Errorf("listing source documents: %w", err)
	}
	if len(filenames) == 0 {
		return &models.DocumentMap{Version: 1}, nil
	}

	attached := make([]llm.AttachedDocument, 0, len(filenames))
	for _, fn := range filenames {
		attached = append(attached, llm.AttachedDocument{Key: fn, DisplayName: path.Base(fn)})
	}

	req := llm.GenerateRequest{
		Prompt:            classificationPrompt(filenames),
		Schema:            classificationSchema(),
		AttachedDocuments: attached,
	}

	var resp classificationResponse
	if err := f.client.GenerateStructured(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("classifying documents: %w", err)
	}

	if err := validateCoversEveryFilename(filenames, resp.Documents); err != nil {
		return nil, err
	}

	for i, d := range resp.Documents {
		if !d.Category.Valid() {
			resp.Documents[i].Category = models.CategorySonstiges
		}
	}

	return &models.DocumentMap{Documents: resp.Documents, Version: 1}, nil
}

func classificationPrompt(filenames []string) string {
	return fmt.Sprintf(
		"Classify each of the following %d source document filenames into exactly one BSI category: "+
			"Strukturanalyse, Modellierung, Netzplan, Sicherheitsleitlinie, Grundschutz-Check, Risikoanalyse, "+
			"Realisierungsplan, Vorheriger-Auditbericht, or Sonstiges for anything that fits none of the others. "+
			"Every filename must appear exactly once in the response. Filenames: %v",
		len(filenames), filenames)
}

func validateCoversEveryFilename(filenames []string, docs []models.DocumentClassification) error {
	seen := make(map[string]int, len(filenames))
	for _, d := range docs {
		seen[d.Filename]++
	}
	for _, fn := range filenames {
		if seen[fn] != 1 {
			return fmt.Errorf("%w: %q appears %d times", ErrClassificationIncomplete, fn, seen[fn])
		}
	}
	return nil
}

// degenerateMap is the last-resort fallback when classification itself
// fails: every source document is classified Sonstiges. Listing failures
// here are fatal; there is no further fallback for not knowing what
// documents exist.
func (f *Finder) degenerateMap(ctx context.Context) *models.DocumentMap {
	filenames, err := f.store.List(ctx, f.sourcePrefix)
	if err != nil {
		slog.Error("degenerate classification fallback could not list source documents", "error", err)
		return &models.DocumentMap{Version: 1}
	}
	docs := make([]models.DocumentClassification, len(filenames))
	for i, fn := range filenames {
		docs[i] = models.DocumentClassification{Filename: fn, Category: models.CategorySonstiges}
	}
	return &models.DocumentMap{Documents: docs, Version: 1}
}

// uploadIfAbsentJSON is the "first writer wins" JSON variant of
// AferoStore.UploadIfAbsent, used so concurrent initializers never clobber
// each other's document map.
func uploadIfAbsentJSON(ctx context.Context, store objectstore.Store, key string, v any) (bool, error) {
	type uploader interface {
		UploadIfAbsent(ctx context.Context, key string, b []byte) (bool, error)
	}
	u, ok := store.(uploader)
	if !ok {
		// Fall back to a plain write for Store implementations that don't
		// expose the CAS primitive; correctness degrades to last-writer-wins.
		return true, store.WriteJSON(ctx, key, v)
	}
	b, err := marshalJSON(v)
	if err != nil {
		return false, err
	}
	return u.UploadIfAbsent(ctx, key, b)
}
