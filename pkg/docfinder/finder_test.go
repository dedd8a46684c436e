package docfinder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/fake"
	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

func testConfig() llm.Config {
	return llm.Config{MaxConcurrentAIRequests: 4, MaxRetries: 2, RetryBaseDelay: time.Millisecond, CallTimeout: time.Second}
}

func newTestStore(t *testing.T) objectstore.Store {
	t.Helper()
	return objectstore.NewAferoStore(afero.NewMemMapFs(), "/data")
}

func putSourceDocs(t *testing.T, store objectstore.Store, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, store.WriteBytes(context.Background(), "source/"+n, []byte("content")))
	}
}

func TestEnsureInitializedClassifiesAndPersists(t *testing.T) {
	store := newTestStore(t)
	putSourceDocs(t, store, "strukturanalyse.pdf", "netzplan.pdf")

	provider := &fake.Provider{}
	provider.OnJSON("Classify", map[string]any{
		"documents": []map[string]any{
			{"filename": "source/strukturanalyse.pdf", "category": "Strukturanalyse"},
			{"filename": "source/netzplan.pdf", "category": "Netzplan"},
		},
	})
	client := llm.NewLimitedClient(provider, testConfig())

	f := New(store, client, "source")
	require.NoError(t, f.EnsureInitialized(context.Background()))

	docs, err := f.GetDocumentsForCategories(context.Background(), models.CategoryStrukturanalyse)
	require.NoError(t, err)
	require.Equal(t, []string{"source/strukturanalyse.pdf"}, docs)

	exists, err := store.Exists(context.Background(), documentMapKey)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestEnsureInitializedLoadsExistingMap(t *testing.T) {
	store := newTestStore(t)
	existing := models.DocumentMap{
		Documents: []models.DocumentClassification{{Filename: "a.pdf", Category: models.CategoryRisikoanalyse}},
		Version:   1,
	}
	require.NoError(t, store.WriteJSON(context.Background(), documentMapKey, existing))

	provider := &fake.Provider{}
	client := llm.NewLimitedClient(provider, testConfig())

	f := New(store, client, "source")
	require.NoError(t, f.EnsureInitialized(context.Background()))
	require.Zero(t, provider.CallCount, "classification must not run when a document map already exists")

	docs, err := f.GetDocumentsForCategories(context.Background(), models.CategoryRisikoanalyse)
	require.NoError(t, err)
	require.Equal(t, []string{"a.pdf"}, docs)
}

func TestEnsureInitializedFallsBackToSonstigesOnIncompleteClassification(t *testing.T) {
	store := newTestStore(t)
	putSourceDocs(t, store, "mystery.pdf")

	provider := &fake.Provider{}
	provider.OnJSON("Classify", map[string]any{"documents": []map[string]any{}})
	client := llm.NewLimitedClient(provider, testConfig())

	f := New(store, client, "source")
	require.NoError(t, f.EnsureInitialized(context.Background()))

	docs, err := f.GetDocumentsForCategories(context.Background(), models.CategorySonstiges)
	require.NoError(t, err)
	require.Equal(t, []string{"source/mystery.pdf"}, docs)
}

func TestEnsureInitializedConcurrentCallersAgreeOnOneWinner(t *testing.T) {
	store := newTestStore(t)
	putSourceDocs(t, store, "a.pdf")

	provider := &fake.Provider{}
	provider.OnJSON("Classify", map[string]any{
		"documents": []map[string]any{{"filename": "source/a.pdf", "category": "Sonstiges"}},
	})
	client := llm.NewLimitedClient(provider, testConfig())

	var wg sync.WaitGroup
	finders := make([]*Finder, 8)
	for i := range finders {
		finders[i] = New(store, client, "source")
	}
	for _, f := range finders {
		wg.Add(1)
		go func(f *Finder) {
			defer wg.Done()
			require.NoError(t, f.EnsureInitialized(context.Background()))
		}(f)
	}
	wg.Wait()

	for _, f := range finders {
		docs, err := f.GetDocumentsForCategories(context.Background(), models.CategorySonstiges)
		require.NoError(t, err)
		require.Equal(t, []string{"source/a.pdf"}, docs)
	}
}

func TestGetDocumentPathJoinsSourcePrefix(t *testing.T) {
	f := New(nil, nil, "source")
	require.Equal(t, "source/a.pdf", f.GetDocumentPath("a.pdf"))
}
