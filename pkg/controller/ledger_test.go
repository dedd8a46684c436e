package controller

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
	"github.com/bsi-grundschutz/auditpilot/pkg/objectstore"
)

func TestLedgerIngestAssignsSequentialIDsPerCategory(t *testing.T) {
	l := newFindingsLedger()
	added := l.ingest([]models.Finding{
		{Category: models.FindingMinorDeviation, Description: "Patchstand veraltet"},
		{Category: models.FindingMinorDeviation, Description: "Backup-Konzept fehlt"},
		{Category: models.FindingMajorDeviation, Description: "Kein Notfallplan"},
	})
	require.Len(t, added, 3)
	require.Equal(t, "AG-01", added[0].ID)
	require.Equal(t, "AG-02", added[1].ID)
	require.Equal(t, "AS-01", added[2].ID)
}

func TestLedgerIngestCollapsesDuplicatesByNormalizedDescription(t *testing.T) {
	l := newFindingsLedger()
	l.ingest([]models.Finding{{Category: models.FindingMinorDeviation, Description: "Patchstand  veraltet"}})
	added := l.ingest([]models.Finding{{Category: models.FindingMinorDeviation, Description: "patchstand veraltet"}})
	require.Empty(t, added)
	require.Len(t, l.snapshot(), 1)
}

func TestLedgerLoadExistingPreservesIDsAndSequenceAcrossResume(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewAferoStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, store.WriteJSON(ctx, AllFindingsKey, []models.Finding{
		{ID: "AG-01", Category: models.FindingMinorDeviation, Description: "Patchstand veraltet"},
		{ID: "E-03", Category: models.FindingRecommendation, Description: "MFA einfuehren"},
	}))

	l := newFindingsLedger()
	require.NoError(t, l.loadExisting(ctx, store))
	require.Len(t, l.snapshot(), 2)

	added := l.ingest([]models.Finding{
		{Category: models.FindingMinorDeviation, Description: "Neuer Befund"},
		{Category: models.FindingRecommendation, Description: "Weitere Empfehlung"},
	})
	require.Len(t, added, 2)
	require.Equal(t, "AG-02", added[0].ID)
	require.Equal(t, "E-04", added[1].ID)

	dup := l.ingest([]models.Finding{{Category: models.FindingMinorDeviation, Description: "patchstand veraltet"}})
	require.Empty(t, dup, "a finding already carried over from the previous report must be recognized as a duplicate")
}

func TestLedgerLoadExistingOnEmptyStoreIsANoop(t *testing.T) {
	store := objectstore.NewAferoStore(afero.NewMemMapFs(), "/data")
	l := newFindingsLedger()
	require.NoError(t, l.loadExisting(context.Background(), store))
	require.Empty(t, l.snapshot())
}

func TestLedgerPersistRoundTrips(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewAferoStore(afero.NewMemMapFs(), "/data")
	l := newFindingsLedger()
	l.ingest([]models.Finding{{Category: models.FindingMajorDeviation, Description: "Kein Notfallplan"}})
	require.NoError(t, l.persist(ctx, store))

	var persisted []models.Finding
	require.NoError(t, store.ReadJSON(ctx, AllFindingsKey, &persisted))
	require.Len(t, persisted, 1)
	require.Equal(t, "AS-01", persisted[0].ID)
}
