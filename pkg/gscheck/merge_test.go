package gscheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestMergeAndRefinePicksLongestTitle(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Titel: "Short"},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Titel: "A much longer title"},
	}
	merged := MergeAndRefine(raw)
	require.Len(t, merged, 1)
	require.Equal(t, "A much longer title", merged[0].Titel)
}

func TestMergeAndRefineStatusPriorityMostSevereWins(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Umsetzungsstatus: models.StatusJa},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Umsetzungsstatus: models.StatusNein},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Umsetzungsstatus: models.StatusTeilweise},
	}
	merged := MergeAndRefine(raw)
	require.Len(t, merged, 1)
	require.Equal(t, models.StatusNein, merged[0].Umsetzungsstatus)
}

func TestMergeAndRefineConcatenatesUniqueSentencesCaseInsensitively(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Umsetzungserlaeuterung: "Firewall is configured. Logging enabled."},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", Umsetzungserlaeuterung: "FIREWALL IS CONFIGURED.  Patches applied monthly."},
	}
	merged := MergeAndRefine(raw)
	require.Len(t, merged, 1)
	require.Equal(t, "Firewall is configured. Logging enabled. Patches applied monthly.", merged[0].Umsetzungserlaeuterung)
}

func TestMergeAndRefinePicksMostRecentValidDate(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", DatumLetztePruefung: date("2024-01-01")},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1", DatumLetztePruefung: date("2025-06-01")},
	}
	merged := MergeAndRefine(raw)
	require.Len(t, merged, 1)
	require.Equal(t, "2025-06-01", merged[0].DatumLetztePruefung.Format("2006-01-02"))
}

func TestMergeAndRefineDropsInvalidAnforderungIDs(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "not-a-valid-id"},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1"},
	}
	merged := MergeAndRefine(raw)
	require.Len(t, merged, 1)
	require.Equal(t, "SYS.1.1.A1", merged[0].AnforderungID)
}

func TestMergeAndRefineOutputIsDeterministicallyOrdered(t *testing.T) {
	raw := []models.Requirement{
		{ZielobjektKuerzel: "SRV-02", AnforderungID: "SYS.1.1.A1"},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "ORP.2.A5"},
		{ZielobjektKuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1"},
	}
	merged := MergeAndRefine(raw)
	require.Equal(t, []models.RequirementKey{
		{Kuerzel: "SRV-01", AnforderungID: "ORP.2.A5"},
		{Kuerzel: "SRV-01", AnforderungID: "SYS.1.1.A1"},
		{Kuerzel: "SRV-02", AnforderungID: "SYS.1.1.A1"},
	}, []models.RequirementKey{merged[0].Key(), merged[1].Key(), merged[2].Key()})
}
