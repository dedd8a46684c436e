package gscheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bsi-grundschutz/auditpilot/pkg/models"
)

func TestContentHashIsDeterministicAndInputSensitive(t *testing.T) {
	structure := &models.SystemStructureMap{Zielobjekte: []models.Zielobjekt{{Kuerzel: "SRV-01", Name: "Fileserver"}}}
	pdfBytes := []byte("fake pdf content")

	h1 := contentHash(pdfBytes, structure)
	h2 := contentHash(pdfBytes, structure)
	require.Equal(t, h1, h2)

	h3 := contentHash([]byte("different content"), structure)
	require.NotEqual(t, h1, h3)

	structure2 := &models.SystemStructureMap{Zielobjekte: []models.Zielobjekt{{Kuerzel: "SRV-02", Name: "Other"}}}
	h4 := contentHash(pdfBytes, structure2)
	require.NotEqual(t, h1, h4)
}
