package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"AUDIT_TYPE", "TEST_MODE", "MAX_CONCURRENT_AI_REQUESTS", "OUTPUT_LANGUAGE", "SOURCE_PREFIX", "OUTPUT_PREFIX"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestInitializeAppliesDefaultsWhenEnvUnset(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_TYPE", string(AuditTypeZertifizierung))

	cfg, err := Initialize(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxConcurrentAIRequests)
	require.Equal(t, "source", cfg.SourcePrefix)
	require.Equal(t, 4, cfg.ChunkOverlapPages)
}

func TestInitializeEnvOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_TYPE", string(AuditTypeUeberwachung1))
	t.Setenv("MAX_CONCURRENT_AI_REQUESTS", "12")

	cfg, err := Initialize(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 12, cfg.MaxConcurrentAIRequests)
	require.Equal(t, AuditTypeUeberwachung1, cfg.AuditType)
}

func TestInitializeMissingAuditTypeFails(t *testing.T) {
	clearEnv(t)
	_, err := Initialize(context.Background(), "")
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestInitializeYAMLOverlayAppliesBSICatalogPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_TYPE", string(AuditTypeZertifizierung))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "audit.yaml"), []byte("bsi_catalog_path: /opt/catalog.yaml\nchunk_overlap_pages: 6\n"), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, "/opt/catalog.yaml", cfg.BSICatalogPath)
	require.Equal(t, 6, cfg.ChunkOverlapPages)
}

func TestInitializeMissingOverlayFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_TYPE", string(AuditTypeZertifizierung))

	_, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
}
