package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		AuditType:               AuditTypeZertifizierung,
		MaxConcurrentAIRequests: 5,
		SourcePrefix:            "source",
		ChunkOverlapPages:       4,
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, validate(&cfg))
}

func TestValidateRejectsUnknownAuditType(t *testing.T) {
	cfg := validConfig()
	cfg.AuditType = "Not A Real Audit"
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)
}

func TestValidateRejectsNonPositiveConcurrency(t *testing.T) {
	cfg := validConfig()
	cfg.MaxConcurrentAIRequests = 0
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)
}

func TestValidateRejectsOutOfRangeChunkOverlap(t *testing.T) {
	cfg := validConfig()
	cfg.ChunkOverlapPages = 1
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)

	cfg.ChunkOverlapPages = 11
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)
}

func TestValidateRequiresTestModeFieldsWhenEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.TestMode = true
	cfg.TestModeMaxDocuments = 0
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)

	cfg.TestModeMaxDocuments = 3
	cfg.TestModeSampleFraction = 1.5
	require.ErrorIs(t, validate(&cfg), ErrInvalidValue)

	cfg.TestModeSampleFraction = 0.1
	require.NoError(t, validate(&cfg))
}
