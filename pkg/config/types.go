// Package config loads and validates pipeline-wide configuration: the audit
// type driving Chapter-4 logic, test-mode scaling, the LLM concurrency bound,
// output language, and the object-store layout. Its "topology" is the fixed
// ten-stage DAG in pkg/stages, not something user configuration builds.
package config

// AuditType drives Chapter-4 audit-plan logic.
type AuditType string

const (
	AuditTypeZertifizierung AuditType = "Zertifizierungsaudit"
	AuditTypeUeberwachung1  AuditType = "1. Überwachungsaudit"
	AuditTypeUeberwachung2  AuditType = "2. Überwachungsaudit"
)

// Valid reports whether t is one of the enumerated audit types.
func (t AuditType) Valid() bool {
	switch t {
	case AuditTypeZertifizierung, AuditTypeUeberwachung1, AuditTypeUeberwachung2:
		return true
	default:
		return false
	}
}

// Config is the fully loaded and validated pipeline configuration.
type Config struct {
	AuditType               AuditType
	TestMode                bool
	TestModeMaxDocuments    int
	TestModeSampleFraction  float64
	MaxConcurrentAIRequests int
	OutputLanguage          string

	// SourcePrefix / OutputPrefix are object-store key prefixes: source
	// documents live under SourcePrefix, every artifact this pipeline
	// produces lives under OutputPrefix.
	SourcePrefix string
	OutputPrefix string

	// BSICatalogPath optionally overrides the embedded BSI Level-1 MUSS
	// catalog shipped in pkg/bsicatalog with a built-in-config-plus-
	// user-override pattern.
	BSICatalogPath string

	// ChunkOverlapPages is the chunk-overlap window used when splitting an
	// oversized Zielobjekt section. It must lie in [2, 10]; validate rejects
	// any other value.
	ChunkOverlapPages int
}

// Stats is a small summary of the configuration, suitable for a log line or
// a health-check body.
type Stats struct {
	AuditType               AuditType
	TestMode                bool
	MaxConcurrentAIRequests int
}

// Stats summarizes cfg for logging/health reporting.
func (c *Config) Stats() Stats {
	return Stats{
		AuditType:               c.AuditType,
		TestMode:                c.TestMode,
		MaxConcurrentAIRequests: c.MaxConcurrentAIRequests,
	}
}
