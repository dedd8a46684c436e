package config

import "fmt"

// validate runs every field-level check and returns the first failure:
// required fields first, then range/enum checks.
func validate(cfg *Config) error {
	if cfg.AuditType == "" {
		return NewValidationError("audit_type", ErrMissingRequiredField)
	}
	if !cfg.AuditType.Valid() {
		return NewValidationError("audit_type", fmt.Errorf("%w: %q", ErrInvalidValue, cfg.AuditType))
	}

	if cfg.MaxConcurrentAIRequests <= 0 {
		return NewValidationError("max_concurrent_ai_requests", fmt.Errorf("%w: must be positive", ErrInvalidValue))
	}

	if cfg.TestMode {
		if cfg.TestModeMaxDocuments <= 0 {
			return NewValidationError("test_mode_max_documents", fmt.Errorf("%w: must be positive when test_mode is enabled", ErrInvalidValue))
		}
		if cfg.TestModeSampleFraction <= 0 || cfg.TestModeSampleFraction > 1 {
			return NewValidationError("test_mode_sample_fraction", fmt.Errorf("%w: must be in (0, 1]", ErrInvalidValue))
		}
	}

	if cfg.ChunkOverlapPages < 2 || cfg.ChunkOverlapPages > 10 {
		return NewValidationError("chunk_overlap_pages", fmt.Errorf("%w: must be in [2, 10]", ErrInvalidValue))
	}

	if cfg.SourcePrefix == "" {
		return NewValidationError("source_prefix", ErrMissingRequiredField)
	}

	return nil
}
