package stages

import "github.com/bsi-grundschutz/auditpilot/pkg/config"

// limitDocuments applies config.Config's test-mode document cap ("at most N
// input documents") to a list of document IDs already in deterministic
// order.
func limitDocuments(cfg *config.Config, docIDs []string) []string {
	if !cfg.TestMode || len(docIDs) <= cfg.TestModeMaxDocuments {
		return docIDs
	}
	return docIDs[:cfg.TestModeMaxDocuments]
}

// sampleCount applies config.Config's test-mode sample fraction ("at most
// 10% of items in any generation step") to a slice length, always keeping
// at least one item so a non-empty input never degenerates to an empty
// generation step.
func sampleCount(cfg *config.Config, n int) int {
	if !cfg.TestMode || n == 0 {
		return n
	}
	capped := int(float64(n) * cfg.TestModeSampleFraction)
	if capped < 1 {
		capped = 1
	}
	if capped > n {
		capped = n
	}
	return capped
}
