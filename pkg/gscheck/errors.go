// Package gscheck implements the Grundschutz-Check Extractor:
// ground-truth-driven semantic chunking of the Grundschutz-Check PDF,
// followed by parallel per-chunk extraction, merge-and-refine
// reconstruction, and targeted analysis over the merged requirements list.
package gscheck

import "errors"

// ErrNoHeadersFound indicates Phase A could not locate a single Zielobjekt
// section header in the Grundschutz-Check document.
var ErrNoHeadersFound = errors.New("gscheck: no zielobjekt section headers found")
