package docfinder

import "errors"

// ErrClassificationIncomplete indicates the LLM's classification response
// did not cover every source filename exactly once.
var ErrClassificationIncomplete = errors.New("docfinder: classification response incomplete")
