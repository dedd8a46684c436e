package llm

import "errors"

// Sentinel error kinds returned by Client operations.
var (
	// ErrTransient indicates a retryable provider failure (rate limit,
	// connection reset, 5xx). The client retries these internally up to its
	// retry budget before giving up.
	ErrTransient = errors.New("llm: transient provider error")

	// ErrSchema indicates the provider's response did not validate against
	// the requested schema after all retries.
	ErrSchema = errors.New("llm: schema validation failed")

	// ErrBlocked indicates the provider refused to generate content (safety
	// filter, content policy). Treated like ErrSchema: not retried further.
	ErrBlocked = errors.New("llm: provider refused to generate")

	// ErrFatal indicates a non-retryable, non-schema failure (bad
	// credentials, malformed request).
	ErrFatal = errors.New("llm: fatal provider error")
)
