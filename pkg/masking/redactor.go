// Package masking redacts sensitive text before it reaches a log line. The
// audit pipeline attaches whole customer documents to LLM calls and carries
// their free-text content through Umsetzungserlaeuterung fields and error
// messages; that content sometimes contains credentials or internal
// hostnames the customer never intended to leave their environment in a
// log aggregator. This package keeps a compiled-pattern shape and a
// built-in pattern set, applied unconditionally rather than resolved from a
// per-caller registry, since every log line in this pipeline faces the same
// kind of customer-document leakage risk.
package masking

import "regexp"

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Redactor applies an ordered list of patterns to a string, replacing every
// match. It never errors: redaction that fails open by leaving sensitive
// text in place is worse than a log line that is slightly mangled.
type Redactor struct {
	patterns []CompiledPattern
}

// NewRedactor builds a Redactor from an explicit pattern list.
func NewRedactor(patterns []CompiledPattern) *Redactor {
	return &Redactor{patterns: patterns}
}

// NewDefaultRedactor returns a Redactor with the built-in patterns: API
// keys and bearer tokens, basic-auth userinfo in URLs, and private IPv4
// addresses (customer network diagrams routinely include internal IPs).
func NewDefaultRedactor() *Redactor {
	return NewRedactor([]CompiledPattern{
		{Name: "bearer_token", Regex: regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`), Replacement: "[REDACTED_BEARER_TOKEN]"},
		{Name: "api_key", Regex: regexp.MustCompile(`(?i)(api[_-]?key|secret)[\s:=]+['"]?[A-Za-z0-9._-]{12,}['"]?`), Replacement: "[REDACTED_API_KEY]"},
		{Name: "url_userinfo", Regex: regexp.MustCompile(`://[^/\s:@]+:[^/\s:@]+@`), Replacement: "://[REDACTED]:[REDACTED]@"},
		{Name: "private_ipv4", Regex: regexp.MustCompile(`\b(?:10\.\d{1,3}\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3}|172\.(?:1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3})\b`), Replacement: "[REDACTED_IP]"},
	})
}

// Redact applies every pattern to s in order and returns the result.
func (r *Redactor) Redact(s string) string {
	for _, p := range r.patterns {
		s = p.Regex.ReplaceAllString(s, p.Replacement)
	}
	return s
}
