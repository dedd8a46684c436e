// Package llm provides the capability abstraction over a schema-constrained
// generative model. It enforces concurrency limits, retry-with-backoff, and
// JSON-schema validation uniformly for every caller; the concrete hosted
// model is out of scope here and is represented only by the Provider
// interface and the pkg/llm/fake test double.
package llm

import (
	"context"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
)

// AttachedDocument references a document the provider should read directly,
// by its object-store key, instead of having its content inlined in the
// prompt. This is the "direct document attachment" retrieval strategy, used
// in place of an embedding/vector-index strategy.
type AttachedDocument struct {
	Key         string // object-store key
	DisplayName string // human-readable name for prompt construction
}

// GenerateRequest is one generate_structured call.
type GenerateRequest struct {
	Prompt            string
	Schema            *schema.Schema
	AttachedDocuments []AttachedDocument
}

// LayoutBlock is one element of the hierarchical output of ParseLayout.
type LayoutBlock struct {
	Text     string        `json:"text"`
	Page     int           `json:"page"`
	Children []LayoutBlock `json:"children,omitempty"`
}

// RawResult is the raw JSON payload returned by a provider before schema
// validation and unmarshalling into the caller's Go type.
type RawResult = []byte

// Provider is the low-level contract a concrete hosted-model integration
// implements. Client wraps a Provider with concurrency limiting, retry, and
// schema enforcement so Provider implementations stay simple.
type Provider interface {
	// Generate performs one raw structured-generation call. It must return
	// ErrTransient, ErrSchema, ErrBlocked, or ErrFatal (wrapped) on failure;
	// Client does not inspect errors beyond errors.Is against these kinds.
	Generate(ctx context.Context, req GenerateRequest) (RawResult, error)

	// Embed returns one fixed-dimension vector per input text. Unused by the
	// core pipeline, which picks direct attachment over embeddings, but part
	// of the contract so a provider can support retrieval strategies that do
	// need it.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// ParseLayout returns a hierarchical blocks-with-page-numbers
	// representation of a PDF. Optional: a Provider may return ErrFatal
	// unconditionally if it does not support layout parsing.
	ParseLayout(ctx context.Context, pdfBytes []byte) ([]LayoutBlock, error)
}

// Client is the interface every stage runner depends on.
type Client interface {
	// GenerateStructured returns a value validated against req.Schema,
	// unmarshalled into out (a pointer). Retries internally per the
	// wrapped Provider's contract.
	GenerateStructured(ctx context.Context, req GenerateRequest, out any) error

	Embed(ctx context.Context, texts []string) ([][]float32, error)

	ParseLayout(ctx context.Context, pdfBytes []byte) ([]LayoutBlock, error)
}

// Config controls retry and concurrency behavior, read from
// pkg/config.Config.MaxConcurrentAIRequests.
type Config struct {
	MaxConcurrentAIRequests int
	MaxRetries              int
	RetryBaseDelay          time.Duration
	CallTimeout             time.Duration
}

// DefaultConfig returns this pipeline's default retry and concurrency
// settings.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentAIRequests: 5,
		MaxRetries:              5,
		RetryBaseDelay:          2 * time.Second,
		CallTimeout:             7200 * time.Second,
	}
}
