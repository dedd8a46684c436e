package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/cenkalti/backoff/v4"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/semaphore"
)

// LimitedClient wraps a Provider with the three contracts the LLM interface
// demands: a counting semaphore bounding concurrent calls,
// exponential-backoff retry, and schema validation of every
// generate_structured response. Every caller in the pipeline goes through a
// LimitedClient, never a raw Provider.
type LimitedClient struct {
	provider Provider
	sem      *semaphore.Weighted
	cfg      Config
}

// NewLimitedClient constructs a Client enforcing cfg's concurrency and retry
// budget around provider.
func NewLimitedClient(provider Provider, cfg Config) *LimitedClient {
	return &LimitedClient{
		provider: provider,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrentAIRequests)),
		cfg:      cfg,
	}
}

// GenerateStructured implements Client.
func (c *LimitedClient) GenerateStructured(ctx context.Context, req GenerateRequest, out any) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer c.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	var raw RawResult
	op := func() error {
		r, err := c.provider.Generate(callCtx, req)
		if err != nil {
			if errors.Is(err, ErrSchema) || errors.Is(err, ErrBlocked) || errors.Is(err, ErrFatal) {
				return backoff.Permanent(err)
			}
			return err // ErrTransient and unclassified errors are retried
		}
		if req.Schema != nil {
			if verr := validate(r, req.Schema); verr != nil {
				return backoff.Permanent(fmt.Errorf("%w: %v", ErrSchema, verr))
			}
		}
		raw = r
		return nil
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryBaseDelay
	exp.Multiplier = 2
	policy := backoff.WithMaxRetries(exp, uint64(maxInt(c.cfg.MaxRetries-1, 0)))

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		slog.Warn("llm generate_structured retrying",
			"attempt", attempt, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(policy, callCtx), notify); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decoding validated response: %v", ErrFatal, err)
	}
	return nil
}

// Embed implements Client.
func (c *LimitedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer c.sem.Release(1)
	return c.provider.Embed(ctx, texts)
}

// ParseLayout implements Client.
func (c *LimitedClient) ParseLayout(ctx context.Context, pdfBytes []byte) ([]LayoutBlock, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer c.sem.Release(1)
	return c.provider.ParseLayout(ctx, pdfBytes)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func validate(raw RawResult, s *schema.Schema) error {
	schemaBytes, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshalling schema: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("running schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%d violation(s): %v", len(msgs), msgs)
	}
	return nil
}
