// Package fake provides a Provider test double so the pipeline can be
// exercised end-to-end without a network call, mirroring the role the
// teacher codebase's test/e2e/mock_llm.go plays for its own LLM dependency.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
)

// Responder produces a raw JSON response for a given prompt. Tests register
// one per expected prompt substring match, in registration order; the first
// match wins.
type Responder func(req llm.GenerateRequest) (llm.RawResult, error)

// Provider is a scriptable llm.Provider. Zero value is usable; register
// responders with On, or set Default for a catch-all.
type Provider struct {
	mu         sync.Mutex
	matchers   []matcher
	Default    Responder
	CallCount  int
	LastPrompt string
}

type matcher struct {
	contains string
	fn       Responder
}

// On registers fn to answer any request whose prompt contains substr.
func (p *Provider) On(substr string, fn Responder) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matchers = append(p.matchers, matcher{contains: substr, fn: fn})
}

// OnJSON is a convenience wrapping On: fn's return value is marshalled.
func (p *Provider) OnJSON(substr string, value any) {
	p.On(substr, func(llm.GenerateRequest) (llm.RawResult, error) {
		return json.Marshal(value)
	})
}

func (p *Provider) Generate(_ context.Context, req llm.GenerateRequest) (llm.RawResult, error) {
	p.mu.Lock()
	p.CallCount++
	p.LastPrompt = req.Prompt
	matchers := append([]matcher(nil), p.matchers...)
	def := p.Default
	p.mu.Unlock()

	for _, m := range matchers {
		if strings.Contains(req.Prompt, m.contains) {
			return m.fn(req)
		}
	}
	if def != nil {
		return def(req)
	}
	return nil, fmt.Errorf("%w: no fake responder registered for prompt %q", llm.ErrFatal, req.Prompt)
}

func (p *Provider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func (p *Provider) ParseLayout(context.Context, []byte) ([]llm.LayoutBlock, error) {
	return nil, fmt.Errorf("%w: fake provider does not implement layout parsing", llm.ErrFatal)
}

