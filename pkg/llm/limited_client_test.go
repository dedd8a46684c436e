package llm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bsi-grundschutz/auditpilot/pkg/llm"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/fake"
	"github.com/bsi-grundschutz/auditpilot/pkg/llm/schema"
	"github.com/stretchr/testify/require"
)

func testConfig() llm.Config {
	return llm.Config{
		MaxConcurrentAIRequests: 2,
		MaxRetries:              3,
		RetryBaseDelay:          time.Millisecond,
		CallTimeout:             time.Second,
	}
}

func TestGenerateStructuredHappyPath(t *testing.T) {
	p := &fake.Provider{}
	p.OnJSON("classify", map[string]string{"category": "Sonstiges"})
	c := llm.NewLimitedClient(p, testConfig())

	var out struct {
		Category string `json:"category"`
	}
	s := schema.Object(map[string]*schema.Schema{
		"category": schema.String("Sonstiges"),
	}, "category")

	err := c.GenerateStructured(context.Background(), llm.GenerateRequest{
		Prompt: "please classify this document",
		Schema: s,
	}, &out)
	require.NoError(t, err)
	require.Equal(t, "Sonstiges", out.Category)
	require.Equal(t, 1, p.CallCount)
}

func TestGenerateStructuredSchemaViolationFailsWithoutExhaustingRetries(t *testing.T) {
	p := &fake.Provider{}
	p.OnJSON("classify", map[string]string{"category": "NotARealCategory"})
	c := llm.NewLimitedClient(p, testConfig())

	s := schema.Object(map[string]*schema.Schema{
		"category": schema.String("Sonstiges", "Strukturanalyse"),
	}, "category")

	err := c.GenerateStructured(context.Background(), llm.GenerateRequest{
		Prompt: "please classify this",
		Schema: s,
	}, &struct{}{})
	require.Error(t, err)
	require.True(t, errors.Is(err, llm.ErrSchema))
	require.Equal(t, 1, p.CallCount, "schema violations should fail fast, not retry")
}

func TestGenerateStructuredRetriesTransientErrors(t *testing.T) {
	p := &fake.Provider{}
	attempts := 0
	p.On("flaky", func(llm.GenerateRequest) (llm.RawResult, error) {
		attempts++
		if attempts < 3 {
			return nil, llm.ErrTransient
		}
		return []byte(`{"ok":true}`), nil
	})
	c := llm.NewLimitedClient(p, testConfig())

	var out struct {
		OK bool `json:"ok"`
	}
	err := c.GenerateStructured(context.Background(), llm.GenerateRequest{Prompt: "flaky call"}, &out)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, 3, attempts)
}

func TestGenerateStructuredBoundsConcurrency(t *testing.T) {
	p := &fake.Provider{}
	var current, max int32
	var mu sync.Mutex

	p.Default = func(llm.GenerateRequest) (llm.RawResult, error) {
		mu.Lock()
		current++
		if current > max {
			max = current
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		current--
		mu.Unlock()
		return []byte(`{}`), nil
	}

	cfg := testConfig()
	cfg.MaxConcurrentAIRequests = 2
	c := llm.NewLimitedClient(p, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.GenerateStructured(context.Background(), llm.GenerateRequest{Prompt: "x"}, &struct{}{})
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, int(max), 2)
}
