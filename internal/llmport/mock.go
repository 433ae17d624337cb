package llmport

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a deterministic, in-process LLMPort used by tests and as
// a default when no real provider is configured. It echoes a templated
// response derived from the prompt so scoring logic downstream has
// something stable to reason about.
type MockProvider struct {
	mu        sync.Mutex
	responses map[string]string
	calls     int
}

// NewMockProvider constructs a MockProvider. responses maps a prompt
// substring to a canned response; prompts matching no entry get a generic
// echo response.
func NewMockProvider(responses map[string]string) *MockProvider {
	return &MockProvider{responses: responses}
}

// CallCount returns how many Generate/GenerateBatch prompts have been
// served, for test assertions.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	select {
	case <-ctx.Done():
		return "", &LLMTimeoutError{Provider: "mock", Timeout: opts.Timeout}
	default:
	}

	m.mu.Lock()
	m.calls++
	for substr, resp := range m.responses {
		if substr != "" && contains(prompt, substr) {
			m.mu.Unlock()
			return resp, nil
		}
	}
	m.mu.Unlock()

	return fmt.Sprintf("// mock response for: %s\nfunc placeholder() {}\n", truncate(prompt, 60)), nil
}

func (m *MockProvider) GenerateBatch(ctx context.Context, prompts []string, opts GenerateOptions) ([]string, error) {
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		r, err := m.Generate(ctx, p, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
