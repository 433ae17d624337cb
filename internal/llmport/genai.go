package llmport

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"deepreason/internal/logging"
)

// GenAIProvider implements LLMPort against Google's Gemini API, used by
// the Multi-LLM Ensemble mode as a second "provider" tuple member
// alongside MockProvider.
type GenAIProvider struct {
	client *genai.Client
	model  string
	log    *logging.Logger
}

// NewGenAIProvider constructs a GenAIProvider. apiKey must be non-empty.
func NewGenAIProvider(ctx context.Context, apiKey, model string) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llmport: genai API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llmport: failed to create genai client: %w", err)
	}

	return &GenAIProvider{client: client, model: model, log: logging.Get(logging.CategoryLLM)}, nil
}

func (p *GenAIProvider) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	model := p.model
	if opts.Model != "" {
		model = opts.Model
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	result, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return "", &LLMTimeoutError{Provider: "genai", Timeout: opts.Timeout}
		}
		return "", &LLMError{Provider: "genai", Cause: err}
	}

	p.log.Debug("genai generate: model=%s prompt_len=%d", model, len(prompt))
	return result.Text(), nil
}

func (p *GenAIProvider) GenerateBatch(ctx context.Context, prompts []string, opts GenerateOptions) ([]string, error) {
	out := make([]string, 0, len(prompts))
	for _, prompt := range prompts {
		r, err := p.Generate(ctx, prompt, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
