// Package gemini adapts the Google Gen AI SDK to the extraction pipeline.
// Credentials are Gemini API keys.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"nutripal/extract"

	"google.golang.org/genai"
)

const (
	ProviderName = "gemini"

	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 1024
)

// DefaultModels is the fallback order after any preferred model.
var DefaultModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.5-flash-lite",
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Models          []string
	Temperature     float32
	MaxOutputTokens int32
}

type Provider struct {
	opts      Options
	newClient func(ctx context.Context, apiKey string) (generator, error)

	mu      sync.Mutex
	clients map[string]generator
}

var _ extract.Provider = (*Provider)(nil)

func New(opts Options) *Provider {
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = defaultMaxOutputTokens
	}
	return &Provider{
		opts:      opts,
		newClient: newGenAIClient,
		clients:   make(map[string]generator),
	}
}

func newGenAIClient(ctx context.Context, apiKey string) (generator, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return c.Models, nil
}

func (p *Provider) Name() string     { return ProviderName }
func (p *Provider) Models() []string { return p.opts.Models }

// client returns the cached client for apiKey, creating it on first use.
func (p *Provider) client(ctx context.Context, apiKey string) (generator, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[apiKey]; ok {
		return c, nil
	}
	c, err := p.newClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	p.clients[apiKey] = c
	return c, nil
}

func (p *Provider) Generate(ctx context.Context, apiKey, model, prompt string) (string, error) {
	c, err := p.client(ctx, apiKey)
	if err != nil {
		if isCredentialRejection(err) {
			return "", extract.RejectedCredential(err)
		}
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.opts.Temperature),
		MaxOutputTokens:  p.opts.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	if budget, ok := thinkingBudget(model); ok {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(budget)}
	}

	resp, err := c.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	if err != nil {
		if isCredentialRejection(err) {
			return "", extract.RejectedCredential(err)
		}
		return "", fmt.Errorf("gemini %s: %w", model, err)
	}
	if resp == nil {
		return "", nil
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		slog.Warn("GEMINI: Prompt blocked", "model", model, "reason", resp.PromptFeedback.BlockReason)
		return "", fmt.Errorf("gemini %s: prompt blocked: %s", model, resp.PromptFeedback.BlockReason)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		slog.Warn("GEMINI: Output truncated", "model", model, "max_output_tokens", p.opts.MaxOutputTokens)
		return "", fmt.Errorf("gemini %s: output truncated at %d tokens", model, p.opts.MaxOutputTokens)
	}

	text := resp.Text()
	slog.Debug("GEMINI: Generated", "model", model, "text_len", len(text))
	return text, nil
}

// thinkingBudget returns the smallest thinking budget each 2.5 model accepts;
// thoughts count against MaxOutputTokens. Older models take no thinking config.
func thinkingBudget(model string) (int32, bool) {
	switch {
	case strings.HasPrefix(model, "gemini-2.5-pro"):
		return 128, true
	case strings.HasPrefix(model, "gemini-2.5"):
		return 0, true
	default:
		return 0, false
	}
}

// isCredentialRejection reports whether the API refused the key itself.
func isCredentialRejection(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return true
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		if apiErrPtr.Code == http.StatusUnauthorized || apiErrPtr.Code == http.StatusForbidden {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "API key not valid") || strings.Contains(msg, "API_KEY_INVALID")
}
