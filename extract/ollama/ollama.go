// Package ollama extracts items through an Ollama chat endpoint, either a
// local server or a hosted one behind bearer keys.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"nutripal"
	"nutripal/extract"
)

const (
	ProviderName = "ollama"

	// LocalCredential marks a server that needs no Authorization header.
	LocalCredential = "local"

	DefaultEndpoint = "http://localhost:11434"
)

var DefaultModels = []string{
	"llama3.2",
	"qwen2.5",
	"mistral",
}

const systemPrompt = "You convert meal descriptions into nutrition data. Reply with a JSON array only."

type options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

type Options struct {
	BaseEndpoint string
	Models       []string
	Temperature  float32
	MaxTokens    int32
	HTTPClient   nutripal.HTTPClient
}

type Provider struct {
	endpoint   string
	models     []string
	httpClient nutripal.HTTPClient
	options    options
}

var _ extract.Provider = (*Provider)(nil)

func New(opts Options) *Provider {
	if opts.BaseEndpoint == "" {
		opts.BaseEndpoint = DefaultEndpoint
	}
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	temp := float64(opts.Temperature)
	if temp == 0 {
		temp = 0.2
	}
	return &Provider{
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		models:     opts.Models,
		httpClient: opts.HTTPClient,
		options: options{
			Temperature:   temp,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
			NumPredict:    int(opts.MaxTokens),
		},
	}
}

func (p *Provider) Name() string     { return ProviderName }
func (p *Provider) Models() []string { return p.models }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireResponse struct {
	Message    wireMessage `json:"message"`
	DoneReason string      `json:"done_reason,omitempty"`
}

// Generate sends one non-streaming chat request and returns the assistant
// content verbatim.
func (p *Provider) Generate(ctx context.Context, credential, model, prompt string) (string, error) {
	reqBytes, err := json.Marshal(wireRequest{
		Model: model,
		Messages: []wireMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: p.options,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if credential != "" && credential != LocalCredential {
		req.Header.Set("Authorization", "Bearer "+credential)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return "", extract.RejectedCredential(fmt.Errorf("ollama: %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("ollama: %s: %s", resp.Status, truncate(string(body), 256))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("ollama: failed to decode response: %w", err)
	}
	if wr.DoneReason == "length" {
		slog.Warn("EXTRACT: Ollama output truncated", "model", model)
	}
	return wr.Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
