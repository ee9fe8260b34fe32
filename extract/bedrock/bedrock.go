// Package bedrock runs extraction prompts through the Bedrock Converse API.
// Credentials are AWS shared-config profile names; "default" uses the
// default credential chain.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"nutripal/extract"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

const (
	ProviderName = "bedrock"

	// Controls the maximum number of tokens the model can generate in one response.
	defaultMaxTokens = 1024

	defaultTemperature = 0.2

	defaultTopP = 0.9

	systemPrompt = "You are a nutrition extraction service. Reply with a single JSON array and nothing else."
)

// DefaultModels are inference profile IDs, not foundation model IDs.
// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
var DefaultModels = []string{
	"us.anthropic.claude-3-7-sonnet-20250219-v1:0",
	"us.anthropic.claude-3-5-haiku-20241022-v1:0",
	"us.amazon.nova-pro-v1:0",
	"us.amazon.nova-lite-v1:0",
}

// Error codes meaning the caller's identity was refused, not the request.
var credentialErrorCodes = map[string]bool{
	"UnrecognizedClientException": true,
	"InvalidSignatureException":   true,
	"ExpiredTokenException":       true,
	"IncompleteSignature":         true,
	"InvalidClientTokenId":        true,
}

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type Options struct {
	Models      []string
	Region      string
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type Provider struct {
	opts      Options
	newClient func(ctx context.Context, profile string) (bedrockRuntimeClient, error)

	mu      sync.Mutex
	clients map[string]bedrockRuntimeClient
}

var _ extract.Provider = (*Provider)(nil)

func New(opts Options) *Provider {
	if len(opts.Models) == 0 {
		opts.Models = DefaultModels
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	p := &Provider{opts: opts, clients: make(map[string]bedrockRuntimeClient)}
	p.newClient = p.newRuntimeClient
	return p
}

func (p *Provider) newRuntimeClient(ctx context.Context, profile string) (bedrockRuntimeClient, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRetryMaxAttempts(2)}
	if profile != "" && profile != "default" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(profile))
	}
	if p.opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(p.opts.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func (p *Provider) Name() string     { return ProviderName }
func (p *Provider) Models() []string { return p.opts.Models }

func (p *Provider) client(ctx context.Context, profile string) (bedrockRuntimeClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[profile]; ok {
		return c, nil
	}
	c, err := p.newClient(ctx, profile)
	if err != nil {
		return nil, err
	}
	p.clients[profile] = c
	return c, nil
}

func (p *Provider) Generate(ctx context.Context, profile, model, prompt string) (string, error) {
	brc, err := p.client(ctx, profile)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("failed to load AWS config: %w", ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("failed to load AWS config: %w", err)
		}
		// A missing or malformed profile is a credential problem, not a model one.
		return "", extract.RejectedCredential(fmt.Errorf("failed to load AWS config: %w", err))
	}

	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
		System:  []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: systemPrompt}},
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(p.opts.MaxTokens),
			Temperature: aws.Float32(p.opts.Temperature),
			TopP:        aws.Float32(p.opts.TopP),
		},
	}

	out, err := brc.Converse(ctx, in)
	if err != nil {
		if isCredentialRejection(err) {
			return "", extract.RejectedCredential(err)
		}
		return "", fmt.Errorf("bedrock %s: %w", model, err)
	}

	attrs := []any{"model", model, "stop_reason", out.StopReason}
	if out.Usage != nil {
		attrs = append(attrs,
			"input_tokens", aws.ToInt32(out.Usage.InputTokens),
			"output_tokens", aws.ToInt32(out.Usage.OutputTokens))
	}
	if out.Metrics != nil {
		attrs = append(attrs, "latency_ms", aws.ToInt64(out.Metrics.LatencyMs))
	}
	slog.Info("BEDROCK: Converse succeeded", attrs...)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		return "", fmt.Errorf("bedrock %s: model hit MaxTokens limit", model)
	case types.StopReasonContentFiltered, types.StopReasonGuardrailIntervened:
		return "", fmt.Errorf("bedrock %s: response blocked by safety filters", model)
	}

	return textFromOutput(out), nil
}

// textFromOutput joins the assistant's text blocks with newlines.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}

	var texts []string
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}

func isCredentialRejection(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return credentialErrorCodes[apiErr.ErrorCode()]
	}
	return false
}
