// Package providers builds the configured extraction pipeline.
package providers

import (
	"fmt"
	"log/slog"

	"nutripal"
	"nutripal/extract"
	"nutripal/extract/bedrock"
	"nutripal/extract/gemini"
	"nutripal/extract/ollama"
)

// New returns the provider named by cfg.Provider.
func New(cfg nutripal.ExtractConfig) (extract.Provider, error) {
	switch cfg.Provider {
	case gemini.ProviderName, "":
		return gemini.New(gemini.Options{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		}), nil
	case bedrock.ProviderName:
		return bedrock.New(bedrock.Options{
			Region:      cfg.BedrockRegion,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	case ollama.ProviderName:
		return ollama.New(ollama.Options{
			BaseEndpoint: cfg.OllamaEndpoint,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown extraction provider %q", cfg.Provider)
	}
}

// NewPipeline wires the configured provider, its credentials and logger.
func NewPipeline(cfg nutripal.ExtractConfig, logger nutripal.AttemptLogger) (*extract.Pipeline, error) {
	provider, err := New(cfg)
	if err != nil {
		return nil, err
	}
	keys := extract.NewKeyRing(cfg.Credentials())
	if keys.Len() == 0 {
		slog.Warn("SETUP: No extraction credentials configured; parsing will return no items", "provider", provider.Name())
	}
	p := extract.NewPipeline(provider, keys, extract.Options{
		PreferredModel: cfg.PreferredModel(),
		AttemptTimeout: cfg.AttemptTimeout,
		Logger:         logger,
	})
	slog.Info("SETUP: Extraction pipeline ready",
		"provider", provider.Name(),
		"credentials", keys.Len(),
		"candidates", p.Candidates())
	return p, nil
}
