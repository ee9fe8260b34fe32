package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nutripal"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const defaultAttemptTimeout = 20 * time.Second

type Options struct {
	// PreferredModel is tried before the provider's own model list.
	PreferredModel string
	AttemptTimeout time.Duration
	Logger         nutripal.AttemptLogger
	Tracer         trace.Tracer
	Meter          metric.Meter
}

// Pipeline turns meal text into validated items by walking the model
// candidates of a provider until one yields something usable.
type Pipeline struct {
	provider   Provider
	keys       *KeyRing
	candidates []string
	timeout    time.Duration
	logger     nutripal.AttemptLogger
	tracer     trace.Tracer

	attempts     metric.Int64Counter
	items        metric.Int64Counter
	rejections   metric.Int64Counter
	attemptTimer metric.Float64Histogram
}

func NewPipeline(provider Provider, keys *KeyRing, opts Options) *Pipeline {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.Logger == nil {
		opts.Logger = nutripal.NewNoOpAttemptLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(nutripal.TracerNameExtract)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(nutripal.TracerNameExtract)
	}
	if keys == nil {
		keys = NewKeyRing(nil)
	}

	p := &Pipeline{
		provider:   provider,
		keys:       keys,
		candidates: Candidates(opts.PreferredModel, provider.Models()),
		timeout:    opts.AttemptTimeout,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
	}

	p.attempts, _ = opts.Meter.Int64Counter("extract_attempts_total",
		metric.WithDescription("Total number of model calls made during extraction"))
	p.items, _ = opts.Meter.Int64Counter("extract_items_total",
		metric.WithDescription("Total number of valid items extracted"))
	p.rejections, _ = opts.Meter.Int64Counter("extract_credential_rejections_total",
		metric.WithDescription("Total number of credentials rejected by the provider"))
	p.attemptTimer, _ = opts.Meter.Float64Histogram("extract_attempt_duration_seconds",
		metric.WithDescription("Duration of individual model calls in seconds"))

	return p
}

// Candidates returns the model order the pipeline tries.
func (p *Pipeline) Candidates() []string {
	return append([]string(nil), p.candidates...)
}

// Extract returns the items found in text. An empty slice with a nil error
// means nothing was recognized, including when no credential is configured
// or every candidate failed softly. A rejected credential yields a
// *CredentialError, and a done ctx yields ctx.Err().
func (p *Pipeline) Extract(ctx context.Context, text string) ([]Item, error) {
	ctx, span := p.tracer.Start(ctx, "Pipeline.Extract")
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return []Item{}, nil
	}

	key, keyIdx, ok := p.keys.Next()
	if !ok {
		slog.Warn("EXTRACT: No credentials configured, skipping extraction", "provider", p.provider.Name())
		span.SetAttributes(attribute.Bool("extract.no_credentials", true))
		return []Item{}, nil
	}
	span.SetAttributes(
		attribute.String("extract.provider", p.provider.Name()),
		attribute.Int("extract.credential_index", keyIdx),
	)

	prompt := BuildPrompt(text)

	for n, model := range p.candidates {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, "cancelled")
			return nil, err
		}

		items, err := p.attempt(ctx, n+1, key, keyIdx, model, prompt)
		switch {
		case err == nil:
			slog.Info("EXTRACT: Items extracted", "model", model, "items", len(items), "attempt", n+1)
			p.items.Add(ctx, int64(len(items)))
			span.SetAttributes(attribute.String("extract.model", model), attribute.Int("extract.items", len(items)))
			return items, nil

		case IsCredentialError(err):
			slog.Error("EXTRACT: Credential rejected, aborting", "provider", p.provider.Name(), "credential_index", keyIdx, "model", model)
			p.rejections.Add(ctx, 1)
			span.SetStatus(codes.Error, "credential rejected")
			return nil, &CredentialError{Provider: p.provider.Name(), Index: keyIdx, Err: err}

		case ctx.Err() != nil:
			span.SetStatus(codes.Error, "cancelled")
			return nil, ctx.Err()

		default:
			slog.Warn("EXTRACT: Candidate failed, trying next", "model", model, "error", err)
		}
	}

	slog.Warn("EXTRACT: No candidate produced items", "candidates", len(p.candidates))
	return []Item{}, nil
}

// attempt runs one model under the per-attempt timeout and records it.
func (p *Pipeline) attempt(ctx context.Context, n int, key string, keyIdx int, model, prompt string) ([]Item, error) {
	ctx, span := p.tracer.Start(ctx, fmt.Sprintf("Pipeline.Extract.Attempt.%d", n),
		trace.WithAttributes(attribute.String("extract.model", model)))
	defer span.End()

	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.provider.Generate(attemptCtx, key, model, prompt)
	var items []Item
	if err == nil {
		items, err = ParseItems(raw)
	}
	elapsed := time.Since(start)

	outcome := "ok"
	switch {
	case err == nil:
	case IsCredentialError(err):
		outcome = "credential_rejected"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, ErrNoArray), errors.Is(err, ErrNoItems):
		outcome = "unusable_output"
	default:
		outcome = "error"
	}

	attrs := metric.WithAttributes(attribute.String("model", model), attribute.String("outcome", outcome))
	p.attempts.Add(ctx, 1, attrs)
	p.attemptTimer.Record(ctx, elapsed.Seconds(), attrs)

	entry := nutripal.AttemptLog{
		Attempt:    n,
		Timestamp:  start,
		Provider:   p.provider.Name(),
		Model:      model,
		Credential: keyIdx,
		DurationMS: elapsed.Milliseconds(),
		Output:     raw,
		Items:      len(items),
	}
	if err != nil {
		entry.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	if lerr := p.logger.LogAttempt(entry); lerr != nil {
		slog.Warn("EXTRACT: Failed to record attempt", "error", lerr)
	}

	return items, err
}
