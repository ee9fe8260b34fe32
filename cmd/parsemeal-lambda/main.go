package main

import (
	"context"
	"log"
	"log/slog"
	"strings"

	"nutripal"
	"nutripal/extract"
	"nutripal/extract/providers"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joeshaw/envdecode"
)

type Params struct {
	Text string `json:"text"`
}

type Results struct {
	Items   []extract.Item `json:"items"`
	Message string         `json:"message,omitempty"`
}

func main() {
	slog.SetDefault(nutripal.NewLogger("info", "json"))

	var extractConfig nutripal.ExtractConfig
	if err := envdecode.Decode(&extractConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	pipeline, err := providers.NewPipeline(extractConfig, nutripal.NewStdoutAttemptLogger())
	if err != nil {
		log.Fatalf("Failed to build extraction pipeline: %s", err)
	}

	fn := func(ctx context.Context, params Params) (Results, error) {
		if strings.TrimSpace(params.Text) == "" {
			return Results{Items: []extract.Item{}, Message: "Text is required"}, nil
		}
		items, err := pipeline.Extract(ctx, params.Text)
		if err != nil {
			slog.Error("RESULT: Error extracting items", "error", err)
			return Results{}, err
		}
		if len(items) == 0 {
			return Results{Items: items, Message: "No items recognized"}, nil
		}
		return Results{Items: items}, nil
	}

	lambda.Start(fn)
}
