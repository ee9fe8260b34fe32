package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"nutripal"
	"nutripal/api"
	"nutripal/catalog"
	"nutripal/extract/providers"
	"nutripal/slack"
	"nutripal/store"
	"nutripal/store/memory"
	"nutripal/store/postgres"
	"nutripal/tracker"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	var (
		serverConfig  nutripal.ServerConfig
		authConfig    nutripal.AuthConfig
		extractConfig nutripal.ExtractConfig
		storeConfig   nutripal.StoreConfig
		catalogConfig nutripal.CatalogConfig
		slackConfig   nutripal.SlackConfig
		otelConfig    nutripal.OtelConfig
	)
	for _, c := range []any{&serverConfig, &authConfig, &extractConfig, &storeConfig, &catalogConfig, &slackConfig, &otelConfig} {
		if err := envdecode.Decode(c); err != nil {
			return fmt.Errorf("failed to decode config: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []tracker.Option
	if otelConfig.Enabled {
		tracerProvider, _, otelShutdown, err := nutripal.InitOtel(ctx, otelConfig)
		if err != nil {
			return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
		defer func() {
			if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
				slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
			}
		}()
		opts = append(opts, tracker.WithTracer(tracerProvider.Tracer(nutripal.TracerNameTracker)))
	}

	st, err := openStore(ctx, storeConfig)
	if err != nil {
		return err
	}
	defer st.Close()

	foods, err := loadCatalog(ctx, catalogConfig)
	if err != nil {
		return err
	}

	pipeline, err := providers.NewPipeline(extractConfig, nil)
	if err != nil {
		return err
	}

	if slackConfig.WebhookURL != "" {
		opts = append(opts, tracker.WithSlackAlerts(slack.NewClient(slackConfig.WebhookURL, http.DefaultClient), slackConfig.Channel))
		slog.Info("SETUP: Credential alerts enabled", "channel", slackConfig.Channel)
	}
	svc := tracker.New(st, st, pipeline, foods, opts...)

	handler := api.NewHandler(svc, foods, st, catalogConfig.SearchLimit)
	srv := &http.Server{
		Addr: ":" + serverConfig.Port,
		Handler: api.NewServer(handler, api.ServerOptions{
			JWTSecret:      authConfig.JWTSecret,
			AllowedOrigins: serverConfig.AllowedOrigins(),
		}),
		ReadHeaderTimeout: serverConfig.ReadHeaderTimeout,
		WriteTimeout:      serverConfig.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("SETUP: Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
		defer cancel()
		slog.Info("SETUP: Shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg nutripal.StoreConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("SETUP: Using in-memory store")
		return memory.New(), nil
	}
	pg, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	slog.Info("SETUP: Using Postgres store", "max_conns", cfg.MaxConns)
	return pg, nil
}

// loadCatalog prefers FOODS_PATH, then S3, then the embedded seed.
func loadCatalog(ctx context.Context, cfg nutripal.CatalogConfig) (*catalog.Catalog, error) {
	var src catalog.Source = catalog.EmbeddedSource{}
	switch {
	case cfg.FoodsPath != "":
		src = catalog.NewFileSource(cfg.FoodsPath)
	case cfg.FoodsS3Bucket != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		src = catalog.NewS3Source(s3.NewFromConfig(awsCfg), cfg.FoodsS3Bucket, cfg.FoodsS3Key)
	}

	foods, err := catalog.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	slog.Info("SETUP: Food catalog loaded", "foods_count", foods.Len())
	return foods, nil
}
