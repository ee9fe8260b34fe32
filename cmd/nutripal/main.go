package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"nutripal"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:           "nutripal",
		Short:         "Personal nutrition tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			nutripal.LoadDotEnv()

			var serverConfig nutripal.ServerConfig
			if err := envdecode.Decode(&serverConfig); err != nil {
				return fmt.Errorf("failed to decode server config: %w", err)
			}
			if logLevel == "" {
				logLevel = serverConfig.LogLevel
			}
			if logFormat == "" {
				logFormat = serverConfig.LogFormat
			}
			slog.SetDefault(nutripal.NewLogger(logLevel, logFormat))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (text, json); defaults to LOG_FORMAT")

	cmd.AddCommand(serveCmd(), parseCmd(), tokenCmd())
	return cmd
}
