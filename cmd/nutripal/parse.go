package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nutripal"
	"nutripal/extract/providers"

	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	var dump, attemptLog bool

	cmd := &cobra.Command{
		Use:   "parse [meal text]",
		Short: "Extract food items from meal text and print them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var extractConfig nutripal.ExtractConfig
			if err := envdecode.Decode(&extractConfig); err != nil {
				return fmt.Errorf("failed to decode extract config: %w", err)
			}

			var logger nutripal.AttemptLogger
			if attemptLog {
				fileLogger, cleanup, openErr := newAttemptLogger(extractConfig.PreferredModel())
				if openErr != nil {
					return openErr
				}
				defer func() {
					if cerr := cleanup(); cerr != nil {
						err = errors.Join(err, cerr)
					}
				}()
				logger = fileLogger
			}

			pipeline, err := providers.NewPipeline(extractConfig, logger)
			if err != nil {
				return err
			}

			items, err := pipeline.Extract(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(items) == 0 {
				slog.Info("RESULT: No items recognized")
			}

			if dump {
				nutripal.Dump(cmd.OutOrStdout(), items)
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print items with go-spew instead of JSON")
	cmd.Flags().BoolVar(&attemptLog, "attempt-log", false, "Write every model attempt to ./logs")
	return cmd
}

func newAttemptLogger(model string) (*nutripal.FileAttemptLogger, func() error, error) {
	path := nutripal.NewAttemptLogFilePath(model)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutripal.NewFileAttemptLogger(logFile)
	cleanup := func() error {
		slog.Info("RESULT: Attempt log written", "path", path)
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
