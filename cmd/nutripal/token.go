package main

import (
	"fmt"
	"time"

	"nutripal"
	"nutripal/api"

	"github.com/google/uuid"
	"github.com/joeshaw/envdecode"
	"github.com/spf13/cobra"
)

// tokenCmd issues a bearer token for local use; account sign-up lives elsewhere.
func tokenCmd() *cobra.Command {
	var (
		user string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			var authConfig nutripal.AuthConfig
			if err := envdecode.Decode(&authConfig); err != nil {
				return fmt.Errorf("failed to decode auth config: %w", err)
			}

			id := uuid.New()
			if user != "" {
				parsed, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}
			if ttl <= 0 {
				ttl = authConfig.TokenTTL
			}

			tok, err := api.GenerateToken(id, authConfig.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id=%s\n%s\n", id, tok)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "User id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to JWT_TTL")
	return cmd
}
