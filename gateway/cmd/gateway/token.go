package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/numo-systems/numo-admin/gateway/internal/auth"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token commands",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue [subject]",
	Short: "Mint a bearer token for token mode",
	Long: `Mint an HS256 bearer token signed with auth.jwt_secret. Tokens are the
only accepted credential while a signing secret is configured.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is not configured")
		}
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}

		issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, ttl)
		if err != nil {
			return err
		}
		token, expires, err := issuer.Issue(models.Identity{Subject: args[0], Role: role})
		if err != nil {
			return fmt.Errorf("failed to issue token: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().String("role", models.DefaultRole, "role claim")
	tokenIssueCmd.Flags().Duration("ttl", 0, "token lifetime (default auth.token_ttl)")
	tokenCmd.AddCommand(tokenIssueCmd)
}
