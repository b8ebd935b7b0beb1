package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/numo-systems/numo-admin/gateway/internal/audit"
	"github.com/numo-systems/numo-admin/gateway/internal/models"
	"github.com/numo-systems/numo-admin/gateway/internal/repository"
	"github.com/numo-systems/numo-admin/gateway/internal/service"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
}

var userCreateCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Create a console user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		role, _ := cmd.Flags().GetString("role")
		if password == "" {
			return errors.New("--password is required")
		}
		if cfg.Database.Type != "postgres" {
			return errors.New("users can only be created in a postgres database")
		}

		repo, err := openRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		svc := service.NewAuthService(repo, nil, audit.NewTrail(nil, nil, nil))
		user, err := svc.CreateUser(cmd.Context(), args[0], password, role)
		if err != nil {
			if errors.Is(err, repository.ErrUserExists) {
				return fmt.Errorf("user %q already exists", args[0])
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (id %d, role %s)\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("password", "", "password for the new user")
	userCreateCmd.Flags().String("role", models.DefaultRole, "role for the new user")
	userCmd.AddCommand(userCreateCmd)
}
