package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartmania/track-reservation/internal/config"
	"github.com/kartmania/track-reservation/internal/database"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/utils"
)

func newCreateAdminCmd() *cobra.Command {
	var email, name, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || name == "" || password == "" {
				return fmt.Errorf("email, name and password are required")
			}
			cfg := config.Load()

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			hash, err := utils.HashPassword(password, cfg.BcryptCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			admin := &model.Admin{Email: email, Name: name, PasswordHash: hash}
			if err := repository.NewAdminRepo(db).Create(ctx, admin); err != nil {
				return err
			}
			fmt.Printf("created admin %d (%s)\n", admin.ID, admin.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	return cmd
}
