package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kartmania/track-reservation/internal/config"
	"github.com/kartmania/track-reservation/internal/database"
	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/sweeper"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			dayRepo := repository.NewDayRepo(db)
			reservationRepo := repository.NewReservationRepo(db)
			sweeper.New(dayRepo, reservationRepo, cfg.HoldTTL, cfg.ReservationTTL).Sweep(ctx)
			return nil
		},
	}
}
