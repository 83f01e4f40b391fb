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
)

func newGenerateCalendarCmd() *cobra.Command {
	var year, month int

	cmd := &cobra.Command{
		Use:   "generate-calendar",
		Short: "Generate the empty day documents for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if month < 1 || month > 12 {
				return fmt.Errorf("invalid month %d", month)
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

			days := model.MonthDays(year, time.Month(month))
			if err := repository.NewDayRepo(db).BulkInsert(ctx, days); err != nil {
				if err == repository.ErrDayExists {
					return fmt.Errorf("%d-%02d is already generated", year, month)
				}
				return err
			}
			fmt.Printf("generated %d days (%s .. %s)\n", len(days), days[0].Date, days[len(days)-1].Date)
			return nil
		},
	}

	now := time.Now()
	cmd.Flags().IntVar(&year, "year", now.Year(), "calendar year")
	cmd.Flags().IntVar(&month, "month", int(now.Month()), "calendar month (1-12)")
	return cmd
}
