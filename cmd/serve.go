package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/kartmania/track-reservation/internal/booking"
	"github.com/kartmania/track-reservation/internal/cache"
	"github.com/kartmania/track-reservation/internal/config"
	"github.com/kartmania/track-reservation/internal/database"
	"github.com/kartmania/track-reservation/internal/handler"
	"github.com/kartmania/track-reservation/internal/queue"
	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/router"
	"github.com/kartmania/track-reservation/internal/service"
	"github.com/kartmania/track-reservation/internal/sweeper"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, expiry sweeper and confirmation consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if migrateUp {
				if err := database.Migrate(ctx, db); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}

			rdb := config.NewRedisClient()
			if rdb == nil {
				log.Printf("serve: redis unavailable, running without cache and rate limiting")
			}

			dayRepo := repository.NewDayRepo(db)
			reservationRepo := repository.NewReservationRepo(db)
			adminRepo := repository.NewAdminRepo(db)
			promoRepo := repository.NewPromoRepo(db)

			manager := booking.NewManager(dayRepo)
			ledger := booking.NewLedger(dayRepo, reservationRepo, service.PublishReservationConfirmed)
			availCache := cache.NewAvailabilityCache(rdb)

			// Background expiry sweeps.
			sw := sweeper.New(dayRepo, reservationRepo, cfg.HoldTTL, cfg.ReservationTTL)
			cr := cron.New()
			if _, err := cr.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
				sweepCtx, sweepCancel := context.WithTimeout(context.Background(), cfg.SweepInterval)
				defer sweepCancel()
				sw.Sweep(sweepCtx)
			}); err != nil {
				return fmt.Errorf("schedule sweeper: %w", err)
			}
			cr.Start()
			defer cr.Stop()

			// Confirmation log consumer; reconnects on its own.
			go func() {
				if err := queue.StartConsumer(); err != nil {
					log.Printf("serve: reservation consumer stopped: %v", err)
				}
			}()

			e := echo.New()
			e.HideBanner = true
			e.Use(echomw.Logger())
			e.Use(echomw.Recover())

			router.Register(e, router.Handlers{
				Auth:         handler.NewAuthHandler(adminRepo, cfg.JWTSecret, cfg.AdminTokenTTL),
				Availability: handler.NewAvailabilityHandler(dayRepo, reservationRepo, availCache, cfg.JWTSecret),
				Reservation:  handler.NewReservationHandler(reservationRepo, promoRepo, manager, ledger, cfg.JWTSecret, cfg.ReservationTTL, cfg.PricePerRacerCents),
				Admin:        handler.NewAdminHandler(dayRepo, promoRepo, manager, availCache),
			}, cfg.JWTSecret, rdb)

			go func() {
				addr := ":" + cfg.Port
				log.Printf("listening on %s (env=%s)", addr, cfg.Env)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					log.Printf("serve: http server: %v", err)
					cancel()
				}
			}()

			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return e.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	return cmd
}
