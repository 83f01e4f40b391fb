// Package router wires the HTTP endpoints to their handlers and
// middleware.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/kartmania/track-reservation/internal/handler"
	"github.com/kartmania/track-reservation/internal/middleware"
)

// Handlers bundles every handler the router registers.
type Handlers struct {
	Auth         *handler.AuthHandler
	Availability *handler.AvailabilityHandler
	Reservation  *handler.ReservationHandler
	Admin        *handler.AdminHandler
}

// Register sets up the full route table.
//
// Public routes cover health, staff login, the availability tree and
// starting a checkout.  The /v1/reservations subtree requires the
// reservation token issued at checkout start, and /v1/admin requires an
// ADMIN token.  Booking mutations are rate limited per client IP so a
// misbehaving client cannot hammer the compare-and-set loop.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	e.POST("/v1/auth/admin/login", h.Auth.AdminLogin)

	e.GET("/v1/availability", h.Availability.GetRange)
	e.GET("/v1/availability/:date/:hour", h.Availability.GetSchedule)

	limiter := middleware.RateLimit(rdb, 30, time.Minute)

	e.POST("/v1/reservations", h.Reservation.Create, limiter)

	res := e.Group("/v1/reservations")
	res.Use(middleware.JWTAuth(jwtSecret))
	res.Use(middleware.RequireReservation())
	res.Use(limiter)
	res.POST("/turns", h.Reservation.RequestTurn)
	res.PUT("/turns/:id", h.Reservation.ChangeTurn)
	res.DELETE("/turns/:id", h.Reservation.DeleteTurn)
	res.POST("/payment", h.Reservation.Payment)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireAdmin())
	admin.POST("/dates", h.Admin.GenerateDates)
	admin.POST("/blocks", h.Admin.Block)
	admin.DELETE("/blocks", h.Admin.Unblock)
	admin.GET("/availability", h.Admin.Availability)
	admin.POST("/bookings", h.Admin.DirectBooking)
	admin.POST("/promos", h.Admin.CreatePromo)
}
