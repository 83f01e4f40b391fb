package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/booking"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// turnBody is the wire form of a turn request shared by the customer and
// admin booking endpoints.  Positions maps seat slots (1..8) to racer
// names.
type turnBody struct {
	Date       string         `json:"date"`
	Hour       int            `json:"hour"`
	TurnNumber int            `json:"turn_number"`
	Positions  map[int]string `json:"positions"`
}

// writeBookingError maps domain errors onto HTTP responses.  Validation
// failures are 400, missing resources 404, admission conflicts 409, and
// anything unrecognized a logged 500.
func writeBookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidTurnType):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid party type"})
	case errors.Is(err, booking.ErrDateNotAvailable):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "date not available"})
	case errors.Is(err, booking.ErrScheduleNotAvailable):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not available"})
	case errors.Is(err, booking.ErrTurnNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "turn not found"})
	case errors.Is(err, booking.ErrTurnNotAvailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "turn not available"})
	case errors.Is(err, booking.ErrPositionConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "position already taken"})
	case errors.Is(err, booking.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "turn capacity exceeded"})
	case errors.Is(err, booking.ErrHoldExpired):
		return c.JSON(http.StatusConflict, echo.Map{"error": "hold expired"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrDayNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "date not available"})
	case errors.Is(err, repository.ErrDayExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "dates already generated"})
	default:
		c.Logger().Errorf("handler: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// parseDate validates a date path or query value against the calendar
// date format.
func parseDate(s string) (string, bool) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return "", false
	}
	return t.Format(model.DateLayout), true
}
