package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/availability"
	"github.com/kartmania/track-reservation/internal/cache"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/utils"
)

// maxRangeDays caps how many days a single availability request may span.
const maxRangeDays = 62

// AvailabilityHandler serves the public availability tree.  Responses
// are advisory: the hold manager re-validates every admission against
// live calendar state, so these reads go through a short-TTL cache.
type AvailabilityHandler struct {
	Days         *repository.DayRepo
	Reservations *repository.ReservationRepo
	Cache        *cache.AvailabilityCache
	Secret       string
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(days *repository.DayRepo, reservations *repository.ReservationRepo, c *cache.AvailabilityCache, secret string) *AvailabilityHandler {
	return &AvailabilityHandler{Days: days, Reservations: reservations, Cache: c, Secret: secret}
}

// rangeDays returns the inclusive day count of a parsed from/to pair.
// The bound is checked before any store round trip so an oversized
// request never reaches the database.
func rangeDays(from, to string) int {
	f, _ := time.Parse(model.DateLayout, from)
	t, _ := time.Parse(model.DateLayout, to)
	return int(t.Sub(f).Hours()/24) + 1
}

// candidateFromQuery builds the filtering candidate from the type and
// party_size query parameters.
func candidateFromQuery(c echo.Context) (availability.Candidate, bool) {
	typ := model.TurnType(strings.ToUpper(c.QueryParam("type")))
	if !model.ValidPartyType(typ) {
		return availability.Candidate{}, false
	}
	size := 1
	if s := c.QueryParam("party_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > model.PositionsPerTurn {
			return availability.Candidate{}, false
		}
		size = n
	}
	return availability.Candidate{Type: typ, PartySize: size}, true
}

// GetRange handles GET /v1/availability?from&to&type&party_size.  It
// returns the folded day/schedule/turn availability tree for the range,
// filtered by the candidate's type and size.
func (h *AvailabilityHandler) GetRange(c echo.Context) error {
	from, okFrom := parseDate(c.QueryParam("from"))
	to, okTo := parseDate(c.QueryParam("to"))
	if !okFrom || !okTo || to < from {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}
	if rangeDays(from, to) > maxRangeDays {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date range too large"})
	}
	cand, ok := candidateFromQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be KIDS or ADULTS and party_size 1..8"})
	}

	ctx := c.Request().Context()
	if days, hit := h.Cache.Get(ctx, from, to, cand, false); hit {
		return c.JSON(http.StatusOK, echo.Map{"days": days})
	}

	docs, err := h.Days.FindRange(ctx, from, to)
	if err != nil {
		return writeBookingError(c, err)
	}
	days := availability.ForRange(docs, cand)
	h.Cache.Set(ctx, from, to, cand, false, days)
	return c.JSON(http.StatusOK, echo.Map{"days": days})
}

// GetSchedule handles GET /v1/availability/:date/:hour.  On top of the
// range view's filtering it excludes turns adjacent to the turns the
// caller's reservation already claimed; the reservation is identified by
// an optional Bearer token.  Schedule detail is never cached because the
// adjacency exclusions are per-reservation.
func (h *AvailabilityHandler) GetSchedule(c echo.Context) error {
	date, ok := parseDate(c.Param("date"))
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}
	hour, err := strconv.Atoi(c.Param("hour"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hour"})
	}
	cand, ok := candidateFromQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be KIDS or ADULTS and party_size 1..8"})
	}

	ctx := c.Request().Context()
	if res := h.reservationFromToken(c); res != nil {
		cand.Type = res.Type
		cand.Chosen = res.TurnRefs()
	}

	day, _, err := h.Days.Find(ctx, date)
	if err != nil {
		return writeBookingError(c, err)
	}
	sa, ok := availability.ForSchedule(day, hour, cand)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "schedule not available"})
	}
	return c.JSON(http.StatusOK, echo.Map{"day": date, "schedule": sa})
}

// reservationFromToken resolves the caller's in-flight reservation from
// an optional Bearer reservation token.  Any parse or lookup failure
// degrades to the anonymous view rather than an error.
func (h *AvailabilityHandler) reservationFromToken(c echo.Context) *model.Reservation {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return nil
	}
	tok, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(h.Secret), nil
	})
	if err != nil || !tok.Valid {
		return nil
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	if role, _ := claims["role"].(string); role != utils.RoleReservation {
		return nil
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil
	}
	res, err := h.Reservations.FindTemporary(c.Request().Context(), uint64(sub))
	if err != nil {
		return nil
	}
	return res
}
