package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/availability"
	"github.com/kartmania/track-reservation/internal/booking"
	"github.com/kartmania/track-reservation/internal/cache"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
)

// AdminHandler implements the staff surface: calendar generation, turn
// blocking, the unfiltered availability dashboard, direct permanent
// bookings and promo management.  All routes require an ADMIN token.
type AdminHandler struct {
	Days    *repository.DayRepo
	Promos  *repository.PromoRepo
	Manager *booking.Manager
	Cache   *cache.AvailabilityCache
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(days *repository.DayRepo, promos *repository.PromoRepo, manager *booking.Manager, c *cache.AvailabilityCache) *AdminHandler {
	return &AdminHandler{Days: days, Promos: promos, Manager: manager, Cache: c}
}

// GenerateDates handles POST /v1/admin/dates.  It generates the empty
// day documents for a whole month ahead of time.  Re-generating a month
// that already exists is a conflict, never an overwrite.
func (h *AdminHandler) GenerateDates(c echo.Context) error {
	var body struct {
		Year  int `json:"year"`
		Month int `json:"month"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Year < 2000 || body.Year > 2200 || body.Month < 1 || body.Month > 12 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid year or month"})
	}

	days := model.MonthDays(body.Year, time.Month(body.Month))
	if err := h.Days.BulkInsert(c.Request().Context(), days); err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"generated": len(days),
		"from":      days[0].Date,
		"to":        days[len(days)-1].Date,
	})
}

// blockBody is the wire form of a block or unblock request.
type blockBody struct {
	Turns []model.TurnRef `json:"turns"`
}

// Block handles POST /v1/admin/blocks.  Each referenced turn is closed
// to further admissions regardless of current occupancy.
func (h *AdminHandler) Block(c echo.Context) error {
	var body blockBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Turns) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "turns is required"})
	}
	if err := h.Manager.BlockTurns(c.Request().Context(), body.Turns); err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"blocked": len(body.Turns)})
}

// Unblock handles DELETE /v1/admin/blocks.  Only empty blocked turns can
// be reopened; anything still occupied stays blocked.
func (h *AdminHandler) Unblock(c echo.Context) error {
	var body blockBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Turns) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "turns is required"})
	}
	if err := h.Manager.UnblockTurns(c.Request().Context(), body.Turns); err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unblocked": len(body.Turns)})
}

// Availability handles GET /v1/admin/availability?from&to.  The staff
// view shows occupancy and block state without candidate filtering.
func (h *AdminHandler) Availability(c echo.Context) error {
	from, okFrom := parseDate(c.QueryParam("from"))
	to, okTo := parseDate(c.QueryParam("to"))
	if !okFrom || !okTo || to < from {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date range"})
	}
	if rangeDays(from, to) > maxRangeDays {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date range too large"})
	}

	ctx := c.Request().Context()
	if days, hit := h.Cache.Get(ctx, from, to, availability.Candidate{}, true); hit {
		return c.JSON(http.StatusOK, echo.Map{"days": days})
	}
	docs, err := h.Days.FindRange(ctx, from, to)
	if err != nil {
		return writeBookingError(c, err)
	}
	days := availability.AdminForRange(docs)
	h.Cache.Set(ctx, from, to, availability.Candidate{}, true, days)
	return c.JSON(http.StatusOK, echo.Map{"days": days})
}

// DirectBooking handles POST /v1/admin/bookings.  Staff place walk-in
// and phone bookings straight onto the calendar: the positions are
// written without an allocation timestamp, so the sweeper never touches
// them, and no checkout reservation is created.
func (h *AdminHandler) DirectBooking(c echo.Context) error {
	var body struct {
		Type string `json:"type"`
		turnBody
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	typ := model.TurnType(strings.ToUpper(body.Type))
	if !model.ValidPartyType(typ) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be KIDS or ADULTS"})
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}

	cand := booking.Candidate{Type: typ}
	req := booking.TurnRequest{Date: date, Hour: body.Hour, TurnNumber: body.TurnNumber, Positions: body.Positions, Permanent: true}
	turn, err := h.Manager.RequestTurn(c.Request().Context(), cand, req)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"date":        date,
		"hour":        body.Hour,
		"turn_number": turn.Number,
		"type":        turn.Type,
		"occupants":   turn.OccupantCount(),
	})
}

// CreatePromo handles POST /v1/admin/promos.
func (h *AdminHandler) CreatePromo(c echo.Context) error {
	var body struct {
		Code      string `json:"code"`
		Kind      string `json:"kind"`
		Value     uint32 `json:"value"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	kind := strings.ToUpper(body.Kind)
	if kind != model.PromoDiscount && kind != model.PromoReservation && kind != model.PromoRaces {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be DISCOUNT, RESERVATION or RACES"})
	}
	if body.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if kind == model.PromoDiscount && (body.Value == 0 || body.Value > 100) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount value must be 1..100"})
	}
	start, err := time.Parse(model.DateLayout, body.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	end, err := time.Parse(model.DateLayout, body.EndDate)
	if err != nil || end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_date"})
	}

	promo := &model.Promotion{
		Code:      body.Code,
		Kind:      kind,
		Value:     body.Value,
		StartDate: start,
		EndDate:   end.Add(24*time.Hour - time.Second),
		IsActive:  true,
	}
	if err := h.Promos.Create(c.Request().Context(), promo); err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"promo_id": promo.ID, "code": promo.Code})
}
