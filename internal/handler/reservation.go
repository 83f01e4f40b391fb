package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kartmania/track-reservation/internal/booking"
	"github.com/kartmania/track-reservation/internal/middleware"
	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/repository"
	"github.com/kartmania/track-reservation/internal/utils"
)

// ReservationHandler implements the customer checkout flow: starting a
// reservation, requesting, changing and releasing turns, and receiving
// the payment result.  Every mutating endpoint except Create requires a
// reservation token scoping the request to one reservation.
type ReservationHandler struct {
	Reservations       *repository.ReservationRepo
	Promos             *repository.PromoRepo
	Manager            *booking.Manager
	Ledger             *booking.Ledger
	Secret             string
	ReservationTTL     time.Duration
	PricePerRacerCents uint32
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(reservations *repository.ReservationRepo, promos *repository.PromoRepo, manager *booking.Manager, ledger *booking.Ledger, secret string, reservationTTL time.Duration, pricePerRacerCents uint32) *ReservationHandler {
	return &ReservationHandler{
		Reservations:       reservations,
		Promos:             promos,
		Manager:            manager,
		Ledger:             ledger,
		Secret:             secret,
		ReservationTTL:     reservationTTL,
		PricePerRacerCents: pricePerRacerCents,
	}
}

// Create handles POST /v1/reservations.  It opens a temporary
// reservation for the party and returns a reservation token whose
// lifetime matches the reservation TTL.  An invalid or expired promo
// code is rejected up front rather than silently ignored at payment.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body struct {
		Type      string `json:"type"`
		UserEmail string `json:"user_email"`
		PromoCode string `json:"promo_code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	typ := model.TurnType(strings.ToUpper(body.Type))
	if !model.ValidPartyType(typ) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be KIDS or ADULTS"})
	}
	if body.UserEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_email is required"})
	}

	ctx := c.Request().Context()
	res := &model.Reservation{Type: typ, UserEmail: body.UserEmail}
	if body.PromoCode != "" {
		promo, err := h.Promos.FindByCode(ctx, body.PromoCode)
		if err != nil {
			if err == repository.ErrPromoNotFound {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown promo code"})
			}
			return writeBookingError(c, err)
		}
		if !promo.ValidAt(time.Now().UTC()) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "promo code not valid today"})
		}
		res.PromoCode = &promo.Code
	}
	if err := h.Reservations.Create(ctx, res); err != nil {
		return writeBookingError(c, err)
	}

	tok, err := utils.NewReservationToken(h.Secret, res.ID, h.ReservationTTL)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id":    res.ID,
		"status":            res.Status,
		"reservation_token": tok.Value,
		"expires_at":        tok.Exp.Format(time.RFC3339),
	})
}

// current loads the temporary reservation the request's token points at.
func (h *ReservationHandler) current(c echo.Context) (*model.Reservation, error) {
	return h.Reservations.FindTemporary(c.Request().Context(), middleware.Subject(c))
}

// RequestTurn handles POST /v1/reservations/turns.  The turn is admitted
// against live calendar state; on success it is recorded on the
// reservation and the total is recomputed.
func (h *ReservationHandler) RequestTurn(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return writeBookingError(c, err)
	}
	var body turnBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}

	ctx := c.Request().Context()
	cand := booking.Candidate{Type: res.Type, Chosen: res.TurnRefs()}
	req := booking.TurnRequest{Date: date, Hour: body.Hour, TurnNumber: body.TurnNumber, Positions: body.Positions}
	if _, err := h.Manager.RequestTurn(ctx, cand, req); err != nil {
		return writeBookingError(c, err)
	}

	turn := &model.ReservationTurn{Date: date, Hour: body.Hour, TurnNumber: body.TurnNumber, Positions: body.Positions}
	if err := h.Reservations.AddTurn(ctx, res.ID, turn); err != nil {
		return writeBookingError(c, err)
	}
	res.Turns = append(res.Turns, *turn)
	amount, err := h.recomputeAmount(c, res)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"turn_id":      turn.ID,
		"date":         turn.Date,
		"hour":         turn.Hour,
		"turn_number":  turn.TurnNumber,
		"positions":    turn.Positions,
		"amount_cents": amount,
	})
}

// ChangeTurn handles PUT /v1/reservations/turns/:id.  The replacement
// turn is validated and acquired before the old one is released, so a
// rejected change leaves the reservation exactly as it was.
func (h *ReservationHandler) ChangeTurn(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return writeBookingError(c, err)
	}
	turn, ok := h.ownedTurn(c, res)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "turn not found"})
	}
	var body turnBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	date, ok := parseDate(body.Date)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date"})
	}

	ctx := c.Request().Context()
	cand := booking.Candidate{Type: res.Type, Chosen: res.TurnRefs()}
	req := booking.TurnRequest{Date: date, Hour: body.Hour, TurnNumber: body.TurnNumber, Positions: body.Positions}
	if _, err := h.Manager.ChangeTurn(ctx, cand, turn.Ref(), racersOf(turn), req); err != nil {
		return writeBookingError(c, err)
	}

	turn.Date, turn.Hour, turn.TurnNumber, turn.Positions = date, body.Hour, body.TurnNumber, body.Positions
	if err := h.Reservations.UpdateTurn(ctx, turn); err != nil {
		return writeBookingError(c, err)
	}
	amount, err := h.recomputeAmount(c, res)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"turn_id":      turn.ID,
		"date":         turn.Date,
		"hour":         turn.Hour,
		"turn_number":  turn.TurnNumber,
		"positions":    turn.Positions,
		"amount_cents": amount,
	})
}

// DeleteTurn handles DELETE /v1/reservations/turns/:id.  The calendar
// positions are released first; the turn row goes away afterwards.
func (h *ReservationHandler) DeleteTurn(c echo.Context) error {
	res, err := h.current(c)
	if err != nil {
		return writeBookingError(c, err)
	}
	turn, ok := h.ownedTurn(c, res)
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "turn not found"})
	}

	ctx := c.Request().Context()
	if err := h.Manager.DeleteTurn(ctx, turn.Ref(), racersOf(turn)); err != nil {
		return writeBookingError(c, err)
	}
	if err := h.Reservations.DeleteTurn(ctx, turn.ID); err != nil {
		return writeBookingError(c, err)
	}
	kept := res.Turns[:0]
	for _, t := range res.Turns {
		if t.ID != turn.ID {
			kept = append(kept, t)
		}
	}
	res.Turns = kept
	amount, err := h.recomputeAmount(c, res)
	if err != nil {
		return writeBookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"amount_cents": amount})
}

// Payment handles POST /v1/reservations/payment.  Success promotes the
// reservation; failure leaves it temporary for the sweeper.
func (h *ReservationHandler) Payment(c echo.Context) error {
	var body struct {
		Success bool `json:"success"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	id := middleware.Subject(c)
	if err := h.Ledger.OnPaymentResult(c.Request().Context(), id, body.Success); err != nil {
		return writeBookingError(c, err)
	}
	status := model.ReservationTemporary
	if body.Success {
		status = model.ReservationConfirmed
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": id, "status": status})
}

// ownedTurn resolves the :id path parameter to a turn of the given
// reservation.  Turns of other reservations are indistinguishable from
// missing ones.
func (h *ReservationHandler) ownedTurn(c echo.Context, res *model.Reservation) (*model.ReservationTurn, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, false
	}
	for i := range res.Turns {
		if res.Turns[i].ID == id {
			return &res.Turns[i], true
		}
	}
	return nil, false
}

// recomputeAmount reprices the reservation from its racer count, applies
// the promo when one is attached and persists the new total.
func (h *ReservationHandler) recomputeAmount(c echo.Context, res *model.Reservation) (uint32, error) {
	amount := uint32(res.RacerCount()) * h.PricePerRacerCents
	if res.PromoCode != nil {
		promo, err := h.Promos.FindByCode(c.Request().Context(), *res.PromoCode)
		if err == nil && promo.ValidAt(time.Now().UTC()) {
			amount = promo.Apply(amount)
		}
	}
	if err := h.Reservations.UpdateAmount(c.Request().Context(), res.ID, amount); err != nil {
		return 0, err
	}
	res.AmountCents = amount
	return amount, nil
}

func racersOf(t *model.ReservationTurn) []string {
	out := make([]string, 0, len(t.Positions))
	for _, r := range t.Positions {
		out = append(out, r)
	}
	return out
}
