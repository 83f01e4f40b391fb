package model

import "time"

// Reservation lifecycle states.  A reservation is created TEMPORARY at
// checkout start and becomes CONFIRMED exactly once, on payment success.
// Temporary reservations that outlive their TTL are deleted by the
// sweeper; their calendar holds are reclaimed independently.
const (
	ReservationTemporary = "TEMPORARY"
	ReservationConfirmed = "CONFIRMED"
)

// Reservation aggregates a party's chosen turns during checkout.  It
// holds references into the calendar (date + hour + turn number +
// position assignments), never the turns themselves.  Every admitted
// turn must match the party Type.  AmountCents is the computed total
// after the promo discount, and CreatedAt drives the reservation TTL.
type Reservation struct {
	ID          uint64            // reservations.id
	Type        TurnType          // reservations.party_type
	UserEmail   string            // reservations.user_email
	Status      string            // reservations.status
	AmountCents uint32            // reservations.amount_cents
	PromoCode   *string           // reservations.promo_code (nullable)
	Turns       []ReservationTurn // reservation_turns rows
	CreatedAt   time.Time         // reservations.created_at
}

// ReservationTurn is one chosen turn.  Positions maps seat slots (1..8)
// to the racer occupying them.
type ReservationTurn struct {
	ID         uint64         // reservation_turns.id
	Date       string         // reservation_turns.day
	Hour       int            // reservation_turns.hour
	TurnNumber int            // reservation_turns.turn_number
	Positions  map[int]string // reservation_turns.positions (JSON)
}

// Ref returns the calendar reference of this turn.
func (t ReservationTurn) Ref() TurnRef {
	return TurnRef{Date: t.Date, Hour: t.Hour, TurnNumber: t.TurnNumber}
}

// TurnRefs returns the calendar references of every chosen turn.
func (r *Reservation) TurnRefs() []TurnRef {
	refs := make([]TurnRef, 0, len(r.Turns))
	for _, t := range r.Turns {
		refs = append(refs, t.Ref())
	}
	return refs
}

// RacerCount returns the total number of seats across all chosen turns.
func (r *Reservation) RacerCount() int {
	n := 0
	for _, t := range r.Turns {
		n += len(t.Positions)
	}
	return n
}
