// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// ConfirmedTurn describes one booked turn inside a confirmed
// reservation event.
type ConfirmedTurn struct {
	Date       string         `json:"date"`
	Hour       int            `json:"hour"`
	TurnNumber int            `json:"turn_number"`
	Positions  map[int]string `json:"positions"`
}

// ReservationConfirmedEvent is published when a temporary reservation is
// promoted after a successful payment.  It carries enough information
// for downstream consumers to log or notify without querying the
// primary database.
type ReservationConfirmedEvent struct {
	ReservationID    uint64          `json:"reservation_id"`
	UserEmail        string          `json:"user_email"`
	Type             string          `json:"type"`
	Turns            []ConfirmedTurn `json:"turns"`
	RacerCount       int             `json:"racer_count"`
	TotalAmountCents uint32          `json:"total_amount_cents"`
	PromoCode        string          `json:"promo_code,omitempty"`
	ConfirmedAt      string          `json:"confirmed_at"`
}
