// Package service bridges the booking layer and the message broker.
// Publish errors are logged and returned so callers can ignore them
// without interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kartmania/track-reservation/internal/model"
	"github.com/kartmania/track-reservation/internal/queue"
)

// PublishReservationConfirmed publishes a ReservationConfirmedEvent to
// the reservation.confirmed queue.  The signature matches
// booking.Notifier so the ledger can call it directly after promotion.
// Messages are marked persistent; a broker outage is logged but never
// rolls back the confirmed reservation.
func PublishReservationConfirmed(ctx context.Context, res *model.Reservation) error {
	conn, err := amqp.Dial(queue.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.QueueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(eventFor(res))
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", queue.QueueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

func eventFor(res *model.Reservation) queue.ReservationConfirmedEvent {
	turns := make([]queue.ConfirmedTurn, 0, len(res.Turns))
	for _, t := range res.Turns {
		turns = append(turns, queue.ConfirmedTurn{
			Date:       t.Date,
			Hour:       t.Hour,
			TurnNumber: t.TurnNumber,
			Positions:  t.Positions,
		})
	}
	promo := ""
	if res.PromoCode != nil {
		promo = *res.PromoCode
	}
	return queue.ReservationConfirmedEvent{
		ReservationID:    res.ID,
		UserEmail:        res.UserEmail,
		Type:             string(res.Type),
		Turns:            turns,
		RacerCount:       res.RacerCount(),
		TotalAmountCents: res.AmountCents,
		PromoCode:        promo,
		ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
	}
}
