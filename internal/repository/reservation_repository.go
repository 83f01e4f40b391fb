package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kartmania/track-reservation/internal/model"
)

// ReservationRepo persists reservations and their chosen turns.  The
// status column discriminates the temporary store (checkout in flight,
// reclaimable) from the confirmed store (paid, permanent); promotion
// flips a row from one to the other exactly once.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to the provided
// database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB for transaction control.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// Create inserts a new temporary reservation and populates its ID and
// creation timestamp.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations (party_type, user_email, status, amount_cents, promo_code)
	           VALUES (?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q, string(res.Type), res.UserEmail, model.ReservationTemporary, res.AmountCents, res.PromoCode)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	res.Status = model.ReservationTemporary
	const sel = `SELECT created_at FROM reservations WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt)
}

// Find loads a reservation with its turns regardless of lifecycle state.
func (r *ReservationRepo) Find(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT id, party_type, user_email, status, amount_cents, promo_code, created_at
	           FROM reservations WHERE id = ?`
	res := &model.Reservation{}
	var partyType string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&res.ID, &partyType, &res.UserEmail, &res.Status, &res.AmountCents, &res.PromoCode, &res.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res.Type = model.TurnType(partyType)
	res.Turns, err = r.turnsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// FindTemporary loads a reservation that is still in the temporary
// store.  A confirmed or missing reservation maps to
// ErrReservationNotFound.
func (r *ReservationRepo) FindTemporary(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status != model.ReservationTemporary {
		return nil, ErrReservationNotFound
	}
	return res, nil
}

func (r *ReservationRepo) turnsFor(ctx context.Context, id uint64) ([]model.ReservationTurn, error) {
	const q = `SELECT id, day, hour, turn_number, positions FROM reservation_turns
	           WHERE reservation_id = ? ORDER BY day, hour, turn_number`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var turns []model.ReservationTurn
	for rows.Next() {
		var t model.ReservationTurn
		var raw []byte
		if err := rows.Scan(&t.ID, &t.Date, &t.Hour, &t.TurnNumber, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &t.Positions); err != nil {
			return nil, fmt.Errorf("decode turn positions: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AddTurn appends a chosen turn to the reservation and populates its ID.
func (r *ReservationRepo) AddTurn(ctx context.Context, reservationID uint64, t *model.ReservationTurn) error {
	raw, err := json.Marshal(t.Positions)
	if err != nil {
		return fmt.Errorf("encode turn positions: %w", err)
	}
	const q = `INSERT INTO reservation_turns (reservation_id, day, hour, turn_number, positions)
	           VALUES (?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q, reservationID, t.Date, t.Hour, t.TurnNumber, raw)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// UpdateTurn rewrites a chosen turn in place after a turn change.
func (r *ReservationRepo) UpdateTurn(ctx context.Context, t *model.ReservationTurn) error {
	raw, err := json.Marshal(t.Positions)
	if err != nil {
		return fmt.Errorf("encode turn positions: %w", err)
	}
	const q = `UPDATE reservation_turns SET day = ?, hour = ?, turn_number = ?, positions = ? WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, t.Date, t.Hour, t.TurnNumber, raw, t.ID)
	return err
}

// DeleteTurn removes a chosen turn row.
func (r *ReservationRepo) DeleteTurn(ctx context.Context, turnID uint64) error {
	const q = `DELETE FROM reservation_turns WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, turnID)
	return err
}

// UpdateAmount stores the recomputed total for the reservation.
func (r *ReservationRepo) UpdateAmount(ctx context.Context, id uint64, amountCents uint32) error {
	const q = `UPDATE reservations SET amount_cents = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, amountCents, id)
	return err
}

// Confirm moves the reservation from the temporary store to the
// confirmed store.  It affects only temporary rows, so a double
// promotion or a promotion racing the sweeper's delete maps to
// ErrReservationNotFound.
func (r *ReservationRepo) Confirm(ctx context.Context, id uint64) error {
	const q = `UPDATE reservations SET status = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.ReservationConfirmed, id, model.ReservationTemporary)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

// Delete removes a reservation and its turns.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservation_turns WHERE reservation_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteExpiredTemporary removes every temporary reservation created
// before the cutoff and returns how many were deleted.  Calendar-side
// holds are reclaimed by the calendar sweep, not here; the two TTLs are
// intentionally decoupled.
func (r *ReservationRepo) DeleteExpiredTemporary(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	const delTurns = `DELETE t FROM reservation_turns t
	                  JOIN reservations res ON res.id = t.reservation_id
	                  WHERE res.status = ? AND res.created_at < ?`
	if _, err := tx.ExecContext(ctx, delTurns, model.ReservationTemporary, cutoff.UTC()); err != nil {
		return 0, err
	}
	const delRes = `DELETE FROM reservations WHERE status = ? AND created_at < ?`
	out, err := tx.ExecContext(ctx, delRes, model.ReservationTemporary, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	n, err := out.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return n, nil
}
