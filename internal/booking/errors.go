// Package booking implements the hold manager and the reservation
// ledger: validated, time-limited occupancy of calendar positions and
// the single atomic boundary at which a hold becomes a permanent
// booking.  Sentinel errors defined here are the caller-visible business
// failures; handlers map them to HTTP responses.
package booking

import "errors"

// ErrDateNotAvailable is returned when the requested date lies outside
// the generated calendar.
var ErrDateNotAvailable = errors.New("date not available")

// ErrScheduleNotAvailable is returned when the requested hour is not an
// operating hour.
var ErrScheduleNotAvailable = errors.New("schedule not available")

// ErrTurnNotAvailable is returned when the requested turn is blocked,
// type-incompatible, inside the kids buffer, or adjacent to one of the
// reservation's own turns.
var ErrTurnNotAvailable = errors.New("turn not available")

// ErrTurnNotFound is returned when the turn number is outside 1..5 or
// the reservation does not hold the referenced turn.
var ErrTurnNotFound = errors.New("turn not found")

// ErrPositionConflict is returned when a requested position is already
// occupied, including races lost between read and write.
var ErrPositionConflict = errors.New("position already occupied")

// ErrCapacityExceeded is returned when admitting the party would push a
// turn past its eight positions.
var ErrCapacityExceeded = errors.New("turn capacity exceeded")

// ErrHoldExpired is returned by promotion when a referenced hold was
// reclaimed by the sweeper before payment completed.
var ErrHoldExpired = errors.New("hold expired")

// ErrInvalidTurnType is returned when a party type is neither kids nor
// adults.
var ErrInvalidTurnType = errors.New("invalid turn type")
