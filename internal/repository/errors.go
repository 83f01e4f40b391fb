// Package repository contains the MySQL-backed stores for calendar days,
// reservations, admins and promotions.  Sentinel errors defined here let
// higher layers distinguish failure scenarios with errors.Is without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrDayNotFound is returned when no day document exists for the
// requested date, i.e. the calendar for that month was never generated.
var ErrDayNotFound = errors.New("day not found")

// ErrVersionConflict is returned by Replace when the stored day document
// changed since it was read.  Callers re-fetch and retry; a stale read
// is never allowed to overwrite a newer write.
var ErrVersionConflict = errors.New("day version conflict")

// ErrDayExists is returned by BulkInsert when a day for one of the dates
// has already been generated.
var ErrDayExists = errors.New("day already exists")

// ErrReservationNotFound is returned when a reservation does not exist
// in the requested lifecycle store.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrAdminNotFound is returned when no active admin matches the email.
var ErrAdminNotFound = errors.New("admin not found")

// ErrPromoNotFound is returned when a promo code does not exist or is
// inactive.
var ErrPromoNotFound = errors.New("promotion not found")
