package model

import "time"

// Admin is a staff account allowed to generate calendars, block turns and
// place permanent bookings.  Corresponds to a row in the `admins` table.
type Admin struct {
	ID           uint64    // admins.id
	Email        string    // admins.email
	Name         string    // admins.name
	PasswordHash string    // admins.password_hash
	IsActive     bool      // admins.is_active
	CreatedAt    time.Time // admins.created_at
}
