package database

import (
	"context"
	"database/sql"
	"strings"
)

// Day documents are stored whole as JSON with a version counter for
// optimistic concurrency; everything else is plain relational rows.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS days (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	day DATE NOT NULL UNIQUE,
	doc JSON NOT NULL,
	version BIGINT NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reservations (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	party_type VARCHAR(16) NOT NULL,
	user_email VARCHAR(255) NOT NULL,
	status VARCHAR(16) NOT NULL DEFAULT 'TEMPORARY',
	amount_cents INT UNSIGNED NOT NULL DEFAULT 0,
	promo_code VARCHAR(64) NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_reservations_status_created (status, created_at)
);

CREATE TABLE IF NOT EXISTS reservation_turns (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	reservation_id BIGINT UNSIGNED NOT NULL,
	day DATE NOT NULL,
	hour TINYINT NOT NULL,
	turn_number TINYINT NOT NULL,
	positions JSON NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_reservation_turns_reservation (reservation_id)
);

CREATE TABLE IF NOT EXISTS admins (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS promos (
	id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
	code VARCHAR(64) NOT NULL UNIQUE,
	kind VARCHAR(16) NOT NULL,
	value INT UNSIGNED NOT NULL DEFAULT 0,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	is_active TINYINT(1) NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Migrate applies the schema.  MySQL cannot execute multiple statements
// in one Exec by default, so the script runs statement by statement.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
