package repository

import (
	"context"
	"database/sql"

	"github.com/kartmania/track-reservation/internal/model"
)

// AdminRepo provides data access to the admins table.
type AdminRepo struct {
	db *sql.DB
}

// NewAdminRepo returns an AdminRepo bound to the provided database.
func NewAdminRepo(db *sql.DB) *AdminRepo { return &AdminRepo{db: db} }

// FindByEmail loads an active admin account by email.  Inactive and
// missing accounts both map to ErrAdminNotFound so login failures leak
// nothing about which accounts exist.
func (r *AdminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	const q = `SELECT id, email, name, password_hash, is_active, created_at
	           FROM admins WHERE email = ? AND is_active = 1`
	a := &model.Admin{}
	err := r.db.QueryRowContext(ctx, q, email).Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return a, nil
}

// Create inserts a new admin account with an already-hashed password.
func (r *AdminRepo) Create(ctx context.Context, a *model.Admin) error {
	const q = `INSERT INTO admins (email, name, password_hash, is_active) VALUES (?, ?, ?, 1)`
	out, err := r.db.ExecContext(ctx, q, a.Email, a.Name, a.PasswordHash)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.IsActive = true
	return nil
}
