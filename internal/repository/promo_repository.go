package repository

import (
	"context"
	"database/sql"

	"github.com/kartmania/track-reservation/internal/model"
)

// PromoRepo provides data access to the promos table.
type PromoRepo struct {
	db *sql.DB
}

// NewPromoRepo returns a PromoRepo bound to the provided database.
func NewPromoRepo(db *sql.DB) *PromoRepo { return &PromoRepo{db: db} }

// FindByCode loads an active promotion by its code.  Validity-window
// checks are up to the caller; inactive and missing codes both map to
// ErrPromoNotFound.
func (r *PromoRepo) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	const q = `SELECT id, code, kind, value, start_date, end_date, is_active, created_at
	           FROM promos WHERE code = ? AND is_active = 1`
	p := &model.Promotion{}
	err := r.db.QueryRowContext(ctx, q, code).Scan(&p.ID, &p.Code, &p.Kind, &p.Value, &p.StartDate, &p.EndDate, &p.IsActive, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPromoNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a new promotion and populates its ID.
func (r *PromoRepo) Create(ctx context.Context, p *model.Promotion) error {
	const q = `INSERT INTO promos (code, kind, value, start_date, end_date, is_active)
	           VALUES (?, ?, ?, ?, ?, ?)`
	out, err := r.db.ExecContext(ctx, q, p.Code, p.Kind, p.Value, p.StartDate.UTC(), p.EndDate.UTC(), p.IsActive)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
