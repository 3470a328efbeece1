package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/pack-progress-api/internal/models"
)

// ProfileRepository reads and edits user profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a ProfileRepository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID fetches a profile, returning sql.ErrNoRows when absent.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, full_name, pack_number, role FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// List returns every profile ordered by pack then name.
func (r *ProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	const query = `SELECT id, full_name, pack_number, role FROM profiles ORDER BY pack_number NULLS LAST, full_name NULLS LAST, id`
	var profiles []models.Profile
	if err := r.db.SelectContext(ctx, &profiles, query); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// Update writes role, pack and name for a profile and reports whether a row matched.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) (bool, error) {
	const query = `UPDATE profiles SET full_name = :full_name, pack_number = :pack_number, role = :role WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update profile: %w", err)
	}
	return affected > 0, nil
}
