package repository

import (
	"context"
	"log/slog"

	"canteen/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository.
type ProfileRepository struct {
	db     DB
	logger *slog.Logger
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db DB, logger *slog.Logger) *ProfileRepository {
	return &ProfileRepository{db: db, logger: logger}
}

var _ domain.ProfileRepository = (*ProfileRepository)(nil)

// GetProfile returns the profile of user id.
func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	query := `
		SELECT id, full_name, role, created_at
		FROM profiles
		WHERE id = $1
	`

	var p domain.Profile
	var role string
	if err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.FullName, &role, &p.CreatedAt); err != nil {
		return nil, mapError(err, "profile")
	}
	p.Role = domain.Role(role)
	return &p, nil
}

// UpsertProfile creates the profile or replaces its name and role.
func (r *ProfileRepository) UpsertProfile(ctx context.Context, p domain.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, role = EXCLUDED.role
	`

	if _, err := r.db.Exec(ctx, query, p.ID, p.FullName, string(p.Role)); err != nil {
		r.logger.ErrorContext(ctx, "failed to upsert profile", "user_id", p.ID, "error", err)
		return mapError(err, "upsert profile")
	}
	return nil
}
