package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servisdesk/servisdesk/internal/domain"
)

// ProfileRepository persists the one-to-one identity profile.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByIdentity(ctx context.Context, identityID int64) (*domain.Profile, error)
}

const profileColumns = `p.id, p.identity_id, p.phone, p.department, p.position, p.is_active, p.created_at, p.updated_at`

type profileRepository struct {
	executor
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{executor{pool: pool}}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (identity_id, phone, department, position, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.conn(ctx).QueryRow(ctx, query,
		profile.IdentityID,
		profile.Phone,
		profile.Department,
		profile.Position,
		profile.IsActive,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

// Update writes the profile and refreshes updated_at.
func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET phone=$1, department=$2, position=$3, is_active=$4, updated_at=NOW()
        WHERE identity_id=$5
        RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		profile.Phone,
		profile.Department,
		profile.Position,
		profile.IsActive,
		profile.IdentityID,
	).Scan(&profile.UpdatedAt)
	return err
}

func (r *profileRepository) GetByIdentity(ctx context.Context, identityID int64) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE p.identity_id=$1`
	var p domain.Profile
	if err := r.conn(ctx).QueryRow(ctx, query, identityID).Scan(
		&p.ID, &p.IdentityID, &p.Phone, &p.Department, &p.Position, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
