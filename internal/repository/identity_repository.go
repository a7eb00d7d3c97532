package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servisdesk/servisdesk/internal/domain"
	"github.com/servisdesk/servisdesk/internal/search"
)

// IdentityRepository defines persistence access for accounts.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	Update(ctx context.Context, identity *domain.Identity) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	CountActive(ctx context.Context) (int, error)
	Count(ctx context.Context, criteria search.IdentityCriteria) (int, error)
	Search(ctx context.Context, criteria search.IdentityCriteria, limit, offset int) ([]domain.IdentityWithProfile, error)
}

const identityColumns = `i.id, i.username, i.first_name, i.last_name, i.email, i.password_hash,
               i.is_active, i.is_staff, i.is_superuser, i.date_joined, i.last_login`

type identityRepository struct {
	executor
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{executor{pool: pool}}
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (username, first_name, last_name, email, password_hash, is_active, is_staff, is_superuser)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, date_joined`

	return r.conn(ctx).QueryRow(ctx, query,
		identity.Username,
		identity.FirstName,
		identity.LastName,
		identity.Email,
		identity.PasswordHash,
		identity.IsActive,
		identity.IsStaff,
		identity.IsSuperuser,
	).Scan(&identity.ID, &identity.DateJoined)
}

func (r *identityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	const query = `
        UPDATE identities SET username=$1, first_name=$2, last_name=$3, email=$4, password_hash=$5,
            is_active=$6, is_staff=$7, is_superuser=$8
        WHERE id=$9`

	cmd, err := r.conn(ctx).Exec(ctx, query,
		identity.Username,
		identity.FirstName,
		identity.LastName,
		identity.Email,
		identity.PasswordHash,
		identity.IsActive,
		identity.IsStaff,
		identity.IsSuperuser,
		identity.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the identity; profile, created tickets and authored
// comments go with it through ON DELETE CASCADE.
func (r *identityRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.conn(ctx).Exec(ctx, `DELETE FROM identities WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id int64) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities i WHERE i.id=$1`
	return scanIdentity(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *identityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities i WHERE i.username=$1`
	return scanIdentity(r.conn(ctx).QueryRow(ctx, query, username))
}

func (r *identityRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE identities SET last_login=$1 WHERE id=$2`, at, id)
	return err
}

func (r *identityRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM identities WHERE is_active`).Scan(&count)
	return count, err
}

func (r *identityRepository) Count(ctx context.Context, criteria search.IdentityCriteria) (int, error) {
	where, args := buildIdentityWhere(criteria)
	query := `SELECT COUNT(*) FROM identities i JOIN profiles p ON p.identity_id = i.id WHERE ` + where
	var count int
	if err := r.conn(ctx).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *identityRepository) Search(ctx context.Context, criteria search.IdentityCriteria, limit, offset int) ([]domain.IdentityWithProfile, error) {
	where, args := buildIdentityWhere(criteria)
	query := fmt.Sprintf(`SELECT %s, %s
             FROM identities i JOIN profiles p ON p.identity_id = i.id
             WHERE %s ORDER BY i.date_joined DESC, i.id DESC LIMIT %d OFFSET %d`,
		identityColumns, profileColumns, where, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IdentityWithProfile
	for rows.Next() {
		var item domain.IdentityWithProfile
		i, p := &item.Identity, &item.Profile
		if err := rows.Scan(
			&i.ID, &i.Username, &i.FirstName, &i.LastName, &i.Email, &i.PasswordHash,
			&i.IsActive, &i.IsStaff, &i.IsSuperuser, &i.DateJoined, &i.LastLogin,
			&p.ID, &p.IdentityID, &p.Phone, &p.Department, &p.Position, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// buildIdentityWhere translates identity criteria into a WHERE clause over
// identities i joined with profiles p.
func buildIdentityWhere(criteria search.IdentityCriteria) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if strings.TrimSpace(criteria.Term) != "" {
		args = append(args, search.LikePattern(criteria.Term))
		ph := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(i.username ILIKE %[1]s OR i.first_name ILIKE %[1]s OR i.last_name ILIKE %[1]s OR i.email ILIKE %[1]s OR p.department ILIKE %[1]s)", ph))
	}
	if strings.TrimSpace(criteria.Department) != "" {
		args = append(args, search.LikePattern(criteria.Department))
		clauses = append(clauses, fmt.Sprintf("p.department ILIKE $%d", len(args)))
	}
	if criteria.Active != nil {
		args = append(args, *criteria.Active)
		clauses = append(clauses, fmt.Sprintf("i.is_active = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.FirstName,
		&identity.LastName,
		&identity.Email,
		&identity.PasswordHash,
		&identity.IsActive,
		&identity.IsStaff,
		&identity.IsSuperuser,
		&identity.DateJoined,
		&identity.LastLogin,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}
