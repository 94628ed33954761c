package repositories

import (
	"context"
	"errors"
	"fmt"

	"restaurantpos/internal/common"
	"restaurantpos/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetRole(ctx context.Context, id uuid.UUID) (models.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error
	List(ctx context.Context, filter *models.ProfileFilter) ([]*models.Profile, error)
}

type profileRepo struct {
	db DB
}

func NewProfileRepo(db DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, email, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, query, profile.ID, profile.Email, profile.Role, profile.PasswordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("profile with email '%s' already exists: %w", profile.Email, common.ErrConflict)
	}
	return err
}

func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	query := `
		SELECT id, email, role, password_hash, created_at
		FROM profiles
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&profile.ID, &profile.Email, &profile.Role, &profile.PasswordHash, &profile.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return profile, nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	profile := &models.Profile{}
	query := `
		SELECT id, email, role, password_hash, created_at
		FROM profiles
		WHERE email = $1
	`
	err := r.db.QueryRow(ctx, query, email).Scan(&profile.ID, &profile.Email, &profile.Role, &profile.PasswordHash, &profile.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return profile, nil
}

// GetRole reads only the role column; the RBAC guard calls it on every request
func (r *profileRepo) GetRole(ctx context.Context, id uuid.UUID) (models.Role, error) {
	var role models.Role
	query := `SELECT role FROM profiles WHERE id = $1`
	if err := r.db.QueryRow(ctx, query, id).Scan(&role); err != nil {
		return "", notFound(err)
	}
	return role, nil
}

func (r *profileRepo) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	query := `UPDATE profiles SET role = $1 WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, role, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *profileRepo) List(ctx context.Context, filter *models.ProfileFilter) ([]*models.Profile, error) {
	query := `
		SELECT id, email, role, password_hash, created_at
		FROM profiles
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 0

	if filter != nil {
		if q := common.SanitizeSearchQuery(filter.Query); q != "" {
			argCount++
			query += fmt.Sprintf(` AND email ILIKE $%d ESCAPE '\'`, argCount)
			args = append(args, common.ContainsPattern(q))
		}
		if filter.Role != "" {
			argCount++
			query += fmt.Sprintf(" AND role = $%d", argCount)
			args = append(args, filter.Role)
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		profile := &models.Profile{}
		if err := rows.Scan(&profile.ID, &profile.Email, &profile.Role, &profile.PasswordHash, &profile.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// notFound maps pgx.ErrNoRows onto the shared not-found marker
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrNotFound
	}
	return err
}
