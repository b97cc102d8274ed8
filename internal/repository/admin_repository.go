package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// AdminRepository handles database operations for operator accounts
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// CreateOrUpdate creates an admin or updates the password, name and role of an existing one
func (r *AdminRepository) CreateOrUpdate(ctx context.Context, a *models.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))

	query := `
		INSERT INTO admins (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			name = EXCLUDED.name,
			role = EXCLUDED.role
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, a.ID, a.Email, a.PasswordHash, a.Name, a.Role).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save admin: %w", err)
	}
	return nil
}

// GetByEmail retrieves an admin by email
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.getOne(ctx, `WHERE email = LOWER(TRIM($1))`, email)
}

// GetByID retrieves an admin by ID
func (r *AdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *AdminRepository) getOne(ctx context.Context, where string, arg string) (*models.Admin, error) {
	var (
		a         models.Admin
		lastLogin sql.NullTime
	)
	query := `SELECT id, email, password_hash, name, role, last_login_at, created_at FROM admins ` + where

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.Name,
		&a.Role,
		&lastLogin,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if lastLogin.Valid {
		a.LastLoginAt = &lastLogin.Time
	}
	return &a, nil
}

// UpdateLastLogin stamps the admin's last login time
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE admins SET last_login_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
