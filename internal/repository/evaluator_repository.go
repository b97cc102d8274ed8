package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// EvaluatorRepository handles database operations for the judge roster
type EvaluatorRepository struct {
	db *sql.DB
}

// NewEvaluatorRepository creates a new evaluator repository
func NewEvaluatorRepository(db *sql.DB) *EvaluatorRepository {
	return &EvaluatorRepository{db: db}
}

// CreateOrUpdate adds an evaluator or refreshes the name of an existing one
func (r *EvaluatorRepository) CreateOrUpdate(ctx context.Context, e *models.Evaluator) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Email = strings.ToLower(strings.TrimSpace(e.Email))

	query := `
		INSERT INTO evaluators (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email)
		DO UPDATE SET name = EXCLUDED.name
		RETURNING id, created_at
	`

	if err := r.db.QueryRowContext(ctx, query, e.ID, e.Email, e.Name).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("failed to save evaluator: %w", err)
	}
	return nil
}

// GetByEmail retrieves an evaluator by email, ignoring case
func (r *EvaluatorRepository) GetByEmail(ctx context.Context, email string) (*models.Evaluator, error) {
	var e models.Evaluator
	query := `SELECT id, email, name, created_at FROM evaluators WHERE email = LOWER(TRIM($1))`

	err := r.db.QueryRowContext(ctx, query, email).Scan(&e.ID, &e.Email, &e.Name, &e.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

// List returns the full roster ordered by name
func (r *EvaluatorRepository) List(ctx context.Context) ([]models.Evaluator, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, name, created_at FROM evaluators ORDER BY name, email`)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluators: %w", err)
	}
	defer closeRows(rows)

	evaluators := []models.Evaluator{}
	for rows.Next() {
		var e models.Evaluator
		if err := rows.Scan(&e.ID, &e.Email, &e.Name, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluator: %w", err)
		}
		evaluators = append(evaluators, e)
	}

	return evaluators, rows.Err()
}
