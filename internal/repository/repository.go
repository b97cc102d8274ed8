package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
)

const (
	pqUniqueViolation      = "23505"
	pqInvalidTextRepresent = "22P02"
)

// Sealer encrypts sensitive column values before they reach the database.
// A nil Sealer stores values as-is.
type Sealer interface {
	Seal(ctx context.Context, plaintext string) (string, error)
	Open(ctx context.Context, ciphertext string) (string, error)
}

// mapError translates driver errors into application errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", apperr.ErrConflict, pqErr.Constraint)
		case pqInvalidTextRepresent:
			// malformed UUIDs cannot name an existing row
			return apperr.ErrNotFound
		}
	}
	return err
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Error("Failed to close rows", "error", err)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
