package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

const registrationColumns = `
	id, unique_id, access_code, module, status, full_name, email, phone, university,
	roll_number, cnic, team_name, team_members, business_idea, submissions,
	current_phase, created_at, updated_at`

// RegistrationRepository handles database operations for registrations
type RegistrationRepository struct {
	db     *sql.DB
	sealer Sealer
}

// NewRegistrationRepository creates a new registration repository.
// sealer may be nil.
func NewRegistrationRepository(db *sql.DB, sealer Sealer) *RegistrationRepository {
	return &RegistrationRepository{db: db, sealer: sealer}
}

// Create inserts a new registration
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}

	cnic, members, err := r.sealPII(ctx, reg.CNIC, reg.TeamMembers)
	if err != nil {
		return err
	}

	submissions, err := json.Marshal(nonNilSubmissions(reg.Submissions))
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}

	query := `
		INSERT INTO registrations (
			id, unique_id, access_code, module, status, full_name, email, phone, university,
			roll_number, cnic, team_name, team_members, business_idea, submissions, current_phase
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		reg.ID,
		nullString(reg.UniqueID),
		nullString(reg.AccessCode),
		reg.Module,
		reg.Status,
		reg.FullName,
		reg.Email,
		reg.Phone,
		reg.University,
		reg.RollNumber,
		cnic,
		reg.TeamName,
		string(members),
		nullJSON(reg.BusinessIdea),
		string(submissions),
		reg.CurrentPhase,
	).Scan(&reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", mapError(err))
	}

	return nil
}

// GetByID retrieves a registration by its ID
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return r.scanOne(ctx, r.db.QueryRowContext(ctx, query, id))
}

// GetByAccessCode retrieves a registration by access code. code must already be
// uppercased; the stored value is uppercased explicitly for the comparison.
func (r *RegistrationRepository) GetByAccessCode(ctx context.Context, code string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE UPPER(access_code) = $1`
	return r.scanOne(ctx, r.db.QueryRowContext(ctx, query, code))
}

// ExistsByEmailAndModule reports whether a leader email is already registered for a module
func (r *RegistrationRepository) ExistsByEmailAndModule(ctx context.Context, email, module string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM registrations
			WHERE LOWER(email) = LOWER($1) AND LOWER(TRIM(module)) = LOWER(TRIM($2))
		)
	`
	if err := r.db.QueryRowContext(ctx, query, email, module).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check registration: %w", err)
	}
	return exists, nil
}

// UniqueIDExists reports whether a unique ID is taken
func (r *RegistrationRepository) UniqueIDExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM registrations WHERE unique_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AccessCodeExists reports whether an access code is taken, ignoring case
func (r *RegistrationRepository) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM registrations WHERE UPPER(access_code) = UPPER($1))`
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// AssignUniqueID sets unique_id on a row that does not have one yet
func (r *RegistrationRepository) AssignUniqueID(ctx context.Context, id, code string) error {
	return r.assign(ctx, `UPDATE registrations SET unique_id = $2, updated_at = NOW() WHERE id = $1 AND unique_id IS NULL`, id, code)
}

// AssignAccessCode sets access_code on a row that does not have one yet
func (r *RegistrationRepository) AssignAccessCode(ctx context.Context, id, code string) error {
	return r.assign(ctx, `UPDATE registrations SET access_code = $2, updated_at = NOW() WHERE id = $1 AND access_code IS NULL`, id, code)
}

func (r *RegistrationRepository) assign(ctx context.Context, query, id, code string) error {
	result, err := r.db.ExecContext(ctx, query, id, code)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return apperr.ErrAlreadyAssigned
}

// ListMissingUniqueID returns registrations without a unique ID, oldest first
func (r *RegistrationRepository) ListMissingUniqueID(ctx context.Context) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE unique_id IS NULL ORDER BY created_at, id`
	return r.scanMany(ctx, query)
}

// ListApprovedMissingAccessCode returns approved registrations without an access code, oldest first
func (r *RegistrationRepository) ListApprovedMissingAccessCode(ctx context.Context) ([]models.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE access_code IS NULL AND LOWER(TRIM(status)) = 'approved'
		ORDER BY created_at, id
	`
	return r.scanMany(ctx, query)
}

// List retrieves registrations with filtering and pagination
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE 1=1`

	args := []interface{}{}
	argPos := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND LOWER(TRIM(status)) = $%d`, argPos)
		args = append(args, models.NormalizeStatus(filter.Status))
		argPos++
	}

	if filter.ModulePattern != "" {
		query += fmt.Sprintf(` AND module ILIKE $%d`, argPos)
		args = append(args, filter.ModulePattern)
		argPos++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(` AND (email ILIKE $%d OR full_name ILIKE $%d OR team_name ILIKE $%d OR unique_id ILIKE $%d)`, argPos, argPos, argPos, argPos)
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argPos, argPos+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	return r.scanMany(ctx, query, args...)
}

// UpdateStatus sets the status of a registration
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE registrations SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
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

// SaveSubmission stores a phase artifact and conditionally advances the phase
// in one statement. The payload for the phase is overwritten on every call.
func (r *RegistrationRepository) SaveSubmission(ctx context.Context, id string, sub models.PhaseSubmission) (*models.Registration, error) {
	query := `
		UPDATE registrations SET
			submissions = COALESCE(submissions, '{}'::jsonb) || jsonb_build_object($2::text, $3::jsonb),
			business_idea = CASE WHEN $4 THEN $3::jsonb ELSE business_idea END,
			current_phase = CASE WHEN $5 <> '' AND current_phase = ANY($6) THEN $5 ELSE current_phase END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + registrationColumns

	row := r.db.QueryRowContext(ctx, query,
		id,
		sub.Phase,
		string(sub.Payload),
		sub.BusinessIdea,
		sub.AdvanceTo,
		pq.Array(sub.AdvanceFrom),
	)
	return r.scanOne(ctx, row)
}

// AdvancePhase moves current_phase to target while the row is in one of from.
// It reports false when the guard did not match.
func (r *RegistrationRepository) AdvancePhase(ctx context.Context, id, target string, from []string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registrations SET current_phase = $2, updated_at = NOW()
		WHERE id = $1 AND current_phase = ANY($3)
	`, id, target, pq.Array(from))
	if err != nil {
		return false, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// DeleteAll removes every registration
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM registrations`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete registrations: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RegistrationRepository) scanOne(ctx context.Context, row rowScanner) (*models.Registration, error) {
	reg, err := r.scan(ctx, row)
	if err != nil {
		return nil, mapError(err)
	}
	return reg, nil
}

func (r *RegistrationRepository) scanMany(ctx context.Context, query string, args ...any) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer closeRows(rows)

	// Initialize with empty slice instead of nil to avoid JSON null
	registrations := []models.Registration{}
	for rows.Next() {
		reg, err := r.scan(ctx, rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		registrations = append(registrations, *reg)
	}

	return registrations, rows.Err()
}

func (r *RegistrationRepository) scan(ctx context.Context, row rowScanner) (*models.Registration, error) {
	var (
		reg                        models.Registration
		uniqueID, accessCode       sql.NullString
		members, idea, submissions []byte
		createdAt, updatedAt       time.Time
	)

	err := row.Scan(
		&reg.ID,
		&uniqueID,
		&accessCode,
		&reg.Module,
		&reg.Status,
		&reg.FullName,
		&reg.Email,
		&reg.Phone,
		&reg.University,
		&reg.RollNumber,
		&reg.CNIC,
		&reg.TeamName,
		&members,
		&idea,
		&submissions,
		&reg.CurrentPhase,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.UniqueID = stringPtr(uniqueID)
	reg.AccessCode = stringPtr(accessCode)
	reg.CreatedAt = createdAt
	reg.UpdatedAt = updatedAt

	// legacy rows may hold any of the accepted member shapes and spellings
	reg.TeamMembers = team.Decode(json.RawMessage(members))
	if len(idea) > 0 {
		reg.BusinessIdea = json.RawMessage(idea)
	}
	if len(submissions) > 0 {
		if err := json.Unmarshal(submissions, &reg.Submissions); err != nil {
			return nil, fmt.Errorf("failed to decode submissions: %w", err)
		}
	}

	if err := r.openPII(ctx, &reg); err != nil {
		return nil, err
	}
	for i := range reg.TeamMembers {
		reg.TeamMembers[i].CNIC = team.DigitsOnly(reg.TeamMembers[i].CNIC)
	}

	return &reg, nil
}

// sealPII encrypts the leader's and members' national ID numbers
func (r *RegistrationRepository) sealPII(ctx context.Context, cnic string, members []team.Member) (string, []byte, error) {
	sealed := append([]team.Member{}, members...)
	if r.sealer != nil {
		var err error
		if cnic != "" {
			if cnic, err = r.sealer.Seal(ctx, cnic); err != nil {
				return "", nil, fmt.Errorf("failed to seal cnic: %w", err)
			}
		}
		for i := range sealed {
			if sealed[i].CNIC == "" {
				continue
			}
			if sealed[i].CNIC, err = r.sealer.Seal(ctx, sealed[i].CNIC); err != nil {
				return "", nil, fmt.Errorf("failed to seal member cnic: %w", err)
			}
		}
	}

	if sealed == nil {
		sealed = []team.Member{}
	}
	encoded, err := json.Marshal(sealed)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode team members: %w", err)
	}
	return cnic, encoded, nil
}

func (r *RegistrationRepository) openPII(ctx context.Context, reg *models.Registration) error {
	if r.sealer == nil {
		return nil
	}
	var err error
	if reg.CNIC != "" {
		if reg.CNIC, err = r.sealer.Open(ctx, reg.CNIC); err != nil {
			return fmt.Errorf("failed to open cnic: %w", err)
		}
	}
	for i := range reg.TeamMembers {
		if reg.TeamMembers[i].CNIC == "" {
			continue
		}
		if reg.TeamMembers[i].CNIC, err = r.sealer.Open(ctx, reg.TeamMembers[i].CNIC); err != nil {
			return fmt.Errorf("failed to open member cnic: %w", err)
		}
	}
	return nil
}

func nullJSON(raw json.RawMessage) interface{} {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	return string(raw)
}

func nonNilSubmissions(s map[string]json.RawMessage) map[string]json.RawMessage {
	if s == nil {
		return map[string]json.RawMessage{}
	}
	return s
}
