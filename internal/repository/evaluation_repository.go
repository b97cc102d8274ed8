package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

const evaluationColumns = `
	id, participant_id, evaluator_id, evaluator_name, phase,
	problem_score, innovation_score, feasibility_score, market_score, team_score, presentation_score,
	total_score, comments, evaluated_at`

// EvaluationRepository handles database operations for evaluations
type EvaluationRepository struct {
	db *sql.DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Create appends an evaluation. Rows are never updated.
func (r *EvaluationRepository) Create(ctx context.Context, e *models.Evaluation) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO evaluations (
			id, participant_id, evaluator_id, evaluator_name, phase,
			problem_score, innovation_score, feasibility_score, market_score, team_score, presentation_score,
			total_score, comments
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING evaluated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		e.ID,
		e.ParticipantID,
		e.EvaluatorID,
		e.EvaluatorName,
		e.Phase,
		e.Problem,
		e.Innovation,
		e.Feasibility,
		e.Market,
		e.Team,
		e.Presentation,
		e.TotalScore,
		e.Comments,
	).Scan(&e.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("failed to create evaluation: %w", mapError(err))
	}

	return nil
}

// ListByParticipant returns a participant's evaluations, oldest first
func (r *EvaluationRepository) ListByParticipant(ctx context.Context, participantID string) ([]models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE participant_id = $1 ORDER BY evaluated_at, id`

	rows, err := r.db.QueryContext(ctx, query, participantID)
	if err != nil {
		if errors.Is(mapError(err), apperr.ErrNotFound) {
			// not a valid participant ID
			return []models.Evaluation{}, nil
		}
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer closeRows(rows)

	evaluations := []models.Evaluation{}
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evaluations = append(evaluations, *e)
	}

	return evaluations, rows.Err()
}

// ListByParticipants returns evaluations grouped by participant for a set of IDs
func (r *EvaluationRepository) ListByParticipants(ctx context.Context, participantIDs []string) (map[string][]models.Evaluation, error) {
	grouped := make(map[string][]models.Evaluation, len(participantIDs))
	if len(participantIDs) == 0 {
		return grouped, nil
	}

	query := `
		SELECT ` + evaluationColumns + `
		FROM evaluations
		WHERE participant_id = ANY($1::uuid[])
		ORDER BY participant_id, evaluated_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(participantIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		grouped[e.ParticipantID] = append(grouped[e.ParticipantID], *e)
	}

	return grouped, rows.Err()
}

// CountByParticipant counts a participant's evaluations
func (r *EvaluationRepository) CountByParticipant(ctx context.Context, participantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM evaluations WHERE participant_id = $1`, participantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return count, nil
}

// Leaderboard reads aggregated rows from leaderboard_view in rank order
func (r *EvaluationRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT participant_id, team_name, leader_name, module, unique_id, average_score, evaluation_count
		FROM leaderboard_view
		ORDER BY average_score DESC, evaluation_count DESC, participant_id ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	defer closeRows(rows)

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var (
			entry    models.LeaderboardEntry
			uniqueID sql.NullString
		)
		if err := rows.Scan(
			&entry.ParticipantID,
			&entry.TeamName,
			&entry.LeaderName,
			&entry.Module,
			&uniqueID,
			&entry.AverageScore,
			&entry.EvaluationCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entry.UniqueID = stringPtr(uniqueID)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// DeleteAll removes every evaluation
func (r *EvaluationRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM evaluations`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete evaluations: %w", err)
	}
	return result.RowsAffected()
}

func scanEvaluation(rows *sql.Rows) (*models.Evaluation, error) {
	var e models.Evaluation
	if err := rows.Scan(
		&e.ID,
		&e.ParticipantID,
		&e.EvaluatorID,
		&e.EvaluatorName,
		&e.Phase,
		&e.Problem,
		&e.Innovation,
		&e.Feasibility,
		&e.Market,
		&e.Team,
		&e.Presentation,
		&e.TotalScore,
		&e.Comments,
		&e.EvaluatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan evaluation: %w", err)
	}
	return &e, nil
}
