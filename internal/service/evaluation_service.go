package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/phase"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

const maxCommentLength = 5000

// EvaluationInput is a judge's score submission
type EvaluationInput struct {
	EvaluatorEmail string `json:"evaluator_email"`
	ParticipantID  string `json:"participant_id"`
	Phase          string `json:"phase"`
	models.Scores
	Comments string `json:"comments"`
}

// ParticipantSummary is the judge-facing view of a registration
type ParticipantSummary struct {
	ID              string                     `json:"id"`
	UniqueID        *string                    `json:"unique_id,omitempty"`
	TeamName        string                     `json:"team_name"`
	LeaderName      string                     `json:"leader_name"`
	Module          string                     `json:"module"`
	CurrentPhase    string                     `json:"current_phase"`
	BusinessIdea    json.RawMessage            `json:"business_idea,omitempty"`
	Submissions     map[string]json.RawMessage `json:"submissions,omitempty"`
	EvaluationCount int                        `json:"evaluation_count"`
}

// ParticipantHistory is a participant with every score recorded for it
type ParticipantHistory struct {
	Participant  ParticipantSummary  `json:"participant"`
	Evaluations  []models.Evaluation `json:"evaluations"`
	AverageScore float64             `json:"average_score"`
}

// EvaluationService records judge scores and ranks participants
type EvaluationService struct {
	registrations RegistrationStore
	evaluations   EvaluationStore
	evaluators    EvaluatorStore
	exporter      LeaderboardExporter
	opts          Options
}

// NewEvaluationService creates a new evaluation service. exporter may be nil.
func NewEvaluationService(
	registrations RegistrationStore,
	evaluations EvaluationStore,
	evaluators EvaluatorStore,
	exporter LeaderboardExporter,
	opts Options,
) *EvaluationService {
	return &EvaluationService{
		registrations: registrations,
		evaluations:   evaluations,
		evaluators:    evaluators,
		exporter:      exporter,
		opts:          opts,
	}
}

// SubmitEvaluation appends a score for a participant. Gates are checked in
// order: roster, participant existence, approval, track membership. A judge
// may score the same participant and phase repeatedly; every row is kept.
func (s *EvaluationService) SubmitEvaluation(ctx context.Context, in EvaluationInput) (*models.Evaluation, error) {
	evaluator, err := s.authorize(ctx, in.EvaluatorEmail)
	if err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetByID(ctx, strings.TrimSpace(in.ParticipantID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	if !reg.IsApproved() {
		return nil, apperr.ErrParticipantNotApproved
	}
	if !s.opts.Track.Match(reg.Module) {
		return nil, apperr.ErrParticipantWrongTrack
	}

	p := phase.Normalize(in.Phase)
	if p == "" {
		p = reg.CurrentPhase
	}
	if !s.opts.Phases.Valid(p) {
		return nil, apperr.Validation("unknown phase %q", in.Phase)
	}

	if err := s.validateScores(in.Scores); err != nil {
		return nil, err
	}

	comments := strings.TrimSpace(in.Comments)
	if len(comments) > maxCommentLength {
		return nil, apperr.Validation("comments must be at most %d characters", maxCommentLength)
	}

	evaluation := &models.Evaluation{
		ParticipantID: reg.ID,
		EvaluatorID:   evaluator.ID,
		EvaluatorName: evaluator.Name,
		Phase:         p,
		Scores:        in.Scores,
		TotalScore:    in.Scores.Total(),
		Comments:      comments,
	}
	if err := s.evaluations.Create(ctx, evaluation); err != nil {
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	slog.Info("Evaluation recorded",
		"evaluation_id", evaluation.ID,
		"participant_id", reg.ID,
		"evaluator", evaluator.Email,
		"phase", p,
		"total_score", evaluation.TotalScore,
	)

	return evaluation, nil
}

func (s *EvaluationService) validateScores(scores models.Scores) error {
	for _, score := range scores.Named() {
		if math.IsNaN(score.Value) || score.Value < 0 || score.Value > s.opts.MaxSubScore {
			return apperr.Validation("%s must be between 0 and %g", score.Name, s.opts.MaxSubScore)
		}
	}
	return nil
}

// authorize resolves a roster entry; any unknown email is unauthorized
func (s *EvaluationService) authorize(ctx context.Context, email string) (*models.Evaluator, error) {
	email = team.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.ErrUnauthorizedEvaluator
	}
	evaluator, err := s.evaluators.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrUnauthorizedEvaluator
		}
		return nil, fmt.Errorf("failed to check evaluator roster: %w", err)
	}
	return evaluator, nil
}

// GetLeaderboard returns the ranked leaderboard. A non-positive limit uses
// the configured default; limits are capped at the configured maximum.
func (s *EvaluationService) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries, err := s.evaluations.Leaderboard(ctx, s.opts.leaderboardLimit(limit))
	if err != nil {
		return nil, err
	}

	RankLeaderboard(entries)

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].ParticipantID
	}
	history, err := s.evaluations.ListByParticipants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation history: %w", err)
	}
	for i := range entries {
		entries[i].Evaluations = history[entries[i].ParticipantID]
		if entries[i].Evaluations == nil {
			entries[i].Evaluations = []models.Evaluation{}
		}
	}

	return entries, nil
}

// RankLeaderboard orders entries by average score, then evaluation count,
// both descending, then participant ID, and numbers them from 1.
func RankLeaderboard(entries []models.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if avgA, avgB := models.RoundScore(a.AverageScore), models.RoundScore(b.AverageScore); avgA != avgB {
			return avgA > avgB
		}
		if a.EvaluationCount != b.EvaluationCount {
			return a.EvaluationCount > b.EvaluationCount
		}
		return a.ParticipantID < b.ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// ListEligibleParticipants lists approved track registrations for a roster judge
func (s *EvaluationService) ListEligibleParticipants(ctx context.Context, evaluatorEmail string) ([]ParticipantSummary, error) {
	if _, err := s.authorize(ctx, evaluatorEmail); err != nil {
		return nil, err
	}

	regs, err := s.registrations.List(ctx, models.RegistrationFilter{
		Status:        models.StatusApproved,
		ModulePattern: s.opts.Track.Pattern(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	eligible := make([]models.Registration, 0, len(regs))
	ids := make([]string, 0, len(regs))
	for _, reg := range regs {
		if reg.IsApproved() && s.opts.Track.Match(reg.Module) {
			eligible = append(eligible, reg)
			ids = append(ids, reg.ID)
		}
	}

	history, err := s.evaluations.ListByParticipants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation history: %w", err)
	}

	summaries := make([]ParticipantSummary, 0, len(eligible))
	for i := range eligible {
		summaries = append(summaries, summarize(&eligible[i], len(history[eligible[i].ID])))
	}
	return summaries, nil
}

// ParticipantHistory returns one participant with its full evaluation history
func (s *EvaluationService) ParticipantHistory(ctx context.Context, evaluatorEmail, participantID string) (*ParticipantHistory, error) {
	if _, err := s.authorize(ctx, evaluatorEmail); err != nil {
		return nil, err
	}

	reg, err := s.registrations.GetByID(ctx, strings.TrimSpace(participantID))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	evaluations, err := s.evaluations.ListByParticipant(ctx, reg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluation history: %w", err)
	}

	var sum float64
	for _, e := range evaluations {
		sum += e.TotalScore
	}
	average := 0.0
	if len(evaluations) > 0 {
		average = models.RoundScore(sum / float64(len(evaluations)))
	}

	return &ParticipantHistory{
		Participant:  summarize(reg, len(evaluations)),
		Evaluations:  evaluations,
		AverageScore: average,
	}, nil
}

// SeedRoster upserts the configured judges. It keeps going past failures.
func (s *EvaluationService) SeedRoster(ctx context.Context, roster []config.RosterEntry) (int, error) {
	seeded := 0
	var errs []error
	for _, entry := range roster {
		err := s.evaluators.CreateOrUpdate(ctx, &models.Evaluator{Email: entry.Email, Name: entry.Name})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", entry.Email, err))
			continue
		}
		seeded++
	}
	return seeded, errors.Join(errs...)
}

// Evaluators returns the roster
func (s *EvaluationService) Evaluators(ctx context.Context) ([]models.Evaluator, error) {
	return s.evaluators.List(ctx)
}

// ExportLeaderboard publishes the full leaderboard through the exporter
func (s *EvaluationService) ExportLeaderboard(ctx context.Context) (int, error) {
	if s.exporter == nil {
		return 0, apperr.Precondition("leaderboard export is not configured")
	}

	entries, err := s.GetLeaderboard(ctx, s.opts.LeaderboardMax)
	if err != nil {
		return 0, err
	}
	if err := s.exporter.Export(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to export leaderboard: %w", err)
	}

	slog.Info("Leaderboard exported", "rows", len(entries))
	return len(entries), nil
}

func summarize(reg *models.Registration, evaluationCount int) ParticipantSummary {
	return ParticipantSummary{
		ID:              reg.ID,
		UniqueID:        reg.UniqueID,
		TeamName:        reg.DisplayName(),
		LeaderName:      reg.FullName,
		Module:          reg.Module,
		CurrentPhase:    reg.CurrentPhase,
		BusinessIdea:    reg.BusinessIdea,
		Submissions:     reg.Submissions,
		EvaluationCount: evaluationCount,
	}
}
