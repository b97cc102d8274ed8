package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

func seedJudges(t *testing.T, env *testEnv) {
	t.Helper()
	n, err := env.evaluation.SeedRoster(context.Background(), []config.RosterEntry{
		{Email: "judge1@example.com", Name: "Judge One"},
		{Email: "Judge2@Example.com", Name: "Judge Two"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func uniformScores(v float64) models.Scores {
	return models.Scores{Problem: v, Innovation: v, Feasibility: v, Market: v, Team: v, Presentation: v}
}

func TestSubmitEvaluationGates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedJudges(t, env)

	approved := env.approve(t, "lead@example.com", trackModule)
	pending := env.register(t, "pending@example.com", trackModule)
	otherTrack := env.approve(t, "web@example.com", "Web Development")

	tests := []struct {
		name    string
		in      EvaluationInput
		wantErr error
	}{
		{
			name:    "judge not on roster",
			in:      EvaluationInput{EvaluatorEmail: "intruder@example.com", ParticipantID: approved.ID},
			wantErr: apperr.ErrUnauthorizedEvaluator,
		},
		{
			name:    "roster check runs before participant lookup",
			in:      EvaluationInput{EvaluatorEmail: "intruder@example.com", ParticipantID: "missing"},
			wantErr: apperr.ErrUnauthorizedEvaluator,
		},
		{
			name:    "unknown participant",
			in:      EvaluationInput{EvaluatorEmail: "judge1@example.com", ParticipantID: "missing"},
			wantErr: apperr.ErrParticipantNotFound,
		},
		{
			name:    "pending participant",
			in:      EvaluationInput{EvaluatorEmail: "judge1@example.com", ParticipantID: pending.ID},
			wantErr: apperr.ErrParticipantNotApproved,
		},
		{
			name:    "other track",
			in:      EvaluationInput{EvaluatorEmail: "judge1@example.com", ParticipantID: otherTrack.ID},
			wantErr: apperr.ErrParticipantWrongTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.evaluation.SubmitEvaluation(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	for _, id := range []string{approved.ID, pending.ID, otherTrack.ID} {
		count, err := env.store.Evaluations().CountByParticipant(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, count, "rejected submissions must not write rows")
	}
}

func TestSubmitEvaluationScores(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedJudges(t, env)
	reg := env.approve(t, "lead@example.com", trackModule)

	for name, scores := range map[string]models.Scores{
		"negative": {Problem: -1},
		"too high": {Market: 20.5},
		"nan":      {Team: math.NaN()},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.evaluation.SubmitEvaluation(ctx, EvaluationInput{
				EvaluatorEmail: "judge1@example.com",
				ParticipantID:  reg.ID,
				Scores:         scores,
			})
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	e, err := env.evaluation.SubmitEvaluation(ctx, EvaluationInput{
		EvaluatorEmail: " JUDGE2@example.com",
		ParticipantID:  reg.ID,
		Scores:         models.Scores{Problem: 20, Innovation: 15, Feasibility: 10, Market: 5, Team: 0, Presentation: 12.5},
		Comments:       "  strong pitch ",
	})
	require.NoError(t, err)
	assert.Equal(t, 62.5, e.TotalScore)
	assert.Equal(t, "idea", e.Phase, "defaults to the participant's current phase")
	assert.Equal(t, "Judge Two", e.EvaluatorName)
	assert.Equal(t, "strong pitch", e.Comments)
}

func TestSubmitEvaluationIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedJudges(t, env)
	reg := env.approve(t, "lead@example.com", trackModule)

	for _, v := range []float64{10, 15} {
		_, err := env.evaluation.SubmitEvaluation(ctx, EvaluationInput{
			EvaluatorEmail: "judge1@example.com",
			ParticipantID:  reg.ID,
			Phase:          "idea",
			Scores:         uniformScores(v),
		})
		require.NoError(t, err)
	}

	history, err := env.evaluation.ParticipantHistory(ctx, "judge1@example.com", reg.ID)
	require.NoError(t, err)
	assert.Len(t, history.Evaluations, 2)
	assert.Equal(t, 75.0, history.AverageScore)
	assert.Equal(t, 2, history.Participant.EvaluationCount)
}

func TestLeaderboardRanking(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedJudges(t, env)

	a := env.approve(t, "a@example.com", trackModule)
	b := env.approve(t, "b@example.com", trackModule)
	c := env.approve(t, "c@example.com", trackModule)
	env.approve(t, "d@example.com", trackModule)

	score := func(id, judge string, v float64) {
		t.Helper()
		_, err := env.evaluation.SubmitEvaluation(ctx, EvaluationInput{
			EvaluatorEmail: judge,
			ParticipantID:  id,
			Scores:         uniformScores(v),
		})
		require.NoError(t, err)
	}
	// A: 60 and 84 (avg 72, two rows); B: 72 (one row); C: 90
	score(a.ID, "judge1@example.com", 10)
	score(a.ID, "judge2@example.com", 14)
	score(b.ID, "judge1@example.com", 12)
	score(c.ID, "judge2@example.com", 15)

	board, err := env.evaluation.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, c.ID, board[0].ParticipantID)
	assert.Equal(t, a.ID, board[1].ParticipantID)
	assert.Equal(t, b.ID, board[2].ParticipantID)
	for i, entry := range board {
		assert.Equal(t, i+1, entry.Rank)
		assert.NotNil(t, entry.Evaluations)
	}
	assert.InDelta(t, 72.0, board[1].AverageScore, 1e-9)
	assert.Len(t, board[1].Evaluations, 2)

	top, err := env.evaluation.GetLeaderboard(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, c.ID, top[0].ParticipantID)
}

func TestRankLeaderboardTieBreaks(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{ParticipantID: "c", AverageScore: 50, EvaluationCount: 1},
		{ParticipantID: "b", AverageScore: 50, EvaluationCount: 3},
		{ParticipantID: "a", AverageScore: 50, EvaluationCount: 1},
		{ParticipantID: "d", AverageScore: 80, EvaluationCount: 1},
	}
	RankLeaderboard(entries)

	var order []string
	for _, e := range entries {
		order = append(order, e.ParticipantID)
	}
	assert.Equal(t, []string{"d", "b", "a", "c"}, order)
	assert.Equal(t, 4, entries[3].Rank)
}

func TestRankLeaderboardTreatsNearlyEqualAveragesAsTies(t *testing.T) {
	entries := []models.LeaderboardEntry{
		{ParticipantID: "a", AverageScore: 90, EvaluationCount: 2},
		{ParticipantID: "b", AverageScore: 89.99999999999999, EvaluationCount: 3},
		{ParticipantID: "c", AverageScore: 90.5, EvaluationCount: 1},
	}
	RankLeaderboard(entries)

	var order []string
	for _, e := range entries {
		order = append(order, e.ParticipantID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestListEligibleParticipants(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedJudges(t, env)

	reg := env.approve(t, "a@example.com", trackModule)
	env.register(t, "pending@example.com", trackModule)
	env.approve(t, "web@example.com", "Web Development")

	list, err := env.evaluation.ListEligibleParticipants(ctx, "judge1@example.com")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reg.ID, list[0].ID)

	_, err = env.evaluation.ListEligibleParticipants(ctx, "intruder@example.com")
	assert.ErrorIs(t, err, apperr.ErrUnauthorizedEvaluator)
}

type recordingExporter struct {
	rows int
	err  error
}

func (e *recordingExporter) Export(_ context.Context, entries []models.LeaderboardEntry) error {
	e.rows = len(entries)
	return e.err
}

func TestExportLeaderboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.evaluation.ExportLeaderboard(ctx)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))

	seedJudges(t, env)
	reg := env.approve(t, "a@example.com", trackModule)
	_, err = env.evaluation.SubmitEvaluation(ctx, EvaluationInput{EvaluatorEmail: "judge1@example.com", ParticipantID: reg.ID, Scores: uniformScores(10)})
	require.NoError(t, err)

	exporter := &recordingExporter{}
	svc := NewEvaluationService(env.store.Registrations(), env.store.Evaluations(), env.store.Evaluators(), exporter, env.opts)
	n, err := svc.ExportLeaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, exporter.rows)

	exporter.err = errors.New("quota exceeded")
	_, err = svc.ExportLeaderboard(ctx)
	assert.Error(t, err)
}
