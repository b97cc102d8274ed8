package memstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

func newTestStore() *Store {
	s := New()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func createRegistration(t *testing.T, s *Store, email, module, status string) *models.Registration {
	t.Helper()
	reg := &models.Registration{
		Module:       module,
		Status:       status,
		FullName:     "Leader " + email,
		Email:        email,
		CurrentPhase: "idea",
	}
	require.NoError(t, s.Registrations().Create(context.Background(), reg))
	return reg
}

func TestAssignUniqueIDGuards(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	regs := s.Registrations()

	a := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusPending)
	b := createRegistration(t, s, "b@example.com", "Innovation Challenge", models.StatusPending)

	require.NoError(t, regs.AssignUniqueID(ctx, a.ID, "TV-AAAAAA"))
	assert.ErrorIs(t, regs.AssignUniqueID(ctx, a.ID, "TV-BBBBBB"), apperr.ErrAlreadyAssigned)
	assert.ErrorIs(t, regs.AssignUniqueID(ctx, b.ID, "TV-AAAAAA"), apperr.ErrConflict)
	assert.ErrorIs(t, regs.AssignUniqueID(ctx, "missing", "TV-CCCCCC"), apperr.ErrNotFound)

	taken, err := regs.UniqueIDExists(ctx, "TV-AAAAAA")
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestAccessCodeIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	regs := s.Registrations()

	a := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)
	b := createRegistration(t, s, "b@example.com", "Innovation Challenge", models.StatusApproved)

	require.NoError(t, regs.AssignAccessCode(ctx, a.ID, "Ab12Cd34"))
	assert.ErrorIs(t, regs.AssignAccessCode(ctx, b.ID, "AB12CD34"), apperr.ErrConflict)

	got, err := regs.GetByAccessCode(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestGetByIDReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	reg := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusPending)

	got, err := s.Registrations().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	got.Status = models.StatusApproved
	got.TeamMembers = append(got.TeamMembers, team.Member{Name: "Intruder"})

	again, err := s.Registrations().GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Empty(t, again.TeamMembers)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)
	createRegistration(t, s, "b@example.com", "Web Development", models.StatusApproved)
	createRegistration(t, s, "c@example.com", "The INNOVATION challenge 2026", models.StatusPending)

	list, err := s.Registrations().List(ctx, models.RegistrationFilter{ModulePattern: "%innovation challenge%"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c@example.com", list[0].Email, "newest first")

	list, err = s.Registrations().List(ctx, models.RegistrationFilter{Status: "APPROVED "})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.Registrations().List(ctx, models.RegistrationFilter{Search: "B@EXAMPLE"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Web Development", list[0].Module)

	list, err = s.Registrations().List(ctx, models.RegistrationFilter{Limit: 1, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveSubmissionAdvancesOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	reg := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)

	sub := models.PhaseSubmission{
		Phase:        "idea",
		Payload:      json.RawMessage(`{"title":"v1"}`),
		BusinessIdea: true,
		AdvanceTo:    "design",
		AdvanceFrom:  []string{"idea"},
	}
	got, err := s.Registrations().SaveSubmission(ctx, reg.ID, sub)
	require.NoError(t, err)
	assert.Equal(t, "design", got.CurrentPhase)
	assert.JSONEq(t, `{"title":"v1"}`, string(got.BusinessIdea))

	sub.Payload = json.RawMessage(`{"title":"v2"}`)
	got, err = s.Registrations().SaveSubmission(ctx, reg.ID, sub)
	require.NoError(t, err)
	assert.Equal(t, "design", got.CurrentPhase)
	assert.JSONEq(t, `{"title":"v2"}`, string(got.Submissions["idea"]))
}

func TestLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)
	b := createRegistration(t, s, "b@example.com", "Innovation Challenge", models.StatusApproved)
	createRegistration(t, s, "c@example.com", "Innovation Challenge", models.StatusApproved)

	evals := s.Evaluations()
	for _, total := range []float64{80, 60} {
		require.NoError(t, evals.Create(ctx, &models.Evaluation{ParticipantID: a.ID, TotalScore: total}))
	}
	require.NoError(t, evals.Create(ctx, &models.Evaluation{ParticipantID: b.ID, TotalScore: 70}))

	board, err := evals.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 2, "participants without evaluations are not ranked")
	assert.Equal(t, a.ID, board[0].ParticipantID, "equal averages rank the larger count first")
	assert.Equal(t, 2, board[0].EvaluationCount)
	assert.Equal(t, b.ID, board[1].ParticipantID)
}

func TestLeaderboardRoundsAverages(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)

	evals := s.Evaluations()
	for _, total := range []float64{89.7, 90.1, 90.2} {
		require.NoError(t, evals.Create(ctx, &models.Evaluation{ParticipantID: a.ID, TotalScore: total}))
	}

	board, err := evals.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, 90.0, board[0].AverageScore)
}

func TestDeleteAllRegistrationsCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a := createRegistration(t, s, "a@example.com", "Innovation Challenge", models.StatusApproved)
	require.NoError(t, s.Evaluations().Create(ctx, &models.Evaluation{ParticipantID: a.ID, TotalScore: 50}))

	n, err := s.Registrations().DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.Evaluations().CountByParticipant(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAuditListPaging(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, actor := range []string{"a", "b", "a"} {
		require.NoError(t, s.Audit().Create(ctx, &models.AuditLog{Actor: actor, Action: "x"}))
	}

	logs, total, err := s.Audit().List(ctx, "a", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, logs, 1)
	assert.Equal(t, int64(3), logs[0].ID)
}

func TestLikePattern(t *testing.T) {
	assert.True(t, likePattern("%innovation challenge%").MatchString("Startup Innovation Challenge"))
	assert.True(t, likePattern("a_c").MatchString("ABC"))
	assert.False(t, likePattern("a.c").MatchString("abc"))
}
