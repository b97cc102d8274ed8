package repository_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/repository"
	"github.com/memalihaider/umttechverse02-sub001/internal/testutil"
	"github.com/memalihaider/umttechverse02-sub001/internal/vault"
)

func TestPostgresRepositories(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	tc := testutil.SetupPostgres(t)
	ctx := context.Background()

	regs := repository.NewRegistrationRepository(tc.DB, nil)
	evals := repository.NewEvaluationRepository(tc.DB)
	evaluators := repository.NewEvaluatorRepository(tc.DB)
	admins := repository.NewAdminRepository(tc.DB)
	audit := repository.NewAuditRepository(tc.DB)

	leader := testutil.CreateRegistration(t, regs, testutil.NewRegistration("ayesha@example.com", testutil.TrackModule))
	other := testutil.CreateRegistration(t, regs, testutil.NewRegistration("omar@example.com", testutil.GeneralModule))

	t.Run("duplicate detection ignores case and whitespace", func(t *testing.T) {
		exists, err := regs.ExistsByEmailAndModule(ctx, "AYESHA@example.com", "  startup innovation challenge ")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = regs.ExistsByEmailAndModule(ctx, "ayesha@example.com", testutil.GeneralModule)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("identifiers are assigned once", func(t *testing.T) {
		require.NoError(t, regs.AssignUniqueID(ctx, leader.ID, "TV-AAA111"))
		assert.ErrorIs(t, regs.AssignUniqueID(ctx, leader.ID, "TV-BBB222"), apperr.ErrAlreadyAssigned)
		assert.ErrorIs(t, regs.AssignUniqueID(ctx, other.ID, "TV-AAA111"), apperr.ErrConflict)

		require.NoError(t, regs.AssignAccessCode(ctx, leader.ID, "abcd2345"))
		taken, err := regs.AccessCodeExists(ctx, "ABCD2345")
		require.NoError(t, err)
		assert.True(t, taken)

		got, err := regs.GetByAccessCode(ctx, "ABCD2345")
		require.NoError(t, err)
		assert.Equal(t, leader.ID, got.ID)

		missing, err := regs.ListMissingUniqueID(ctx)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, other.ID, missing[0].ID)
	})

	t.Run("malformed ids are not found", func(t *testing.T) {
		_, err := regs.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
		assert.ErrorIs(t, regs.UpdateStatus(ctx, "00000000-0000-0000-0000-000000000000", models.StatusApproved), apperr.ErrNotFound)
	})

	t.Run("status filter normalizes stored values", func(t *testing.T) {
		require.NoError(t, regs.UpdateStatus(ctx, leader.ID, " Approved "))

		approved, err := regs.ListApprovedMissingAccessCode(ctx)
		require.NoError(t, err)
		assert.Empty(t, approved)

		list, err := regs.List(ctx, models.RegistrationFilter{Status: "approved"})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, leader.ID, list[0].ID)

		list, err = regs.List(ctx, models.RegistrationFilter{ModulePattern: "%innovation challenge%", Search: "ayesha"})
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("submissions merge and advance under guard", func(t *testing.T) {
		got, err := regs.SaveSubmission(ctx, leader.ID, models.PhaseSubmission{
			Phase:        "idea",
			Payload:      json.RawMessage(`{"title":"Solar kiosks"}`),
			BusinessIdea: true,
			AdvanceTo:    "design",
			AdvanceFrom:  []string{"idea"},
		})
		require.NoError(t, err)
		assert.Equal(t, "design", got.CurrentPhase)
		assert.JSONEq(t, `{"title":"Solar kiosks"}`, string(got.BusinessIdea))

		// resubmitting the idea overwrites the payload but never regresses
		got, err = regs.SaveSubmission(ctx, leader.ID, models.PhaseSubmission{
			Phase:       "idea",
			Payload:     json.RawMessage(`{"title":"Wind kiosks"}`),
			AdvanceTo:   "design",
			AdvanceFrom: []string{"idea"},
		})
		require.NoError(t, err)
		assert.Equal(t, "design", got.CurrentPhase)
		assert.JSONEq(t, `{"title":"Wind kiosks"}`, string(got.Submissions["idea"]))

		moved, err := regs.AdvancePhase(ctx, leader.ID, "prototype", []string{"idea"})
		require.NoError(t, err)
		assert.False(t, moved)

		moved, err = regs.AdvancePhase(ctx, leader.ID, "prototype", []string{"idea", "design"})
		require.NoError(t, err)
		assert.True(t, moved)
	})

	t.Run("leaderboard aggregates evaluations", func(t *testing.T) {
		judge := &models.Evaluator{Email: "judge@example.com", Name: "Judge"}
		require.NoError(t, evaluators.CreateOrUpdate(ctx, judge))

		for _, total := range []float64{80, 90} {
			scores := models.Scores{Problem: total / 6, Innovation: total / 6, Feasibility: total / 6, Market: total / 6, Team: total / 6, Presentation: total / 6}
			require.NoError(t, evals.Create(ctx, &models.Evaluation{
				ParticipantID: leader.ID,
				EvaluatorID:   judge.ID,
				EvaluatorName: judge.Name,
				Phase:         "prototype",
				Scores:        scores,
				TotalScore:    total,
			}))
		}

		count, err := evals.CountByParticipant(ctx, leader.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		board, err := evals.Leaderboard(ctx, 10)
		require.NoError(t, err)
		require.Len(t, board, 1)
		assert.Equal(t, leader.ID, board[0].ParticipantID)
		assert.InDelta(t, 85, board[0].AverageScore, 1e-9)
		assert.Equal(t, 2, board[0].EvaluationCount)
		require.NotNil(t, board[0].UniqueID)
		assert.Equal(t, "TV-AAA111", *board[0].UniqueID)
	})

	t.Run("admins and audit logs", func(t *testing.T) {
		admin := &models.Admin{Email: " Ops@Example.com ", PasswordHash: "hash", Name: "Ops", Role: models.RoleAdmin}
		require.NoError(t, admins.CreateOrUpdate(ctx, admin))

		got, err := admins.GetByEmail(ctx, "OPS@example.com")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		require.NoError(t, admins.UpdateLastLogin(ctx, admin.ID))

		require.NoError(t, audit.Create(ctx, &models.AuditLog{Actor: "ops@example.com", Action: "status_update", Resource: leader.ID}))
		require.NoError(t, audit.Create(ctx, &models.AuditLog{Actor: "system", Action: "leaderboard_export"}))

		logs, total, err := audit.List(ctx, "ops@example.com", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, logs, 1)
		assert.Equal(t, "status_update", logs[0].Action)
	})

	t.Run("wipe cascades", func(t *testing.T) {
		removed, err := evals.DeleteAll(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, removed)

		removed, err = regs.DeleteAll(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 2, removed)
	})
}

func TestRegistrationPIIIsSealed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	tc := testutil.SetupTestContainers(t)
	ctx := context.Background()

	client, err := vault.NewClient(ctx, &vault.Config{Address: tc.VaultAddr, Token: tc.VaultToken, TransitMount: "transit"})
	require.NoError(t, err)
	sealer, err := vault.NewSealer(ctx, client, "registration-pii")
	require.NoError(t, err)

	regs := repository.NewRegistrationRepository(tc.DB, sealer)
	reg := testutil.CreateRegistration(t, regs, testutil.NewRegistration("ayesha@example.com", testutil.TrackModule))

	assert.True(t, vault.IsSealed(testutil.RawColumn(t, tc.DB, reg.ID, "cnic")))
	assert.NotContains(t, testutil.RawColumn(t, tc.DB, reg.ID, "team_members"), "35202-7654321-3")

	got, err := regs.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "35202-1234567-1", got.CNIC)
	require.Len(t, got.TeamMembers, 1)
	assert.Equal(t, "35202-7654321-3", got.TeamMembers[0].CNIC)

	// rows written before sealing was enabled still read back
	plain := testutil.CreateRegistration(t, repository.NewRegistrationRepository(tc.DB, nil), testutil.NewRegistration("omar@example.com", testutil.TrackModule))
	got, err = regs.GetByID(ctx, plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "35202-1234567-1", got.CNIC)
}
