package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

func TestAuthenticateRejectionsAreIndistinguishable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	approved := env.approve(t, "lead@example.com", trackModule, "member@example.com")
	otherTrack := env.approve(t, "web@example.com", "Web Development")
	pending := env.register(t, "pending@example.com", trackModule)
	require.NoError(t, env.store.Registrations().AssignAccessCode(ctx, pending.ID, "PEND1234"))

	code := *approved.AccessCode
	cases := map[string][2]string{
		"wrong code":         {"lead@example.com", "ZZZZZZZZ"},
		"email not on team":  {"stranger@example.com", code},
		"empty email":        {"", code},
		"empty code":         {"lead@example.com", ""},
		"outside track":      {"web@example.com", *otherTrack.AccessCode},
		"not yet approved":   {"pending@example.com", "PEND1234"},
		"code of other team": {"web@example.com", code},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := env.access.Authenticate(ctx, in[0], in[1])
			assert.Same(t, apperr.ErrInvalidCredentials, err)
		})
	}
}

func TestAuthenticateAcceptsAnyTeamEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule, "member@example.com")
	code := strings.ToLower(*reg.AccessCode)

	for _, email := range []string{"lead@example.com", " MEMBER@example.com "} {
		got, err := env.access.Authenticate(ctx, email, code)
		require.NoError(t, err, email)
		assert.Equal(t, reg.ID, got.ID)
	}
}

func TestAuthenticateAfterApproval(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)
	code := *reg.AccessCode

	_, err := env.registrar.UpdateStatus(ctx, testAdmin, reg.ID, models.StatusPending)
	require.NoError(t, err)
	_, err = env.access.Authenticate(ctx, "lead@example.com", code)
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)

	_, err = env.registrar.UpdateStatus(ctx, testAdmin, reg.ID, models.StatusApproved)
	require.NoError(t, err)
	_, err = env.access.Authenticate(ctx, "lead@example.com", code)
	assert.NoError(t, err)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule, "lead@example.com", "member@example.com")

	dash, err := env.access.Dashboard(context.Background(), "member@example.com", *reg.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, "35202-1234567-1", dash.LeaderCNIC)
	require.Len(t, dash.AdditionalMembers, 1)
	assert.Equal(t, "member@example.com", dash.AdditionalMembers[0].Email)
	assert.Equal(t, "design", dash.NextPhase)
	assert.Zero(t, dash.EvaluationCount)
}

type stubRenderer struct {
	got PassData
}

func (r *stubRenderer) Render(_ context.Context, data PassData) ([]byte, string, error) {
	r.got = data
	return []byte("<html>" + data.UniqueID + "</html>"), "text/html; charset=utf-8", nil
}

type failingArchive struct {
	calls int
}

func (a *failingArchive) Put(context.Context, string, []byte, string) error {
	a.calls++
	return errors.New("bucket unavailable")
}

func TestPassRendersAndArchivesBestEffort(t *testing.T) {
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)

	renderer := &stubRenderer{}
	archive := &failingArchive{}
	access := NewAccessService(env.store.Registrations(), env.store.Evaluations(), renderer, archive, env.opts)

	pass, err := access.Pass(context.Background(), "lead@example.com", *reg.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, *reg.UniqueID+".html", pass.Filename)
	assert.Equal(t, *reg.UniqueID, renderer.got.UniqueID)
	assert.Equal(t, 1, archive.calls)
}

func TestPassWithoutRenderer(t *testing.T) {
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)

	_, err := env.access.Pass(context.Background(), "lead@example.com", *reg.AccessCode)
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))
}
