package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
)

func TestSubmitIdeaAdvancesOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)
	code := *reg.AccessCode

	got, err := env.submissions.SubmitIdea(ctx, "lead@example.com", code, json.RawMessage(`{"title": "Solar kiosks"}`))
	require.NoError(t, err)
	assert.Equal(t, "design", got.CurrentPhase)
	assert.JSONEq(t, `{"title":"Solar kiosks"}`, string(got.BusinessIdea))

	got, err = env.submissions.SubmitIdea(ctx, "lead@example.com", code, json.RawMessage(`{"title": "Solar kiosks v2"}`))
	require.NoError(t, err)
	assert.Equal(t, "design", got.CurrentPhase, "resubmitting must not advance again")
	assert.JSONEq(t, `{"title":"Solar kiosks v2"}`, string(got.Submissions["idea"]))
}

func TestSubmitPhaseNotOpen(t *testing.T) {
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)

	_, err := env.submissions.SubmitPhase(context.Background(), "lead@example.com", *reg.AccessCode, "prototype", json.RawMessage(`{"demo":"link"}`))
	assert.ErrorIs(t, err, apperr.ErrPhaseNotOpen)
}

func TestSubmitEarlierPhaseDoesNotRegress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)
	_, err := env.registrar.AdvancePhase(ctx, testAdmin, reg.ID, "prototype")
	require.NoError(t, err)

	got, err := env.submissions.SubmitIdea(ctx, "lead@example.com", *reg.AccessCode, json.RawMessage(`{"title":"late"}`))
	require.NoError(t, err)
	assert.Equal(t, "prototype", got.CurrentPhase)
}

func TestSubmitLastPhaseStays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)
	_, err := env.registrar.AdvancePhase(ctx, testAdmin, reg.ID, "final")
	require.NoError(t, err)

	got, err := env.submissions.SubmitPhase(ctx, "lead@example.com", *reg.AccessCode, "final", json.RawMessage(`{"deck":"url"}`))
	require.NoError(t, err)
	assert.Equal(t, "final", got.CurrentPhase)
}

func TestSubmitPhaseValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reg := env.approve(t, "lead@example.com", trackModule)
	code := *reg.AccessCode

	for name, payload := range map[string]string{
		"invalid json": `{"title":`,
		"empty object": `{}`,
		"null":         `null`,
		"empty string": `""`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.submissions.SubmitIdea(ctx, "lead@example.com", code, json.RawMessage(payload))
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	_, err := env.submissions.SubmitPhase(ctx, "lead@example.com", code, "launch", json.RawMessage(`{"a":1}`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.submissions.SubmitIdea(ctx, "lead@example.com", "WRONG123", json.RawMessage(`{"a":1}`))
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
}
