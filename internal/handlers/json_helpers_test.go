package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

func TestJSONResponseNeverEmitsNullSlices(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, JSONResponse(rec, models.LeaderboardEntry{ParticipantID: "p1"}))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []any{}, out["evaluations"])

	rec = httptest.NewRecorder()
	var regs []models.Registration
	require.NoError(t, JSONResponse(rec, regs))
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestNormalizeSlicesKeepsValues(t *testing.T) {
	when := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	reg := &models.Registration{
		ID:           "r1",
		BusinessIdea: json.RawMessage(`{"title":"x"}`),
		CreatedAt:    when,
	}

	got := normalizeSlices(reg).(*models.Registration)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, when, got.CreatedAt)
	assert.JSONEq(t, `{"title":"x"}`, string(got.BusinessIdea))
	assert.NotNil(t, got.TeamMembers)
}

func TestRespondWithAppError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.ErrParticipantNotFound, http.StatusNotFound},
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperr.ErrUnauthorizedEvaluator, http.StatusForbidden},
		{apperr.ErrPhaseRegression, http.StatusPreconditionFailed},
		{apperr.ErrGenerationExhausted, http.StatusServiceUnavailable},
		{apperr.Validation("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", apperr.ErrDuplicateRegistration), http.StatusConflict},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.want, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.NotContains(t, body.Error, "connection refused")
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) error {
		var dst StatusRequest
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return decodeJSON(httptest.NewRecorder(), req, &dst)
	}

	assert.NoError(t, decode(`{"status":"approved"}`))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decode("")))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decode(`{"status":`)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decode(`{} {}`)))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(decode(`{"status":"`+strings.Repeat("a", maxBodyBytes)+`"}`)))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25&offset=abc", nil)

	n, err := queryInt(req, "limit", 10)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = queryInt(req, "missing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, err = queryInt(req, "offset", 0)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
