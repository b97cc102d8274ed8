package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

// EvaluationHandler serves judges and the public leaderboard
type EvaluationHandler struct {
	evaluations *service.EvaluationService
	audit       *service.AuditService
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluations *service.EvaluationService, audit *service.AuditService) *EvaluationHandler {
	return &EvaluationHandler{evaluations: evaluations, audit: audit}
}

// ExportResponse reports a leaderboard export
type ExportResponse struct {
	Exported int `json:"exported"`
}

// ListParticipants lists participants a judge may score
// @Summary List eligible participants
// @Description Approved registrations in the evaluation track, for judges on the roster
// @Tags Evaluations
// @Produce json
// @Param evaluator_email query string true "Judge email"
// @Success 200 {array} service.ParticipantSummary
// @Failure 403 {object} ErrorResponse "Not on the roster"
// @Router /evaluations/participants [get]
func (h *EvaluationHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.evaluations.ListEligibleParticipants(r.Context(), r.URL.Query().Get("evaluator_email"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, participants)
}

// ParticipantHistory returns a participant with every score recorded for it
// @Summary Participant evaluation history
// @Tags Evaluations
// @Produce json
// @Param id path string true "Participant ID"
// @Param evaluator_email query string true "Judge email"
// @Success 200 {object} service.ParticipantHistory
// @Failure 403 {object} ErrorResponse "Not on the roster"
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/participants/{id} [get]
func (h *EvaluationHandler) ParticipantHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.evaluations.ParticipantHistory(r.Context(), r.URL.Query().Get("evaluator_email"), chi.URLParam(r, "id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, history)
}

// SubmitEvaluation records a judge's scores
// @Summary Submit evaluation
// @Description Appends a score row. Each sub-score must be between 0 and the configured maximum.
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param request body service.EvaluationInput true "Scores"
// @Success 201 {object} models.Evaluation
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Not on the roster"
// @Failure 404 {object} ErrorResponse "Participant not found"
// @Failure 412 {object} ErrorResponse "Participant not approved or outside the track"
// @Router /evaluations [post]
func (h *EvaluationHandler) SubmitEvaluation(w http.ResponseWriter, r *http.Request) {
	var req service.EvaluationInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	evaluation, err := h.evaluations.SubmitEvaluation(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, evaluation)
}

// Leaderboard returns the ranked leaderboard
// @Summary Leaderboard
// @Description Ranked by average total score, then evaluation count
// @Tags Evaluations
// @Produce json
// @Param limit query int false "Maximum rows"
// @Success 200 {array} models.LeaderboardEntry
// @Failure 400 {object} ErrorResponse
// @Router /leaderboard [get]
func (h *EvaluationHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	entries, err := h.evaluations.GetLeaderboard(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}

// ExportLeaderboard publishes the leaderboard to the configured spreadsheet (admin only)
// @Summary Export leaderboard
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ExportResponse
// @Failure 412 {object} ErrorResponse "Export not configured"
// @Router /admin/leaderboard/export [post]
func (h *EvaluationHandler) ExportLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.evaluations.ExportLeaderboard(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.audit.Log(r.Context(), actorFromRequest(r), service.ActionLeaderboardExport, "leaderboard", fmt.Sprintf("rows=%d", rows))
	respondWithJSON(w, http.StatusOK, ExportResponse{Exported: rows})
}
