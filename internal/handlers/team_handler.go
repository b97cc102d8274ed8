package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

// TeamHandler serves the access-code protected team portal
type TeamHandler struct {
	access      *service.AccessService
	submissions *service.SubmissionService
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(access *service.AccessService, submissions *service.SubmissionService) *TeamHandler {
	return &TeamHandler{access: access, submissions: submissions}
}

// TeamCredentials identifies a team member
type TeamCredentials struct {
	Email      string `json:"email" example:"leader@example.com"`
	AccessCode string `json:"access_code" example:"K7Q2M9XD"`
}

// SubmissionRequest carries a phase artifact. Submission is stored as given.
type SubmissionRequest struct {
	TeamCredentials
	Submission json.RawMessage `json:"submission" swaggertype:"object"`
}

// Login returns the team dashboard
// @Summary Team login
// @Description Authenticate with any team member's email and the team access code
// @Tags Team
// @Accept json
// @Produce json
// @Param request body TeamCredentials true "Credentials"
// @Success 200 {object} service.Dashboard
// @Failure 401 {object} ErrorResponse "Invalid email or access code"
// @Router /team/login [post]
func (h *TeamHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req TeamCredentials
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	dashboard, err := h.access.Dashboard(r.Context(), req.Email, req.AccessCode)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

// SubmitIdea stores the team's business idea
// @Summary Submit business idea
// @Tags Team
// @Accept json
// @Produce json
// @Param request body SubmissionRequest true "Credentials and idea"
// @Success 200 {object} models.Registration
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /team/submissions/idea [post]
func (h *TeamHandler) SubmitIdea(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reg, err := h.submissions.SubmitIdea(r.Context(), req.Email, req.AccessCode, req.Submission)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reg)
}

// SubmitPhase stores the artifact for a phase the team has reached
// @Summary Submit phase artifact
// @Description Replaces the stored artifact for the phase. The team moves to the next phase at most once.
// @Tags Team
// @Accept json
// @Produce json
// @Param phase path string true "Phase name"
// @Param request body SubmissionRequest true "Credentials and artifact"
// @Success 200 {object} models.Registration
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse "Phase not open yet"
// @Router /team/submissions/{phase} [post]
func (h *TeamHandler) SubmitPhase(w http.ResponseWriter, r *http.Request) {
	var req SubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reg, err := h.submissions.SubmitPhase(r.Context(), req.Email, req.AccessCode, chi.URLParam(r, "phase"), req.Submission)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reg)
}

// Pass renders the team's printable pass
// @Summary Download team pass
// @Tags Team
// @Accept json
// @Produce html
// @Param request body TeamCredentials true "Credentials"
// @Success 200 {file} file "Rendered pass"
// @Failure 401 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse "No unique ID yet"
// @Router /team/pass [post]
func (h *TeamHandler) Pass(w http.ResponseWriter, r *http.Request) {
	var req TeamCredentials
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	pass, err := h.access.Pass(r.Context(), req.Email, req.AccessCode)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", pass.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pass.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pass.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pass.Body); err != nil {
		slog.Warn("Failed to write pass", "filename", pass.Filename, "error", err)
	}
}
