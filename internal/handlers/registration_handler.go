package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

// RegistrationHandler handles registration intake and the admin registration workflow
type RegistrationHandler struct {
	registrations *service.RegistrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(registrations *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations}
}

// StatusRequest changes a registration's status
type StatusRequest struct {
	Status string `json:"status" example:"approved"`
}

// PhaseRequest moves a registration to a later phase
type PhaseRequest struct {
	Phase string `json:"phase" example:"design"`
}

// Register creates a pending registration
// @Summary Register a team
// @Description Submit a registration for a module. The leader's email may register once per module.
// @Tags Registrations
// @Accept json
// @Produce json
// @Param request body service.RegistrationInput true "Registration details"
// @Success 201 {object} models.Registration
// @Failure 400 {object} ErrorResponse "Invalid input"
// @Failure 409 {object} ErrorResponse "Already registered for this module"
// @Router /registrations [post]
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegistrationInput
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reg, err := h.registrations.Register(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, reg)
}

// ListRegistrations lists registrations (admin only)
// @Summary List registrations
// @Description Newest first, filtered by status, module pattern and free-text search
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Param module query string false "Case-insensitive LIKE pattern on module"
// @Param search query string false "Matches name, email, team name or unique ID"
// @Param limit query int false "Page size" default(100)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Registration
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/registrations [get]
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	q := r.URL.Query()
	regs, err := h.registrations.List(r.Context(), models.RegistrationFilter{
		Status:        q.Get("status"),
		ModulePattern: q.Get("module"),
		Search:        q.Get("search"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, regs)
}

// GetRegistration returns one registration (admin only)
// @Summary Get registration
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} models.Registration
// @Failure 404 {object} ErrorResponse
// @Router /admin/registrations/{id} [get]
func (h *RegistrationHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrations.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, reg)
}

// UpdateStatus approves or rejects a registration (admin only)
// @Summary Update registration status
// @Description Approval assigns an access code if missing and emails the whole team. Rejection emails the leader.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param request body StatusRequest true "New status"
// @Success 200 {object} service.StatusUpdateResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse "Access code generation exhausted"
// @Router /admin/registrations/{id}/status [post]
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondWithError(w, http.StatusBadRequest, ErrMsgMissingID)
		return
	}

	var req StatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.registrations.UpdateStatus(r.Context(), actorFromRequest(r), id, req.Status)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// AdvancePhase moves a registration forward (admin only)
// @Summary Advance registration phase
// @Description Moves the team to a later phase. Moving to the current phase is a no-op; moving backwards fails.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param request body PhaseRequest true "Target phase"
// @Success 200 {object} models.Registration
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 412 {object} ErrorResponse "Phase regression"
// @Router /admin/registrations/{id}/phase [post]
func (h *RegistrationHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondWithError(w, http.StatusBadRequest, ErrMsgMissingID)
		return
	}

	var req PhaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	reg, err := h.registrations.AdvancePhase(r.Context(), actorFromRequest(r), id, req.Phase)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, reg)
}

// BackfillUniqueIDs assigns unique IDs to every registration missing one (admin only)
// @Summary Backfill unique IDs
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.BackfillReport
// @Router /admin/backfill/unique-ids [post]
func (h *RegistrationHandler) BackfillUniqueIDs(w http.ResponseWriter, r *http.Request) {
	report, err := h.registrations.BackfillUniqueIDs(r.Context(), actorFromRequest(r))
	if err != nil && report == nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// BackfillAccessCodes assigns access codes to approved registrations missing one (admin only)
// @Summary Backfill access codes
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.BackfillReport
// @Router /admin/backfill/access-codes [post]
func (h *RegistrationHandler) BackfillAccessCodes(w http.ResponseWriter, r *http.Request) {
	report, err := h.registrations.BackfillAccessCodes(r.Context(), actorFromRequest(r))
	if err != nil && report == nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}

// WipeRequest confirms an emergency wipe
type WipeRequest struct {
	Confirmation string `json:"confirmation" example:"DELETE ALL DATA"`
}

// EmergencyWipe deletes every evaluation and registration (superadmin only)
// @Summary Emergency wipe
// @Description Irreversibly deletes all evaluations and registrations. Requires the configured confirmation phrase.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WipeRequest true "Confirmation phrase"
// @Success 200 {object} models.WipeReport
// @Failure 400 {object} ErrorResponse "Wrong confirmation phrase"
// @Failure 403 {object} ErrorResponse "Superadmin only"
// @Router /admin/wipe [post]
func (h *RegistrationHandler) EmergencyWipe(w http.ResponseWriter, r *http.Request) {
	var req WipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	report, err := h.registrations.EmergencyWipe(r.Context(), actorFromRequest(r), req.Confirmation)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
