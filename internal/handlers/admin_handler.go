package handlers

import (
	"net/http"

	"github.com/memalihaider/umttechverse02-sub001/internal/middleware"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

// AdminHandler handles operator login and the audit trail
type AdminHandler struct {
	admins *service.AdminAuthService
	audit  *service.AuditService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admins *service.AdminAuthService, audit *service.AuditService) *AdminHandler {
	return &AdminHandler{admins: admins, audit: audit}
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Email    string `json:"email" example:"ops@example.com"`
	Password string `json:"password"`
}

// AuditLogPage is a page of audit entries
type AuditLogPage struct {
	Logs   []models.AuditLog `json:"logs"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// Login authenticates an admin
// @Summary Admin login
// @Description Authenticate with email and password and receive a bearer token
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} service.LoginResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Router /admin/login [post]
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	result, err := h.admins.Login(r.Context(), req.Email, req.Password, middleware.ClientIP(r), r.UserAgent())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ListAuditLogs lists audit entries (admin only)
// @Summary List audit logs
// @Description Newest first, optionally filtered by actor email
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param actor query string false "Filter by actor email"
// @Param limit query int false "Items per page" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} AuditLogPage
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultAuditSize)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	logs, total, err := h.audit.List(r.Context(), r.URL.Query().Get("actor"), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, AuditLogPage{Logs: logs, Total: total, Limit: limit, Offset: offset})
}
