package service

import (
	"context"
	"log/slog"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// Audit actions
const (
	ActionAdminLogin        = "admin.login"
	ActionStatusUpdate      = "registration.status_update"
	ActionPhaseAdvance      = "registration.phase_advance"
	ActionBackfillUniqueIDs = "registration.backfill_unique_ids"
	ActionBackfillCodes     = "registration.backfill_access_codes"
	ActionLeaderboardExport = "leaderboard.export"
	ActionEmergencyWipe     = "system.emergency_wipe"
)

// AuditService handles audit logging
type AuditService struct {
	auditRepo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo AuditStore) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Log creates an audit log entry. Failures are logged and never fail the
// action being audited.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, resource, details string) {
	if s == nil || s.auditRepo == nil {
		return
	}
	err := s.auditRepo.Create(ctx, &models.AuditLog{
		Actor:     actor.Email,
		Action:    action,
		Resource:  resource,
		Details:   details,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	if err != nil {
		slog.Error("Failed to write audit log", "action", action, "resource", resource, "error", err)
	}
}

// List returns audit entries newest first, with the total count for paging
func (s *AuditService) List(ctx context.Context, actor string, limit, offset int) ([]models.AuditLog, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.List(ctx, actor, limit, offset)
}
