package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/identity"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/phase"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
	"github.com/memalihaider/umttechverse02-sub001/pkg/validator"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// RegistrationInput is the intake form
type RegistrationInput struct {
	Module      string          `json:"module" validate:"required,max=200"`
	FullName    string          `json:"full_name" validate:"required,max=200"`
	Email       string          `json:"email" validate:"required,email"`
	Phone       string          `json:"phone" validate:"phone"`
	University  string          `json:"university" validate:"max=200"`
	RollNumber  string          `json:"roll_number" validate:"max=50"`
	CNIC        string          `json:"cnic" validate:"cnic"`
	TeamName    string          `json:"team_name" validate:"max=200"`
	TeamMembers json.RawMessage `json:"team_members"`
}

// StatusUpdateResult reports a status change and the notifications it sent
type StatusUpdateResult struct {
	Registration *models.Registration  `json:"registration"`
	Delivery     models.DeliveryReport `json:"delivery"`
}

// RegistrationService handles intake and admin actions on registrations
type RegistrationService struct {
	registrations RegistrationStore
	evaluations   EvaluationStore
	audit         *AuditService
	notifier      Notifier
	alerter       Alerter
	uniqueIDs     *identity.Generator
	accessCodes   *identity.Generator
	phases        *phase.Machine
	opts          Options
}

// NewRegistrationService creates a new registration service. notifier and
// alerter may be nil.
func NewRegistrationService(
	registrations RegistrationStore,
	evaluations EvaluationStore,
	audit *AuditService,
	notifier Notifier,
	alerter Alerter,
	opts Options,
) *RegistrationService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if alerter == nil {
		alerter = noopAlerter{}
	}
	return &RegistrationService{
		registrations: registrations,
		evaluations:   evaluations,
		audit:         audit,
		notifier:      notifier,
		alerter:       alerter,
		uniqueIDs:     identity.NewGenerator(opts.UniqueID),
		accessCodes:   identity.NewGenerator(opts.AccessCode),
		phases:        opts.Phases,
		opts:          opts,
	}
}

// Register creates a pending registration and assigns its unique ID. A
// failed ID assignment does not fail the registration; backfill picks it up.
func (s *RegistrationService) Register(ctx context.Context, in RegistrationInput) (*models.Registration, error) {
	in.Module = validator.SanitizeString(in.Module)
	in.FullName = validator.SanitizeString(in.FullName)
	in.Email = validator.SanitizeEmail(in.Email)
	in.Phone = validator.SanitizeString(in.Phone)
	in.University = validator.SanitizeString(in.University)
	in.RollNumber = validator.SanitizeString(in.RollNumber)
	in.CNIC = validator.SanitizeString(in.CNIC)
	in.TeamName = validator.SanitizeString(in.TeamName)

	if err := validator.ValidateStruct(&in); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	members := team.Normalize(in.TeamMembers)
	for i, m := range members {
		if m.Email != "" && validator.ValidateEmail(m.Email) != nil {
			return nil, apperr.Validation("team member %d has an invalid email", i+1)
		}
	}

	exists, err := s.registrations.ExistsByEmailAndModule(ctx, in.Email, in.Module)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrDuplicateRegistration
	}

	reg := &models.Registration{
		ID:           uuid.NewString(),
		Module:       in.Module,
		Status:       models.StatusPending,
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		University:   in.University,
		RollNumber:   in.RollNumber,
		CNIC:         team.DigitsOnly(in.CNIC),
		TeamName:     in.TeamName,
		TeamMembers:  members,
		Submissions:  map[string]json.RawMessage{},
		CurrentPhase: s.phases.First(),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, err
	}

	if code, err := s.ClaimUniqueID(ctx, reg.ID); err != nil {
		slog.Warn("Unique ID not assigned at registration", "registration_id", reg.ID, "error", err)
	} else {
		reg.UniqueID = &code
	}

	slog.Info("Registration created", "registration_id", reg.ID, "module", reg.Module, "members", len(members))

	subject, body := registrationReceivedMessage(reg)
	if !s.notifier.Send(ctx, reg.Email, subject, body) {
		slog.Warn("Registration confirmation not delivered", "registration_id", reg.ID)
	}
	s.alerter.Alert(ctx, fmt.Sprintf("New registration for %s: %s (%s)", reg.Module, reg.DisplayName(), deref(reg.UniqueID)))

	return reg, nil
}

// ClaimUniqueID generates and commits a unique ID for a registration that has none
func (s *RegistrationService) ClaimUniqueID(ctx context.Context, id string) (string, error) {
	return s.uniqueIDs.Claim(ctx, s.registrations.UniqueIDExists, func(ctx context.Context, code string) error {
		return s.registrations.AssignUniqueID(ctx, id, code)
	})
}

// ClaimAccessCode generates and commits an access code for a registration that has none
func (s *RegistrationService) ClaimAccessCode(ctx context.Context, id string) (string, error) {
	return s.accessCodes.Claim(ctx, s.registrations.AccessCodeExists, func(ctx context.Context, code string) error {
		return s.registrations.AssignAccessCode(ctx, id, code)
	})
}

// Get returns one registration
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	return s.registrations.GetByID(ctx, id)
}

// List returns registrations for the admin console
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, apperr.Validation("unknown status %q", filter.Status)
	}
	return s.registrations.List(ctx, filter)
}

// UpdateStatus moves a registration to a new status. Approval assigns any
// missing identifiers and mails the access code to the whole team; rejection
// notifies the leader. Notifications are tallied and never undo the change.
func (s *RegistrationService) UpdateStatus(ctx context.Context, actor Actor, id, status string) (*StatusUpdateResult, error) {
	status = models.NormalizeStatus(status)
	if !models.ValidStatus(status) {
		return nil, apperr.Validation("status must be one of pending, approved, rejected")
	}

	if err := s.registrations.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, actor, ActionStatusUpdate, "registration:"+id, "status="+status)

	if status == models.StatusApproved {
		if err := s.ensureIdentifiers(ctx, id); err != nil {
			return nil, err
		}
	}

	// the row may have changed since the update; notify on what is stored now
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := &StatusUpdateResult{Registration: reg}
	if models.NormalizeStatus(reg.Status) != status {
		slog.Warn("Status changed concurrently, skipping notifications",
			"registration_id", id, "requested", status, "stored", reg.Status)
		return result, nil
	}

	switch status {
	case models.StatusApproved:
		subject, body := approvalMessage(reg, s.opts.PortalURL)
		result.Delivery = s.deliver(ctx, team.Emails(reg.Leader(), reg.TeamMembers), subject, body)
		s.alerter.Alert(ctx, fmt.Sprintf("Approved %s for %s", reg.DisplayName(), reg.Module))
	case models.StatusRejected:
		subject, body := rejectionMessage(reg)
		result.Delivery = s.deliver(ctx, []string{reg.Email}, subject, body)
	}

	slog.Info("Registration status updated",
		"registration_id", id,
		"status", status,
		"actor", actor.Email,
		"sent", result.Delivery.Sent,
		"failed", result.Delivery.Failed,
	)

	return result, nil
}

// ensureIdentifiers assigns an access code and unique ID when missing. A
// missing unique ID is only logged; the access code is required for approval.
func (s *RegistrationService) ensureIdentifiers(ctx context.Context, id string) error {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if reg.AccessCode == nil {
		if _, err := s.ClaimAccessCode(ctx, id); err != nil && !errors.Is(err, apperr.ErrAlreadyAssigned) {
			return fmt.Errorf("failed to assign access code: %w", err)
		}
	}
	if reg.UniqueID == nil {
		if _, err := s.ClaimUniqueID(ctx, id); err != nil && !errors.Is(err, apperr.ErrAlreadyAssigned) {
			slog.Warn("Unique ID not assigned at approval", "registration_id", id, "error", err)
		}
	}
	return nil
}

func (s *RegistrationService) deliver(ctx context.Context, recipients []string, subject, body string) models.DeliveryReport {
	var report models.DeliveryReport
	for _, to := range recipients {
		if s.notifier.Send(ctx, to, subject, body) {
			report.Sent++
			continue
		}
		report.Failed++
		report.FailedRecipients = append(report.FailedRecipients, to)
	}
	return report
}

// AdvancePhase moves a registration forward to target. Moving to the
// current phase is a no-op; moving backwards is rejected.
func (s *RegistrationService) AdvancePhase(ctx context.Context, actor Actor, id, target string) (*models.Registration, error) {
	target = phase.Normalize(target)
	if !s.phases.Valid(target) {
		return nil, apperr.Validation("unknown phase %q", target)
	}

	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch s.phases.Compare(target, reg.CurrentPhase) {
	case 0:
		return reg, nil
	case -1:
		return nil, apperr.ErrPhaseRegression
	}

	advanced, err := s.registrations.AdvancePhase(ctx, id, target, s.phases.Before(target))
	if err != nil {
		return nil, err
	}

	reg, err = s.registrations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !advanced && s.phases.Compare(reg.CurrentPhase, target) > 0 {
		return nil, apperr.ErrPhaseRegression
	}

	s.audit.Log(ctx, actor, ActionPhaseAdvance, "registration:"+id, "phase="+target)
	slog.Info("Registration phase advanced", "registration_id", id, "phase", reg.CurrentPhase, "actor", actor.Email)

	return reg, nil
}

// BackfillUniqueIDs assigns unique IDs to every registration missing one
func (s *RegistrationService) BackfillUniqueIDs(ctx context.Context, actor Actor) (*models.BackfillReport, error) {
	rows, err := s.registrations.ListMissingUniqueID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	report := s.backfill(ctx, "unique_id", rows, s.ClaimUniqueID)
	s.audit.Log(ctx, actor, ActionBackfillUniqueIDs, "registrations", backfillDetails(report))
	return report, ctx.Err()
}

// BackfillAccessCodes assigns access codes to approved registrations missing one
func (s *RegistrationService) BackfillAccessCodes(ctx context.Context, actor Actor) (*models.BackfillReport, error) {
	rows, err := s.registrations.ListApprovedMissingAccessCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	report := s.backfill(ctx, "access_code", rows, s.ClaimAccessCode)
	s.audit.Log(ctx, actor, ActionBackfillCodes, "registrations", backfillDetails(report))
	return report, ctx.Err()
}

// backfill claims an identifier for each row, continuing past failures
func (s *RegistrationService) backfill(
	ctx context.Context,
	field string,
	rows []models.Registration,
	claim func(ctx context.Context, id string) (string, error),
) *models.BackfillReport {
	report := &models.BackfillReport{Field: field, Failures: []models.BackfillFailure{}}

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		report.Scanned++

		_, err := claim(ctx, row.ID)
		switch {
		case err == nil:
			report.Assigned++
		case errors.Is(err, apperr.ErrAlreadyAssigned):
			report.Skipped++
		default:
			report.Failed++
			report.Failures = append(report.Failures, models.BackfillFailure{RegistrationID: row.ID, Error: err.Error()})
			slog.Warn("Backfill failed for registration", "field", field, "registration_id", row.ID, "error", err)
		}
	}

	slog.Info("Backfill finished",
		"field", field,
		"scanned", report.Scanned,
		"assigned", report.Assigned,
		"skipped", report.Skipped,
		"failed", report.Failed,
	)
	return report
}

func backfillDetails(r *models.BackfillReport) string {
	return fmt.Sprintf("scanned=%d assigned=%d skipped=%d failed=%d", r.Scanned, r.Assigned, r.Skipped, r.Failed)
}

// EmergencyWipe deletes every evaluation and registration. It requires the
// superadmin role and the configured confirmation phrase.
func (s *RegistrationService) EmergencyWipe(ctx context.Context, actor Actor, confirmation string) (*models.WipeReport, error) {
	if actor.Role != models.RoleSuperAdmin {
		return nil, apperr.ErrForbidden
	}
	if s.opts.WipeConfirmation == "" || strings.TrimSpace(confirmation) != s.opts.WipeConfirmation {
		return nil, apperr.Validation("confirmation phrase does not match")
	}

	report := &models.WipeReport{}
	var err error
	if report.Evaluations, err = s.evaluations.DeleteAll(ctx); err != nil {
		return nil, err
	}
	if report.Registrations, err = s.registrations.DeleteAll(ctx); err != nil {
		return report, err
	}

	details := fmt.Sprintf("evaluations=%d registrations=%d", report.Evaluations, report.Registrations)
	s.audit.Log(ctx, actor, ActionEmergencyWipe, "all", details)
	s.alerter.Alert(ctx, fmt.Sprintf("Emergency wipe by %s: %s", actor.Email, details))
	slog.Warn("Emergency wipe executed", "actor", actor.Email, "evaluations", report.Evaluations, "registrations", report.Registrations)

	return report, nil
}
