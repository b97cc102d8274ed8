package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/phase"
)

// SubmissionService accepts phase artifacts from authenticated teams
type SubmissionService struct {
	access        *AccessService
	registrations RegistrationStore
	phases        *phase.Machine
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(access *AccessService, registrations RegistrationStore, opts Options) *SubmissionService {
	return &SubmissionService{
		access:        access,
		registrations: registrations,
		phases:        opts.Phases,
	}
}

// SubmitIdea stores the team's business idea
func (s *SubmissionService) SubmitIdea(ctx context.Context, email, code string, payload json.RawMessage) (*models.Registration, error) {
	return s.SubmitPhase(ctx, email, code, phase.Idea, payload)
}

// SubmitPhase stores the artifact for a phase the team has reached. The
// stored artifact for that phase is replaced on every call, and the team is
// moved to the following phase at most once.
func (s *SubmissionService) SubmitPhase(ctx context.Context, email, code, phaseName string, payload json.RawMessage) (*models.Registration, error) {
	reg, err := s.access.Authenticate(ctx, email, code)
	if err != nil {
		return nil, err
	}

	p := phase.Normalize(phaseName)
	if !s.phases.Valid(p) {
		return nil, apperr.Validation("unknown phase %q", phaseName)
	}

	compacted, err := compactPayload(payload)
	if err != nil {
		return nil, err
	}

	if s.phases.Compare(p, reg.CurrentPhase) > 0 {
		return nil, apperr.ErrPhaseNotOpen
	}

	sub := models.PhaseSubmission{
		Phase:        p,
		Payload:      compacted,
		BusinessIdea: p == phase.Idea,
	}
	if next, ok := s.phases.Next(p); ok {
		sub.AdvanceTo = next
		sub.AdvanceFrom = s.phases.Before(next)
	}

	updated, err := s.registrations.SaveSubmission(ctx, reg.ID, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}

	slog.Info("Phase submission stored",
		"registration_id", reg.ID,
		"phase", p,
		"from_phase", reg.CurrentPhase,
		"current_phase", updated.CurrentPhase,
	)

	return updated, nil
}

// compactPayload requires a non-empty JSON value and returns it compacted
func compactPayload(payload json.RawMessage) (json.RawMessage, error) {
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, apperr.Validation("submission must be valid JSON")
	}

	empty := false
	switch v := decoded.(type) {
	case nil:
		empty = true
	case string:
		empty = v == ""
	case map[string]any:
		empty = len(v) == 0
	case []any:
		empty = len(v) == 0
	}
	if empty {
		return nil, apperr.Validation("submission must not be empty")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, apperr.Validation("submission must be valid JSON")
	}
	return json.RawMessage(buf.Bytes()), nil
}
