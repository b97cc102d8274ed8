package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

// Dashboard is what an authenticated team sees
type Dashboard struct {
	Registration      *models.Registration `json:"registration"`
	LeaderCNIC        string               `json:"leader_cnic,omitempty"`
	AdditionalMembers []team.Member        `json:"additional_members"`
	EvaluationCount   int                  `json:"evaluation_count"`
	NextPhase         string               `json:"next_phase,omitempty"`
}

// PassData is handed to the PassRenderer
type PassData struct {
	TeamName   string
	LeaderName string
	Module     string
	UniqueID   string
	Members    []team.Member
	IssuedAt   time.Time
}

// Pass is a rendered pass document
type Pass struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AccessService authenticates teams by access code and email and serves
// their self-service views
type AccessService struct {
	registrations RegistrationStore
	evaluations   EvaluationStore
	renderer      PassRenderer
	archive       PassArchive
	opts          Options
}

// NewAccessService creates a new access service. renderer and archive may be nil.
func NewAccessService(
	registrations RegistrationStore,
	evaluations EvaluationStore,
	renderer PassRenderer,
	archive PassArchive,
	opts Options,
) *AccessService {
	return &AccessService{
		registrations: registrations,
		evaluations:   evaluations,
		renderer:      renderer,
		archive:       archive,
		opts:          opts,
	}
}

// Authenticate resolves an email and access code pair to an approved track
// registration. Every rejection returns apperr.ErrInvalidCredentials so a
// caller cannot tell which half of the pair was wrong.
func (s *AccessService) Authenticate(ctx context.Context, email, code string) (*models.Registration, error) {
	email = team.NormalizeEmail(email)
	code = strings.ToUpper(strings.TrimSpace(code))
	if email == "" || code == "" {
		return nil, apperr.ErrInvalidCredentials
	}

	reg, err := s.registrations.GetByAccessCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up access code: %w", err)
	}

	switch {
	case !s.opts.Track.Match(reg.Module):
		slog.Debug("Access denied: module outside track", "registration_id", reg.ID)
	case !reg.IsApproved():
		slog.Debug("Access denied: registration not approved", "registration_id", reg.ID, "status", reg.Status)
	case !team.IsTeamMember(reg.Leader(), reg.TeamMembers, email):
		slog.Debug("Access denied: email not on team", "registration_id", reg.ID)
	default:
		return reg, nil
	}

	return nil, apperr.ErrInvalidCredentials
}

// Dashboard authenticates and returns the team's view of its registration
func (s *AccessService) Dashboard(ctx context.Context, email, code string) (*Dashboard, error) {
	reg, err := s.Authenticate(ctx, email, code)
	if err != nil {
		return nil, err
	}

	count, err := s.evaluations.CountByParticipant(ctx, reg.ID)
	if err != nil {
		return nil, err
	}

	members := team.AdditionalMembers(reg.Leader(), reg.TeamMembers)
	for i := range members {
		members[i].CNIC = team.FormatCNIC(members[i].CNIC)
	}

	next, _ := s.opts.Phases.Next(reg.CurrentPhase)

	return &Dashboard{
		Registration:      reg,
		LeaderCNIC:        team.FormatCNIC(reg.CNIC),
		AdditionalMembers: members,
		EvaluationCount:   count,
		NextPhase:         next,
	}, nil
}

// Pass authenticates and renders the team's printable pass. Archiving the
// rendered pass is best-effort.
func (s *AccessService) Pass(ctx context.Context, email, code string) (*Pass, error) {
	if s.renderer == nil {
		return nil, apperr.Precondition("pass rendering is not configured")
	}

	reg, err := s.Authenticate(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if reg.UniqueID == nil || *reg.UniqueID == "" {
		return nil, apperr.Precondition("pass is not available until a unique ID is assigned")
	}

	body, contentType, err := s.renderer.Render(ctx, PassData{
		TeamName:   reg.DisplayName(),
		LeaderName: reg.FullName,
		Module:     reg.Module,
		UniqueID:   *reg.UniqueID,
		Members:    team.AdditionalMembers(reg.Leader(), reg.TeamMembers),
		IssuedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render pass: %w", err)
	}

	filename := *reg.UniqueID + extensionFor(contentType)
	if s.archive != nil {
		if err := s.archive.Put(ctx, filename, body, contentType); err != nil {
			slog.Warn("Failed to archive pass", "registration_id", reg.ID, "error", err)
		}
	}

	return &Pass{Filename: filename, ContentType: contentType, Body: body}, nil
}

func extensionFor(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	switch strings.TrimSpace(mediaType) {
	case "application/pdf":
		return ".pdf"
	case "text/html":
		return ".html"
	default:
		return ".bin"
	}
}
