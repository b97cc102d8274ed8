package service

import (
	"context"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

// RegistrationStore persists registrations. Implementations return
// apperr.ErrNotFound for missing rows and wrap apperr.ErrConflict on
// uniqueness violations.
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	GetByAccessCode(ctx context.Context, code string) (*models.Registration, error)
	ExistsByEmailAndModule(ctx context.Context, email, module string) (bool, error)
	UniqueIDExists(ctx context.Context, code string) (bool, error)
	AccessCodeExists(ctx context.Context, code string) (bool, error)
	AssignUniqueID(ctx context.Context, id, code string) error
	AssignAccessCode(ctx context.Context, id, code string) error
	ListMissingUniqueID(ctx context.Context) ([]models.Registration, error)
	ListApprovedMissingAccessCode(ctx context.Context) ([]models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SaveSubmission(ctx context.Context, id string, sub models.PhaseSubmission) (*models.Registration, error)
	AdvancePhase(ctx context.Context, id, target string, from []string) (bool, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// EvaluationStore persists append-only evaluations and serves the aggregated leaderboard
type EvaluationStore interface {
	Create(ctx context.Context, e *models.Evaluation) error
	ListByParticipant(ctx context.Context, participantID string) ([]models.Evaluation, error)
	ListByParticipants(ctx context.Context, participantIDs []string) (map[string][]models.Evaluation, error)
	CountByParticipant(ctx context.Context, participantID string) (int, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// EvaluatorStore persists the judge roster
type EvaluatorStore interface {
	CreateOrUpdate(ctx context.Context, e *models.Evaluator) error
	GetByEmail(ctx context.Context, email string) (*models.Evaluator, error)
	List(ctx context.Context) ([]models.Evaluator, error)
}

// AdminStore persists operator accounts
type AdminStore interface {
	CreateOrUpdate(ctx context.Context, a *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// AuditStore persists audit log entries
type AuditStore interface {
	Create(ctx context.Context, log *models.AuditLog) error
	List(ctx context.Context, actor string, limit, offset int) ([]models.AuditLog, int, error)
}

// Notifier delivers an HTML message. It reports success instead of failing.
type Notifier interface {
	Send(ctx context.Context, to, subject, html string) bool
}

// Alerter posts short operational messages to the organizers
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// PassRenderer turns pass data into a printable document
type PassRenderer interface {
	Render(ctx context.Context, data PassData) (body []byte, contentType string, err error)
}

// PassArchive keeps a copy of every issued pass
type PassArchive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// LeaderboardExporter publishes the ranked leaderboard elsewhere
type LeaderboardExporter interface {
	Export(ctx context.Context, entries []models.LeaderboardEntry) error
}

// Credentials hashes admin passwords and signs admin bearer tokens
type Credentials interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) error
	GenerateToken(adminID, email, role string) (string, error)
}

// Actor identifies who triggered an admin action, for the audit trail
type Actor struct {
	ID        string
	Email     string
	Role      string
	IPAddress string
	UserAgent string
}

// System is the actor for scheduled jobs and CLI commands
var System = Actor{Email: "system", Role: models.RoleSuperAdmin}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, string, string) bool { return false }

type noopAlerter struct{}

func (noopAlerter) Alert(context.Context, string) {}
