package models

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

// Registration status values
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Admin roles
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// NormalizeStatus lowercases and trims a status value
func NormalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

// ValidStatus reports whether status is one of the three registration states
func ValidStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Registration is one team's enrollment for a module
type Registration struct {
	ID           string                     `json:"id" db:"id"`
	UniqueID     *string                    `json:"unique_id,omitempty" db:"unique_id"`
	AccessCode   *string                    `json:"-" db:"access_code"`
	Module       string                     `json:"module" db:"module"`
	Status       string                     `json:"status" db:"status"`
	FullName     string                     `json:"full_name" db:"full_name"`
	Email        string                     `json:"email" db:"email"`
	Phone        string                     `json:"phone,omitempty" db:"phone"`
	University   string                     `json:"university,omitempty" db:"university"`
	RollNumber   string                     `json:"roll_number,omitempty" db:"roll_number"`
	CNIC         string                     `json:"cnic,omitempty" db:"cnic"`
	TeamName     string                     `json:"team_name,omitempty" db:"team_name"`
	TeamMembers  []team.Member              `json:"team_members" db:"team_members"`
	BusinessIdea json.RawMessage            `json:"business_idea,omitempty" db:"business_idea"`
	Submissions  map[string]json.RawMessage `json:"submissions,omitempty" db:"submissions"`
	CurrentPhase string                     `json:"current_phase" db:"current_phase"`
	CreatedAt    time.Time                  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at" db:"updated_at"`
}

// Leader returns the identity the registration was submitted under
func (r *Registration) Leader() team.Leader {
	return team.Leader{Name: r.FullName, Email: r.Email, RollNumber: r.RollNumber}
}

// IsApproved reports whether the status is exactly approved after normalization
func (r *Registration) IsApproved() bool {
	return NormalizeStatus(r.Status) == StatusApproved
}

// DisplayName returns the team name, falling back to the leader's name
func (r *Registration) DisplayName() string {
	if strings.TrimSpace(r.TeamName) != "" {
		return r.TeamName
	}
	return r.FullName
}

// RegistrationFilter narrows registration listings
type RegistrationFilter struct {
	Status        string
	ModulePattern string // case-insensitive LIKE pattern
	Search        string
	Limit         int
	Offset        int
}

// PhaseSubmission is a single guarded write of a phase artifact
type PhaseSubmission struct {
	Phase        string
	Payload      json.RawMessage
	BusinessIdea bool // also mirror the payload into business_idea
	// AdvanceTo is applied only while current_phase is one of AdvanceFrom
	AdvanceTo   string
	AdvanceFrom []string
}

// Evaluator is a judge on the evaluation roster
type Evaluator struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Scores holds the six sub-scores a judge assigns
type Scores struct {
	Problem      float64 `json:"problem_score"`
	Innovation   float64 `json:"innovation_score"`
	Feasibility  float64 `json:"feasibility_score"`
	Market       float64 `json:"market_score"`
	Team         float64 `json:"team_score"`
	Presentation float64 `json:"presentation_score"`
}

// Named returns the sub-scores with their field names, in a fixed order
func (s Scores) Named() []NamedScore {
	return []NamedScore{
		{"problem_score", s.Problem},
		{"innovation_score", s.Innovation},
		{"feasibility_score", s.Feasibility},
		{"market_score", s.Market},
		{"team_score", s.Team},
		{"presentation_score", s.Presentation},
	}
}

// Total returns the sum of all sub-scores
func (s Scores) Total() float64 {
	return s.Problem + s.Innovation + s.Feasibility + s.Market + s.Team + s.Presentation
}

// NamedScore pairs a sub-score with its field name
type NamedScore struct {
	Name  string
	Value float64
}

// Evaluation is an immutable score record
type Evaluation struct {
	ID            string    `json:"id" db:"id"`
	ParticipantID string    `json:"participant_id" db:"participant_id"`
	EvaluatorID   string    `json:"evaluator_id" db:"evaluator_id"`
	EvaluatorName string    `json:"evaluator_name" db:"evaluator_name"`
	Phase         string    `json:"phase" db:"phase"`
	Scores                  // sub-scores are flattened into the JSON object
	TotalScore    float64   `json:"total_score" db:"total_score"`
	Comments      string    `json:"comments" db:"comments"`
	EvaluatedAt   time.Time `json:"evaluated_at" db:"evaluated_at"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank            int          `json:"rank"`
	ParticipantID   string       `json:"participant_id" db:"participant_id"`
	TeamName        string       `json:"team_name" db:"team_name"`
	LeaderName      string       `json:"leader_name" db:"leader_name"`
	Module          string       `json:"module" db:"module"`
	UniqueID        *string      `json:"unique_id,omitempty" db:"unique_id"`
	AverageScore    float64      `json:"average_score" db:"average_score"`
	EvaluationCount int          `json:"evaluation_count" db:"evaluation_count"`
	Evaluations     []Evaluation `json:"evaluations"`
}

// RoundScore rounds an average to four decimal places so that equal
// averages compare equal regardless of summation order.
func RoundScore(v float64) float64 {
	const scale = 1e4
	return math.Round(v*scale) / scale
}

// Admin is an operator account
type Admin struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Name         string     `json:"name" db:"name"`
	Role         string     `json:"role" db:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        int64     `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	Action    string    `json:"action" db:"action"`
	Resource  string    `json:"resource" db:"resource"`
	Details   string    `json:"details" db:"details"`
	IPAddress string    `json:"ip_address" db:"ip_address"`
	UserAgent string    `json:"user_agent" db:"user_agent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BackfillFailure describes one row a backfill could not update
type BackfillFailure struct {
	RegistrationID string `json:"registration_id"`
	Error          string `json:"error"`
}

// BackfillReport tallies a backfill run
type BackfillReport struct {
	Field    string            `json:"field"`
	Scanned  int               `json:"scanned"`
	Assigned int               `json:"assigned"`
	Skipped  int               `json:"skipped"` // assigned concurrently by another writer
	Failed   int               `json:"failed"`
	Failures []BackfillFailure `json:"failures"`
}

// DeliveryReport tallies a multi-recipient notification
type DeliveryReport struct {
	Sent             int      `json:"sent"`
	Failed           int      `json:"failed"`
	FailedRecipients []string `json:"failed_recipients,omitempty"`
}

// WipeReport counts rows removed by an emergency wipe
type WipeReport struct {
	Evaluations   int64 `json:"evaluations"`
	Registrations int64 `json:"registrations"`
}
