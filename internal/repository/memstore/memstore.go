// Package memstore keeps every store in process memory. It backs
// STORE_DRIVER=memory for local runs and the service tests, and mirrors the
// guards the SQL repositories put in their WHERE clauses.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memalihaider/umttechverse02-sub001/internal/apperr"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/team"
)

// Store holds every table. The typed views returned by Registrations,
// Evaluations and friends share one lock so cross-table reads are consistent.
type Store struct {
	mu            sync.RWMutex
	registrations map[string]*models.Registration
	evaluations   []models.Evaluation
	evaluators    map[string]*models.Evaluator
	admins        map[string]*models.Admin
	audit         []models.AuditLog
	nextAuditID   int64
	now           func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		registrations: make(map[string]*models.Registration),
		evaluators:    make(map[string]*models.Evaluator),
		admins:        make(map[string]*models.Admin),
		now:           time.Now,
	}
}

// Registrations returns the registration store
func (s *Store) Registrations() *RegistrationStore { return &RegistrationStore{s: s} }

// Evaluations returns the evaluation store
func (s *Store) Evaluations() *EvaluationStore { return &EvaluationStore{s: s} }

// Evaluators returns the roster store
func (s *Store) Evaluators() *EvaluatorStore { return &EvaluatorStore{s: s} }

// Admins returns the admin store
func (s *Store) Admins() *AdminStore { return &AdminStore{s: s} }

// Audit returns the audit log store
func (s *Store) Audit() *AuditStore { return &AuditStore{s: s} }

func cloneRegistration(r *models.Registration) *models.Registration {
	c := *r
	if r.UniqueID != nil {
		v := *r.UniqueID
		c.UniqueID = &v
	}
	if r.AccessCode != nil {
		v := *r.AccessCode
		c.AccessCode = &v
	}
	c.TeamMembers = append([]team.Member{}, r.TeamMembers...)
	if r.BusinessIdea != nil {
		c.BusinessIdea = append(json.RawMessage(nil), r.BusinessIdea...)
	}
	c.Submissions = make(map[string]json.RawMessage, len(r.Submissions))
	for k, v := range r.Submissions {
		c.Submissions[k] = append(json.RawMessage(nil), v...)
	}
	return &c
}

func conflict(constraint string) error {
	return fmt.Errorf("%w: %s", apperr.ErrConflict, constraint)
}

// likePattern compiles a case-insensitive SQL LIKE pattern
func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// RegistrationStore is the in-memory registrations table
type RegistrationStore struct {
	s *Store
}

// Create inserts a new registration
func (r *RegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if _, ok := r.s.registrations[reg.ID]; ok {
		return conflict("registrations_pkey")
	}
	if reg.UniqueID != nil && r.uniqueIDTaken(*reg.UniqueID) {
		return conflict("idx_registrations_unique_id")
	}
	if reg.AccessCode != nil && r.accessCodeTaken(*reg.AccessCode) {
		return conflict("idx_registrations_access_code")
	}

	now := r.s.now()
	reg.CreatedAt, reg.UpdatedAt = now, now
	if reg.TeamMembers == nil {
		reg.TeamMembers = []team.Member{}
	}
	if reg.Submissions == nil {
		reg.Submissions = map[string]json.RawMessage{}
	}
	r.s.registrations[reg.ID] = cloneRegistration(reg)
	return nil
}

// GetByID retrieves a registration by its ID
func (r *RegistrationStore) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return cloneRegistration(reg), nil
}

// GetByAccessCode retrieves a registration by access code, ignoring case
func (r *RegistrationStore) GetByAccessCode(ctx context.Context, code string) (*models.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, reg := range r.s.registrations {
		if reg.AccessCode != nil && strings.EqualFold(*reg.AccessCode, code) {
			return cloneRegistration(reg), nil
		}
	}
	return nil, apperr.ErrNotFound
}

// ExistsByEmailAndModule reports whether a leader email is already registered for a module
func (r *RegistrationStore) ExistsByEmailAndModule(ctx context.Context, email, module string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, reg := range r.s.registrations {
		if strings.EqualFold(reg.Email, email) &&
			strings.EqualFold(strings.TrimSpace(reg.Module), strings.TrimSpace(module)) {
			return true, nil
		}
	}
	return false, nil
}

// UniqueIDExists reports whether a unique ID is taken
func (r *RegistrationStore) UniqueIDExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.uniqueIDTaken(code), nil
}

// AccessCodeExists reports whether an access code is taken, ignoring case
func (r *RegistrationStore) AccessCodeExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.accessCodeTaken(code), nil
}

func (r *RegistrationStore) uniqueIDTaken(code string) bool {
	for _, reg := range r.s.registrations {
		if reg.UniqueID != nil && *reg.UniqueID == code {
			return true
		}
	}
	return false
}

func (r *RegistrationStore) accessCodeTaken(code string) bool {
	for _, reg := range r.s.registrations {
		if reg.AccessCode != nil && strings.EqualFold(*reg.AccessCode, code) {
			return true
		}
	}
	return false
}

// AssignUniqueID sets the unique ID on a row that does not have one yet
func (r *RegistrationStore) AssignUniqueID(ctx context.Context, id, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if reg.UniqueID != nil {
		return apperr.ErrAlreadyAssigned
	}
	if r.uniqueIDTaken(code) {
		return conflict("idx_registrations_unique_id")
	}
	reg.UniqueID = &code
	reg.UpdatedAt = r.s.now()
	return nil
}

// AssignAccessCode sets the access code on a row that does not have one yet
func (r *RegistrationStore) AssignAccessCode(ctx context.Context, id, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if reg.AccessCode != nil {
		return apperr.ErrAlreadyAssigned
	}
	if r.accessCodeTaken(code) {
		return conflict("idx_registrations_access_code")
	}
	reg.AccessCode = &code
	reg.UpdatedAt = r.s.now()
	return nil
}

// ListMissingUniqueID returns registrations without a unique ID, oldest first
func (r *RegistrationStore) ListMissingUniqueID(ctx context.Context) ([]models.Registration, error) {
	return r.collect(func(reg *models.Registration) bool {
		return reg.UniqueID == nil
	}, oldestFirst), nil
}

// ListApprovedMissingAccessCode returns approved registrations without an access code, oldest first
func (r *RegistrationStore) ListApprovedMissingAccessCode(ctx context.Context) ([]models.Registration, error) {
	return r.collect(func(reg *models.Registration) bool {
		return reg.AccessCode == nil && reg.IsApproved()
	}, oldestFirst), nil
}

// List retrieves registrations with filtering and pagination, newest first
func (r *RegistrationStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, error) {
	var module, search *regexp.Regexp
	if filter.ModulePattern != "" {
		module = likePattern(filter.ModulePattern)
	}
	if filter.Search != "" {
		search = likePattern("%" + filter.Search + "%")
	}
	status := models.NormalizeStatus(filter.Status)

	out := r.collect(func(reg *models.Registration) bool {
		if status != "" && models.NormalizeStatus(reg.Status) != status {
			return false
		}
		if module != nil && !module.MatchString(reg.Module) {
			return false
		}
		if search != nil {
			uid := ""
			if reg.UniqueID != nil {
				uid = *reg.UniqueID
			}
			if !search.MatchString(reg.Email) && !search.MatchString(reg.FullName) &&
				!search.MatchString(reg.TeamName) && !search.MatchString(uid) {
				return false
			}
		}
		return true
	}, newestFirst)

	if filter.Limit > 0 {
		start := min(filter.Offset, len(out))
		end := min(start+filter.Limit, len(out))
		out = out[start:end]
	}
	return out, nil
}

func oldestFirst(a, b *models.Registration) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func newestFirst(a, b *models.Registration) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (r *RegistrationStore) collect(keep func(*models.Registration) bool, less func(a, b *models.Registration) bool) []models.Registration {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]*models.Registration, 0, len(r.s.registrations))
	for _, reg := range r.s.registrations {
		if keep(reg) {
			matched = append(matched, reg)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	out := make([]models.Registration, 0, len(matched))
	for _, reg := range matched {
		out = append(out, *cloneRegistration(reg))
	}
	return out
}

// UpdateStatus sets the status of a registration
func (r *RegistrationStore) UpdateStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return apperr.ErrNotFound
	}
	reg.Status = status
	reg.UpdatedAt = r.s.now()
	return nil
}

// SaveSubmission stores a phase artifact and conditionally advances the phase
func (r *RegistrationStore) SaveSubmission(ctx context.Context, id string, sub models.PhaseSubmission) (*models.Registration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	payload := append(json.RawMessage(nil), sub.Payload...)
	if reg.Submissions == nil {
		reg.Submissions = map[string]json.RawMessage{}
	}
	reg.Submissions[sub.Phase] = payload
	if sub.BusinessIdea {
		reg.BusinessIdea = payload
	}
	if sub.AdvanceTo != "" && contains(sub.AdvanceFrom, reg.CurrentPhase) {
		reg.CurrentPhase = sub.AdvanceTo
	}
	reg.UpdatedAt = r.s.now()

	return cloneRegistration(reg), nil
}

// AdvancePhase moves the phase to target while the row is in one of from
func (r *RegistrationStore) AdvancePhase(ctx context.Context, id, target string, from []string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reg, ok := r.s.registrations[id]
	if !ok {
		return false, apperr.ErrNotFound
	}
	if !contains(from, reg.CurrentPhase) {
		return false, nil
	}
	reg.CurrentPhase = target
	reg.UpdatedAt = r.s.now()
	return true, nil
}

// DeleteAll removes every registration and, like the foreign key cascade,
// every evaluation
func (r *RegistrationStore) DeleteAll(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := int64(len(r.s.registrations))
	r.s.registrations = make(map[string]*models.Registration)
	r.s.evaluations = nil
	return n, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// EvaluationStore is the in-memory evaluations table
type EvaluationStore struct {
	s *Store
}

// Create appends an evaluation
func (e *EvaluationStore) Create(ctx context.Context, ev *models.Evaluation) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	if _, ok := e.s.registrations[ev.ParticipantID]; !ok {
		return fmt.Errorf("participant %s does not exist", ev.ParticipantID)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.EvaluatedAt = e.s.now()
	e.s.evaluations = append(e.s.evaluations, *ev)
	return nil
}

// ListByParticipant returns a participant's evaluations, oldest first
func (e *EvaluationStore) ListByParticipant(ctx context.Context, participantID string) ([]models.Evaluation, error) {
	grouped, err := e.ListByParticipants(ctx, []string{participantID})
	if err != nil {
		return nil, err
	}
	if list := grouped[participantID]; list != nil {
		return list, nil
	}
	return []models.Evaluation{}, nil
}

// ListByParticipants returns evaluations grouped by participant
func (e *EvaluationStore) ListByParticipants(ctx context.Context, participantIDs []string) (map[string][]models.Evaluation, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	wanted := make(map[string]bool, len(participantIDs))
	for _, id := range participantIDs {
		wanted[id] = true
	}

	grouped := make(map[string][]models.Evaluation, len(participantIDs))
	// rows are appended in time order already
	for _, ev := range e.s.evaluations {
		if wanted[ev.ParticipantID] {
			grouped[ev.ParticipantID] = append(grouped[ev.ParticipantID], ev)
		}
	}
	return grouped, nil
}

// CountByParticipant counts a participant's evaluations
func (e *EvaluationStore) CountByParticipant(ctx context.Context, participantID string) (int, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	count := 0
	for _, ev := range e.s.evaluations {
		if ev.ParticipantID == participantID {
			count++
		}
	}
	return count, nil
}

// Leaderboard aggregates evaluations per participant in rank order
func (e *EvaluationStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, ev := range e.s.evaluations {
		sums[ev.ParticipantID] += ev.TotalScore
		counts[ev.ParticipantID]++
	}

	entries := make([]models.LeaderboardEntry, 0, len(counts))
	for id, count := range counts {
		reg, ok := e.s.registrations[id]
		if !ok {
			continue
		}
		entry := models.LeaderboardEntry{
			ParticipantID:   id,
			TeamName:        reg.DisplayName(),
			LeaderName:      reg.FullName,
			Module:          reg.Module,
			AverageScore:    models.RoundScore(sums[id] / float64(count)),
			EvaluationCount: count,
		}
		if reg.UniqueID != nil {
			v := *reg.UniqueID
			entry.UniqueID = &v
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.AverageScore != b.AverageScore {
			return a.AverageScore > b.AverageScore
		}
		if a.EvaluationCount != b.EvaluationCount {
			return a.EvaluationCount > b.EvaluationCount
		}
		return a.ParticipantID < b.ParticipantID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// DeleteAll removes every evaluation
func (e *EvaluationStore) DeleteAll(ctx context.Context) (int64, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	n := int64(len(e.s.evaluations))
	e.s.evaluations = nil
	return n, nil
}

// EvaluatorStore is the in-memory judge roster
type EvaluatorStore struct {
	s *Store
}

// CreateOrUpdate adds an evaluator or refreshes the name of an existing one
func (e *EvaluatorStore) CreateOrUpdate(ctx context.Context, ev *models.Evaluator) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()

	ev.Email = strings.ToLower(strings.TrimSpace(ev.Email))
	if existing, ok := e.s.evaluators[ev.Email]; ok {
		existing.Name = ev.Name
		ev.ID, ev.CreatedAt = existing.ID, existing.CreatedAt
		return nil
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = e.s.now()
	c := *ev
	e.s.evaluators[ev.Email] = &c
	return nil
}

// GetByEmail retrieves an evaluator by email, ignoring case
func (e *EvaluatorStore) GetByEmail(ctx context.Context, email string) (*models.Evaluator, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	ev, ok := e.s.evaluators[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *ev
	return &c, nil
}

// List returns the roster ordered by name
func (e *EvaluatorStore) List(ctx context.Context) ([]models.Evaluator, error) {
	e.s.mu.RLock()
	defer e.s.mu.RUnlock()

	out := make([]models.Evaluator, 0, len(e.s.evaluators))
	for _, ev := range e.s.evaluators {
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// AdminStore is the in-memory admins table
type AdminStore struct {
	s *Store
}

// CreateOrUpdate creates an admin or updates an existing one by email
func (a *AdminStore) CreateOrUpdate(ctx context.Context, admin *models.Admin) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	admin.Email = strings.ToLower(strings.TrimSpace(admin.Email))
	for _, existing := range a.s.admins {
		if existing.Email == admin.Email {
			existing.PasswordHash = admin.PasswordHash
			existing.Name = admin.Name
			existing.Role = admin.Role
			admin.ID, admin.CreatedAt = existing.ID, existing.CreatedAt
			return nil
		}
	}
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = a.s.now()
	c := *admin
	a.s.admins[admin.ID] = &c
	return nil
}

// GetByEmail retrieves an admin by email
func (a *AdminStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range a.s.admins {
		if admin.Email == email {
			c := *admin
			return &c, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// GetByID retrieves an admin by ID
func (a *AdminStore) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	admin, ok := a.s.admins[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	c := *admin
	return &c, nil
}

// UpdateLastLogin stamps the last login time
func (a *AdminStore) UpdateLastLogin(ctx context.Context, id string) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	admin, ok := a.s.admins[id]
	if !ok {
		return apperr.ErrNotFound
	}
	now := a.s.now()
	admin.LastLoginAt = &now
	return nil
}

// AuditStore is the in-memory audit log
type AuditStore struct {
	s *Store
}

// Create appends an audit log entry
func (a *AuditStore) Create(ctx context.Context, log *models.AuditLog) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()

	a.s.nextAuditID++
	log.ID = a.s.nextAuditID
	log.CreatedAt = a.s.now()
	a.s.audit = append(a.s.audit, *log)
	return nil
}

// List returns audit entries newest first. An empty actor matches everyone.
func (a *AuditStore) List(ctx context.Context, actor string, limit, offset int) ([]models.AuditLog, int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()

	matched := []models.AuditLog{}
	for i := len(a.s.audit) - 1; i >= 0; i-- {
		if actor == "" || a.s.audit[i].Actor == actor {
			matched = append(matched, a.s.audit[i])
		}
	}

	total := len(matched)
	start := min(offset, total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	return matched[start:end], total, nil
}
