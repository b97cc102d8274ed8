package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/repository/memstore"
)

const trackModule = "Startup Innovation Challenge"

type sentMessage struct {
	To      string
	Subject string
}

// recordingNotifier records every message and fails for addresses in failFor
type recordingNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, _ string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[to] {
		return false
	}
	n.sent = append(n.sent, sentMessage{To: to, Subject: subject})
	return true
}

func (n *recordingNotifier) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.To)
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type recordingAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *recordingAlerter) Alert(_ context.Context, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

type testEnv struct {
	store       *memstore.Store
	notifier    *recordingNotifier
	alerter     *recordingAlerter
	audit       *AuditService
	opts        Options
	registrar   *RegistrationService
	access      *AccessService
	submissions *SubmissionService
	evaluation  *EvaluationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New()
	env := &testEnv{
		store:    store,
		notifier: &recordingNotifier{failFor: map[string]bool{}},
		alerter:  &recordingAlerter{},
		audit:    NewAuditService(store.Audit()),
		opts:     DefaultOptions(),
	}
	env.rebuild(store.Registrations())
	return env
}

// rebuild wires the services over registrations, which may wrap the memstore
func (e *testEnv) rebuild(registrations RegistrationStore) {
	e.registrar = NewRegistrationService(registrations, e.store.Evaluations(), e.audit, e.notifier, e.alerter, e.opts)
	e.access = NewAccessService(registrations, e.store.Evaluations(), nil, nil, e.opts)
	e.submissions = NewSubmissionService(e.access, registrations, e.opts)
	e.evaluation = NewEvaluationService(registrations, e.store.Evaluations(), e.store.Evaluators(), nil, e.opts)
}

func (e *testEnv) register(t *testing.T, email, module string, members ...string) *models.Registration {
	t.Helper()
	raw := []map[string]string{}
	for _, m := range members {
		raw = append(raw, map[string]string{"name": "Member " + m, "email": m})
	}
	encoded, err := json.Marshal(raw)
	require.NoError(t, err)

	reg, err := e.registrar.Register(context.Background(), RegistrationInput{
		Module:      module,
		FullName:    "Leader " + email,
		Email:       email,
		Phone:       "03001234567",
		CNIC:        "35202-1234567-1",
		TeamName:    "Team " + email,
		TeamMembers: encoded,
	})
	require.NoError(t, err)
	return reg
}

// approve registers and approves a team, returning it with its access code
func (e *testEnv) approve(t *testing.T, email, module string, members ...string) *models.Registration {
	t.Helper()
	reg := e.register(t, email, module, members...)
	result, err := e.registrar.UpdateStatus(context.Background(), System, reg.ID, models.StatusApproved)
	require.NoError(t, err)
	require.NotNil(t, result.Registration.AccessCode)
	return result.Registration
}

var testAdmin = Actor{ID: "admin-1", Email: "ops@example.com", Role: models.RoleAdmin}
