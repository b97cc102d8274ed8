package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memalihaider/umttechverse02-sub001/internal/auth"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
)

// AuthHelper provides admin token generation for tests
type AuthHelper struct {
	Tokens *auth.Service
}

// NewAuthHelper creates a new auth helper with an ephemeral signing key
func NewAuthHelper() *AuthHelper {
	return &AuthHelper{
		Tokens: auth.NewService(&config.JWTConfig{Expiration: time.Hour}),
	}
}

// GenerateToken generates a token for an admin with the given role
func (h *AuthHelper) GenerateToken(t *testing.T, adminID, email, role string) string {
	t.Helper()

	token, err := h.Tokens.GenerateToken(adminID, email, role)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return token
}

// AddAuthHeader adds an authorization header to the request
func (h *AuthHelper) AddAuthHeader(t *testing.T, req *http.Request, email, role string) {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+h.GenerateToken(t, "test-"+role, email, role))
}

// CreateAuthenticatedRequest creates a request with auth header
func (h *AuthHelper) CreateAuthenticatedRequest(t *testing.T, method, url, email, role string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, url, nil)
	h.AddAuthHeader(t, req, email, role)
	return req
}

// TestResponse holds response data for assertions
type TestResponse struct {
	*httptest.ResponseRecorder
}

// NewTestResponse creates a new test response recorder
func NewTestResponse() *TestResponse {
	return &TestResponse{
		ResponseRecorder: httptest.NewRecorder(),
	}
}

// AssertStatus asserts the HTTP status code
func (r *TestResponse) AssertStatus(t *testing.T, expected int) {
	t.Helper()

	if r.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, r.Code, r.Body.String())
	}
}

// AssertStatusOK asserts 200 OK
func (r *TestResponse) AssertStatusOK(t *testing.T) {
	t.Helper()
	r.AssertStatus(t, http.StatusOK)
}

// AssertStatusForbidden asserts 403 Forbidden
func (r *TestResponse) AssertStatusForbidden(t *testing.T) {
	t.Helper()
	r.AssertStatus(t, http.StatusForbidden)
}
