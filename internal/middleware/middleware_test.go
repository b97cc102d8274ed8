package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memalihaider/umttechverse02-sub001/internal/auth"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

type stubValidator struct {
	claims *auth.Claims
}

func (v stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return v.claims, nil
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(stubValidator{claims: &auth.Claims{AdminID: "a1", Role: models.RoleAdmin}})

	var seen *auth.Claims
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClaims(r)
	}))

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer bad", http.StatusUnauthorized},
		{"bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "a1", seen.AdminID)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleSuperAdmin)(okHandler)

	serve := func(claims *auth.Claims) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if claims != nil {
			req = req.WithContext(WithClaims(req.Context(), claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.Claims{Role: models.RoleAdmin}))
	assert.Equal(t, http.StatusOK, serve(&auth.Claims{Role: models.RoleSuperAdmin}))

	assert.True(t, HasRole(models.RoleSuperAdmin, models.RoleAdmin))
	assert.False(t, HasRole("guest", models.RoleAdmin))
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, true, 2, time.Minute)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Limit(okHandler)

	serve := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = ip + ":4321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, serve("1.1.1.1").Code)
	rec := serve("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve("2.2.2.2").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serve("1.1.1.1").Code)
}

func TestRateLimiterIgnoresSpoofedForwardingHeaders(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	proxies, err := NewProxyTrust(nil)
	require.NoError(t, err)
	h := proxies.Handler(NewRateLimiter(ctx, true, 2, time.Minute).Limit(okHandler))

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.20:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed)
}

func TestProxyTrustResolve(t *testing.T) {
	proxies, err := NewProxyTrust([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := map[string]struct {
		remote    string
		forwarded string
		realIP    string
		want      string
	}{
		"direct client":             {remote: "198.51.100.7:1234", want: "198.51.100.7"},
		"untrusted peer headers":    {remote: "198.51.100.7:1234", forwarded: "203.0.113.9", realIP: "203.0.113.10", want: "198.51.100.7"},
		"trusted proxy":             {remote: "10.1.2.3:80", forwarded: "203.0.113.9", want: "203.0.113.9"},
		"chain of trusted proxies":  {remote: "192.0.2.1:80", forwarded: "203.0.113.9, 10.0.0.5", want: "203.0.113.9"},
		"client prepends a hop":     {remote: "10.1.2.3:80", forwarded: "1.2.3.4, 203.0.113.9", want: "203.0.113.9"},
		"real ip from trusted":      {remote: "10.1.2.3:80", realIP: "203.0.113.11", want: "203.0.113.11"},
		"garbage header is skipped": {remote: "10.1.2.3:80", forwarded: "not-an-ip", want: "10.1.2.3"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, proxies.Resolve(req))
		})
	}

	_, err = NewProxyTrust([]string{"nope"})
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	proxies, err := NewProxyTrust([]string{"192.0.2.0/24"})
	require.NoError(t, err)
	var seen string
	proxies.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	})).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", seen)
}

func TestCORSPreflight(t *testing.T) {
	m := NewCORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"https://portal.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	h := m.Handler(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/leaderboard", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://portal.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
}
