// Package server wires the HTTP handlers into a chi router and runs it
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/atomic"

	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/handlers"
	"github.com/memalihaider/umttechverse02-sub001/internal/middleware"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
)

type HTTPServerConfig struct {
	ListenAddr  string
	EnablePprof bool
	Log         *slog.Logger

	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
	IdleTimeout              time.Duration

	CORS      *config.CORSConfig
	RateLimit config.RateLimitConfig
}

// Handlers groups the API handlers mounted by the router
type Handlers struct {
	Registrations *handlers.RegistrationHandler
	Team          *handlers.TeamHandler
	Evaluations   *handlers.EvaluationHandler
	Admin         *handlers.AdminHandler
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv      *http.Server
	handlers Handlers
	auth     *middleware.AuthMiddleware
	proxies  *middleware.ProxyTrust
	limiter  *middleware.RateLimiter
	teamRL   *middleware.RateLimiter
}

// New builds the server. Rate limiter cleanup stops when ctx is done.
func New(ctx context.Context, cfg *HTTPServerConfig, h Handlers, tokens middleware.TokenValidator) *Server {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	proxies, err := middleware.NewProxyTrust(cfg.RateLimit.TrustedProxies)
	if err != nil {
		// forwarding headers stay ignored
		cfg.Log.Error("Invalid trusted proxy list", "error", err)
		proxies = &middleware.ProxyTrust{}
	}

	srv := &Server{
		cfg:      cfg,
		log:      cfg.Log,
		handlers: h,
		auth:     middleware.NewAuthMiddleware(tokens),
		proxies:  proxies,
		limiter:  middleware.NewRateLimiter(ctx, cfg.RateLimit.Enabled, cfg.RateLimit.Requests, cfg.RateLimit.Duration),
		teamRL:   middleware.NewRateLimiter(ctx, cfg.RateLimit.Enabled, cfg.RateLimit.TeamRequests, cfg.RateLimit.Duration),
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return srv
}

// Router returns the fully wired HTTP handler
func (srv *Server) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.Recoverer)
	mux.Use(srv.proxies.Handler)
	mux.Use(middleware.SecurityHeaders)
	if srv.cfg.CORS != nil {
		mux.Use(middleware.NewCORSMiddleware(srv.cfg.CORS).Handler)
	}

	// Health and diagnostic endpoints
	mux.With(srv.httpLogger).Get("/livez", srv.handleLivenessCheck)
	mux.With(srv.httpLogger).Get("/readyz", srv.handleReadinessCheck)
	mux.With(srv.httpLogger).Get("/drain", srv.handleDrain)
	mux.With(srv.httpLogger).Get("/undrain", srv.handleUndrain)

	mux.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	mux.Route("/api/v1", func(r chi.Router) {
		r.Use(srv.httpLogger)
		r.Use(srv.limiter.Limit)

		r.Post("/registrations", srv.handlers.Registrations.Register)
		r.Get("/leaderboard", srv.handlers.Evaluations.Leaderboard)

		// access codes are guessable, so these get the tighter budget
		r.Route("/team", func(r chi.Router) {
			r.Use(srv.teamRL.Limit)
			r.Post("/login", srv.handlers.Team.Login)
			r.Post("/pass", srv.handlers.Team.Pass)
			r.Post("/submissions/idea", srv.handlers.Team.SubmitIdea)
			r.Post("/submissions/{phase}", srv.handlers.Team.SubmitPhase)
		})

		r.Route("/evaluations", func(r chi.Router) {
			r.Post("/", srv.handlers.Evaluations.SubmitEvaluation)
			r.Get("/participants", srv.handlers.Evaluations.ListParticipants)
			r.Get("/participants/{id}", srv.handlers.Evaluations.ParticipantHistory)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(srv.teamRL.Limit).Post("/login", srv.handlers.Admin.Login)

			r.Group(func(r chi.Router) {
				r.Use(srv.auth.Authenticate)
				r.Use(middleware.RequireRole(models.RoleAdmin))

				r.Get("/registrations", srv.handlers.Registrations.ListRegistrations)
				r.Get("/registrations/{id}", srv.handlers.Registrations.GetRegistration)
				r.Post("/registrations/{id}/status", srv.handlers.Registrations.UpdateStatus)
				r.Post("/registrations/{id}/phase", srv.handlers.Registrations.AdvancePhase)
				r.Post("/backfill/unique-ids", srv.handlers.Registrations.BackfillUniqueIDs)
				r.Post("/backfill/access-codes", srv.handlers.Registrations.BackfillAccessCodes)
				r.Post("/leaderboard/export", srv.handlers.Evaluations.ExportLeaderboard)
				r.Get("/audit-logs", srv.handlers.Admin.ListAuditLogs)

				r.With(middleware.RequireRole(models.RoleSuperAdmin)).Post("/wipe", srv.handlers.Registrations.EmergencyWipe)
			})
		})
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", chimiddleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}

	srv.log.Info("Server marked as not ready")
	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}

	srv.log.Info("Server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

// RunInBackground starts serving. Listen errors other than a clean close
// are logged.
func (srv *Server) RunInBackground() {
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

// Shutdown marks the server not ready, waits out the drain delay so load
// balancers notice, then stops accepting requests.
func (srv *Server) Shutdown() {
	if srv.isReady.Swap(false) && srv.cfg.DrainDuration > 0 {
		srv.log.Info("Draining before shutdown", "delay", srv.cfg.DrainDuration)
		time.Sleep(srv.cfg.DrainDuration)
	}

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}
}
