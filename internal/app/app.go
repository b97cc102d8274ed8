// Package app assembles stores and services from configuration. It is shared
// by the API server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/memalihaider/umttechverse02-sub001/internal/auth"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/database"
	"github.com/memalihaider/umttechverse02-sub001/internal/email"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/pass"
	"github.com/memalihaider/umttechverse02-sub001/internal/repository"
	"github.com/memalihaider/umttechverse02-sub001/internal/repository/memstore"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
	"github.com/memalihaider/umttechverse02-sub001/internal/sheets"
	"github.com/memalihaider/umttechverse02-sub001/internal/storage"
	"github.com/memalihaider/umttechverse02-sub001/internal/telegram"
	"github.com/memalihaider/umttechverse02-sub001/internal/vault"
	"github.com/memalihaider/umttechverse02-sub001/migrations"
)

// Stores holds one implementation of every persistence interface
type Stores struct {
	Registrations service.RegistrationStore
	Evaluations   service.EvaluationStore
	Evaluators    service.EvaluatorStore
	Admins        service.AdminStore
	Audit         service.AuditStore

	db *database.Database
}

// Close releases the database connection, if any
func (s *Stores) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		slog.Error("Failed to close database connection", "error", err)
	}
}

// Migrate applies pending migrations. It is a no-op for the memory driver.
func (s *Stores) Migrate(ctx context.Context, dir string) error {
	if s.db == nil {
		return nil
	}

	migrator := database.NewMigrationExecutor(s.db.DB)
	if info, err := os.Stat(dir); dir != "" && err == nil && info.IsDir() {
		slog.Info("Running migrations from directory", "dir", dir)
		return migrator.RunMigrations(ctx, dir)
	}
	return migrator.RunMigrationsFS(ctx, migrations.FS)
}

// OpenStores connects the configured store driver. PII sealing is enabled
// when Vault is.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.StoreDriver == "memory" {
		slog.Warn("Using in-memory store - data is lost on restart")
		mem := memstore.New()
		return &Stores{
			Registrations: mem.Registrations(),
			Evaluations:   mem.Evaluations(),
			Evaluators:    mem.Evaluators(),
			Admins:        mem.Admins(),
			Audit:         mem.Audit(),
		}, nil
	}

	db, err := database.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("Database connection established")

	var sealer repository.Sealer
	if cfg.Vault.Enabled {
		s, err := newSealer(ctx, &cfg.Vault)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		sealer = s
		slog.Info("Registration PII sealing enabled", "vault_addr", cfg.Vault.Address, "key", cfg.Vault.KeyName)
	} else {
		slog.Warn("Vault is disabled - CNIC values are stored unencrypted")
	}

	return &Stores{
		Registrations: repository.NewRegistrationRepository(db.DB, sealer),
		Evaluations:   repository.NewEvaluationRepository(db.DB),
		Evaluators:    repository.NewEvaluatorRepository(db.DB),
		Admins:        repository.NewAdminRepository(db.DB),
		Audit:         repository.NewAuditRepository(db.DB),
		db:            db,
	}, nil
}

func newSealer(ctx context.Context, cfg *config.VaultConfig) (*vault.Sealer, error) {
	client, err := vault.NewClient(ctx, &vault.Config{
		Address:      cfg.Address,
		Token:        cfg.Token,
		TransitMount: cfg.TransitMount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Vault client: %w", err)
	}
	if err := client.Health(ctx); err != nil {
		return nil, err
	}
	return vault.NewSealer(ctx, client, cfg.KeyName)
}

// Services holds the wired application services
type Services struct {
	Options       service.Options
	Tokens        *auth.Service
	Audit         *service.AuditService
	Registrations *service.RegistrationService
	Access        *service.AccessService
	Submissions   *service.SubmissionService
	Evaluations   *service.EvaluationService
	Admins        *service.AdminAuthService

	// Alerter and LeaderboardExport are nil when not configured
	Alerter           service.Alerter
	LeaderboardExport service.LeaderboardExporter
}

// NewServices wires every service over stores together with the optional
// integrations enabled in cfg
func NewServices(ctx context.Context, cfg *config.Config, stores *Stores) (*Services, error) {
	opts, err := service.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var notifier service.Notifier
	if cfg.Email.SMTPHost != "" {
		notifier = email.NewService(&cfg.Email)
	} else {
		slog.Warn("SMTP is not configured - notification emails are disabled")
	}

	var alerter service.Alerter
	if cfg.Telegram.Enabled {
		a, err := telegram.New(&cfg.Telegram, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		alerter = a
	}

	var exporter service.LeaderboardExporter
	if cfg.Sheets.Enabled {
		e, err := sheets.New(ctx, &cfg.Sheets)
		if err != nil {
			return nil, err
		}
		exporter = e
	}

	var archive service.PassArchive
	backend, err := storage.New(&cfg.Storage, slog.Default())
	if err != nil {
		return nil, err
	}
	if backend != nil {
		archive = backend
		slog.Info("Pass archive enabled", "backend", backend.Name())
	}

	tokens := auth.NewService(&cfg.JWT)
	audit := service.NewAuditService(stores.Audit)
	access := service.NewAccessService(stores.Registrations, stores.Evaluations, pass.NewRenderer(cfg.App.Name), archive, opts)

	return &Services{
		Options:           opts,
		Tokens:            tokens,
		Audit:             audit,
		Registrations:     service.NewRegistrationService(stores.Registrations, stores.Evaluations, audit, notifier, alerter, opts),
		Access:            access,
		Submissions:       service.NewSubmissionService(access, stores.Registrations, opts),
		Evaluations:       service.NewEvaluationService(stores.Registrations, stores.Evaluations, stores.Evaluators, exporter, opts),
		Admins:            service.NewAdminAuthService(stores.Admins, tokens, audit),
		Alerter:           alerter,
		LeaderboardExport: exporter,
	}, nil
}

// Bootstrap seeds the evaluator roster and the configured admin account
func (s *Services) Bootstrap(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Evaluators.Roster) > 0 {
		n, err := s.Evaluations.SeedRoster(ctx, cfg.Evaluators.Roster)
		if err != nil {
			return fmt.Errorf("failed to seed evaluator roster: %w", err)
		}
		slog.Info("Evaluator roster seeded", "count", n)
	}

	if cfg.Admin.Email == "" {
		return nil
	}
	if cfg.Admin.Password == "" {
		return errors.New("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	admin, err := s.Admins.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name, models.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	slog.Info("Bootstrap admin ready", "email", admin.Email)
	return nil
}
