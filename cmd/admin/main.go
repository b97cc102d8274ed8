package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/memalihaider/umttechverse02-sub001/internal/app"
	"github.com/memalihaider/umttechverse02-sub001/internal/auth"
	"github.com/memalihaider/umttechverse02-sub001/internal/config"
	"github.com/memalihaider/umttechverse02-sub001/internal/logger"
	"github.com/memalihaider/umttechverse02-sub001/internal/models"
	"github.com/memalihaider/umttechverse02-sub001/internal/service"
)

var flagLogJSON = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}

var flagLogDebug = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}

var flagLogUID = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var flagEmail = &cli.StringFlag{
	Name:     "email",
	Required: true,
	Usage:    "admin email address",
}

var flagPassword = &cli.StringFlag{
	Name:    "password",
	EnvVars: []string{"ADMIN_PASSWORD"},
	Usage:   "admin password, at least 8 characters",
}

var flagID = &cli.StringFlag{
	Name:     "id",
	Required: true,
	Usage:    "registration id",
}

func main() {
	cliApp := &cli.App{
		Name:  "techverse-admin",
		Usage: "Operator tooling for the Techverse registration backend",
		Flags: []cli.Flag{flagLogJSON, flagLogDebug, flagLogUID},
		Before: func(cCtx *cli.Context) error {
			setupLogger(cCtx)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: func(cCtx *cli.Context) error {
					return withStores(cCtx, func(ctx context.Context, cfg *config.Config, stores *app.Stores) error {
						if err := stores.Migrate(ctx, cfg.Database.MigrationsDir); err != nil {
							return err
						}
						slog.Info("Database migrations completed")
						return nil
					})
				},
			},
			{
				Name:  "create-admin",
				Usage: "create an operator account or reset its password",
				Flags: []cli.Flag{
					flagEmail,
					flagPassword,
					&cli.StringFlag{Name: "name", Value: "Administrator", Usage: "display name"},
					&cli.StringFlag{Name: "role", Value: models.RoleAdmin, Usage: "admin or superadmin"},
				},
				Action: func(cCtx *cli.Context) error {
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						admin, err := svc.Admins.EnsureAdmin(ctx,
							cCtx.String(flagEmail.Name),
							cCtx.String(flagPassword.Name),
							cCtx.String("name"),
							cCtx.String("role"),
						)
						if err != nil {
							return err
						}
						return printJSON(cCtx.App.Writer, admin)
					})
				},
			},
			{
				Name:  "hash-password",
				Usage: "print a bcrypt hash for a password",
				Flags: []cli.Flag{flagPassword},
				Action: func(cCtx *cli.Context) error {
					password := cCtx.String(flagPassword.Name)
					if password == "" {
						return cli.Exit("--password is required", 1)
					}
					hash, err := auth.NewService(&config.JWTConfig{}).HashPassword(password)
					if err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, hash)
					return nil
				},
			},
			{
				Name:  "generate-jwt-key",
				Usage: "generate an ECDSA P-256 signing key for JWT_SECRET",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "jwt-private-key.pem", Usage: "file to write the PEM key to"},
				},
				Action: func(cCtx *cli.Context) error {
					return generateJWTKey(cCtx.App.Writer, cCtx.String("out"))
				},
			},
			{
				Name:  "backfill",
				Usage: "assign missing unique IDs and access codes",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "field", Value: "all", Usage: "unique-id, access-code or all"},
				},
				Action: func(cCtx *cli.Context) error {
					field := cCtx.String("field")
					if field != "all" && field != "unique-id" && field != "access-code" {
						return cli.Exit("--field must be unique-id, access-code or all", 1)
					}
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						var reports []*models.BackfillReport
						if field != "access-code" {
							report, err := svc.Registrations.BackfillUniqueIDs(ctx, service.System)
							if report != nil {
								reports = append(reports, report)
							}
							if err != nil {
								return err
							}
						}
						if field != "unique-id" {
							report, err := svc.Registrations.BackfillAccessCodes(ctx, service.System)
							if report != nil {
								reports = append(reports, report)
							}
							if err != nil {
								return err
							}
						}
						return printJSON(cCtx.App.Writer, reports)
					})
				},
			},
			{
				Name:  "set-status",
				Usage: "approve, reject or reset a registration and notify the team",
				Flags: []cli.Flag{
					flagID,
					&cli.StringFlag{Name: "status", Required: true, Usage: "pending, approved or rejected"},
				},
				Action: func(cCtx *cli.Context) error {
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						result, err := svc.Registrations.UpdateStatus(ctx, service.System, cCtx.String(flagID.Name), cCtx.String("status"))
						if err != nil {
							return err
						}
						return printJSON(cCtx.App.Writer, result)
					})
				},
			},
			{
				Name:  "advance-phase",
				Usage: "move a registration forward to a later phase",
				Flags: []cli.Flag{
					flagID,
					&cli.StringFlag{Name: "phase", Required: true, Usage: "target phase"},
				},
				Action: func(cCtx *cli.Context) error {
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						reg, err := svc.Registrations.AdvancePhase(ctx, service.System, cCtx.String(flagID.Name), cCtx.String("phase"))
						if err != nil {
							return err
						}
						return printJSON(cCtx.App.Writer, reg)
					})
				},
			},
			{
				Name:  "leaderboard",
				Usage: "print the ranked leaderboard",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 0, Usage: "maximum rows, 0 for the configured default"},
				},
				Action: func(cCtx *cli.Context) error {
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						entries, err := svc.Evaluations.GetLeaderboard(ctx, cCtx.Int("limit"))
						if err != nil {
							return err
						}
						return printJSON(cCtx.App.Writer, entries)
					})
				},
			},
			{
				Name:  "export-leaderboard",
				Usage: "publish the leaderboard to the configured spreadsheet",
				Action: func(cCtx *cli.Context) error {
					return withServices(cCtx, func(ctx context.Context, svc *app.Services) error {
						rows, err := svc.Evaluations.ExportLeaderboard(ctx)
						if err != nil {
							return err
						}
						svc.Audit.Log(ctx, service.System, service.ActionLeaderboardExport, "leaderboard", fmt.Sprintf("rows=%d cli=true", rows))
						fmt.Fprintf(cCtx.App.Writer, "exported %d rows\n", rows)
						return nil
					})
				},
			},
			{
				Name:  "seed-evaluators",
				Usage: "upsert the evaluator roster",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "evaluator", Usage: "email:Name, repeatable. Defaults to EVALUATOR_ROSTER"},
				},
				Action: func(cCtx *cli.Context) error {
					return withConfigServices(cCtx, func(ctx context.Context, cfg *config.Config, svc *app.Services) error {
						roster := cfg.Evaluators.Roster
						if extra := cCtx.StringSlice("evaluator"); len(extra) > 0 {
							roster = parseRosterFlags(extra)
						}
						if len(roster) == 0 {
							return cli.Exit("no evaluators given", 1)
						}

						n, err := svc.Evaluations.SeedRoster(ctx, roster)
						if err != nil {
							slog.Error("Some evaluators were not saved", "error", err)
						}

						judges, listErr := svc.Evaluations.Evaluators(ctx)
						if listErr != nil {
							return listErr
						}
						fmt.Fprintf(cCtx.App.Writer, "seeded %d of %d evaluators\n", n, len(roster))
						if err := printJSON(cCtx.App.Writer, judges); err != nil {
							return err
						}
						return err
					})
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	level := "INFO"
	if cCtx.Bool(flagLogDebug.Name) {
		level = "DEBUG"
	}
	log := logger.Setup(logger.Config{
		Level:   level,
		JSON:    cCtx.Bool(flagLogJSON.Name),
		Service: "techverse-admin",
		Output:  os.Stderr,
	})
	if cCtx.Bool(flagLogUID.Name) {
		log = log.With("uid", uuid.Must(uuid.NewRandom()).String())
		slog.SetDefault(log)
	}
	return log
}

func withStores(cCtx *cli.Context, fn func(ctx context.Context, cfg *config.Config, stores *app.Stores) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	return fn(ctx, cfg, stores)
}

func withConfigServices(cCtx *cli.Context, fn func(ctx context.Context, cfg *config.Config, svc *app.Services) error) error {
	return withStores(cCtx, func(ctx context.Context, cfg *config.Config, stores *app.Stores) error {
		if err := stores.Migrate(ctx, cfg.Database.MigrationsDir); err != nil {
			return err
		}
		svc, err := app.NewServices(ctx, cfg, stores)
		if err != nil {
			return err
		}
		return fn(ctx, cfg, svc)
	})
}

func withServices(cCtx *cli.Context, fn func(ctx context.Context, svc *app.Services) error) error {
	return withConfigServices(cCtx, func(ctx context.Context, _ *config.Config, svc *app.Services) error {
		return fn(ctx, svc)
	})
}

func parseRosterFlags(values []string) []config.RosterEntry {
	var roster []config.RosterEntry
	for _, v := range values {
		email, name, _ := strings.Cut(v, ":")
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = email
		}
		roster = append(roster, config.RosterEntry{Email: email, Name: name})
	}
	return roster
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func generateJWTKey(w io.Writer, out string) error {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	privateKeyBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	privateKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: privateKeyBytes,
	})

	if err := os.WriteFile(out, privateKeyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key file: %w", err)
	}

	fmt.Fprintln(w, "Generated ECDSA P-256 key pair for JWT signing.")
	fmt.Fprintln(w, "Add this to your .env file:")
	fmt.Fprintf(w, "JWT_SECRET=\"%s\"\n", strings.ReplaceAll(string(privateKeyPEM), "\n", `\n`))
	fmt.Fprintf(w, "Private key saved to: %s\n", out)
	return nil
}
