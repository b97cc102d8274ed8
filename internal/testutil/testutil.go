package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/vault"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"

	"github.com/memalihaider/umttechverse02-sub001/internal/database"
	"github.com/memalihaider/umttechverse02-sub001/migrations"
)

const vaultToken = "test-token"

// TestContainers holds references to test containers
type TestContainers struct {
	PostgresContainer *postgres.PostgresContainer
	VaultContainer    *vault.VaultContainer
	DB                *sql.DB
	DBConnString      string
	VaultToken        string
	VaultAddr         string
}

// SetupTestContainers initializes PostgreSQL and Vault containers.
// The test is skipped when no container runtime is available.
func SetupTestContainers(t *testing.T) *TestContainers {
	t.Helper()

	tc := SetupPostgres(t)
	v := SetupVault(t)
	tc.VaultContainer = v.VaultContainer
	tc.VaultToken = v.VaultToken
	tc.VaultAddr = v.VaultAddr
	return tc
}

// SetupPostgres starts a migrated PostgreSQL container. Cleanup is registered on t.
func SetupPostgres(t *testing.T) *TestContainers {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:18",
		postgres.WithDatabase("techverse_test"),
		postgres.WithUsername("techverse_test"),
		postgres.WithPassword("techverse_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	tc := &TestContainers{PostgresContainer: postgresContainer}
	t.Cleanup(func() { tc.Cleanup(t) })

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}
	tc.DBConnString = connStr

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	tc.DB = db

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if err := database.NewMigrationExecutor(db).RunMigrationsFS(ctx, migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return tc
}

// SetupVault starts a Vault dev server. Cleanup is registered on t.
func SetupVault(t *testing.T) *TestContainers {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	vaultContainer, err := vault.Run(ctx,
		"hashicorp/vault:1.15",
		vault.WithToken(vaultToken),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Vault server started!").
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start Vault container: %v", err)
	}

	tc := &TestContainers{VaultContainer: vaultContainer, VaultToken: vaultToken}
	t.Cleanup(func() { tc.Cleanup(t) })

	vaultAddr, err := vaultContainer.HttpHostAddress(ctx)
	if err != nil {
		t.Fatalf("Failed to get Vault address: %v", err)
	}
	tc.VaultAddr = fmt.Sprintf("http://%s", vaultAddr)

	return tc
}

// Cleanup terminates all test containers. It is safe to call more than once.
func (tc *TestContainers) Cleanup(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if tc.DB != nil {
		tc.DB.Close()
		tc.DB = nil
	}

	if tc.PostgresContainer != nil {
		if err := tc.PostgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
		tc.PostgresContainer = nil
	}

	if tc.VaultContainer != nil {
		if err := tc.VaultContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate Vault container: %v", err)
		}
		tc.VaultContainer = nil
	}
}
