package postgres

import (
	"database/sql"
	"testing"

	"github.com/asakaida/riskmap/internal/infrastructure/config"
	"github.com/asakaida/riskmap/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB creates a test database connection and runs migrations.
// The test is skipped when no database is configured or reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if err := config.InitConfig("test"); err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Skipping database test: %v", err)
	}

	root, err := config.FindProjectRoot()
	if err != nil {
		pg.Close()
		t.Fatalf("Failed to find project root: %v", err)
	}

	if err := pg.RunMigrations(database.MigrationsPath(root)); err != nil {
		pg.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB removes test data and closes the database connection
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM catalogs"); err != nil {
		t.Logf("Warning: Failed to clean up table catalogs: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}
