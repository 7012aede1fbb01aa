package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/repositories"
	"github.com/google/uuid"
)

// DefaultVersionLimit is used when ListVersions is called without a limit
const DefaultVersionLimit = 100

// PostgresCatalogRepository implements CatalogRepository using PostgreSQL
type PostgresCatalogRepository struct {
	db *sql.DB
}

// NewPostgresCatalogRepository creates a new PostgreSQL catalog repository
func NewPostgresCatalogRepository(db *sql.DB) repositories.CatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

// Create stores a new catalog version.
// Versions are UUIDv7, so ordering by version is ordering by creation time.
func (r *PostgresCatalogRepository) Create(ctx context.Context, module string, dsl string) (string, error) {
	version, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate catalog version: %w", err)
	}

	query := `
		INSERT INTO catalogs (module, version, dsl)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, module, version.String(), dsl); err != nil {
		return "", fmt.Errorf("failed to create catalog: %w", err)
	}
	return version.String(), nil
}

// GetLatestVersion retrieves the latest catalog version for a module
func (r *PostgresCatalogRepository) GetLatestVersion(ctx context.Context, module string) (*entities.StoredCatalog, error) {
	query := `
		SELECT version, dsl, created_at
		FROM catalogs
		WHERE module = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, module), module, "")
}

// GetByVersion retrieves a specific catalog version for a module
func (r *PostgresCatalogRepository) GetByVersion(ctx context.Context, module string, version string) (*entities.StoredCatalog, error) {
	if _, err := uuid.Parse(version); err != nil {
		return nil, fmt.Errorf("%w: invalid version %q for module %s", entities.ErrCatalogNotFound, version, module)
	}

	query := `
		SELECT version, dsl, created_at
		FROM catalogs
		WHERE module = $1 AND version = $2
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, module, version), module, version)
}

func (r *PostgresCatalogRepository) scanOne(row *sql.Row, module, version string) (*entities.StoredCatalog, error) {
	stored := &entities.StoredCatalog{Module: module}
	err := row.Scan(&stored.Version, &stored.DSL, &stored.CreatedAt)
	if err == sql.ErrNoRows {
		if version != "" {
			return nil, fmt.Errorf("%w: module %s version %s", entities.ErrCatalogNotFound, module, version)
		}
		return nil, fmt.Errorf("%w: module %s", entities.ErrCatalogNotFound, module)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	return stored, nil
}

// ListVersions lists catalog versions for a module, newest first
func (r *PostgresCatalogRepository) ListVersions(ctx context.Context, module string, limit int) ([]*entities.CatalogVersion, error) {
	if limit <= 0 {
		limit = DefaultVersionLimit
	}

	query := `
		SELECT version, created_at
		FROM catalogs
		WHERE module = $1
		ORDER BY version DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, module, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog versions: %w", err)
	}
	defer rows.Close()

	var versions []*entities.CatalogVersion
	for rows.Next() {
		v := &entities.CatalogVersion{}
		if err := rows.Scan(&v.Version, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog versions: %w", err)
	}
	return versions, nil
}

// ListModules lists the modules that have at least one stored catalog
func (r *PostgresCatalogRepository) ListModules(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT module FROM catalogs ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog modules: %w", err)
	}
	defer rows.Close()

	var modules []string
	for rows.Next() {
		var module string
		if err := rows.Scan(&module); err != nil {
			return nil, fmt.Errorf("failed to scan catalog module: %w", err)
		}
		modules = append(modules, module)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate catalog modules: %w", err)
	}
	return modules, nil
}

// Delete deletes all catalog versions for a module
func (r *PostgresCatalogRepository) Delete(ctx context.Context, module string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM catalogs WHERE module = $1`, module)
	if err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: module %s", entities.ErrCatalogNotFound, module)
	}

	return nil
}
