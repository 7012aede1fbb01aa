package repositories

import (
	"context"

	"github.com/asakaida/riskmap/internal/entities"
)

// CatalogRepository defines the interface for catalog DSL storage
type CatalogRepository interface {
	// Create stores a new catalog version for a module and returns the version ID
	Create(ctx context.Context, module string, dsl string) (string, error)

	// GetLatestVersion retrieves the latest catalog version for a module
	GetLatestVersion(ctx context.Context, module string) (*entities.StoredCatalog, error)

	// GetByVersion retrieves a specific catalog version for a module
	GetByVersion(ctx context.Context, module string, version string) (*entities.StoredCatalog, error)

	// ListVersions lists catalog versions for a module, newest first
	ListVersions(ctx context.Context, module string, limit int) ([]*entities.CatalogVersion, error)

	// ListModules lists the modules that have at least one stored catalog
	ListModules(ctx context.Context) ([]string, error)

	// Delete deletes all catalog versions for a module
	Delete(ctx context.Context, module string) error
}
