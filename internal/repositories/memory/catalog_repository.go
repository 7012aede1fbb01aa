package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/repositories"
	"github.com/google/uuid"
)

// CatalogRepository keeps catalog versions in process memory.
// Used by the offline CLI and by servers started without a database.
type CatalogRepository struct {
	mu       sync.RWMutex
	catalogs map[string][]*entities.StoredCatalog // module -> versions, oldest first
	now      func() time.Time
}

// NewCatalogRepository creates an empty in-memory catalog repository
func NewCatalogRepository() *CatalogRepository {
	return &CatalogRepository{
		catalogs: make(map[string][]*entities.StoredCatalog),
		now:      time.Now,
	}
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// Create stores a new catalog version
func (r *CatalogRepository) Create(ctx context.Context, module string, dsl string) (string, error) {
	version, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate catalog version: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.catalogs[module] = append(r.catalogs[module], &entities.StoredCatalog{
		Module:    module,
		Version:   version.String(),
		DSL:       dsl,
		CreatedAt: r.now(),
	})
	return version.String(), nil
}

// GetLatestVersion retrieves the latest catalog version for a module
func (r *CatalogRepository) GetLatestVersion(ctx context.Context, module string) (*entities.StoredCatalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.catalogs[module]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: module %s", entities.ErrCatalogNotFound, module)
	}
	cp := *versions[len(versions)-1]
	return &cp, nil
}

// GetByVersion retrieves a specific catalog version for a module
func (r *CatalogRepository) GetByVersion(ctx context.Context, module string, version string) (*entities.StoredCatalog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, stored := range r.catalogs[module] {
		if stored.Version == version {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: module %s version %s", entities.ErrCatalogNotFound, module, version)
}

// ListVersions lists catalog versions for a module, newest first
func (r *CatalogRepository) ListVersions(ctx context.Context, module string, limit int) ([]*entities.CatalogVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	versions := r.catalogs[module]
	var result []*entities.CatalogVersion
	for i := len(versions) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, &entities.CatalogVersion{
			Version:   versions[i].Version,
			CreatedAt: versions[i].CreatedAt,
		})
	}
	return result, nil
}

// ListModules lists the modules that have at least one stored catalog, sorted
func (r *CatalogRepository) ListModules(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]string, 0, len(r.catalogs))
	for module := range r.catalogs {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	return modules, nil
}

// Delete deletes all catalog versions for a module
func (r *CatalogRepository) Delete(ctx context.Context, module string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.catalogs[module]; !ok {
		return fmt.Errorf("%w: module %s", entities.ErrCatalogNotFound, module)
	}
	delete(r.catalogs, module)
	return nil
}
