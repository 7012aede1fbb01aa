package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/repositories"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/parser"
	"github.com/asakaida/riskmap/pkg/cache"
	"go.uber.org/zap"
)

const (
	catalogKeyPrefix = "catalog"
	latestVersion    = "latest"
	registryKey      = "registry"
)

// CatalogServiceInterface defines the interface for catalog management operations
type CatalogServiceInterface interface {
	WriteCatalog(ctx context.Context, module string, dsl string) (string, error)
	ReadCatalog(ctx context.Context, module string, version string) (*entities.StoredCatalog, error)
	ListVersions(ctx context.Context, module string, limit int) ([]*entities.CatalogVersion, error)
	ValidateCatalog(ctx context.Context, module string, dsl string) error
	DeleteCatalog(ctx context.Context, module string) error
	GetCatalog(ctx context.Context, module string, version string) (*entities.RelationCatalog, error)
	Registry(ctx context.Context) (*catalog.Registry, error)
	Invalidate(ctx context.Context, module string) error
	InvalidateAll(ctx context.Context) error
}

// CatalogService stores catalog DSL versions and resolves them into relation registries
type CatalogService struct {
	catalogRepo repositories.CatalogRepository
	cache       cache.Cache // nil disables caching
	ttl         time.Duration
	logger      *zap.Logger

	// serializes registry rebuilds so concurrent page loads parse each catalog once
	buildMu sync.Mutex

	// generation is bumped by every invalidation; values read under an older
	// generation are not cached
	cacheMu    sync.Mutex
	generation uint64
}

// CatalogServiceOptions configures a CatalogService
type CatalogServiceOptions struct {
	Cache  cache.Cache
	TTL    time.Duration
	Logger *zap.Logger
}

// NewCatalogService creates a new CatalogService
func NewCatalogService(catalogRepo repositories.CatalogRepository, opts CatalogServiceOptions) *CatalogService {
	logger := logging.OrNop(opts.Logger)
	return &CatalogService{
		catalogRepo: catalogRepo,
		cache:       opts.Cache,
		ttl:         opts.TTL,
		logger:      logger,
	}
}

var _ CatalogServiceInterface = (*CatalogService)(nil)

// WriteCatalog parses DSL, validates it against the other stored modules and creates a new catalog version
func (s *CatalogService) WriteCatalog(ctx context.Context, module string, dsl string) (string, error) {
	if module == "" {
		return "", fmt.Errorf("module is required")
	}
	if dsl == "" {
		return "", fmt.Errorf("catalog DSL is required")
	}

	if err := s.ValidateCatalog(ctx, module, dsl); err != nil {
		return "", err
	}

	version, err := s.catalogRepo.Create(ctx, module, dsl)
	if err != nil {
		return "", fmt.Errorf("failed to create catalog version: %w", err)
	}

	if err := s.Invalidate(ctx, module); err != nil {
		return "", err
	}

	s.logger.Info("catalog written",
		zap.String("module", module),
		zap.String("version", version),
	)
	return version, nil
}

// ReadCatalog retrieves a stored catalog version; version="" means the latest version
func (s *CatalogService) ReadCatalog(ctx context.Context, module string, version string) (*entities.StoredCatalog, error) {
	if module == "" {
		return nil, fmt.Errorf("module is required")
	}

	var stored *entities.StoredCatalog
	var err error
	if version == "" {
		stored, err = s.catalogRepo.GetLatestVersion(ctx, module)
	} else {
		stored, err = s.catalogRepo.GetByVersion(ctx, module, version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: module %s", entities.ErrCatalogNotFound, module)
	}

	return stored, nil
}

// ListVersions lists the stored versions of a module, newest first
func (s *CatalogService) ListVersions(ctx context.Context, module string, limit int) ([]*entities.CatalogVersion, error) {
	if module == "" {
		return nil, fmt.Errorf("module is required")
	}

	versions, err := s.catalogRepo.ListVersions(ctx, module, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog versions: %w", err)
	}
	return versions, nil
}

// ValidateCatalog checks DSL without saving it.
// The resulting catalog must also form a valid registry with the latest version of every other stored module.
func (s *CatalogService) ValidateCatalog(ctx context.Context, module string, dsl string) error {
	if dsl == "" {
		return fmt.Errorf("catalog DSL is required")
	}

	relations, err := buildCatalog(module, dsl)
	if err != nil {
		return err
	}

	others, err := s.latestCatalogs(ctx, relations.Module)
	if err != nil {
		return err
	}

	merged := append(others, relations)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Module < merged[j].Module })
	if _, err := catalog.NewRegistry(merged...); err != nil {
		return fmt.Errorf("%w: %w", entities.ErrInvalidCatalog, err)
	}
	return nil
}

// DeleteCatalog deletes every version of a module.
// It fails with ErrCatalogInUse when the remaining modules would no longer form a valid registry.
func (s *CatalogService) DeleteCatalog(ctx context.Context, module string) error {
	if module == "" {
		return fmt.Errorf("module is required")
	}

	remaining, err := s.latestCatalogs(ctx, module)
	if err != nil {
		return err
	}
	if _, err := catalog.NewRegistry(remaining...); err != nil {
		return fmt.Errorf("%w: module %s: %w", entities.ErrCatalogInUse, module, err)
	}

	if err := s.catalogRepo.Delete(ctx, module); err != nil {
		return fmt.Errorf("failed to delete catalog: %w", err)
	}

	return s.Invalidate(ctx, module)
}

// GetCatalog returns the resolved catalog of a stored version; version="" means the latest version
func (s *CatalogService) GetCatalog(ctx context.Context, module string, version string) (*entities.RelationCatalog, error) {
	if module == "" {
		return nil, fmt.Errorf("module is required")
	}

	key := cacheKey(module, version)
	if cached, ok := s.cacheGet(ctx, key); ok {
		if relations, ok := cached.(*entities.RelationCatalog); ok {
			return relations, nil
		}
	}

	gen := s.cacheGeneration()
	stored, err := s.ReadCatalog(ctx, module, version)
	if err != nil {
		return nil, err
	}

	relations, err := buildCatalog(module, stored.DSL)
	if err != nil {
		return nil, fmt.Errorf("stored catalog %s@%s is invalid: %w", module, stored.Version, err)
	}

	s.cacheSet(ctx, gen, key, relations)
	if version == "" {
		s.cacheSet(ctx, gen, cacheKey(module, stored.Version), relations)
	}

	return relations, nil
}

// Registry returns the registry merging the latest catalog of every stored module.
// Modules are merged in name order.
func (s *CatalogService) Registry(ctx context.Context) (*catalog.Registry, error) {
	if cached, ok := s.cacheGet(ctx, registryKey); ok {
		if registry, ok := cached.(*catalog.Registry); ok {
			return registry, nil
		}
	}

	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	// another caller may have rebuilt it while we waited
	if cached, ok := s.cacheGet(ctx, registryKey); ok {
		if registry, ok := cached.(*catalog.Registry); ok {
			return registry, nil
		}
	}

	gen := s.cacheGeneration()
	catalogs, err := s.latestCatalogs(ctx, "")
	if err != nil {
		return nil, err
	}

	registry, err := catalog.NewRegistry(catalogs...)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, gen, registryKey, registry)
	s.logger.Debug("relation registry built", zap.Strings("modules", registry.Modules()))

	return registry, nil
}

// Invalidate drops cached catalogs of a module and the merged registry
func (s *CatalogService) Invalidate(ctx context.Context, module string) error {
	if s.cache == nil {
		return nil
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++

	removed, err := s.cache.DeletePrefix(ctx, cache.Key(catalogKeyPrefix, module)+":")
	if err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	if err := s.cache.Delete(ctx, registryKey); err != nil {
		return fmt.Errorf("failed to invalidate registry cache: %w", err)
	}

	s.logger.Debug("catalog cache invalidated",
		zap.String("module", module),
		zap.Int("removed", removed),
	)
	return nil
}

// InvalidateAll drops every cached catalog and registry
func (s *CatalogService) InvalidateAll(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.generation++
	if err := s.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear catalog cache: %w", err)
	}
	s.logger.Debug("catalog cache cleared")
	return nil
}

// EnsureCatalog stores a built-in catalog definition unless the latest stored version has the same DSL.
// It returns the current version and whether a new one was written.
func (s *CatalogService) EnsureCatalog(ctx context.Context, def *entities.CatalogDefinition) (string, bool, error) {
	dsl, err := parser.GenerateDefinition(def)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate %s catalog DSL: %w", def.Module, err)
	}

	stored, err := s.catalogRepo.GetLatestVersion(ctx, def.Module)
	switch {
	case err == nil && stored != nil && stored.DSL == dsl:
		return stored.Version, false, nil
	case err != nil && !errors.Is(err, entities.ErrCatalogNotFound):
		return "", false, fmt.Errorf("failed to get catalog: %w", err)
	}

	version, err := s.WriteCatalog(ctx, def.Module, dsl)
	if err != nil {
		return "", false, err
	}
	return version, true, nil
}

// latestCatalogs resolves the latest catalog of every stored module except skip, sorted by module name
func (s *CatalogService) latestCatalogs(ctx context.Context, skip string) ([]*entities.RelationCatalog, error) {
	modules, err := s.catalogRepo.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog modules: %w", err)
	}
	sort.Strings(modules)

	catalogs := make([]*entities.RelationCatalog, 0, len(modules))
	for _, module := range modules {
		if module == skip {
			continue
		}
		relations, err := s.GetCatalog(ctx, module, "")
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, relations)
	}
	return catalogs, nil
}

func (s *CatalogService) cacheGet(ctx context.Context, key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, key)
}

func (s *CatalogService) cacheGeneration() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.generation
}

// cacheSet stores a value read under generation gen, unless an invalidation happened since
func (s *CatalogService) cacheSet(ctx context.Context, gen uint64, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen != s.generation {
		s.logger.Debug("skipping stale cache entry", zap.String("key", key))
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("failed to cache value", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(module, version string) string {
	if version == "" {
		version = latestVersion
	}
	return cache.Key(catalogKeyPrefix, module, version)
}

// buildCatalog parses DSL and resolves it into a relation catalog
func buildCatalog(module, dsl string) (*entities.RelationCatalog, error) {
	def, err := parser.ParseDefinition(module, dsl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidCatalog, err)
	}

	relations, err := catalog.Build(def)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build catalog: %w", entities.ErrInvalidCatalog, err)
	}
	return relations, nil
}
