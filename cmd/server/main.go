package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/asakaida/riskmap/internal/handlers"
	infracache "github.com/asakaida/riskmap/internal/infrastructure/cache"
	"github.com/asakaida/riskmap/internal/infrastructure/config"
	"github.com/asakaida/riskmap/internal/infrastructure/database"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/infrastructure/metrics"
	"github.com/asakaida/riskmap/internal/repositories"
	"github.com/asakaida/riskmap/internal/repositories/memory"
	"github.com/asakaida/riskmap/internal/repositories/postgres"
	"github.com/asakaida/riskmap/internal/services"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"github.com/asakaida/riskmap/pkg/cache/memorycache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

const (
	defaultEnv            = "dev"
	metricsUpdateInterval = 10 * time.Second
	shutdownTimeout       = 30 * time.Second
)

func main() {
	// Get environment from ENV variable or use default
	env := os.Getenv("ENV")
	if env == "" {
		env = defaultEnv
	}

	// Initialize configuration
	if err := config.InitConfig(env); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog store
	var catalogRepo repositories.CatalogRepository
	var pg *database.Postgres
	switch cfg.Server.Store {
	case config.StoreMemory:
		catalogRepo = memory.NewCatalogRepository()
		logger.Warn("using in-memory catalog store, catalogs are lost on restart")
	default:
		var err error
		pg, err = database.NewPostgres(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pg.Close()

		logger.Info("connected to database",
			zap.String("user", cfg.Database.User),
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Database),
		)

		root, err := config.FindProjectRoot()
		if err != nil {
			return fmt.Errorf("failed to find project root: %w", err)
		}
		if err := pg.RunMigrations(database.MigrationsPath(root)); err != nil {
			return err
		}
		catalogRepo = postgres.NewPostgresCatalogRepository(pg.DB)
	}

	// Metrics
	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exporter := metrics.NewPrometheusExporter(collector, registry)
	recorder := &metrics.Recorder{Collector: collector, Exporter: exporter}

	// Catalog service
	serviceOpts := services.CatalogServiceOptions{
		TTL:    time.Duration(cfg.Cache.TTLMinutes) * time.Minute,
		Logger: logger.Named("catalog"),
	}
	if cfg.Cache.Enabled {
		catalogCache, err := memorycache.New(&memorycache.Config{
			MaxSizeBytes:  cfg.Cache.MaxMemoryBytes,
			DefaultTTL:    serviceOpts.TTL,
			EnableMetrics: cfg.Cache.Metrics,
		})
		if err != nil {
			return fmt.Errorf("failed to create catalog cache: %w", err)
		}
		defer catalogCache.Close()
		collector.SetCache(catalogCache)
		serviceOpts.Cache = catalogCache
	}
	catalogService := services.NewCatalogService(catalogRepo, serviceOpts)

	// Risk extension
	var searchPath *regexp.Regexp
	if cfg.Widgets.SearchPath != "" {
		searchPath = regexp.MustCompile(cfg.Widgets.SearchPath)
	}
	ext, err := risks.New(risks.Options{
		TreeDepth:  cfg.Widgets.TreeDepth,
		SearchPath: searchPath,
		Logger:     logger.Named("risks"),
	})
	if err != nil {
		return err
	}

	// The risk catalog observes core relations, so core is stored first
	for _, def := range []*entities.CatalogDefinition{core.Definition(), ext.Catalog().Definition} {
		version, created, err := catalogService.EnsureCatalog(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to store %s catalog: %w", def.Module, err)
		}
		logger.Info("catalog ready",
			zap.String("module", def.Module),
			zap.String("version", version),
			zap.Bool("created", created),
		)
	}

	// Cross-instance cache invalidation
	if pg != nil && cfg.Cache.Enabled {
		watcher := infracache.NewCatalogWatcher(cfg.Database.ConnectionString(), catalogService, infracache.CatalogWatcherOptions{
			OnChange: recorder.RecordCatalogChange,
			Logger:   logger.Named("watcher"),
		})
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start catalog watcher: %w", err)
		}
		defer watcher.Stop()
	}

	handler := handlers.NewRiskMapHandler(handlers.RiskMapHandlerOptions{
		CatalogService: catalogService,
		Widgets:        ext,
		Registrar:      widgets.NewListRegistry(),
		TreeView:       core.TreeView(),
		Recorder:       recorder,
		Logger:         logger.Named("handler"),
	})

	// Create gRPC server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, exporter, logger.Named("grpc"))),
	)
	handlers.RegisterRiskMapServer(grpcServer, handler)

	// Register reflection service (for grpcurl, etc.)
	reflection.Register(grpcServer)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if pg != nil {
			if err := pg.HealthCheck(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", addr))
		if err := grpcServer.Serve(listener); err != nil {
			serverErrors <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()
	go func() {
		logger.Info("metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	go func() {
		ticker := time.NewTicker(metricsUpdateInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				exporter.Update()
			}
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		logger.Info("initiating graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to stop metrics server", zap.Error(err))
	}

	// Channel to notify when graceful stop completes
	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		logger.Info("server stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, forcing stop")
		grpcServer.Stop()
	}

	return nil
}
