package e2e

import (
	"context"
	"database/sql"
	"net"
	"testing"
	"time"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/asakaida/riskmap/internal/handlers"
	"github.com/asakaida/riskmap/internal/infrastructure/config"
	"github.com/asakaida/riskmap/internal/infrastructure/database"
	"github.com/asakaida/riskmap/internal/repositories/postgres"
	"github.com/asakaida/riskmap/internal/services"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"github.com/asakaida/riskmap/pkg/cache/memorycache"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

// E2ETestServer represents an E2E test server
type E2ETestServer struct {
	Server   *grpc.Server
	Client   *handlers.Client
	Service  *services.CatalogService
	Registry *widgets.ListRegistry
	Conn     *grpc.ClientConn
	DB       *sql.DB
	ConnStr  string
	Listener *bufconn.Listener
}

// SetupE2ETest sets up an E2E test environment backed by the test database.
// The test is skipped when no database is configured or reachable.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	// Initialize config for test environment
	if err := config.InitConfig("test"); err != nil {
		t.Skipf("skipping e2e test: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("skipping e2e test: %v", err)
	}

	// Connect to test database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("skipping e2e test: %v", err)
	}

	// Run migrations (use absolute path)
	projectRoot, err := config.FindProjectRoot()
	if err != nil {
		t.Fatalf("failed to find project root: %v", err)
	}
	if err := pg.RunMigrations(database.MigrationsPath(projectRoot)); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Clean up existing data
	cleanupDatabase(t, pg.DB)

	service := NewCatalogService(t, pg.DB)
	ext, err := risks.New(risks.Options{})
	if err != nil {
		t.Fatalf("failed to create risk extension: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, def := range []*entities.CatalogDefinition{core.Definition(), ext.Catalog().Definition} {
		if _, _, err := service.EnsureCatalog(ctx, def); err != nil {
			t.Fatalf("failed to store %s catalog: %v", def.Module, err)
		}
	}

	registry := widgets.NewListRegistry()
	handler := handlers.NewRiskMapHandler(handlers.RiskMapHandlerOptions{
		CatalogService: service,
		Widgets:        ext,
		Registrar:      registry,
		TreeView:       core.TreeView(),
	})

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer()
	handlers.RegisterRiskMapServer(server, handler)

	// Start server in background
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Create client connection
	bufDialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}

	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		server.Stop()
		t.Fatalf("failed to create client connection: %v", err)
	}

	return &E2ETestServer{
		Server:   server,
		Client:   handlers.NewClient(conn),
		Service:  service,
		Registry: registry,
		Conn:     conn,
		DB:       pg.DB,
		ConnStr:  cfg.Database.ConnectionString(),
		Listener: listener,
	}
}

// NewCatalogService creates a cached catalog service on the test database,
// as a separate server instance would
func NewCatalogService(t *testing.T, db *sql.DB) *services.CatalogService {
	t.Helper()

	c, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return services.NewCatalogService(postgres.NewPostgresCatalogRepository(db), services.CatalogServiceOptions{Cache: c})
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.DB != nil {
		cleanupDatabase(t, e.DB)
		e.DB.Close()
	}
}

// cleanupDatabase removes all data from test database
func cleanupDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "DELETE FROM catalogs"); err != nil {
		t.Logf("warning: failed to clean up table catalogs: %v", err)
	}
}
