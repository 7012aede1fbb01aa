package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/asakaida/riskmap/internal/handlers"
	infracache "github.com/asakaida/riskmap/internal/infrastructure/cache"
)

// TestScenario_CacheInvalidation tests that catalog writes on one instance
// invalidate the cached registry of another instance
func TestScenario_CacheInvalidation(t *testing.T) {
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// A second instance sharing the database
	other := NewCatalogService(t, testServer.DB)
	changed := make(chan string, 10)
	watcher := infracache.NewCatalogWatcher(testServer.ConnStr, other, infracache.CatalogWatcherOptions{
		OnChange: func(module string) { changed <- module },
	})
	if err := watcher.Start(ctx); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer watcher.Stop()

	// Warm the second instance's registry cache
	registry, err := other.Registry(ctx)
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if _, ok := registry.Module("controls"); ok {
		t.Fatal("controls module should not exist yet")
	}

	// Write through the first instance
	_, err = testServer.Client.Call(ctx, handlers.MethodWriteCatalog, map[string]interface{}{
		"module": "controls",
		"dsl":    "type Control {\n  relation orphaned_objects = none\n}",
	})
	if err != nil {
		t.Fatalf("Write catalog failed: %v", err)
	}

	select {
	case module := <-changed:
		if module != "controls" {
			t.Fatalf("expected change for controls, got %q", module)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for catalog change notification")
	}
	t.Log("✓ Change notification received")

	registry, err = other.Registry(ctx)
	if err != nil {
		t.Fatalf("Registry failed: %v", err)
	}
	if _, ok := registry.Module("controls"); !ok {
		t.Fatal("expected the second instance to see the controls module after invalidation")
	}
	t.Log("✓ Second instance rebuilt its registry")
}
