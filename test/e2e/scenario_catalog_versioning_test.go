package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/asakaida/riskmap/internal/handlers"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestScenario_CatalogVersioning tests catalog versioning functionality
func TestScenario_CatalogVersioning(t *testing.T) {
	// Setup E2E test server
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := testServer.Client

	// Test 1: Write initial catalog (v1)
	t.Log("Test 1: Writing initial controls catalog (v1)")
	catalogV1 := `module controls

type Control {
  relation orphaned_objects = none
}`

	v1Resp, err := client.Call(ctx, handlers.MethodWriteCatalog, map[string]interface{}{
		"module": "controls",
		"dsl":    catalogV1,
	})
	if err != nil {
		t.Fatalf("Write catalog v1 failed: %v", err)
	}
	v1Version, _ := v1Resp["version"].(string)
	if v1Version == "" {
		t.Fatal("Catalog v1 version is empty")
	}
	t.Logf("✓ Catalog v1 written successfully (version: %s)", v1Version)

	// Test 2: Write updated catalog (v2) adding a risk relation
	t.Log("Test 2: Writing updated catalog (v2) with a filtered relation")
	catalogV2 := `module controls

type Control {
  relation orphaned_objects = none
  relation mitigated_risks = related_objects[Risk]
}`

	v2Resp, err := client.Call(ctx, handlers.MethodWriteCatalog, map[string]interface{}{
		"module": "controls",
		"dsl":    catalogV2,
	})
	if err != nil {
		t.Fatalf("Write catalog v2 failed: %v", err)
	}
	v2Version, _ := v2Resp["version"].(string)
	if v2Version == "" || v2Version == v1Version {
		t.Fatalf("v2 version should be set and differ from v1, got %q", v2Version)
	}
	t.Logf("✓ Catalog v2 written successfully (version: %s)", v2Version)

	// Test 3: Latest read returns v2, versioned read returns v1
	t.Log("Test 3: Reading latest and versioned catalogs")
	latest, err := client.Call(ctx, handlers.MethodReadCatalog, map[string]interface{}{"module": "controls"})
	if err != nil {
		t.Fatalf("Read latest catalog failed: %v", err)
	}
	if latest["version"] != v2Version {
		t.Errorf("expected latest version %s, got %v", v2Version, latest["version"])
	}
	old, err := client.Call(ctx, handlers.MethodReadCatalog, map[string]interface{}{"module": "controls", "version": v1Version})
	if err != nil {
		t.Fatalf("Read catalog v1 failed: %v", err)
	}
	if old["dsl"] != catalogV1 {
		t.Errorf("expected v1 DSL, got %v", old["dsl"])
	}
	t.Log("✓ Latest and versioned reads return the expected catalogs")

	// Test 4: Versions are listed newest first
	t.Log("Test 4: Listing catalog versions")
	listResp, err := client.Call(ctx, handlers.MethodListCatalogVersions, map[string]interface{}{"module": "controls"})
	if err != nil {
		t.Fatalf("List catalog versions failed: %v", err)
	}
	versions, _ := listResp["versions"].([]interface{})
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if first, _ := versions[0].(map[string]interface{}); first["version"] != v2Version {
		t.Errorf("expected newest version first, got %v", versions[0])
	}
	t.Log("✓ Versions listed newest first")

	// Test 5: The registry uses the latest version
	t.Log("Test 5: Expanding the relation added in v2")
	expandResp, err := client.Call(ctx, handlers.MethodExpandRelation, map[string]interface{}{
		"type":     "Control",
		"relation": "mitigated_risks",
	})
	if err != nil {
		t.Fatalf("Expand mitigated_risks failed: %v", err)
	}
	targets, _ := expandResp["targets"].([]interface{})
	if len(targets) != 1 || targets[0] != "Risk" {
		t.Errorf("expected targets [Risk], got %v", targets)
	}
	t.Log("✓ Registry reflects the latest catalog version")

	// Test 6: A catalog with a dangling reference is rejected
	t.Log("Test 6: Writing an invalid catalog")
	_, err = client.Call(ctx, handlers.MethodWriteCatalog, map[string]interface{}{
		"module": "controls",
		"dsl":    "type Control {\n  relation broken = missing[Risk]\n}",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	t.Log("✓ Invalid catalog rejected")

	// Test 7: Deleting the module removes its relations from the registry
	t.Log("Test 7: Deleting the controls catalog")
	if _, err := client.Call(ctx, handlers.MethodDeleteCatalog, map[string]interface{}{"module": "controls"}); err != nil {
		t.Fatalf("Delete catalog failed: %v", err)
	}
	_, err = client.Call(ctx, handlers.MethodExpandRelation, map[string]interface{}{
		"type":     "Control",
		"relation": "mitigated_risks",
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
	t.Log("✓ Deleted module no longer contributes relations")
}
