package e2e

import (
	"context"
	"testing"
	"time"

	"github.com/asakaida/riskmap/internal/extensions/risks"
	"github.com/asakaida/riskmap/internal/handlers"
)

// TestScenario_PageLoad tests widget registration for the pages the risk module extends
func TestScenario_PageLoad(t *testing.T) {
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tests := []struct {
		name        string
		subjectType string
		path        string
		pageType    string
		child       string
		mapping     string
	}{
		{"risk page", "Risk", "/risks/1", "Risk", "Threat", "related_threats"},
		{"threat page", "Threat", "/threats/1", "Threat", "Risk", "related_risks"},
		{"person page", "Person", "/people/1", "Person", "Risk", "owned_risks"},
		{"object browser", "Person", "/objectBrowser", "Person", "Threat", "all_threats"},
		{"control page", "Control", "/controls/1", "Control", "Risk", "related_risks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := testServer.Client.Call(ctx, handlers.MethodInitWidgets, map[string]interface{}{
				"subject_type": tt.subjectType,
				"subject_id":   "1",
				"path":         tt.path,
			})
			if err != nil {
				t.Fatalf("InitWidgets failed: %v", err)
			}
			if resp["module"] != risks.ModuleName {
				t.Errorf("expected module %s, got %v", risks.ModuleName, resp["module"])
			}

			pages, _ := resp["widgets"].(map[string]interface{})
			set, _ := pages[tt.pageType].(map[string]interface{})
			widget, _ := set[tt.child].(map[string]interface{})
			if widget["mapping"] != tt.mapping {
				t.Errorf("expected %s widget mapping %s, got %v", tt.child, tt.mapping, widget["mapping"])
			}
		})
	}

	// Registrations accumulate in the widget list registry
	if got := testServer.Registry.WidgetsFor(risks.Risk)[risks.Threat]; got == nil {
		t.Error("expected Threat widget registered for Risk pages")
	}
}
