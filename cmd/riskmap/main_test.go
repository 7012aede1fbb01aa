package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCatalogCmd(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "module ggrc_risks")
	assert.Contains(t, out, "owned_risks")

	out, err = execute(t, "catalog", "--module", core.ModuleName)
	require.NoError(t, err)
	assert.Contains(t, out, core.SearchRelation)

	_, err = execute(t, "catalog", "--module", "missing")
	assert.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "controls.catalog")
	require.NoError(t, os.WriteFile(valid, []byte("type Control {\n  relation related_objects = none\n}\n"), 0o644))
	out, err := execute(t, "validate", valid, "--module", "controls")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	invalid := filepath.Join(dir, "broken.catalog")
	require.NoError(t, os.WriteFile(invalid, []byte("type Control {\n  relation related_programs = missing[Program]\n}\n"), 0o644))
	_, err = execute(t, "validate", invalid, "--module", "controls")
	assert.Error(t, err)

	_, err = execute(t, "validate", filepath.Join(dir, "absent.catalog"), "--module", "controls")
	assert.Error(t, err)
}

func TestRelationsCmd(t *testing.T) {
	out, err := execute(t, "relations", "Person", "-o", "json")
	require.NoError(t, err)

	var result struct {
		Type      string   `json:"type"`
		Relations []string `json:"relations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Person", result.Type)
	assert.Contains(t, result.Relations, "owned_risks")
	assert.Contains(t, result.Relations, "all_threats")

	_, err = execute(t, "relations", "Unknown")
	assert.Error(t, err)
}

func TestExpandCmd(t *testing.T) {
	out, err := execute(t, "expand", "Person", "owned_threats")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, true, result["bounded"])
	assert.Equal(t, []interface{}{"Threat"}, result["targets"])

	tree, ok := result["tree"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "filter", tree["kind"])
}

func TestWidgetsCmd(t *testing.T) {
	out, err := execute(t, "widgets", "--subject-type", "Risk", "--subject-id", "1", "--path", "/risks/1", "-o", "json")
	require.NoError(t, err)

	var result struct {
		Kind    string                                       `json:"kind"`
		Prefix  string                                       `json:"prefix"`
		Widgets map[string]map[string]map[string]interface{} `json:"widgets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "primary", result.Kind)
	assert.Equal(t, "related_", result.Prefix)
	assert.Equal(t, "related_threats", result.Widgets["Risk"]["Threat"]["mapping"])
	assert.Equal(t, "related_controls", result.Widgets["Risk"]["Control"]["mapping"])

	out, err = execute(t, "widgets", "--subject-type", "Person", "--subject-id", "7", "--path", "/objectBrowser")
	require.NoError(t, err)
	assert.Contains(t, out, "all_risks")

	_, err = execute(t, "widgets", "--subject-id", "7")
	assert.EqualError(t, err, "--subject-type is required when --subject-id is set")
}

func TestComponentsCmd(t *testing.T) {
	out, err := execute(t, "components", "--template-root", "/templates")
	require.NoError(t, err)
	assert.Contains(t, out, "tag: assessment-urls-list")
	assert.Contains(t, out, "/templates/components/unified-mapper/mapper-results-item.mustache")
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	err := writeOutput(&bytes.Buffer{}, "xml", map[string]interface{}{})
	assert.EqualError(t, err, "unsupported output format: xml")
}
