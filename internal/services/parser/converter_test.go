package parser

import (
	"testing"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riskCatalogDSL = `module ggrc_risks

group related {
  relation related_objects_as_source = proxy(Relationship, source, destination, related_destinations)
  relation related_objects = related_objects_as_source
}

group related_risk {
  relation related_risks = related_objects[Risk]
  canonical related_objects_as_source @Risk @Control
}

type Control {
  mixin related, related_risk
  canonical related_objects_as_source @Risk @Threat
}

type Person {
  relation all_risks = search("object.type == \"Risk\"") observe @Risk
}

observe ggrc_core.Person.related_objects_via_search @Risk @Threat
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition("", riskCatalogDSL)
	require.NoError(t, err)

	assert.Equal(t, "ggrc_risks", def.Module)
	require.Len(t, def.Groups, 2)
	assert.Equal(t, &entities.DirectRelation{
		JoinType:     "Relationship",
		SourceAttr:   "source",
		TargetAttr:   "destination",
		JoinRelation: "related_destinations",
	}, def.Groups[0].Relations[0].Spec)
	assert.Equal(t, []entities.TypeName{"Risk", "Control"}, def.Groups[1].Canonical["related_objects_as_source"])

	control := def.GetType("Control")
	require.NotNil(t, control)
	assert.Equal(t, []string{"related", "related_risk"}, control.Mixins)
	assert.Equal(t, []entities.TypeName{"Risk", "Threat"}, control.Canonical["related_objects_as_source"])

	person := def.GetType("Person")
	require.NotNil(t, person)
	assert.Equal(t, &entities.SearchRelation{
		Expression:   `object.type == "Risk"`,
		ObserveTypes: []entities.TypeName{"Risk"},
	}, person.Relations[0].Spec)

	require.Len(t, def.Observes, 1)
	assert.Equal(t, entities.TypeName("Person"), def.Observes[0].Type)
	assert.Equal(t, []entities.TypeName{"Risk", "Threat"}, def.Observes[0].Types)
}

func TestParseDefinition_ModuleName(t *testing.T) {
	def, err := ParseDefinition("ggrc_risks", riskCatalogDSL)
	require.NoError(t, err)
	assert.Equal(t, "ggrc_risks", def.Module)

	_, err = ParseDefinition("ggrc_core", riskCatalogDSL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog declares module ggrc_risks, expected ggrc_core")

	def, err = ParseDefinition("custom", `type Risk { relation orphaned_objects = none }`)
	require.NoError(t, err)
	assert.Equal(t, "custom", def.Module)

	_, err = ParseDefinition("", `type Risk { }`)
	assert.Error(t, err)
}

func TestParseDefinition_Errors(t *testing.T) {
	_, err := ParseDefinition("m", `type Risk {`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalog DSL")

	_, err = ParseDefinition("m", `type Risk { mixin missing }`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog validation failed")
}

func TestGenerateDefinition_RoundTrip(t *testing.T) {
	def, err := ParseDefinition("", riskCatalogDSL)
	require.NoError(t, err)

	dsl, err := GenerateDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, riskCatalogDSL, dsl)
}

func TestDefinitionToAST_SortsCanonical(t *testing.T) {
	def := &entities.CatalogDefinition{
		Module: "m",
		Types: []*entities.TypeDefinition{
			{
				Type: "Risk",
				Canonical: map[string][]entities.TypeName{
					"b": {"Threat"},
					"a": {"Control"},
				},
			},
		},
	}

	ast, err := DefinitionToAST(def)
	require.NoError(t, err)
	require.Len(t, ast.Types[0].Canonical, 2)
	assert.Equal(t, "a", ast.Types[0].Canonical[0].Relation)
	assert.Equal(t, "b", ast.Types[0].Canonical[1].Relation)
}

func TestDefinitionToAST_UnknownSpec(t *testing.T) {
	def := &entities.CatalogDefinition{
		Module: "m",
		Types: []*entities.TypeDefinition{
			{Type: "Risk", Relations: []*entities.NamedRelation{{Name: "a"}}},
		},
	}

	_, err := DefinitionToAST(def)
	assert.Error(t, err)
}
