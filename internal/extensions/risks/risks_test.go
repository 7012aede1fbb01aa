package risks

import (
	"context"
	"regexp"
	"testing"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/parser"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtension(t *testing.T, opts Options) *Extension {
	t.Helper()
	ext, err := New(opts)
	require.NoError(t, err)
	return ext
}

func newRegistry(t *testing.T, ext *Extension) *catalog.Registry {
	t.Helper()
	coreCatalog, err := catalog.Build(core.Definition())
	require.NoError(t, err)
	registry, err := catalog.NewRegistry(coreCatalog, ext.Catalog())
	require.NoError(t, err)
	return registry
}

func TestCatalog_GenericTypes(t *testing.T) {
	ext := newExtension(t, Options{})

	for _, typ := range core.ObjectTypes {
		entry, ok := ext.Catalog().Entry(typ)
		require.True(t, ok, "missing entry for %s", typ)
		assert.Equal(t, []string{"related", "related_risk", "related_threat"}, entry.Mixins)
		assert.Equal(t, []entities.TypeName{Risk, Threat}, entry.Canonical["related_objects_as_source"])

		_, ok = entry.Get("related_risks")
		assert.True(t, ok)
		_, ok = entry.Get("related_threats")
		assert.True(t, ok)
	}
}

func TestCatalog_CentralTypes(t *testing.T) {
	ext := newExtension(t, Options{})

	risk, ok := ext.Catalog().Entry(Risk)
	require.True(t, ok)
	assert.Equal(t, []string{"related", "related_objects", "related_threat", "ownable"}, risk.Mixins)

	threat, ok := ext.Catalog().Entry(Threat)
	require.True(t, ok)
	assert.Equal(t, []string{"related", "related_objects", "related_risk", "ownable"}, threat.Mixins)

	for _, entry := range []*entities.TypeEntry{risk, threat} {
		orphaned, ok := entry.Get("orphaned_objects")
		require.True(t, ok)
		assert.Empty(t, orphaned.(*entities.UnionRelation).Members)

		owners, ok := entry.Get("owners")
		require.True(t, ok)
		assert.Equal(t, Person, owners.(*entities.DirectRelation).TargetType)

		_, ok = entry.Get("related_controls")
		assert.True(t, ok)
		_, ok = entry.Get("related_people")
		assert.True(t, ok)
		_, ok = entry.Get("related_multitype_search")
		assert.False(t, ok)
	}

	_, ok = risk.Get("related_threats")
	assert.True(t, ok)
	_, ok = threat.Get("related_risks")
	assert.True(t, ok)
}

func TestCatalog_PersonRelations(t *testing.T) {
	ext := newExtension(t, Options{})
	registry := newRegistry(t, ext)

	owned, err := registry.Lookup(Person, "owned_risks")
	require.NoError(t, err)
	assert.Equal(t, &entities.FilteredRelation{Base: core.SearchRelation, Type: Risk}, owned)

	all, err := registry.Lookup(Person, "all_threats")
	require.NoError(t, err)
	assert.Equal(t, `object.type == "Threat"`, all.(*entities.SearchRelation).Expression)

	search, err := registry.Lookup(Person, core.SearchRelation)
	require.NoError(t, err)
	observed := search.(*entities.SearchRelation).ObserveTypes
	assert.Contains(t, observed, Risk)
	assert.Contains(t, observed, Threat)

	_, err = registry.Lookup("Control", "owned_risks")
	assert.ErrorIs(t, err, entities.ErrRelationNotFound)
}

func TestCatalog_Targets(t *testing.T) {
	registry := newRegistry(t, newExtension(t, Options{}))
	expander := catalog.NewExpander(registry)

	types, bounded, err := expander.Targets("Control", "related_risks")
	require.NoError(t, err)
	assert.True(t, bounded)
	assert.Equal(t, []entities.TypeName{Risk}, types)

	types, bounded, err = expander.Targets(Person, "owned_threats")
	require.NoError(t, err)
	assert.True(t, bounded)
	assert.Equal(t, []entities.TypeName{Threat}, types)
}

func TestCatalog_RequiresCore(t *testing.T) {
	_, err := catalog.NewRegistry(newExtension(t, Options{}).Catalog())
	assert.Error(t, err)
}

func TestNew_KnownTypes(t *testing.T) {
	ext := newExtension(t, Options{KnownTypes: []entities.TypeName{"Control", "Person"}})

	assert.Equal(t, []entities.TypeName{"Control", "Person"}, ext.KnownTypes())
	assert.ElementsMatch(t, []entities.TypeName{Risk, Threat, "Control", "Person"}, ext.Catalog().Types())
	assert.Equal(t, Risk, ext.DispatchConfig().Primary)
	assert.Equal(t, "Risks", ext.Models().Get(Risk).TitlePlural)
}

func TestInitWidgets(t *testing.T) {
	ctx := context.Background()
	ext := newExtension(t, Options{})
	tree := core.TreeView()

	tests := []struct {
		name     string
		page     entities.PageContext
		pageType entities.TypeName
		check    func(t *testing.T, set entities.WidgetSet)
	}{
		{
			name:     "risk page",
			page:     entities.PageContext{Subject: &entities.Subject{Type: Risk, ID: "1"}, Path: "/risks/1"},
			pageType: Risk,
			check: func(t *testing.T, set entities.WidgetSet) {
				assert.Len(t, set, len(tree.BaseWidgetsByType)+1)
				assert.Equal(t, "related_threats", set[Threat].Mapping)
				assert.Equal(t, "related_controls", set["Control"].Mapping)
				assert.NotContains(t, set, entities.TypeName("MultitypeSearch"))
			},
		},
		{
			name:     "threat page",
			page:     entities.PageContext{Subject: &entities.Subject{Type: Threat, ID: "2"}, Path: "/threats/2"},
			pageType: Threat,
			check: func(t *testing.T, set entities.WidgetSet) {
				assert.Equal(t, "related_risks", set[Risk].Mapping)
				assert.Equal(t, 45, set[Risk].Order)
			},
		},
		{
			name:     "person page",
			page:     entities.PageContext{Subject: &entities.Subject{Type: Person, ID: "3"}, Path: "/people/3"},
			pageType: Person,
			check: func(t *testing.T, set entities.WidgetSet) {
				assert.Equal(t, []entities.TypeName{Risk, Threat}, set.Keys())
				assert.Equal(t, "owned_risks", set[Risk].Mapping)
				assert.Equal(t, "owned_threats", set[Threat].Mapping)
			},
		},
		{
			name:     "object browser",
			page:     entities.PageContext{Subject: &entities.Subject{Type: Person, ID: "3"}, Path: "/objectBrowser"},
			pageType: Person,
			check: func(t *testing.T, set entities.WidgetSet) {
				assert.Equal(t, "all_risks", set[Risk].Mapping)
				assert.Equal(t, "all_threats", set[Threat].Mapping)
			},
		},
		{
			name:     "control page",
			page:     entities.PageContext{Subject: &entities.Subject{Type: "Control", ID: "4"}, Path: "/controls/4"},
			pageType: "Control",
			check: func(t *testing.T, set entities.WidgetSet) {
				assert.Equal(t, []entities.TypeName{Risk, Threat}, set.Keys())
				assert.Equal(t, "related_risks", set[Risk].Mapping)
				assert.Equal(t, widgets.DefaultFooterView, set[Risk].FooterView)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := widgets.NewListRegistry()
			result, err := ext.InitWidgets(ctx, tt.page, tree, registry)
			require.NoError(t, err)
			assert.False(t, result.Registration.IsEmpty())
			tt.check(t, registry.WidgetsFor(tt.pageType))
		})
	}
}

func TestInitWidgets_NoSubject(t *testing.T) {
	registry := widgets.NewListRegistry()
	result, err := newExtension(t, Options{}).InitWidgets(context.Background(), entities.PageContext{Path: "/dashboard"}, core.TreeView(), registry)
	require.NoError(t, err)
	assert.True(t, result.Registration.IsEmpty())
	assert.Empty(t, registry.WidgetsFor(Risk))
}

func TestInitWidgets_CustomSearchPath(t *testing.T) {
	ext := newExtension(t, Options{SearchPath: regexp.MustCompile(`^/search$`), TreeDepth: 3})
	registry := widgets.NewListRegistry()

	page := entities.PageContext{Subject: &entities.Subject{Type: Person, ID: "3"}, Path: "/search"}
	_, err := ext.InitWidgets(context.Background(), page, core.TreeView(), registry)
	require.NoError(t, err)

	set := registry.WidgetsFor(Person)
	assert.Equal(t, "all_risks", set[Risk].Mapping)
	assert.Equal(t, 3, set[Risk].TreeDepth)
}

func TestInitWidgets_ExtendsTreeView(t *testing.T) {
	tree := core.TreeView()
	result, err := newExtension(t, Options{}).InitWidgets(context.Background(), entities.PageContext{}, tree, widgets.NewListRegistry())
	require.NoError(t, err)

	assert.Contains(t, result.TreeView.BaseWidgetsByType["Control"], Risk)
	assert.NotContains(t, tree.BaseWidgetsByType["Control"], Risk)
	assert.Contains(t, result.TreeView.SubTreeFor, Risk)
	assert.Len(t, result.TreeView.BaseWidgetsByType[Risk], len(core.ObjectTypes)+2)
}

func TestHooks(t *testing.T) {
	assert.Equal(t, "/dashboard/lhn_risks.mustache", Hooks()[LHNHook])
	assert.Equal(t, Risk, ObjectTypeDecisionTree()["risk"])
}

func TestDefinition_DSLRoundTrip(t *testing.T) {
	ext := newExtension(t, Options{})

	dsl, err := parser.GenerateDefinition(ext.Catalog().Definition)
	require.NoError(t, err)
	assert.Contains(t, dsl, "module ggrc_risks")
	assert.Contains(t, dsl, "observe ggrc_core.Person.related_objects_via_search @Risk @Threat")

	def, err := parser.ParseDefinition(ModuleName, dsl)
	require.NoError(t, err)

	regenerated, err := parser.GenerateDefinition(def)
	require.NoError(t, err)
	assert.Equal(t, dsl, regenerated)

	rebuilt, err := catalog.Build(def)
	require.NoError(t, err)
	assert.Equal(t, ext.Catalog().Types(), rebuilt.Types())
}
