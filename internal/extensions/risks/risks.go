// Package risks configures the Risk and Threat object types: their relation
// catalog, the widgets shown for them and the widgets they add to other pages.
package risks

import (
	"context"
	"fmt"
	"regexp"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/asakaida/riskmap/internal/extensions/core"
	"github.com/asakaida/riskmap/internal/infrastructure/logging"
	"github.com/asakaida/riskmap/internal/services/catalog"
	"github.com/asakaida/riskmap/internal/services/dispatch"
	"github.com/asakaida/riskmap/internal/services/widgets"
	"go.uber.org/zap"
)

// ModuleName is the catalog and widget module name of the extension
const ModuleName = "ggrc_risks"

const (
	Risk   entities.TypeName = "Risk"
	Threat entities.TypeName = "Threat"
	Person entities.TypeName = "Person"

	multitypeSearch entities.TypeName = "MultitypeSearch"
	relationship    entities.TypeName = "Relationship"
	objectOwner     entities.TypeName = "ObjectOwner"

	// riskOrder places the risk tab between objectives (40) and controls (50)
	riskOrder = 45
)

// LHNHook is the left navigation section template registered by the extension
const LHNHook = "LHN.Sections_risk"

// Models returns the metadata of the Risk and Threat types
func Models() []*entities.Model {
	return []*entities.Model{
		{Name: Risk, TitleSingular: "Risk", TitlePlural: "Risks", ModelPlural: "Risks", TableSingular: "risk", TablePlural: "risks"},
		{Name: Threat, TitleSingular: "Threat", TitlePlural: "Threats", ModelPlural: "Threats", TableSingular: "threat", TablePlural: "threats"},
	}
}

// ObjectTypeDecisionTree maps lower case object keys to the types this extension introduces
func ObjectTypeDecisionTree() map[string]entities.TypeName {
	return map[string]entities.TypeName{
		"risk":   Risk,
		"threat": Threat,
	}
}

// Hooks returns the template hooks registered by the extension, relative to the template root
func Hooks() map[string]string {
	return map[string]string{
		LHNHook: "/dashboard/lhn_risks.mustache",
	}
}

// Definition builds the ggrc_risks catalog definition for the known object types.
//
// Risk and Threat mix in every shared group (each the other's "related_*" group)
// and own an empty orphaned_objects relation. Every known type mixes in the
// generic related groups with a canonical hint pointing at Risk and Threat.
func Definition(known []entities.TypeName, models *entities.ModelRegistry) *entities.CatalogDefinition {
	knownCopy := append([]entities.TypeName(nil), known...)

	relatedObjects := &entities.RelationGroup{
		Name: "related_objects",
		Canonical: map[string][]entities.TypeName{
			"related_objects_as_source": knownCopy,
		},
	}
	for _, t := range known {
		if t == multitypeSearch {
			continue
		}
		relatedObjects.Relations = append(relatedObjects.Relations, &entities.NamedRelation{
			Name: entities.PrefixRelated.Mapping(models.Get(t).TablePlural),
			Spec: &entities.FilteredRelation{Base: "related_objects", Type: t},
		})
	}

	groups := []*entities.RelationGroup{
		{
			Name: "related",
			Relations: []*entities.NamedRelation{
				{
					Name: "related_objects_as_source",
					Spec: &entities.DirectRelation{
						JoinType:     relationship,
						SourceAttr:   "source",
						TargetAttr:   "destination",
						JoinRelation: "related_destinations",
					},
				},
				{
					Name: "related_objects_as_destination",
					Spec: &entities.DirectRelation{
						JoinType:     relationship,
						SourceAttr:   "destination",
						TargetAttr:   "source",
						JoinRelation: "related_sources",
					},
				},
				{
					Name: "related_objects",
					Spec: &entities.UnionRelation{Members: []string{"related_objects_as_source", "related_objects_as_destination"}},
				},
			},
		},
		relatedObjects,
		centralGroup("related_risk", Risk, models, knownCopy),
		centralGroup("related_threat", Threat, models, knownCopy),
		{
			Name: "ownable",
			Relations: []*entities.NamedRelation{
				{
					Name: "owners",
					Spec: &entities.DirectRelation{
						TargetType:   Person,
						JoinType:     objectOwner,
						SourceAttr:   "ownable",
						TargetAttr:   "person",
						JoinRelation: "object_owners",
					},
				},
			},
		},
	}

	orphaned := []*entities.NamedRelation{{Name: "orphaned_objects", Spec: &entities.UnionRelation{Members: []string{}}}}
	types := []*entities.TypeDefinition{
		{Type: Risk, Mixins: []string{"related", "related_objects", "related_threat", "ownable"}, Relations: orphaned},
		{Type: Threat, Mixins: []string{"related", "related_objects", "related_risk", "ownable"}, Relations: orphaned},
	}

	for _, t := range known {
		types = append(types, &entities.TypeDefinition{
			Type:      t,
			Mixins:    []string{"related", "related_risk", "related_threat"},
			Relations: personRelations(t, models),
			Canonical: map[string][]entities.TypeName{
				"related_objects_as_source": {Risk, Threat},
			},
		})
	}

	return &entities.CatalogDefinition{
		Module: ModuleName,
		Groups: groups,
		Types:  types,
		Observes: []*entities.ObserveExtension{
			{
				Module:   core.ModuleName,
				Type:     Person,
				Relation: core.SearchRelation,
				Types:    []entities.TypeName{Risk, Threat},
			},
		},
	}
}

// centralGroup builds the group relating any known type to one central type
func centralGroup(name string, central entities.TypeName, models *entities.ModelRegistry, known []entities.TypeName) *entities.RelationGroup {
	return &entities.RelationGroup{
		Name: name,
		Relations: []*entities.NamedRelation{
			{
				Name: entities.PrefixRelated.Mapping(models.Get(central).TablePlural),
				Spec: &entities.FilteredRelation{Base: "related_objects", Type: central},
			},
		},
		Canonical: map[string][]entities.TypeName{
			"related_objects_as_source": append([]entities.TypeName{central}, known...),
		},
	}
}

// personRelations returns the owned and all relations a person has for the central types
func personRelations(t entities.TypeName, models *entities.ModelRegistry) []*entities.NamedRelation {
	if t != Person {
		return nil
	}

	var relations []*entities.NamedRelation
	for _, central := range []entities.TypeName{Risk, Threat} {
		plural := models.Get(central).TablePlural
		relations = append(relations,
			&entities.NamedRelation{
				Name: entities.PrefixOwned.Mapping(plural),
				Spec: &entities.FilteredRelation{Base: core.SearchRelation, Type: central},
			},
			&entities.NamedRelation{
				Name: entities.PrefixAll.Mapping(plural),
				Spec: &entities.SearchRelation{
					Expression:   fmt.Sprintf("object.type == %q", string(central)),
					ObserveTypes: []entities.TypeName{central},
				},
			},
		)
	}
	return relations
}

// Options configures the extension
type Options struct {
	KnownTypes []entities.TypeName // nil uses core.ObjectTypes
	TreeDepth  int
	SearchPath *regexp.Regexp
	Logger     *zap.Logger
}

// Extension bundles the catalog, widget builder and dispatcher of the module
type Extension struct {
	known      []entities.TypeName
	models     *entities.ModelRegistry
	catalog    *entities.RelationCatalog
	builder    *widgets.Builder
	dispatchTo dispatch.Config
	logger     *zap.Logger
}

// New builds the extension catalog and widget configuration
func New(opts Options) (*Extension, error) {
	known := opts.KnownTypes
	if known == nil {
		known = core.ObjectTypes
	}
	logger := logging.OrNop(opts.Logger)

	models := entities.NewModelRegistry(append(core.Models(), Models()...)...)

	relations, err := catalog.Build(Definition(known, models))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s catalog: %w", ModuleName, err)
	}

	builder := widgets.NewBuilder(widgets.Options{
		Models:       models,
		Primary:      Risk,
		Secondary:    Threat,
		Generic:      known,
		Skip:         []entities.TypeName{multitypeSearch},
		PrimaryOrder: riskOrder,
		TreeDepth:    opts.TreeDepth,
	})

	logger.Info("risk extension configured",
		zap.String("module", ModuleName),
		zap.Int("known_types", len(known)),
		zap.Int("catalog_types", len(relations.Entries)),
	)

	return &Extension{
		known:   append([]entities.TypeName(nil), known...),
		models:  models,
		catalog: relations,
		builder: builder,
		dispatchTo: dispatch.Config{
			Module:     ModuleName,
			Primary:    Risk,
			Secondary:  Threat,
			Aggregator: Person,
			Generic:    known,
			SearchPath: opts.SearchPath,
		},
		logger: logger,
	}, nil
}

// Catalog returns the extension relation catalog
func (e *Extension) Catalog() *entities.RelationCatalog {
	return e.catalog
}

// Models returns the model registry covering core and extension types
func (e *Extension) Models() *entities.ModelRegistry {
	return e.models
}

// KnownTypes returns the generic object types the extension relates to
func (e *Extension) KnownTypes() []entities.TypeName {
	return append([]entities.TypeName(nil), e.known...)
}

// Builder returns the widget descriptor builder
func (e *Extension) Builder() *widgets.Builder {
	return e.builder
}

// DispatchConfig returns the page dispatch configuration
func (e *Extension) DispatchConfig() dispatch.Config {
	return e.dispatchTo
}

// InitWidgets builds and registers the widgets for a page load
func (e *Extension) InitWidgets(ctx context.Context, page entities.PageContext, tree *entities.TreeViewConfig, registrar dispatch.Registrar) (*dispatch.Result, error) {
	return dispatch.NewDispatcher(e.dispatchTo, e.builder, registrar, e.logger).Run(ctx, page, tree)
}
