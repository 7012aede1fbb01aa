package catalog

import (
	"fmt"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/hashicorp/go-multierror"
)

// Build resolves a catalog definition into an immutable relation catalog.
//
// Mixins are merged in the order they are listed, later groups overriding
// relations and canonical hints of earlier ones; the type's own relations
// and canonical hints override all mixins. A mixin naming an undefined group
// is a build error. Types unknown to consumers are still inserted.
func Build(def *entities.CatalogDefinition) (*entities.RelationCatalog, error) {
	if def == nil {
		return nil, fmt.Errorf("catalog definition is required")
	}
	if def.Module == "" {
		return nil, fmt.Errorf("catalog module name is required")
	}

	var result *multierror.Error

	groups := make(map[string]*entities.RelationGroup, len(def.Groups))
	for _, g := range def.Groups {
		if _, exists := groups[g.Name]; exists {
			result = multierror.Append(result, fmt.Errorf("duplicate group name: %s", g.Name))
			continue
		}
		groups[g.Name] = g
	}

	catalog := &entities.RelationCatalog{
		Module:     def.Module,
		Definition: cloneDefinition(def),
		Entries:    make(map[entities.TypeName]*entities.TypeEntry, len(def.Types)),
	}

	for _, typeDef := range def.Types {
		if _, exists := catalog.Entries[typeDef.Type]; exists {
			result = multierror.Append(result, fmt.Errorf("duplicate type definition: %s", typeDef.Type))
			continue
		}

		entry := entities.NewTypeEntry(typeDef.Type)
		for _, mixin := range typeDef.Mixins {
			group, ok := groups[mixin]
			if !ok {
				result = multierror.Append(result, fmt.Errorf("type %s: %w: %s", typeDef.Type, entities.ErrUnknownMixin, mixin))
				continue
			}
			entry.Mixins = append(entry.Mixins, mixin)
			mergeRelations(entry, group.Relations, group.Canonical)
		}
		mergeRelations(entry, typeDef.Relations, typeDef.Canonical)

		catalog.Entries[typeDef.Type] = entry
	}

	for _, obs := range def.Observes {
		catalog.Observes = append(catalog.Observes, cloneObserve(obs))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("failed to build catalog %s: %w", def.Module, err)
	}

	return catalog, nil
}

// mergeRelations copies relations and canonical hints into the entry, overriding existing names
func mergeRelations(entry *entities.TypeEntry, relations []*entities.NamedRelation, canonical map[string][]entities.TypeName) {
	for _, rel := range relations {
		entry.Set(rel.Name, entities.CloneRelationSpec(rel.Spec))
	}
	for name, types := range canonical {
		entry.Canonical[name] = append([]entities.TypeName(nil), types...)
	}
}

func cloneDefinition(def *entities.CatalogDefinition) *entities.CatalogDefinition {
	cp := &entities.CatalogDefinition{Module: def.Module}
	for _, g := range def.Groups {
		cp.Groups = append(cp.Groups, &entities.RelationGroup{
			Name:      g.Name,
			Relations: cloneNamed(g.Relations),
			Canonical: cloneCanonical(g.Canonical),
		})
	}
	for _, t := range def.Types {
		cp.Types = append(cp.Types, &entities.TypeDefinition{
			Type:      t.Type,
			Mixins:    append([]string(nil), t.Mixins...),
			Relations: cloneNamed(t.Relations),
			Canonical: cloneCanonical(t.Canonical),
		})
	}
	for _, o := range def.Observes {
		cp.Observes = append(cp.Observes, cloneObserve(o))
	}
	return cp
}

func cloneNamed(relations []*entities.NamedRelation) []*entities.NamedRelation {
	out := make([]*entities.NamedRelation, 0, len(relations))
	for _, r := range relations {
		out = append(out, &entities.NamedRelation{Name: r.Name, Spec: entities.CloneRelationSpec(r.Spec)})
	}
	return out
}

func cloneCanonical(canonical map[string][]entities.TypeName) map[string][]entities.TypeName {
	if canonical == nil {
		return nil
	}
	out := make(map[string][]entities.TypeName, len(canonical))
	for k, v := range canonical {
		out[k] = append([]entities.TypeName(nil), v...)
	}
	return out
}

func cloneObserve(o *entities.ObserveExtension) *entities.ObserveExtension {
	return &entities.ObserveExtension{
		Module:   o.Module,
		Type:     o.Type,
		Relation: o.Relation,
		Types:    append([]entities.TypeName(nil), o.Types...),
	}
}

func cloneCatalog(c *entities.RelationCatalog) *entities.RelationCatalog {
	cp := &entities.RelationCatalog{
		Module:     c.Module,
		Definition: c.Definition,
		Entries:    make(map[entities.TypeName]*entities.TypeEntry, len(c.Entries)),
	}
	for t, e := range c.Entries {
		cp.Entries[t] = e.Clone()
	}
	for _, o := range c.Observes {
		cp.Observes = append(cp.Observes, cloneObserve(o))
	}
	return cp
}
