package catalog

import (
	"fmt"
	"sort"

	"github.com/asakaida/riskmap/internal/entities"
	"github.com/hashicorp/go-multierror"
)

// Registry merges the relation catalogs of several modules.
// Later modules take precedence over earlier ones on lookups.
// A Registry is read-only once created and safe for concurrent use.
type Registry struct {
	modules map[string]*entities.RelationCatalog
	order   []string
	engine  *CELEngine
}

// NewRegistry merges catalogs in the given order.
// Observe extensions are applied to copies of their target catalogs, then every
// filtered and union reference and every search expression is validated.
func NewRegistry(catalogs ...*entities.RelationCatalog) (*Registry, error) {
	engine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}

	r := &Registry{
		modules: make(map[string]*entities.RelationCatalog, len(catalogs)),
		engine:  engine,
	}

	for _, c := range catalogs {
		if c == nil {
			return nil, fmt.Errorf("catalog is nil")
		}
		if _, exists := r.modules[c.Module]; exists {
			return nil, fmt.Errorf("duplicate catalog module: %s", c.Module)
		}
		r.modules[c.Module] = cloneCatalog(c)
		r.order = append(r.order, c.Module)
	}

	var result *multierror.Error
	for _, name := range r.order {
		for _, obs := range r.modules[name].Observes {
			if err := r.applyObserve(name, obs); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	result = multierror.Append(result, r.validate()...)

	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid relation registry: %w", err)
	}

	return r, nil
}

// applyObserve extends the observed types of a search relation in another module
func (r *Registry) applyObserve(from string, obs *entities.ObserveExtension) error {
	target, ok := r.modules[obs.Module]
	if !ok {
		return fmt.Errorf("module %s: observe targets unknown module %s", from, obs.Module)
	}
	entry, ok := target.Entry(obs.Type)
	if !ok {
		return fmt.Errorf("module %s: observe target %w: %s.%s", from, entities.ErrTypeNotFound, obs.Module, obs.Type)
	}
	spec, ok := entry.Get(obs.Relation)
	if !ok {
		return fmt.Errorf("module %s: observe target %w: %s.%s.%s", from, entities.ErrRelationNotFound, obs.Module, obs.Type, obs.Relation)
	}
	search, ok := spec.(*entities.SearchRelation)
	if !ok {
		return fmt.Errorf("module %s: observe target %s.%s.%s is not a search relation", from, obs.Module, obs.Type, obs.Relation)
	}

	for _, t := range obs.Types {
		if !containsType(search.ObserveTypes, t) {
			search.ObserveTypes = append(search.ObserveTypes, t)
		}
	}
	return nil
}

// validate checks relation references and search expressions across all modules
func (r *Registry) validate() []error {
	var errs []error
	for _, name := range r.order {
		c := r.modules[name]
		for _, t := range c.Types() {
			entry := c.Entries[t]
			for _, relName := range entry.RelationNames() {
				spec := entry.Relations[relName]
				for _, ref := range entities.References(spec) {
					if _, err := r.Lookup(t, ref); err != nil {
						errs = append(errs, fmt.Errorf("module %s: %s.%s references %s: %w", name, t, relName, ref, err))
					}
				}
				if search, ok := spec.(*entities.SearchRelation); ok {
					if err := r.engine.ValidateExpression(search.Expression); err != nil {
						errs = append(errs, fmt.Errorf("module %s: %s.%s: %w", name, t, relName, err))
					}
				}
			}
		}
	}
	return errs
}

// Engine returns the CEL engine used for search relations
func (r *Registry) Engine() *CELEngine {
	return r.engine
}

// Module returns the merged catalog of a module
func (r *Registry) Module(name string) (*entities.RelationCatalog, bool) {
	c, ok := r.modules[name]
	return c, ok
}

// Modules returns module names in registration order
func (r *Registry) Modules() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the relation spec for a type from the highest precedence module defining it
func (r *Registry) Lookup(t entities.TypeName, relation string) (entities.RelationSpec, error) {
	typeKnown := false
	for i := len(r.order) - 1; i >= 0; i-- {
		entry, ok := r.modules[r.order[i]].Entry(t)
		if !ok {
			continue
		}
		typeKnown = true
		if spec, ok := entry.Get(relation); ok {
			return spec, nil
		}
	}
	if !typeKnown {
		return nil, fmt.Errorf("%w: %s", entities.ErrTypeNotFound, t)
	}
	return nil, fmt.Errorf("%w: %s.%s", entities.ErrRelationNotFound, t, relation)
}

// Relations returns every relation name defined for a type across modules, sorted
func (r *Registry) Relations(t entities.TypeName) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range r.order {
		entry, ok := r.modules[name].Entry(t)
		if !ok {
			continue
		}
		for _, rel := range entry.RelationNames() {
			if !seen[rel] {
				seen[rel] = true
				names = append(names, rel)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Canonical returns the canonical hint for a type's relation, or nil when none is set
func (r *Registry) Canonical(t entities.TypeName, relation string) []entities.TypeName {
	for i := len(r.order) - 1; i >= 0; i-- {
		entry, ok := r.modules[r.order[i]].Entry(t)
		if !ok {
			continue
		}
		if types, ok := entry.Canonical[relation]; ok {
			return append([]entities.TypeName(nil), types...)
		}
	}
	return nil
}

func containsType(types []entities.TypeName, t entities.TypeName) bool {
	for _, existing := range types {
		if existing == t {
			return true
		}
	}
	return false
}
