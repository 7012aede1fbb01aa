package entities

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrRelationNotFound is returned when a type has no relation with the requested name
	ErrRelationNotFound = errors.New("relation not found")
	// ErrTypeNotFound is returned when a catalog has no entry for a type
	ErrTypeNotFound = errors.New("type not found")
	// ErrUnknownMixin is returned when a type mixes in a group that is not defined
	ErrUnknownMixin = errors.New("unknown mixin")
	// ErrCatalogNotFound is returned when no catalog is stored for a module
	ErrCatalogNotFound = errors.New("catalog not found")
	// ErrInvalidCatalog is returned when catalog DSL cannot be parsed, built or merged
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrCatalogInUse is returned when deleting a catalog other stored catalogs depend on
	ErrCatalogInUse = errors.New("catalog in use")
)

// RelationGroup is a named bundle of relations merged into several types
// Example: "group related { relation related_objects = ... }"
type RelationGroup struct {
	Name      string
	Relations []*NamedRelation
	Canonical map[string][]TypeName // Relation name -> concrete types it may point at
}

// TypeDefinition is the authored relation entry of one type
type TypeDefinition struct {
	Type      TypeName
	Mixins    []string // Group names merged in order
	Relations []*NamedRelation
	Canonical map[string][]TypeName
}

// ObserveExtension adds observed types to a search relation owned by another module
// Example: "observe ggrc_core.Person.related_objects_via_search @Risk @Threat"
type ObserveExtension struct {
	Module   string
	Type     TypeName
	Relation string
	Types    []TypeName
}

// CatalogDefinition is the authored form of a module's relation catalog
type CatalogDefinition struct {
	Module   string
	Groups   []*RelationGroup
	Types    []*TypeDefinition
	Observes []*ObserveExtension
}

// GetGroup returns the group definition by name
func (d *CatalogDefinition) GetGroup(name string) *RelationGroup {
	for _, g := range d.Groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// GetType returns the type definition by name
func (d *CatalogDefinition) GetType(name TypeName) *TypeDefinition {
	for _, t := range d.Types {
		if t.Type == name {
			return t
		}
	}
	return nil
}

// TypeEntry is the resolved relation table of one type after mixin merge
type TypeEntry struct {
	Type      TypeName
	Mixins    []string
	Relations map[string]RelationSpec
	Canonical map[string][]TypeName
	order     []string
}

// NewTypeEntry creates an empty entry for a type
func NewTypeEntry(t TypeName) *TypeEntry {
	return &TypeEntry{
		Type:      t,
		Relations: make(map[string]RelationSpec),
		Canonical: make(map[string][]TypeName),
	}
}

// Set stores a relation, keeping first-insertion order for listing
func (e *TypeEntry) Set(name string, spec RelationSpec) {
	if _, exists := e.Relations[name]; !exists {
		e.order = append(e.order, name)
	}
	e.Relations[name] = spec
}

// Get returns the relation spec by name
func (e *TypeEntry) Get(name string) (RelationSpec, bool) {
	spec, ok := e.Relations[name]
	return spec, ok
}

// RelationNames returns relation names in the order they were first defined
func (e *TypeEntry) RelationNames() []string {
	return append([]string(nil), e.order...)
}

// HasMixin reports whether the entry was merged with the named group
func (e *TypeEntry) HasMixin(name string) bool {
	for _, m := range e.Mixins {
		if m == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the entry
func (e *TypeEntry) Clone() *TypeEntry {
	cp := NewTypeEntry(e.Type)
	cp.Mixins = append([]string(nil), e.Mixins...)
	for _, name := range e.order {
		cp.Set(name, CloneRelationSpec(e.Relations[name]))
	}
	for k, v := range e.Canonical {
		cp.Canonical[k] = append([]TypeName(nil), v...)
	}
	return cp
}

// RelationCatalog is the resolved relation table of one module.
// It is built once and must not be mutated afterwards.
type RelationCatalog struct {
	Module     string
	Definition *CatalogDefinition
	Entries    map[TypeName]*TypeEntry
	Observes   []*ObserveExtension
}

// Entry returns the resolved entry for a type
func (c *RelationCatalog) Entry(t TypeName) (*TypeEntry, bool) {
	e, ok := c.Entries[t]
	return e, ok
}

// Types returns all types with an entry, sorted by name
func (c *RelationCatalog) Types() []TypeName {
	types := make([]TypeName, 0, len(c.Entries))
	for t := range c.Entries {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Lookup returns the relation spec for a type and relation name
func (c *RelationCatalog) Lookup(t TypeName, relation string) (RelationSpec, error) {
	entry, ok := c.Entries[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s in module %s", ErrTypeNotFound, t, c.Module)
	}
	spec, ok := entry.Get(relation)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s in module %s", ErrRelationNotFound, t, relation, c.Module)
	}
	return spec, nil
}

// StoredCatalog is a catalog DSL version persisted for a module
type StoredCatalog struct {
	Module    string
	Version   string // Catalog version (UUIDv7, time ordered)
	DSL       string
	CreatedAt time.Time
}

// CatalogVersion is a lightweight catalog version for listing
type CatalogVersion struct {
	Version   string
	CreatedAt time.Time
}
