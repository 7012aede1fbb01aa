package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Validator validates the parsed catalog AST.
// References to relations defined by other modules cannot be checked here;
// they are resolved when catalogs are merged into a registry.
type Validator struct {
	catalog *CatalogAST
	errors  *multierror.Error
	groups  map[string]*GroupAST
}

// NewValidator creates a new Validator
func NewValidator(catalog *CatalogAST) *Validator {
	groups := make(map[string]*GroupAST)
	for _, group := range catalog.Groups {
		if _, exists := groups[group.Name]; !exists {
			groups[group.Name] = group
		}
	}
	return &Validator{
		catalog: catalog,
		groups:  groups,
	}
}

// Validate validates the catalog and returns error if invalid
func (v *Validator) Validate() error {
	v.validateUniqueNames()
	v.validateGroups()
	v.validateTypes()
	v.validateObserves()
	v.validateCircularReferences()

	return v.errors.ErrorOrNil()
}

func (v *Validator) addError(format string, args ...interface{}) {
	v.errors = multierror.Append(v.errors, fmt.Errorf(format, args...))
}

// validateUniqueNames checks for duplicate group and type names
func (v *Validator) validateUniqueNames() {
	seenGroups := make(map[string]bool)
	for _, group := range v.catalog.Groups {
		if seenGroups[group.Name] {
			v.addError("duplicate group name: %s", group.Name)
		}
		seenGroups[group.Name] = true
	}

	seenTypes := make(map[string]bool)
	for _, typ := range v.catalog.Types {
		if seenTypes[typ.Name] {
			v.addError("duplicate type name: %s", typ.Name)
		}
		seenTypes[typ.Name] = true
	}
}

// validateGroups validates each group's relations and canonical hints
func (v *Validator) validateGroups() {
	for _, group := range v.catalog.Groups {
		owner := "group " + group.Name
		v.validateRelations(owner, group.Relations)
		v.validateCanonical(owner, group.Canonical, nil)
	}
}

// validateTypes validates mixins, relations and canonical hints of each type
func (v *Validator) validateTypes() {
	for _, typ := range v.catalog.Types {
		owner := "type " + typ.Name

		seenMixins := make(map[string]bool)
		for _, mixin := range typ.Mixins {
			if seenMixins[mixin] {
				v.addError("%s: duplicate mixin: %s", owner, mixin)
			}
			seenMixins[mixin] = true
			if _, ok := v.groups[mixin]; !ok {
				v.addError("%s: unknown mixin: %s", owner, mixin)
			}
		}

		v.validateRelations(owner, typ.Relations)
		v.validateCanonical(owner, typ.Canonical, v.visibleRelations(typ))
	}
}

// validateRelations checks relation names and expressions within one block
func (v *Validator) validateRelations(owner string, relations []*RelationAST) {
	seen := make(map[string]bool)
	for _, relation := range relations {
		if seen[relation.Name] {
			v.addError("%s: duplicate relation name: %s", owner, relation.Name)
		}
		seen[relation.Name] = true

		switch e := relation.Expr.(type) {
		case *ProxyExprAST:
			if e.SourceAttr == e.TargetAttr {
				v.addError("%s: relation %s joins %s through the same attribute: %s", owner, relation.Name, e.JoinType, e.SourceAttr)
			}
		case *FilterExprAST:
			if e.Base == relation.Name {
				v.addError("%s: relation %s filters itself", owner, relation.Name)
			}
		case *UnionExprAST:
			members := make(map[string]bool)
			for _, member := range e.Members {
				if members[member] {
					v.addError("%s: relation %s lists %s more than once", owner, relation.Name, member)
				}
				members[member] = true
			}
		case *SearchExprAST:
			if strings.TrimSpace(e.Expression) == "" {
				v.addError("%s: relation %s has empty search expression", owner, relation.Name)
			}
		case nil:
			v.addError("%s: relation %s has no expression", owner, relation.Name)
		}
	}
}

// validateCanonical checks canonical hints. When visible is not nil, every hint
// must name a relation the block defines or mixes in.
func (v *Validator) validateCanonical(owner string, canonical []*CanonicalAST, visible map[string]bool) {
	seen := make(map[string]bool)
	for _, c := range canonical {
		if seen[c.Relation] {
			v.addError("%s: duplicate canonical hint: %s", owner, c.Relation)
		}
		seen[c.Relation] = true

		if visible != nil && !visible[c.Relation] {
			v.addError("%s: canonical hint references undefined relation: %s", owner, c.Relation)
		}
		if len(c.Types) == 0 {
			v.addError("%s: canonical hint %s lists no types", owner, c.Relation)
		}
	}
}

// visibleRelations returns the relations a type defines or mixes in
func (v *Validator) visibleRelations(typ *TypeAST) map[string]bool {
	visible := make(map[string]bool)
	for _, mixin := range typ.Mixins {
		if group, ok := v.groups[mixin]; ok {
			for _, relation := range group.Relations {
				visible[relation.Name] = true
			}
		}
	}
	for _, relation := range typ.Relations {
		visible[relation.Name] = true
	}
	return visible
}

// validateObserves checks observe statements
func (v *Validator) validateObserves() {
	for _, observe := range v.catalog.Observes {
		target := fmt.Sprintf("%s.%s.%s", observe.Module, observe.Type, observe.Relation)
		if v.catalog.Module != "" && observe.Module == v.catalog.Module {
			v.addError("observe %s: target must belong to another module", target)
		}
		if len(observe.Types) == 0 {
			v.addError("observe %s: no types listed", target)
		}
	}
}

// validateCircularReferences checks for union and filter cycles within each type.
// Relations not defined by the type or its mixins are ignored.
func (v *Validator) validateCircularReferences() {
	for _, typ := range v.catalog.Types {
		relations := make(map[string]RelationExprAST)
		for _, mixin := range typ.Mixins {
			if group, ok := v.groups[mixin]; ok {
				for _, relation := range group.Relations {
					relations[relation.Name] = relation.Expr
				}
			}
		}
		for _, relation := range typ.Relations {
			relations[relation.Name] = relation.Expr
		}

		reported := make(map[string]bool)
		for _, name := range sortedKeys(relations) {
			visited := map[string]bool{name: true}
			v.checkCircularRelation(typ.Name, relations, name, visited, []string{name}, reported)
		}
	}
}

// checkCircularRelation recursively follows union members and filter bases
func (v *Validator) checkCircularRelation(typeName string, relations map[string]RelationExprAST, name string, visited map[string]bool, path []string, reported map[string]bool) {
	for _, ref := range references(relations[name]) {
		if _, defined := relations[ref]; !defined {
			continue
		}
		if visited[ref] {
			cycle := append(append([]string(nil), path...), ref)
			key := typeName + ":" + cycleKey(path, ref)
			if !reported[key] {
				reported[key] = true
				v.addError("type %s: circular relation reference: %s", typeName, strings.Join(cycle, " -> "))
			}
			continue
		}
		visited[ref] = true
		v.checkCircularRelation(typeName, relations, ref, visited, append(path, ref), reported)
		delete(visited, ref)
	}
}

func references(expr RelationExprAST) []string {
	switch e := expr.(type) {
	case *FilterExprAST:
		return []string{e.Base}
	case *UnionExprAST:
		return e.Members
	default:
		return nil
	}
}

// cycleKey identifies a cycle by its members regardless of where it was entered
func cycleKey(path []string, ref string) string {
	start := 0
	for i, name := range path {
		if name == ref {
			start = i
			break
		}
	}
	members := append([]string(nil), path[start:]...)
	sort.Strings(members)
	return strings.Join(members, ",")
}

func sortedKeys(m map[string]RelationExprAST) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
