package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/asakaida/riskmap/internal/entities"
)

// MaxDepth is the maximum relation nesting followed by the expander
const MaxDepth = 50

// ExpandNode represents a node in a relation tree
type ExpandNode struct {
	Kind       string            // "union", "filter", "direct", "search"
	Type       entities.TypeName // Type the relation belongs to
	Relation   string            // Relation name
	Filter     entities.TypeName // Filter type, only for "filter" nodes
	Join       string            // Join description, only for "direct" nodes (e.g., "Relationship.source->destination")
	Expression string            // CEL expression, only for "search" nodes
	Children   []*ExpandNode
}

// Expander explains how a relation is composed from other relations
type Expander struct {
	registry *Registry
}

// NewExpander creates a new Expander
func NewExpander(registry *Registry) *Expander {
	return &Expander{registry: registry}
}

// Expand builds the relation tree for a type's relation
func (e *Expander) Expand(t entities.TypeName, relation string) (*ExpandNode, error) {
	if t == "" {
		return nil, fmt.Errorf("type is required")
	}
	if relation == "" {
		return nil, fmt.Errorf("relation is required")
	}
	return e.expand(t, relation, []string{}, 0)
}

func (e *Expander) expand(t entities.TypeName, relation string, path []string, depth int) (*ExpandNode, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("maximum recursion depth exceeded (depth: %d)", depth)
	}
	for _, seen := range path {
		if seen == relation {
			return nil, fmt.Errorf("circular relation reference: %s.%s", t, strings.Join(append(path, relation), " -> "))
		}
	}

	spec, err := e.registry.Lookup(t, relation)
	if err != nil {
		return nil, err
	}

	node := &ExpandNode{Type: t, Relation: relation}
	path = append(path, relation)

	switch s := spec.(type) {
	case *entities.UnionRelation:
		node.Kind = "union"
		node.Children = make([]*ExpandNode, 0, len(s.Members))
		for _, member := range s.Members {
			child, err := e.expand(t, member, path, depth+1)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}

	case *entities.FilteredRelation:
		node.Kind = "filter"
		node.Filter = s.Type
		child, err := e.expand(t, s.Base, path, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = []*ExpandNode{child}

	case *entities.DirectRelation:
		node.Kind = "direct"
		node.Join = fmt.Sprintf("%s.%s->%s", s.JoinType, s.SourceAttr, s.TargetAttr)

	case *entities.SearchRelation:
		node.Kind = "search"
		node.Expression = s.Expression

	default:
		return nil, fmt.Errorf("unsupported relation spec %T for %s.%s", spec, t, relation)
	}

	return node, nil
}

// Targets returns the concrete types a relation may yield.
// bounded is false when the relation can reach objects of any type.
func (e *Expander) Targets(t entities.TypeName, relation string) (types []entities.TypeName, bounded bool, err error) {
	acc := make(map[entities.TypeName]bool)
	bounded, err = e.targets(t, relation, acc, []string{}, 0)
	if err != nil {
		return nil, false, err
	}
	if !bounded {
		return nil, false, nil
	}
	for target := range acc {
		types = append(types, target)
	}
	sortTypes(types)
	return types, true, nil
}

func (e *Expander) targets(t entities.TypeName, relation string, acc map[entities.TypeName]bool, path []string, depth int) (bool, error) {
	if depth > MaxDepth {
		return false, fmt.Errorf("maximum recursion depth exceeded (depth: %d)", depth)
	}
	for _, seen := range path {
		if seen == relation {
			return false, fmt.Errorf("circular relation reference: %s.%s", t, strings.Join(append(path, relation), " -> "))
		}
	}

	spec, err := e.registry.Lookup(t, relation)
	if err != nil {
		return false, err
	}
	path = append(path, relation)

	switch s := spec.(type) {
	case *entities.FilteredRelation:
		acc[s.Type] = true
		return true, nil

	case *entities.UnionRelation:
		bounded := true
		for _, member := range s.Members {
			memberBounded, err := e.targets(t, member, acc, path, depth+1)
			if err != nil {
				return false, err
			}
			bounded = bounded && memberBounded
		}
		return bounded, nil

	case *entities.DirectRelation:
		if s.TargetType != "" {
			acc[s.TargetType] = true
			return true, nil
		}
		canonical := e.registry.Canonical(t, relation)
		if canonical == nil {
			return false, nil
		}
		for _, c := range canonical {
			acc[c] = true
		}
		return true, nil

	case *entities.SearchRelation:
		if len(s.ObserveTypes) == 0 {
			return false, nil
		}
		for _, o := range s.ObserveTypes {
			acc[o] = true
		}
		return true, nil
	}

	return false, fmt.Errorf("unsupported relation spec %T for %s.%s", spec, t, relation)
}

func sortTypes(types []entities.TypeName) {
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
}
