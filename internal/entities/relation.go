package entities

// RelationSpec describes how a type reaches related objects
type RelationSpec interface {
	isRelationSpec()
}

// Direction is the traversal direction of a direct relation through its join entity
type Direction int

const (
	DirectionNone Direction = iota
	DirectionSourceToDestination
	DirectionDestinationToSource
)

// String returns the direction name
func (d Direction) String() string {
	switch d {
	case DirectionSourceToDestination:
		return "source_to_destination"
	case DirectionDestinationToSource:
		return "destination_to_source"
	default:
		return "none"
	}
}

// DirectRelation reaches objects through an intermediate join entity
// Example: "proxy(Relationship, source, destination, related_destinations)"
// means: join rows of type Relationship whose "source" is this object, yielding their "destination"
type DirectRelation struct {
	TargetType   TypeName // Restricts the far side to one type, empty for any type
	JoinType     TypeName // Join entity type (e.g., "Relationship", "ObjectOwner")
	SourceAttr   string   // Join attribute pointing at this object (e.g., "source")
	TargetAttr   string   // Join attribute pointing at the related object (e.g., "destination")
	JoinRelation string   // Attribute on this object listing join rows (e.g., "related_destinations")
}

func (r *DirectRelation) isRelationSpec() {}

// Direction returns the traversal direction implied by the join attributes
func (r *DirectRelation) Direction() Direction {
	switch {
	case r.SourceAttr == "source" && r.TargetAttr == "destination":
		return DirectionSourceToDestination
	case r.SourceAttr == "destination" && r.TargetAttr == "source":
		return DirectionDestinationToSource
	default:
		return DirectionNone
	}
}

// FilteredRelation restricts a base relation to instances of one type
// Example: "related_objects[Program]"
type FilteredRelation struct {
	Base string
	Type TypeName
}

func (r *FilteredRelation) isRelationSpec() {}

// UnionRelation is the set union of several relations of the same type.
// An empty union yields nothing (e.g., "orphaned_objects = none").
type UnionRelation struct {
	Members []string
}

func (r *UnionRelation) isRelationSpec() {}

// SearchRelation is computed by a query instead of graph traversal.
// Expression is a CEL predicate over "object" and "subject".
type SearchRelation struct {
	Expression   string
	ObserveTypes []TypeName // Types whose changes invalidate the result
}

func (r *SearchRelation) isRelationSpec() {}

// NamedRelation binds a relation name to its spec
type NamedRelation struct {
	Name string
	Spec RelationSpec
}

// CloneRelationSpec returns a deep copy of a relation spec
func CloneRelationSpec(spec RelationSpec) RelationSpec {
	switch s := spec.(type) {
	case *DirectRelation:
		cp := *s
		return &cp
	case *FilteredRelation:
		cp := *s
		return &cp
	case *UnionRelation:
		return &UnionRelation{Members: append([]string{}, s.Members...)}
	case *SearchRelation:
		return &SearchRelation{
			Expression:   s.Expression,
			ObserveTypes: append([]TypeName(nil), s.ObserveTypes...),
		}
	default:
		return spec
	}
}

// References returns the relation names a spec depends on within its own type
func References(spec RelationSpec) []string {
	switch s := spec.(type) {
	case *FilteredRelation:
		return []string{s.Base}
	case *UnionRelation:
		return s.Members
	default:
		return nil
	}
}
