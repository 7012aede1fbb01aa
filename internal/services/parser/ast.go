package parser

// CatalogAST represents the parsed catalog AST
type CatalogAST struct {
	Module   string // Optional "module" declaration
	Groups   []*GroupAST
	Types    []*TypeAST
	Observes []*ObserveAST
}

// GroupAST represents a relation group definition in the AST
// Example: "group ownable { relation owners = proxy(ObjectOwner, ownable, person, object_owners) @Person }"
type GroupAST struct {
	Name      string
	Relations []*RelationAST
	Canonical []*CanonicalAST
}

// TypeAST represents a type entry in the AST
type TypeAST struct {
	Name      string
	Mixins    []string
	Relations []*RelationAST
	Canonical []*CanonicalAST
}

// RelationAST represents a relation definition in the AST
type RelationAST struct {
	Name string
	Expr RelationExprAST
}

// CanonicalAST represents a canonical hint
// Example: "canonical related_objects_as_source @Risk @Threat"
type CanonicalAST struct {
	Relation string
	Types    []string
}

// ObserveAST adds observed types to another module's search relation
// Example: "observe ggrc_core.Person.related_objects_via_search @Risk @Threat"
type ObserveAST struct {
	Module   string
	Type     string
	Relation string
	Types    []string
}

// RelationExprAST is the interface for all relation expression types
type RelationExprAST interface {
	isRelationExpr()
}

// ProxyExprAST reaches objects through a join entity
// Example: "proxy(Relationship, source, destination, related_destinations) @Control"
type ProxyExprAST struct {
	JoinType     string
	SourceAttr   string
	TargetAttr   string
	JoinRelation string
	TargetType   string // Optional "@Type" suffix
}

func (e *ProxyExprAST) isRelationExpr() {}

// FilterExprAST restricts a relation to one type
// Example: "related_objects[Program]"
type FilterExprAST struct {
	Base string
	Type string
}

func (e *FilterExprAST) isRelationExpr() {}

// UnionExprAST is the union of relations
// Example: "related_objects_as_source or related_objects_as_destination", or "none" when empty
type UnionExprAST struct {
	Members []string
}

func (e *UnionExprAST) isRelationExpr() {}

// SearchExprAST is a search relation
// Example: `search("object.type == \"Risk\"") observe @Risk`
type SearchExprAST struct {
	Expression string
	Observe    []string
}

func (e *SearchExprAST) isRelationExpr() {}
