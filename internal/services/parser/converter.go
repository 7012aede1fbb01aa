package parser

import (
	"fmt"
	"sort"

	"github.com/asakaida/riskmap/internal/entities"
)

// ParseDefinition parses and validates catalog DSL and converts it to a catalog definition.
// module is used when the DSL has no module declaration; when both are set they must match.
func ParseDefinition(module, dsl string) (*entities.CatalogDefinition, error) {
	p := NewParser(NewLexer(dsl))
	ast, err := p.Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog DSL: %w", err)
	}

	if err := NewValidator(ast).Validate(); err != nil {
		return nil, fmt.Errorf("catalog validation failed: %w", err)
	}

	return ASTToDefinition(module, ast)
}

// GenerateDefinition renders a catalog definition as DSL
func GenerateDefinition(def *entities.CatalogDefinition) (string, error) {
	ast, err := DefinitionToAST(def)
	if err != nil {
		return "", err
	}
	return NewGenerator().Generate(ast), nil
}

// ASTToDefinition converts CatalogAST to entities.CatalogDefinition
func ASTToDefinition(module string, ast *CatalogAST) (*entities.CatalogDefinition, error) {
	switch {
	case module == "" && ast.Module == "":
		return nil, fmt.Errorf("catalog module name is required")
	case module == "":
		module = ast.Module
	case ast.Module != "" && ast.Module != module:
		return nil, fmt.Errorf("catalog declares module %s, expected %s", ast.Module, module)
	}

	def := &entities.CatalogDefinition{
		Module:   module,
		Groups:   make([]*entities.RelationGroup, 0, len(ast.Groups)),
		Types:    make([]*entities.TypeDefinition, 0, len(ast.Types)),
		Observes: make([]*entities.ObserveExtension, 0, len(ast.Observes)),
	}

	for _, groupAST := range ast.Groups {
		relations, err := convertRelations(groupAST.Relations)
		if err != nil {
			return nil, fmt.Errorf("failed to convert group %s: %w", groupAST.Name, err)
		}
		def.Groups = append(def.Groups, &entities.RelationGroup{
			Name:      groupAST.Name,
			Relations: relations,
			Canonical: convertCanonical(groupAST.Canonical),
		})
	}

	for _, typeAST := range ast.Types {
		relations, err := convertRelations(typeAST.Relations)
		if err != nil {
			return nil, fmt.Errorf("failed to convert type %s: %w", typeAST.Name, err)
		}
		def.Types = append(def.Types, &entities.TypeDefinition{
			Type:      entities.TypeName(typeAST.Name),
			Mixins:    append([]string(nil), typeAST.Mixins...),
			Relations: relations,
			Canonical: convertCanonical(typeAST.Canonical),
		})
	}

	for _, observeAST := range ast.Observes {
		def.Observes = append(def.Observes, &entities.ObserveExtension{
			Module:   observeAST.Module,
			Type:     entities.TypeName(observeAST.Type),
			Relation: observeAST.Relation,
			Types:    toTypeNames(observeAST.Types),
		})
	}

	return def, nil
}

// DefinitionToAST converts entities.CatalogDefinition to CatalogAST
func DefinitionToAST(def *entities.CatalogDefinition) (*CatalogAST, error) {
	ast := &CatalogAST{
		Module:   def.Module,
		Groups:   make([]*GroupAST, 0, len(def.Groups)),
		Types:    make([]*TypeAST, 0, len(def.Types)),
		Observes: make([]*ObserveAST, 0, len(def.Observes)),
	}

	for _, group := range def.Groups {
		relations, err := convertRelationsToAST(group.Relations)
		if err != nil {
			return nil, fmt.Errorf("failed to convert group %s: %w", group.Name, err)
		}
		ast.Groups = append(ast.Groups, &GroupAST{
			Name:      group.Name,
			Relations: relations,
			Canonical: convertCanonicalToAST(group.Canonical),
		})
	}

	for _, typ := range def.Types {
		relations, err := convertRelationsToAST(typ.Relations)
		if err != nil {
			return nil, fmt.Errorf("failed to convert type %s: %w", typ.Type, err)
		}
		ast.Types = append(ast.Types, &TypeAST{
			Name:      string(typ.Type),
			Mixins:    append([]string{}, typ.Mixins...),
			Relations: relations,
			Canonical: convertCanonicalToAST(typ.Canonical),
		})
	}

	for _, observe := range def.Observes {
		ast.Observes = append(ast.Observes, &ObserveAST{
			Module:   observe.Module,
			Type:     string(observe.Type),
			Relation: observe.Relation,
			Types:    fromTypeNames(observe.Types),
		})
	}

	return ast, nil
}

// convertRelations converts RelationAST list to entities.NamedRelation list
func convertRelations(relations []*RelationAST) ([]*entities.NamedRelation, error) {
	out := make([]*entities.NamedRelation, 0, len(relations))
	for _, relAST := range relations {
		spec, err := convertRelationExpr(relAST.Expr)
		if err != nil {
			return nil, fmt.Errorf("failed to convert relation %s: %w", relAST.Name, err)
		}
		out = append(out, &entities.NamedRelation{Name: relAST.Name, Spec: spec})
	}
	return out, nil
}

// convertRelationExpr converts RelationExprAST to entities.RelationSpec
func convertRelationExpr(ast RelationExprAST) (entities.RelationSpec, error) {
	switch e := ast.(type) {
	case *ProxyExprAST:
		return &entities.DirectRelation{
			TargetType:   entities.TypeName(e.TargetType),
			JoinType:     entities.TypeName(e.JoinType),
			SourceAttr:   e.SourceAttr,
			TargetAttr:   e.TargetAttr,
			JoinRelation: e.JoinRelation,
		}, nil

	case *FilterExprAST:
		return &entities.FilteredRelation{
			Base: e.Base,
			Type: entities.TypeName(e.Type),
		}, nil

	case *UnionExprAST:
		return &entities.UnionRelation{
			Members: append([]string{}, e.Members...),
		}, nil

	case *SearchExprAST:
		return &entities.SearchRelation{
			Expression:   e.Expression,
			ObserveTypes: toTypeNames(e.Observe),
		}, nil

	default:
		return nil, fmt.Errorf("unknown relation expression type: %T", ast)
	}
}

// convertRelationsToAST converts entities.NamedRelation list to RelationAST list
func convertRelationsToAST(relations []*entities.NamedRelation) ([]*RelationAST, error) {
	out := make([]*RelationAST, 0, len(relations))
	for _, rel := range relations {
		expr, err := convertRelationSpecToAST(rel.Spec)
		if err != nil {
			return nil, fmt.Errorf("failed to convert relation %s: %w", rel.Name, err)
		}
		out = append(out, &RelationAST{Name: rel.Name, Expr: expr})
	}
	return out, nil
}

// convertRelationSpecToAST converts entities.RelationSpec to RelationExprAST
func convertRelationSpecToAST(spec entities.RelationSpec) (RelationExprAST, error) {
	switch s := spec.(type) {
	case *entities.DirectRelation:
		return &ProxyExprAST{
			JoinType:     string(s.JoinType),
			SourceAttr:   s.SourceAttr,
			TargetAttr:   s.TargetAttr,
			JoinRelation: s.JoinRelation,
			TargetType:   string(s.TargetType),
		}, nil

	case *entities.FilteredRelation:
		return &FilterExprAST{
			Base: s.Base,
			Type: string(s.Type),
		}, nil

	case *entities.UnionRelation:
		return &UnionExprAST{
			Members: append([]string{}, s.Members...),
		}, nil

	case *entities.SearchRelation:
		return &SearchExprAST{
			Expression: s.Expression,
			Observe:    fromTypeNames(s.ObserveTypes),
		}, nil

	default:
		return nil, fmt.Errorf("unknown relation spec type: %T", spec)
	}
}

// convertCanonical converts canonical hints to a map keyed by relation name
func convertCanonical(canonical []*CanonicalAST) map[string][]entities.TypeName {
	if len(canonical) == 0 {
		return nil
	}
	out := make(map[string][]entities.TypeName, len(canonical))
	for _, c := range canonical {
		out[c.Relation] = toTypeNames(c.Types)
	}
	return out
}

// convertCanonicalToAST converts canonical hints to AST, sorted by relation name
func convertCanonicalToAST(canonical map[string][]entities.TypeName) []*CanonicalAST {
	names := make([]string, 0, len(canonical))
	for name := range canonical {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*CanonicalAST, 0, len(names))
	for _, name := range names {
		out = append(out, &CanonicalAST{Relation: name, Types: fromTypeNames(canonical[name])})
	}
	return out
}

func toTypeNames(types []string) []entities.TypeName {
	if types == nil {
		return nil
	}
	out := make([]entities.TypeName, 0, len(types))
	for _, t := range types {
		out = append(out, entities.TypeName(t))
	}
	return out
}

func fromTypeNames(types []entities.TypeName) []string {
	if types == nil {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}
