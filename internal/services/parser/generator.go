package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Generator generates DSL from AST
type Generator struct {
	indent string
}

// NewGenerator creates a new Generator
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
	}
}

// Generate generates DSL string from CatalogAST
func (g *Generator) Generate(catalog *CatalogAST) string {
	var blocks []string

	if catalog.Module != "" {
		blocks = append(blocks, fmt.Sprintf("module %s", catalog.Module))
	}
	for _, group := range catalog.Groups {
		blocks = append(blocks, g.generateBlock("group", group.Name, nil, group.Relations, group.Canonical))
	}
	for _, typ := range catalog.Types {
		blocks = append(blocks, g.generateBlock("type", typ.Name, typ.Mixins, typ.Relations, typ.Canonical))
	}
	if len(catalog.Observes) > 0 {
		lines := make([]string, 0, len(catalog.Observes))
		for _, observe := range catalog.Observes {
			lines = append(lines, g.generateObserve(observe))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}

	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// generateBlock generates DSL for a group or type
func (g *Generator) generateBlock(keyword, name string, mixins []string, relations []*RelationAST, canonical []*CanonicalAST) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s %s {\n", keyword, name))

	if len(mixins) > 0 {
		sb.WriteString(g.indent)
		sb.WriteString("mixin ")
		sb.WriteString(strings.Join(mixins, ", "))
		sb.WriteString("\n")
	}

	for _, relation := range relations {
		sb.WriteString(g.indent)
		sb.WriteString(g.generateRelation(relation))
		sb.WriteString("\n")
	}

	for _, c := range canonical {
		sb.WriteString(g.indent)
		sb.WriteString(fmt.Sprintf("canonical %s %s", c.Relation, typeRefs(c.Types)))
		sb.WriteString("\n")
	}

	sb.WriteString("}")

	return sb.String()
}

// generateRelation generates DSL for a relation
func (g *Generator) generateRelation(relation *RelationAST) string {
	return fmt.Sprintf("relation %s = %s", relation.Name, g.generateExpr(relation.Expr))
}

// generateExpr generates DSL for a relation expression
func (g *Generator) generateExpr(expr RelationExprAST) string {
	switch e := expr.(type) {
	case *ProxyExprAST:
		args := []string{e.JoinType, e.SourceAttr, e.TargetAttr}
		if e.JoinRelation != "" {
			args = append(args, e.JoinRelation)
		}
		out := fmt.Sprintf("proxy(%s)", strings.Join(args, ", "))
		if e.TargetType != "" {
			out += " @" + e.TargetType
		}
		return out

	case *FilterExprAST:
		return fmt.Sprintf("%s[%s]", e.Base, e.Type)

	case *UnionExprAST:
		if len(e.Members) == 0 {
			return "none"
		}
		return strings.Join(e.Members, " or ")

	case *SearchExprAST:
		out := fmt.Sprintf("search(%s)", strconv.Quote(e.Expression))
		if len(e.Observe) > 0 {
			out += " observe " + typeRefs(e.Observe)
		}
		return out

	default:
		return ""
	}
}

// generateObserve generates DSL for an observe statement
func (g *Generator) generateObserve(observe *ObserveAST) string {
	return fmt.Sprintf("observe %s.%s.%s %s", observe.Module, observe.Type, observe.Relation, typeRefs(observe.Types))
}

// typeRefs formats types as "@A @B"
func typeRefs(types []string) string {
	prefixed := make([]string, 0, len(types))
	for _, t := range types {
		prefixed = append(prefixed, "@"+t)
	}
	return strings.Join(prefixed, " ")
}
