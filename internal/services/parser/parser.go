package parser

import (
	"fmt"
	"strings"
)

// Parser parses the catalog DSL into an AST
type Parser struct {
	lexer   *Lexer
	current *Token
	peek    *Token
	errors  []string
}

// NewParser creates a new Parser
func NewParser(lexer *Lexer) *Parser {
	p := &Parser{
		lexer:  lexer,
		errors: []string{},
	}

	// Read two tokens to initialize current and peek
	p.nextToken()
	p.nextToken()

	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil {
		p.errors = append(p.errors, err.Error())
		p.peek = &Token{Type: TOKEN_EOF}
	} else {
		p.peek = tok
	}
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(t TokenType) bool {
	return p.current != nil && p.current.Type == t
}

// peekTokenIs checks if the peek token is of the given type
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peek != nil && p.peek.Type == t
}

// expectPeek checks if the next token is of the expected type and advances
func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// peekError adds an error for unexpected peek token
func (p *Parser) peekError(t TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s instead at %d:%d",
		tokenNames[t], tokenNames[p.peek.Type], p.peek.Line, p.peek.Column)
	p.errors = append(p.errors, msg)
}

// unexpected adds an error for the current token
func (p *Parser) unexpected(context string) {
	p.errors = append(p.errors, fmt.Sprintf("unexpected token %s %s at %d:%d",
		tokenNames[p.current.Type], context, p.current.Line, p.current.Column))
}

// synchronize skips to the start of the next statement after an error
func (p *Parser) synchronize() {
	p.nextToken()
	for !p.currentTokenIs(TOKEN_EOF) {
		switch p.current.Type {
		case TOKEN_MODULE, TOKEN_GROUP, TOKEN_TYPE, TOKEN_OBSERVE,
			TOKEN_RELATION, TOKEN_MIXIN, TOKEN_CANONICAL, TOKEN_RBRACE:
			return
		}
		p.nextToken()
	}
}

// Parse parses the entire catalog
func (p *Parser) Parse() (*CatalogAST, error) {
	catalog := &CatalogAST{
		Groups:   []*GroupAST{},
		Types:    []*TypeAST{},
		Observes: []*ObserveAST{},
	}

	for !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_MODULE):
			if catalog.Module != "" {
				p.errors = append(p.errors, fmt.Sprintf("duplicate module declaration at %d:%d", p.current.Line, p.current.Column))
			}
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				p.synchronize()
				continue
			}
			catalog.Module = p.current.Value
			p.nextToken()

		case p.currentTokenIs(TOKEN_GROUP):
			if group := p.parseGroup(); group != nil {
				catalog.Groups = append(catalog.Groups, group)
			} else {
				p.synchronize()
			}

		case p.currentTokenIs(TOKEN_TYPE):
			if typ := p.parseType(); typ != nil {
				catalog.Types = append(catalog.Types, typ)
			} else {
				p.synchronize()
			}

		case p.currentTokenIs(TOKEN_OBSERVE):
			if observe := p.parseObserve(); observe != nil {
				catalog.Observes = append(catalog.Observes, observe)
			} else {
				p.synchronize()
			}

		default:
			p.unexpected("at top level, expected 'module', 'group', 'type' or 'observe'")
			p.nextToken()
		}
	}

	if len(p.errors) > 0 {
		return nil, fmt.Errorf("parse errors:\n%s", strings.Join(p.errors, "\n"))
	}

	return catalog, nil
}

// parseGroup parses a group definition
func (p *Parser) parseGroup() *GroupAST {
	group := &GroupAST{
		Relations: []*RelationAST{},
		Canonical: []*CanonicalAST{},
	}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	group.Name = p.current.Value

	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_RELATION):
			if relation := p.parseRelation(); relation != nil {
				group.Relations = append(group.Relations, relation)
			} else {
				p.synchronize()
			}
		case p.currentTokenIs(TOKEN_CANONICAL):
			if canonical := p.parseCanonical(); canonical != nil {
				group.Canonical = append(group.Canonical, canonical)
			} else {
				p.synchronize()
			}
		default:
			p.unexpected("in group " + group.Name)
			p.nextToken()
		}
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of group %s, got %s at %d:%d",
			group.Name, tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil
	}

	p.nextToken()
	return group
}

// parseType parses a type entry
func (p *Parser) parseType() *TypeAST {
	typ := &TypeAST{
		Mixins:    []string{},
		Relations: []*RelationAST{},
		Canonical: []*CanonicalAST{},
	}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	typ.Name = p.current.Value

	if !p.expectPeek(TOKEN_LBRACE) {
		return nil
	}

	p.nextToken()
	for !p.currentTokenIs(TOKEN_RBRACE) && !p.currentTokenIs(TOKEN_EOF) {
		switch {
		case p.currentTokenIs(TOKEN_MIXIN):
			mixins := p.parseMixin()
			if mixins == nil {
				p.synchronize()
				continue
			}
			typ.Mixins = append(typ.Mixins, mixins...)
		case p.currentTokenIs(TOKEN_RELATION):
			if relation := p.parseRelation(); relation != nil {
				typ.Relations = append(typ.Relations, relation)
			} else {
				p.synchronize()
			}
		case p.currentTokenIs(TOKEN_CANONICAL):
			if canonical := p.parseCanonical(); canonical != nil {
				typ.Canonical = append(typ.Canonical, canonical)
			} else {
				p.synchronize()
			}
		default:
			p.unexpected("in type " + typ.Name)
			p.nextToken()
		}
	}

	if !p.currentTokenIs(TOKEN_RBRACE) {
		p.errors = append(p.errors, fmt.Sprintf("expected '}' at end of type %s, got %s at %d:%d",
			typ.Name, tokenNames[p.current.Type], p.current.Line, p.current.Column))
		return nil
	}

	p.nextToken()
	return typ
}

// parseMixin parses "mixin a, b, c"
func (p *Parser) parseMixin() []string {
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	mixins := []string{p.current.Value}

	for p.peekTokenIs(TOKEN_COMMA) {
		p.nextToken() // consume ,
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		mixins = append(mixins, p.current.Value)
	}

	p.nextToken()
	return mixins
}

// parseRelation parses "relation name = expr"
func (p *Parser) parseRelation() *RelationAST {
	relation := &RelationAST{}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	relation.Name = p.current.Value

	if !p.expectPeek(TOKEN_EQUALS) {
		return nil
	}

	p.nextToken()
	expr := p.parseRelationExpr()
	if expr == nil {
		return nil
	}
	relation.Expr = expr

	return relation
}

// parseRelationExpr parses the right hand side of a relation definition
func (p *Parser) parseRelationExpr() RelationExprAST {
	switch {
	case p.currentTokenIs(TOKEN_NONE):
		p.nextToken()
		return &UnionExprAST{Members: []string{}}

	case p.currentTokenIs(TOKEN_PROXY):
		return p.parseProxyExpr()

	case p.currentTokenIs(TOKEN_SEARCH):
		return p.parseSearchExpr()

	case p.currentTokenIs(TOKEN_IDENTIFIER):
		name := p.current.Value

		// Filtered relation (base[Type])
		if p.peekTokenIs(TOKEN_LBRACKET) {
			p.nextToken() // consume [
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			filterType := p.current.Value
			if !p.expectPeek(TOKEN_RBRACKET) {
				return nil
			}
			p.nextToken()
			return &FilterExprAST{Base: name, Type: filterType}
		}

		members := []string{name}
		for p.peekTokenIs(TOKEN_OR) {
			p.nextToken() // consume or
			if !p.expectPeek(TOKEN_IDENTIFIER) {
				return nil
			}
			members = append(members, p.current.Value)
		}
		p.nextToken()
		return &UnionExprAST{Members: members}

	default:
		p.unexpected("in relation expression")
		return nil
	}
}

// parseProxyExpr parses "proxy(Join, source_attr, target_attr[, join_relation]) [@Type]"
func (p *Parser) parseProxyExpr() RelationExprAST {
	expr := &ProxyExprAST{}

	if !p.expectPeek(TOKEN_LPAREN) {
		return nil
	}

	args := make([]string, 0, 4)
	for {
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		args = append(args, p.current.Value)
		if !p.peekTokenIs(TOKEN_COMMA) {
			break
		}
		p.nextToken() // consume ,
	}

	if !p.expectPeek(TOKEN_RPAREN) {
		return nil
	}
	if len(args) < 3 || len(args) > 4 {
		p.errors = append(p.errors, fmt.Sprintf("proxy expects 3 or 4 arguments, got %d at %d:%d",
			len(args), p.current.Line, p.current.Column))
		return nil
	}

	expr.JoinType = args[0]
	expr.SourceAttr = args[1]
	expr.TargetAttr = args[2]
	if len(args) == 4 {
		expr.JoinRelation = args[3]
	}

	if p.peekTokenIs(TOKEN_AT) {
		p.nextToken() // consume @
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		expr.TargetType = p.current.Value
	}

	p.nextToken()
	return expr
}

// parseSearchExpr parses `search("cel expression") [observe @Type ...]`
func (p *Parser) parseSearchExpr() RelationExprAST {
	expr := &SearchExprAST{}

	if !p.expectPeek(TOKEN_LPAREN) {
		return nil
	}
	if !p.expectPeek(TOKEN_STRING) {
		return nil
	}
	expr.Expression = p.current.Value
	if !p.expectPeek(TOKEN_RPAREN) {
		return nil
	}

	if p.peekTokenIs(TOKEN_OBSERVE) {
		p.nextToken() // consume observe
		types := p.parseTypeRefs()
		if types == nil {
			return nil
		}
		expr.Observe = types
	}

	p.nextToken()
	return expr
}

// parseCanonical parses "canonical relation @Type ..."
func (p *Parser) parseCanonical() *CanonicalAST {
	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	canonical := &CanonicalAST{Relation: p.current.Value}

	types := p.parseTypeRefs()
	if types == nil {
		return nil
	}
	canonical.Types = types

	p.nextToken()
	return canonical
}

// parseObserve parses "observe module.Type.relation @Type ..."
func (p *Parser) parseObserve() *ObserveAST {
	observe := &ObserveAST{}

	if !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	observe.Module = p.current.Value
	if !p.expectPeek(TOKEN_DOT) || !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	observe.Type = p.current.Value
	if !p.expectPeek(TOKEN_DOT) || !p.expectPeek(TOKEN_IDENTIFIER) {
		return nil
	}
	observe.Relation = p.current.Value

	types := p.parseTypeRefs()
	if types == nil {
		return nil
	}
	observe.Types = types

	p.nextToken()
	return observe
}

// parseTypeRefs parses one or more "@Type" references following the current token.
// The current token is left on the last type name.
func (p *Parser) parseTypeRefs() []string {
	if !p.peekTokenIs(TOKEN_AT) {
		p.peekError(TOKEN_AT)
		return nil
	}

	var types []string
	for p.peekTokenIs(TOKEN_AT) {
		p.nextToken() // consume @
		if !p.expectPeek(TOKEN_IDENTIFIER) {
			return nil
		}
		types = append(types, p.current.Value)
	}
	return types
}
