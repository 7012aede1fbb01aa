package parser

import (
	"fmt"
	"strconv"
	"unicode"
)

// TokenType represents the type of a token
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	// Identifiers and literals
	TOKEN_IDENTIFIER
	TOKEN_STRING // String literals (quoted)

	// Keywords
	TOKEN_MODULE
	TOKEN_GROUP
	TOKEN_TYPE
	TOKEN_MIXIN
	TOKEN_RELATION
	TOKEN_CANONICAL
	TOKEN_OBSERVE
	TOKEN_PROXY
	TOKEN_SEARCH
	TOKEN_NONE

	// Operators
	TOKEN_OR
	TOKEN_EQUALS
	TOKEN_AT

	// Delimiters
	TOKEN_LBRACE
	TOKEN_RBRACE
	TOKEN_LPAREN
	TOKEN_RPAREN
	TOKEN_LBRACKET
	TOKEN_RBRACKET
	TOKEN_DOT
	TOKEN_COMMA
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL:    "ILLEGAL",
	TOKEN_EOF:        "EOF",
	TOKEN_IDENTIFIER: "IDENTIFIER",
	TOKEN_STRING:     "STRING",
	TOKEN_MODULE:     "module",
	TOKEN_GROUP:      "group",
	TOKEN_TYPE:       "type",
	TOKEN_MIXIN:      "mixin",
	TOKEN_RELATION:   "relation",
	TOKEN_CANONICAL:  "canonical",
	TOKEN_OBSERVE:    "observe",
	TOKEN_PROXY:      "proxy",
	TOKEN_SEARCH:     "search",
	TOKEN_NONE:       "none",
	TOKEN_OR:         "or",
	TOKEN_EQUALS:     "=",
	TOKEN_AT:         "@",
	TOKEN_LBRACE:     "{",
	TOKEN_RBRACE:     "}",
	TOKEN_LPAREN:     "(",
	TOKEN_RPAREN:     ")",
	TOKEN_LBRACKET:   "[",
	TOKEN_RBRACKET:   "]",
	TOKEN_DOT:        ".",
	TOKEN_COMMA:      ",",
}

var keywords = map[string]TokenType{
	"module":    TOKEN_MODULE,
	"group":     TOKEN_GROUP,
	"type":      TOKEN_TYPE,
	"mixin":     TOKEN_MIXIN,
	"relation":  TOKEN_RELATION,
	"canonical": TOKEN_CANONICAL,
	"observe":   TOKEN_OBSERVE,
	"proxy":     TOKEN_PROXY,
	"search":    TOKEN_SEARCH,
	"none":      TOKEN_NONE,
	"or":        TOKEN_OR,
}

// Token represents a lexical token
type Token struct {
	Type   TokenType
	Value  string
	Line   int
	Column int
}

// String returns a string representation of the token
func (t *Token) String() string {
	typeName := tokenNames[t.Type]
	if typeName == "" {
		typeName = fmt.Sprintf("UNKNOWN(%d)", t.Type)
	}
	return fmt.Sprintf("%s(%s) at %d:%d", typeName, t.Value, t.Line, t.Column)
}

// Lexer performs lexical analysis
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int
}

// NewLexer creates a new Lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input:  input,
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // EOF
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// skipWhitespace skips whitespace characters
func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment skips single-line comments starting with //
func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readIdentifier reads an identifier or keyword
func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

// readString reads a double quoted string literal, decoding Go escape sequences
func (l *Lexer) readString() (string, error) {
	position := l.position
	line, column := l.line, l.column
	for {
		l.readChar()
		if l.ch == '\\' {
			l.readChar()
			continue
		}
		if l.ch == '"' || l.ch == 0 || l.ch == '\n' {
			break
		}
	}
	if l.ch != '"' {
		return "", fmt.Errorf("unterminated string at %d:%d", line, column)
	}

	value, err := strconv.Unquote(l.input[position : l.position+1])
	if err != nil {
		return "", fmt.Errorf("invalid string at %d:%d: %w", line, column, err)
	}
	l.readChar() // consume closing quote
	return value, nil
}

// NextToken returns the next token
func (l *Lexer) NextToken() (*Token, error) {
	// Skip whitespace and comments in a loop
	for {
		l.skipWhitespace()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipComment()
		} else {
			break
		}
	}

	line := l.line
	column := l.column

	if t, ok := singleCharTokens[l.ch]; ok {
		tok := &Token{Type: t, Value: string(l.ch), Line: line, Column: column}
		l.readChar()
		return tok, nil
	}

	switch {
	case l.ch == 0:
		return &Token{Type: TOKEN_EOF, Value: "", Line: line, Column: column}, nil

	case l.ch == '"':
		value, err := l.readString()
		if err != nil {
			return nil, err
		}
		return &Token{Type: TOKEN_STRING, Value: value, Line: line, Column: column}, nil

	case isLetter(l.ch) || l.ch == '_':
		value := l.readIdentifier()
		tokenType := TOKEN_IDENTIFIER
		if kw, ok := keywords[value]; ok {
			tokenType = kw
		}
		return &Token{Type: tokenType, Value: value, Line: line, Column: column}, nil

	default:
		return nil, fmt.Errorf("illegal character '%c' at %d:%d", l.ch, line, column)
	}
}

var singleCharTokens = map[byte]TokenType{
	'=': TOKEN_EQUALS,
	'@': TOKEN_AT,
	'{': TOKEN_LBRACE,
	'}': TOKEN_RBRACE,
	'(': TOKEN_LPAREN,
	')': TOKEN_RPAREN,
	'[': TOKEN_LBRACKET,
	']': TOKEN_RBRACKET,
	'.': TOKEN_DOT,
	',': TOKEN_COMMA,
}

// isLetter checks if a character is a letter
func isLetter(ch byte) bool {
	return unicode.IsLetter(rune(ch))
}

// isDigit checks if a character is a digit
func isDigit(ch byte) bool {
	return unicode.IsDigit(rune(ch))
}
