package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Keywords(t *testing.T) {
	input := `module group type mixin relation canonical observe proxy search none or`

	expected := []struct {
		tokenType TokenType
		value     string
	}{
		{TOKEN_MODULE, "module"},
		{TOKEN_GROUP, "group"},
		{TOKEN_TYPE, "type"},
		{TOKEN_MIXIN, "mixin"},
		{TOKEN_RELATION, "relation"},
		{TOKEN_CANONICAL, "canonical"},
		{TOKEN_OBSERVE, "observe"},
		{TOKEN_PROXY, "proxy"},
		{TOKEN_SEARCH, "search"},
		{TOKEN_NONE, "none"},
		{TOKEN_OR, "or"},
		{TOKEN_EOF, ""},
	}

	lexer := NewLexer(input)

	for i, exp := range expected {
		tok, err := lexer.NextToken()
		require.NoError(t, err, "test[%d]", i)
		assert.Equal(t, exp.tokenType, tok.Type, "test[%d]", i)
		assert.Equal(t, exp.value, tok.Value, "test[%d]", i)
	}
}

func TestLexer_Delimiters(t *testing.T) {
	input := `= @ { } ( ) [ ] . ,`

	expected := []TokenType{
		TOKEN_EQUALS,
		TOKEN_AT,
		TOKEN_LBRACE,
		TOKEN_RBRACE,
		TOKEN_LPAREN,
		TOKEN_RPAREN,
		TOKEN_LBRACKET,
		TOKEN_RBRACKET,
		TOKEN_DOT,
		TOKEN_COMMA,
		TOKEN_EOF,
	}

	lexer := NewLexer(input)
	for i, exp := range expected {
		tok, err := lexer.NextToken()
		require.NoError(t, err, "test[%d]", i)
		assert.Equal(t, exp, tok.Type, "test[%d]", i)
	}
}

func TestLexer_IdentifiersAndStrings(t *testing.T) {
	input := `related_objects_as_source Risk _private "object.type == \"Risk\""`

	lexer := NewLexer(input)

	tok, err := lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TOKEN_IDENTIFIER, tok.Type)
	assert.Equal(t, "related_objects_as_source", tok.Value)

	tok, err = lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, "Risk", tok.Value)

	tok, err = lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TOKEN_IDENTIFIER, tok.Type)
	assert.Equal(t, "_private", tok.Value)

	tok, err = lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TOKEN_STRING, tok.Type)
	assert.Equal(t, `object.type == "Risk"`, tok.Value)

	tok, err = lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, TOKEN_EOF, tok.Type)
}

func TestLexer_Comments(t *testing.T) {
	input := `// header
type Risk { // trailing
}`

	lexer := NewLexer(input)
	var types []TokenType
	for {
		tok, err := lexer.NextToken()
		require.NoError(t, err)
		types = append(types, tok.Type)
		if tok.Type == TOKEN_EOF {
			break
		}
	}

	assert.Equal(t, []TokenType{TOKEN_TYPE, TOKEN_IDENTIFIER, TOKEN_LBRACE, TOKEN_RBRACE, TOKEN_EOF}, types)
}

func TestLexer_LineTracking(t *testing.T) {
	lexer := NewLexer("type\n  Risk")

	tok, err := lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, 1, tok.Line)

	tok, err = lexer.NextToken()
	require.NoError(t, err)
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 3, tok.Column)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "illegal character", input: `relation x = a | b`},
		{name: "unterminated string", input: `search("object.type`},
		{name: "newline in string", input: "search(\"a\nb\")"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lexer := NewLexer(tt.input)
			var err error
			for i := 0; i < 10 && err == nil; i++ {
				var tok *Token
				tok, err = lexer.NextToken()
				if err == nil && tok.Type == TOKEN_EOF {
					break
				}
			}
			assert.Error(t, err)
		})
	}
}

func TestToken_String(t *testing.T) {
	tok := &Token{Type: TOKEN_RELATION, Value: "relation", Line: 2, Column: 3}
	assert.Equal(t, "relation(relation) at 2:3", tok.String())
}
