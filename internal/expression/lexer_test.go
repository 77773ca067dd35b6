package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{
			name:  "call with strings",
			input: `type(streams, 'p2p', "debrid")`,
			want:  []TokenType{TokenIdent, TokenLParen, TokenIdent, TokenComma, TokenString, TokenComma, TokenString, TokenRParen, TokenEOF},
		},
		{
			name:  "comparison operators",
			input: `1 == 2 != 3 < 4 <= 5 > 6 >= 7`,
			want: []TokenType{
				TokenNumber, TokenEquals, TokenNumber, TokenNotEquals, TokenNumber, TokenLess, TokenNumber,
				TokenLessEqual, TokenNumber, TokenGreater, TokenNumber, TokenGreaterEqual, TokenNumber, TokenEOF,
			},
		},
		{
			name:  "logical keywords and symbols",
			input: `true and false or not x && y || !z`,
			want: []TokenType{
				TokenTrue, TokenAnd, TokenFalse, TokenOr, TokenNot, TokenIdent, TokenAnd, TokenIdent,
				TokenOr, TokenNot, TokenIdent, TokenEOF,
			},
		},
		{
			name:  "uppercase keywords",
			input: `TRUE AND NOT FALSE`,
			want:  []TokenType{TokenTrue, TokenAnd, TokenNot, TokenFalse, TokenEOF},
		},
		{
			name:  "ternary and arithmetic",
			input: `a ? 1 + 2 : .5 - 3`,
			want: []TokenType{
				TokenIdent, TokenQuestion, TokenNumber, TokenPlus, TokenNumber, TokenColon, TokenNumber,
				TokenMinus, TokenNumber, TokenEOF,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer(tt.input).Tokenize()
			require.NoError(t, err)
			got := make([]TokenType, len(tokens))
			for i, tok := range tokens {
				got[i] = tok.Type
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLexer_StringEscapes(t *testing.T) {
	tokens, err := NewLexer(`'it\'s' "a\tb"`).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, "it's", tokens[0].Value)
	assert.Equal(t, "a\tb", tokens[1].Value)
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := NewLexer("count(streams)\n  > 2").Tokenize()
	require.NoError(t, err)

	gt := tokens[4]
	assert.Equal(t, TokenGreater, gt.Type)
	assert.Equal(t, 2, gt.Line)
	assert.Equal(t, 3, gt.Column)
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"single equals", "a = 1"},
		{"single ampersand", "a & b"},
		{"single pipe", "a | b"},
		{"unterminated string", "'abc"},
		{"unexpected character", "a # b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLexer(tt.input).Tokenize()
			var lexErr *LexError
			require.ErrorAs(t, err, &lexErr)
			assert.NotEmpty(t, lexErr.Message)
		})
	}
}
