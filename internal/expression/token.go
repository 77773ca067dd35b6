package expression

import "fmt"

// TokenType represents the type of a lexical token.
type TokenType int

// Token types.
const (
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenIdent  // bindings and function names
	TokenString // "quoted string" or 'quoted string'
	TokenNumber // integer or float
	TokenTrue   // true
	TokenFalse  // false

	// Comparison
	TokenEquals       // ==
	TokenNotEquals    // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=

	// Additive
	TokenPlus  // +
	TokenMinus // -

	// Logical
	TokenAnd // and, &&
	TokenOr  // or, ||
	TokenNot // not, !

	// Conditional
	TokenQuestion // ?
	TokenColon    // :

	// Grouping
	TokenLParen // (
	TokenRParen // )

	// Punctuation
	TokenComma // ,
)

// Token represents a lexical token.
type Token struct {
	Type   TokenType
	Value  string
	Pos    int // Position in input
	Line   int
	Column int
}

// String returns a string representation of the token.
func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return fmt.Sprintf("ERROR(%s)", t.Value)
	default:
		if len(t.Value) > 20 {
			return fmt.Sprintf("%s(%.20s...)", t.Type, t.Value)
		}
		return fmt.Sprintf("%s(%s)", t.Type, t.Value)
	}
}

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenError:        "Error",
	TokenIdent:        "Ident",
	TokenString:       "String",
	TokenNumber:       "Number",
	TokenTrue:         "True",
	TokenFalse:        "False",
	TokenEquals:       "Equals",
	TokenNotEquals:    "NotEquals",
	TokenLess:         "Less",
	TokenLessEqual:    "LessEqual",
	TokenGreater:      "Greater",
	TokenGreaterEqual: "GreaterEqual",
	TokenPlus:         "Plus",
	TokenMinus:        "Minus",
	TokenAnd:          "And",
	TokenOr:           "Or",
	TokenNot:          "Not",
	TokenQuestion:     "Question",
	TokenColon:        "Colon",
	TokenLParen:       "LParen",
	TokenRParen:       "RParen",
	TokenComma:        "Comma",
}

// String returns the name of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsComparison reports whether the token is a comparison operator.
func (t TokenType) IsComparison() bool {
	return t >= TokenEquals && t <= TokenGreaterEqual
}

// Keywords that have special meaning.
var keywords = map[string]TokenType{
	"AND":   TokenAnd,
	"and":   TokenAnd,
	"OR":    TokenOr,
	"or":    TokenOr,
	"NOT":   TokenNot,
	"not":   TokenNot,
	"true":  TokenTrue,
	"TRUE":  TokenTrue,
	"false": TokenFalse,
	"FALSE": TokenFalse,
}

// LookupKeyword returns the token type for an identifier,
// checking if it's a keyword first.
func LookupKeyword(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
