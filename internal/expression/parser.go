package expression

import (
	"fmt"
	"strconv"
)

// Binding names understood by the parser. Which of them are available at
// evaluation time depends on the call site.
const (
	BindStreams                = "streams"
	BindPreviousStreams        = "previousStreams"
	BindTotalStreams           = "totalStreams"
	BindPreviousGroupTimeTaken = "previousGroupTimeTaken"
	BindTotalTimeTaken         = "totalTimeTaken"
	BindQueryType              = "queryType"
)

var knownIdentifiers = map[string]bool{
	BindStreams:                true,
	BindPreviousStreams:        true,
	BindTotalStreams:           true,
	BindPreviousGroupTimeTaken: true,
	BindTotalTimeTaken:         true,
	BindQueryType:              true,
}

// Parser parses expression tokens into an AST.
//
// Grammar, lowest precedence first:
//
//	expr       = or [ "?" expr ":" expr ]
//	or         = and { ("or" | "||") and }
//	and        = not { ("and" | "&&") not }
//	not        = ("not" | "!") not | comparison
//	comparison = additive [ ("==" | "!=" | "<" | "<=" | ">" | ">=") additive ]
//	additive   = unary { ("+" | "-") unary }
//	unary      = "-" unary | primary
//	primary    = number | string | "true" | "false" | ident | call | "(" expr ")"
//	call       = ident "(" [ expr { "," expr } ] ")"
type Parser struct {
	tokens  []Token
	pos     int
	current Token

	identifiers []string
	functions   []string
}

// NewParser creates a new parser for the given tokens.
func NewParser(tokens []Token) *Parser {
	p := &Parser{
		tokens: tokens,
		pos:    0,
	}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

// Parse parses the tokens into a Program.
func (p *Parser) Parse() (*Program, error) {
	if len(p.tokens) == 0 || (len(p.tokens) == 1 && p.tokens[0].Type == TokenEOF) {
		return nil, p.errorf("empty expression")
	}

	root, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	// Ensure we've consumed all tokens
	if p.current.Type != TokenEOF {
		return nil, p.errorf("unexpected token: %s", p.current.Value)
	}

	return &Program{
		Root:        root,
		Identifiers: p.identifiers,
		Functions:   p.functions,
	}, nil
}

// parseExpression parses a ternary conditional or anything below it.
func (p *Parser) parseExpression() (Node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenQuestion {
		return cond, nil
	}
	pos := p.current.Pos
	p.advance() // consume ?

	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current.Type != TokenColon {
		return nil, p.errorf("expected ':' in conditional but got %s", p.describe())
	}
	p.advance() // consume :

	otherwise, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ConditionalExpr{Cond: cond, Then: then, Else: otherwise, Pos: pos}, nil
}

// parseOr parses OR-connected operands.
func (p *Parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenOr {
		pos := p.current.Pos
		p.advance() // consume OR

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: TokenOr, Left: left, Right: right, Pos: pos}
	}

	return left, nil
}

// parseAnd parses AND-connected operands.
func (p *Parser) parseAnd() (Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenAnd {
		pos := p.current.Pos
		p.advance() // consume AND

		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: TokenAnd, Left: left, Right: right, Pos: pos}
	}

	return left, nil
}

// parseNot parses a possibly negated comparison.
func (p *Parser) parseNot() (Node, error) {
	if p.current.Type == TokenNot {
		pos := p.current.Pos
		p.advance() // consume NOT
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: TokenNot, Operand: operand, Pos: pos}, nil
	}
	return p.parseComparison()
}

// parseComparison parses a single, non-associative comparison.
func (p *Parser) parseComparison() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if !p.current.Type.IsComparison() {
		return left, nil
	}

	op, pos := p.current.Type, p.current.Pos
	p.advance()

	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.current.Type.IsComparison() {
		return nil, p.errorf("comparisons cannot be chained; use 'and'")
	}
	return &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}, nil
}

// parseAdditive parses + and - chains, left associative.
func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current.Type == TokenPlus || p.current.Type == TokenMinus {
		op, pos := p.current.Type, p.current.Pos
		p.advance()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}

	return left, nil
}

// parseUnary parses unary minus.
func (p *Parser) parseUnary() (Node, error) {
	if p.current.Type == TokenMinus {
		pos := p.current.Pos
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if lit, ok := operand.(*NumberLiteral); ok {
			lit.Value = -lit.Value
			lit.Pos = pos
			return lit, nil
		}
		return &UnaryExpr{Op: TokenMinus, Operand: operand, Pos: pos}, nil
	}
	return p.parsePrimary()
}

// parsePrimary parses literals, bindings, calls and parenthesised expressions.
func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current

	switch tok.Type {
	case TokenNumber:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid number %q", tok.Value)
		}
		return &NumberLiteral{Value: v, Pos: tok.Pos}, nil

	case TokenString:
		p.advance()
		return &StringLiteral{Value: tok.Value, Pos: tok.Pos}, nil

	case TokenTrue, TokenFalse:
		p.advance()
		return &BoolLiteral{Value: tok.Type == TokenTrue, Pos: tok.Pos}, nil

	case TokenLParen:
		p.advance() // consume (
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.current.Type != TokenRParen {
			return nil, p.errorf("expected ')' but got %s", p.describe())
		}
		p.advance() // consume )
		return inner, nil

	case TokenIdent:
		p.advance()
		if p.current.Type == TokenLParen {
			return p.parseCall(tok)
		}
		if !knownIdentifiers[tok.Value] {
			return nil, p.errorAt(tok, "unknown identifier %q", tok.Value)
		}
		p.identifiers = appendUnique(p.identifiers, tok.Value)
		return &Identifier{Name: tok.Value, Pos: tok.Pos}, nil

	default:
		return nil, p.errorf("unexpected %s", p.describe())
	}
}

// parseCall parses the argument list of a function call and resolves the
// function against the registry.
func (p *Parser) parseCall(name Token) (Node, error) {
	fn, ok := LookupFunction(name.Value)
	if !ok {
		return nil, p.errorAt(name, "unknown function %q", name.Value)
	}
	p.advance() // consume (

	var args []Node
	if p.current.Type != TokenRParen {
		for {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current.Type != TokenComma {
				break
			}
			p.advance() // consume ,
		}
	}
	if p.current.Type != TokenRParen {
		return nil, p.errorf("expected ')' or ',' in call to %s but got %s", fn.Name, p.describe())
	}
	p.advance() // consume )

	if err := fn.checkArity(len(args)); err != nil {
		return nil, p.errorAt(name, "%v", err)
	}
	p.functions = appendUnique(p.functions, fn.Name)
	return &CallExpr{Func: fn, Args: args, Pos: name.Pos}, nil
}

// advance moves to the next token.
func (p *Parser) advance() {
	p.pos++
	if p.pos < len(p.tokens) {
		p.current = p.tokens[p.pos]
	} else {
		p.current = Token{Type: TokenEOF}
	}
}

func (p *Parser) describe() string {
	if p.current.Type == TokenEOF {
		return "end of expression"
	}
	return fmt.Sprintf("%q", p.current.Value)
}

// errorf creates a parse error at the current token.
func (p *Parser) errorf(format string, args ...any) error {
	return p.errorAt(p.current, format, args...)
}

func (p *Parser) errorAt(tok Token, format string, args ...any) error {
	return &ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     tok.Pos,
		Line:    tok.Line,
		Column:  tok.Column,
	}
}

// ParseError represents a parsing error.
type ParseError struct {
	Message string
	Pos     int
	Line    int
	Column  int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// Parse is a convenience function to parse an expression string.
func Parse(input string) (*Program, error) {
	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, fmt.Errorf("lexer error: %w", err)
	}

	parser := NewParser(tokens)
	program, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	program.Source = input
	return program, nil
}

// MustParse parses an expression and panics on error.
// Useful for tests and static expressions.
func MustParse(input string) *Program {
	program, err := Parse(input)
	if err != nil {
		panic(fmt.Sprintf("expression parse error: %v", err))
	}
	return program
}
