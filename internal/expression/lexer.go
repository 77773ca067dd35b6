package expression

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes an expression string.
type Lexer struct {
	input     string
	pos       int // current position in input
	start     int // start position of current token
	width     int // width of last rune read
	line      int
	column    int
	startLine int
	startCol  int
	tokens    []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		line:   1,
		column: 1,
	}
}

// Tokenize lexes the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok := l.nextToken()
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
		if tok.Type == TokenError {
			return l.tokens, &LexError{
				Message: tok.Value,
				Pos:     tok.Pos,
				Line:    tok.Line,
				Column:  tok.Column,
			}
		}
	}
	return l.tokens, nil
}

// LexError represents a lexer error.
type LexError struct {
	Message string
	Pos     int
	Line    int
	Column  int
}

func (e *LexError) Error() string {
	return e.Message
}

// punctuation maps single-rune tokens.
var punctuation = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	',': TokenComma,
	'?': TokenQuestion,
	':': TokenColon,
	'+': TokenPlus,
	'-': TokenMinus,
}

// operator describes a token starting with a rune that may take a second
// rune. A zero single means the rune is only valid as part of the pair.
type operator struct {
	second rune
	pair   TokenType
	single TokenType
	hint   string
}

var operators = map[rune]operator{
	'=': {second: '=', pair: TokenEquals, hint: " (use '==' for comparison)"},
	'!': {second: '=', pair: TokenNotEquals, single: TokenNot},
	'<': {second: '=', pair: TokenLessEqual, single: TokenLess},
	'>': {second: '=', pair: TokenGreaterEqual, single: TokenGreater},
	'&': {second: '&', pair: TokenAnd},
	'|': {second: '|', pair: TokenOr},
}

// nextToken lexes one token.
func (l *Lexer) nextToken() Token {
	l.skipWhitespace()

	l.start = l.pos
	l.startLine, l.startCol = l.line, l.column

	if l.pos >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	ch := l.next()
	if typ, ok := punctuation[ch]; ok {
		return l.makeToken(typ, string(ch))
	}
	if op, ok := operators[ch]; ok {
		if l.peek() == op.second {
			l.next()
			return l.makeToken(op.pair, l.input[l.start:l.pos])
		}
		if op.single == 0 {
			return l.makeErrorToken("unexpected character '" + string(ch) + "'" + op.hint)
		}
		return l.makeToken(op.single, string(ch))
	}

	switch {
	case ch == '"' || ch == '\'':
		return l.scanString(ch)
	case isDigit(ch) || (ch == '.' && isDigit(l.peek())):
		l.backup()
		return l.scanNumber()
	case isIdentStart(ch):
		l.backup()
		return l.scanIdent()
	default:
		return l.makeErrorToken("unexpected character '" + string(ch) + "'")
	}
}

// scanString scans a quoted string.
func (l *Lexer) scanString(quote rune) Token {
	var sb strings.Builder

	for {
		if l.pos >= len(l.input) {
			return l.makeErrorToken("unterminated string")
		}
		ch := l.next()
		if ch == quote {
			break
		}
		if ch == '\\' {
			escaped := l.next()
			switch escaped {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case 0:
				return l.makeErrorToken("unterminated string")
			default:
				sb.WriteRune(escaped)
			}
			continue
		}
		sb.WriteRune(ch)
	}

	return l.makeToken(TokenString, sb.String())
}

// scanNumber scans a numeric literal. Signs are handled by the parser.
func (l *Lexer) scanNumber() Token {
	for isDigit(l.peek()) {
		l.next()
	}

	if l.peek() == '.' {
		l.next()
		if !isDigit(l.peek()) {
			return l.makeErrorToken("malformed number")
		}
		for isDigit(l.peek()) {
			l.next()
		}
	}

	return l.makeToken(TokenNumber, l.input[l.start:l.pos])
}

// scanIdent scans an identifier or keyword.
func (l *Lexer) scanIdent() Token {
	for isIdentPart(l.peek()) {
		l.next()
	}

	value := l.input[l.start:l.pos]
	return l.makeToken(LookupKeyword(value), value)
}

// next returns the next rune and advances the position.
func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return 0
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w

	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}

	return r
}

// backup steps back one rune. Only valid once per call of next.
func (l *Lexer) backup() {
	l.pos -= l.width
	if l.width > 0 && l.input[l.pos] == '\n' {
		l.line--
	}
	l.column--
}

// peek returns the next rune without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

// skipWhitespace skips whitespace characters.
func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.peek()) {
		l.next()
	}
}

// makeToken creates a token positioned at the start of the current lexeme.
func (l *Lexer) makeToken(typ TokenType, value string) Token {
	return Token{
		Type:   typ,
		Value:  value,
		Pos:    l.start,
		Line:   l.startLine,
		Column: l.startCol,
	}
}

// makeErrorToken creates a TokenError carrying msg.
func (l *Lexer) makeErrorToken(msg string) Token {
	return l.makeToken(TokenError, msg)
}

// isDigit returns true if the rune is a digit.
func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// isIdentStart returns true if the rune can start an identifier.
func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

// isIdentPart returns true if the rune can be part of an identifier.
func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
