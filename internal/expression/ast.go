package expression

import (
	"strconv"
	"strings"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	node()
	// Position returns the byte offset of the node in the source.
	Position() int
	String() string
}

// NumberLiteral is a numeric constant.
type NumberLiteral struct {
	Value float64
	Pos   int
}

// StringLiteral is a quoted string constant.
type StringLiteral struct {
	Value string
	Pos   int
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value bool
	Pos   int
}

// Identifier references a value bound by the call site, such as streams.
type Identifier struct {
	Name string
	Pos  int
}

// CallExpr invokes a library function resolved at parse time.
type CallExpr struct {
	Func *Function
	Args []Node
	Pos  int
}

// UnaryExpr applies not or unary minus.
type UnaryExpr struct {
	Op      TokenType
	Operand Node
	Pos     int
}

// BinaryExpr applies a logical, comparison or additive operator.
type BinaryExpr struct {
	Op    TokenType
	Left  Node
	Right Node
	Pos   int
}

// ConditionalExpr is the ternary cond ? then : else.
type ConditionalExpr struct {
	Cond Node
	Then Node
	Else Node
	Pos  int
}

func (*NumberLiteral) node()   {}
func (*StringLiteral) node()   {}
func (*BoolLiteral) node()     {}
func (*Identifier) node()      {}
func (*CallExpr) node()        {}
func (*UnaryExpr) node()       {}
func (*BinaryExpr) node()      {}
func (*ConditionalExpr) node() {}

func (n *NumberLiteral) Position() int   { return n.Pos }
func (n *StringLiteral) Position() int   { return n.Pos }
func (n *BoolLiteral) Position() int     { return n.Pos }
func (n *Identifier) Position() int      { return n.Pos }
func (n *CallExpr) Position() int        { return n.Pos }
func (n *UnaryExpr) Position() int       { return n.Pos }
func (n *BinaryExpr) Position() int      { return n.Pos }
func (n *ConditionalExpr) Position() int { return n.Pos }

func (n *NumberLiteral) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

func (n *StringLiteral) String() string {
	return strconv.Quote(n.Value)
}

func (n *BoolLiteral) String() string {
	return strconv.FormatBool(n.Value)
}

func (n *Identifier) String() string {
	return n.Name
}

func (n *CallExpr) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

func (n *UnaryExpr) String() string {
	if n.Op == TokenNot {
		return "(not " + n.Operand.String() + ")"
	}
	return "(-" + n.Operand.String() + ")"
}

func (n *BinaryExpr) String() string {
	return "(" + n.Left.String() + " " + operatorSymbol(n.Op) + " " + n.Right.String() + ")"
}

func (n *ConditionalExpr) String() string {
	return "(" + n.Cond.String() + " ? " + n.Then.String() + " : " + n.Else.String() + ")"
}

func operatorSymbol(op TokenType) string {
	switch op {
	case TokenAnd:
		return "and"
	case TokenOr:
		return "or"
	case TokenEquals:
		return "=="
	case TokenNotEquals:
		return "!="
	case TokenLess:
		return "<"
	case TokenLessEqual:
		return "<="
	case TokenGreater:
		return ">"
	case TokenGreaterEqual:
		return ">="
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	default:
		return op.String()
	}
}

// Program is a parsed expression ready for evaluation. Programs are immutable
// and may be evaluated any number of times.
type Program struct {
	// Source is the original expression text.
	Source string

	// Root is the parsed AST.
	Root Node

	// Identifiers lists the bindings referenced by the expression.
	Identifiers []string

	// Functions lists the library functions called by the expression.
	Functions []string
}

// References reports whether the program reads the named binding.
func (p *Program) References(name string) bool {
	for _, id := range p.Identifiers {
		if id == name {
			return true
		}
	}
	return false
}
