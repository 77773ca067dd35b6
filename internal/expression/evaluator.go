package expression

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/streamfold/internal/models"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = time.Millisecond

// Evaluation errors.
var (
	// ErrEvaluationTimeout indicates the evaluation exceeded its deadline.
	ErrEvaluationTimeout = errors.New("expression evaluation timed out")

	// ErrInvalidResult indicates an array result that is not a subset of the
	// evaluated streams.
	ErrInvalidResult = errors.New("expression returned invalid streams")

	// ErrUnexpectedResult indicates a result that is neither boolean nor a stream array.
	ErrUnexpectedResult = errors.New("expression must evaluate to a boolean or a stream array")
)

// EvalError describes a runtime failure at a specific node.
type EvalError struct {
	Pos     int
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation error at position %d: %s", e.Pos, e.Message)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the per-evaluation deadline. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Engine compiles and evaluates stream expressions. An Engine holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	timeout time.Duration
}

// NewEngine creates an expression engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the per-evaluation deadline.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

// Compile parses an expression, resolving function names against the library.
func (e *Engine) Compile(src string) (*Program, error) {
	return Parse(src)
}

// Check reports whether src compiles. It satisfies models.ExpressionChecker.
func (e *Engine) Check(src string) error {
	_, err := e.Compile(src)
	return err
}

// Eval evaluates a program against the given bindings within the engine's deadline.
func (e *Engine) Eval(ctx context.Context, p *Program, env Env) (Value, error) {
	ev := &evaluator{
		ctx:      ctx,
		deadline: time.Now().Add(e.timeout),
		env:      env,
	}
	return ev.eval(p.Root)
}

// Test evaluates a program and applies truthiness to the result.
func (e *Engine) Test(ctx context.Context, p *Program, env Env) (bool, error) {
	v, err := e.Eval(ctx, p, env)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Select evaluates a program with streams bound and returns the selected
// streams. A boolean result selects all or none. An array result must only
// contain streams from the input, otherwise ErrInvalidResult is returned.
func (e *Engine) Select(ctx context.Context, p *Program, streams []*models.ParsedStream) ([]*models.ParsedStream, error) {
	v, err := e.Eval(ctx, p, Env{BindStreams: Streams(streams)})
	if err != nil {
		return nil, err
	}
	switch v.Kind {
	case KindBool:
		if v.Bool {
			return streams, nil
		}
		return nil, nil
	case KindStreams:
		if err := ValidateResult(v.Streams, streams); err != nil {
			return nil, err
		}
		return v.Streams, nil
	default:
		return nil, fmt.Errorf("%w, got %s", ErrUnexpectedResult, v.Kind)
	}
}

// ValidateResult checks that every item of result is a well-formed stream
// drawn from universe.
func ValidateResult(result, universe []*models.ParsedStream) error {
	known := make(map[string]*models.ParsedStream, len(universe))
	for _, s := range universe {
		if s != nil {
			known[s.ID] = s
		}
	}
	for i, s := range result {
		switch {
		case s == nil:
			return fmt.Errorf("%w: item %d is null", ErrInvalidResult, i)
		case s.ID == "":
			return fmt.Errorf("%w: item %d has no id", ErrInvalidResult, i)
		case !s.Type.IsValid():
			return fmt.Errorf("%w: item %d (%s) has unknown type %q", ErrInvalidResult, i, s.ID, s.Type)
		case known[s.ID] == nil:
			return fmt.Errorf("%w: item %d (%s) is not one of the input streams", ErrInvalidResult, i, s.ID)
		}
	}
	return nil
}

// evaluator walks the AST for a single evaluation.
type evaluator struct {
	ctx      context.Context
	deadline time.Time
	env      Env
}

// check enforces the deadline and context cancellation.
func (ev *evaluator) check() error {
	if time.Now().After(ev.deadline) {
		return ErrEvaluationTimeout
	}
	if ev.ctx != nil {
		if err := ev.ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) eval(node Node) (Value, error) {
	if err := ev.check(); err != nil {
		return Value{}, err
	}

	switch n := node.(type) {
	case *NumberLiteral:
		return Number(n.Value), nil
	case *StringLiteral:
		return String(n.Value), nil
	case *BoolLiteral:
		return Bool(n.Value), nil
	case *Identifier:
		v, ok := ev.env[n.Name]
		if !ok {
			return Value{}, ev.errorf(n, "%q is not available here", n.Name)
		}
		return v, nil
	case *CallExpr:
		return ev.evalCall(n)
	case *UnaryExpr:
		return ev.evalUnary(n)
	case *BinaryExpr:
		return ev.evalBinary(n)
	case *ConditionalExpr:
		cond, err := ev.eval(n.Cond)
		if err != nil {
			return Value{}, err
		}
		if cond.Truthy() {
			return ev.eval(n.Then)
		}
		return ev.eval(n.Else)
	default:
		return Value{}, fmt.Errorf("unsupported node type: %T", node)
	}
}

func (ev *evaluator) evalCall(n *CallExpr) (Value, error) {
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := ev.eval(a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return n.Func.call(&callContext{fn: n.Func, ev: ev}, args)
}

func (ev *evaluator) evalUnary(n *UnaryExpr) (Value, error) {
	v, err := ev.eval(n.Operand)
	if err != nil {
		return Value{}, err
	}
	switch n.Op {
	case TokenNot:
		return Bool(!v.Truthy()), nil
	case TokenMinus:
		if v.Kind != KindNumber {
			return Value{}, ev.errorf(n, "cannot negate %s", v.Kind)
		}
		return Number(-v.Number), nil
	default:
		return Value{}, ev.errorf(n, "unknown unary operator %s", n.Op)
	}
}

func (ev *evaluator) evalBinary(n *BinaryExpr) (Value, error) {
	left, err := ev.eval(n.Left)
	if err != nil {
		return Value{}, err
	}

	// Logical operators short-circuit.
	switch n.Op {
	case TokenAnd:
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := ev.eval(n.Right)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	case TokenOr:
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := ev.eval(n.Right)
		if err != nil {
			return Value{}, err
		}
		return Bool(right.Truthy()), nil
	}

	right, err := ev.eval(n.Right)
	if err != nil {
		return Value{}, err
	}

	switch n.Op {
	case TokenPlus:
		switch {
		case left.Kind == KindNumber && right.Kind == KindNumber:
			return Number(left.Number + right.Number), nil
		case left.Kind == KindString && right.Kind == KindString:
			return String(left.Str + right.Str), nil
		}
		return Value{}, ev.errorf(n, "cannot add %s and %s", left.Kind, right.Kind)
	case TokenMinus:
		if left.Kind == KindNumber && right.Kind == KindNumber {
			return Number(left.Number - right.Number), nil
		}
		return Value{}, ev.errorf(n, "cannot subtract %s from %s", right.Kind, left.Kind)
	case TokenEquals, TokenNotEquals:
		eq, err := ev.equal(n, left, right)
		if err != nil {
			return Value{}, err
		}
		if n.Op == TokenNotEquals {
			eq = !eq
		}
		return Bool(eq), nil
	case TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		cmp, err := ev.compare(n, left, right)
		if err != nil {
			return Value{}, err
		}
		switch n.Op {
		case TokenLess:
			return Bool(cmp < 0), nil
		case TokenLessEqual:
			return Bool(cmp <= 0), nil
		case TokenGreater:
			return Bool(cmp > 0), nil
		default:
			return Bool(cmp >= 0), nil
		}
	default:
		return Value{}, ev.errorf(n, "unknown operator %s", n.Op)
	}
}

func (ev *evaluator) equal(n Node, a, b Value) (bool, error) {
	if a.Kind != b.Kind {
		return false, ev.errorf(n, "cannot compare %s with %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool, nil
	case KindNumber:
		return a.Number == b.Number, nil
	case KindString:
		return a.Str == b.Str, nil
	default:
		return false, ev.errorf(n, "stream arrays cannot be compared; use count()")
	}
}

func (ev *evaluator) compare(n Node, a, b Value) (int, error) {
	if a.Kind != b.Kind {
		return 0, ev.errorf(n, "cannot order %s and %s", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindNumber:
		switch {
		case a.Number < b.Number:
			return -1, nil
		case a.Number > b.Number:
			return 1, nil
		}
		return 0, nil
	case KindString:
		switch {
		case a.Str < b.Str:
			return -1, nil
		case a.Str > b.Str:
			return 1, nil
		}
		return 0, nil
	default:
		return 0, ev.errorf(n, "%s values cannot be ordered", a.Kind)
	}
}

func (ev *evaluator) errorf(n Node, format string, args ...any) error {
	return &EvalError{Pos: n.Position(), Message: fmt.Sprintf(format, args...)}
}
