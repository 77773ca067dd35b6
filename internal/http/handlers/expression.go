package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/models"
)

// ExpressionHandler handles expression-related API endpoints.
type ExpressionHandler struct {
	engine *expression.Engine
}

// NewExpressionHandler creates a new expression handler.
func NewExpressionHandler(engine *expression.Engine) *ExpressionHandler {
	if engine == nil {
		engine = expression.NewEngine()
	}
	return &ExpressionHandler{engine: engine}
}

// Register registers the expression routes with the API.
func (h *ExpressionHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listExpressionFunctions",
		Method:      http.MethodGet,
		Path:        "/api/v1/expressions/functions",
		Summary:     "List expression functions",
		Description: "Returns the function library available to stream and group expressions",
		Tags:        []string{"Expressions"},
	}, h.ListFunctions)

	huma.Register(api, huma.Operation{
		OperationID: "validateExpression",
		Method:      http.MethodPost,
		Path:        "/api/v1/expressions/validate",
		Summary:     "Validate expression",
		Description: `Checks expression syntax and function names without evaluating it.

## Bindings
- **streams**: the streams under evaluation (stream expressions)
- **previousStreams**, **totalStreams**, **previousGroupTimeTaken**, **totalTimeTaken**, **queryType**: group conditions

## Examples
- Stream expression: slice(resolution(streams, '2160p'), 0, 5)
- Group condition: count(previousStreams) < 5 and queryType == 'movie'`,
		Tags: []string{"Expressions"},
	}, h.Validate)

	huma.Register(api, huma.Operation{
		OperationID: "evaluateExpression",
		Method:      http.MethodPost,
		Path:        "/api/v1/expressions/evaluate",
		Summary:     "Evaluate expression",
		Description: "Evaluates an expression against supplied streams and group bindings.",
		Tags:        []string{"Expressions"},
	}, h.Evaluate)
}

// FunctionInfo describes one library function.
type FunctionInfo struct {
	Name        string `json:"name"`
	Signature   string `json:"signature"`
	Description string `json:"description"`
}

// ListFunctionsInput is the input for listing functions.
type ListFunctionsInput struct{}

// ListFunctionsOutput is the output for listing functions.
type ListFunctionsOutput struct {
	Body struct {
		Functions []FunctionInfo `json:"functions"`
	}
}

// ListFunctions returns every library function.
func (h *ExpressionHandler) ListFunctions(_ context.Context, _ *ListFunctionsInput) (*ListFunctionsOutput, error) {
	out := &ListFunctionsOutput{}
	for _, fn := range expression.Functions() {
		out.Body.Functions = append(out.Body.Functions, FunctionInfo{
			Name:        fn.Name,
			Signature:   fn.Signature,
			Description: fn.Description,
		})
	}
	return out, nil
}

// ValidateExpressionInput is the input for validating an expression.
type ValidateExpressionInput struct {
	Body ValidateExpressionRequest
}

// ValidateExpressionRequest is the request body for expression validation.
type ValidateExpressionRequest struct {
	Expression string `json:"expression" doc:"The expression to validate" example:"count(previousStreams) < 5"`
}

// ValidateExpressionOutput is the output for expression validation.
type ValidateExpressionOutput struct {
	Body ValidateExpressionResponse
}

// ValidateExpressionResponse is the response body for expression validation.
type ValidateExpressionResponse struct {
	IsValid     bool                        `json:"is_valid" doc:"Whether the expression is valid"`
	Errors      []ExpressionValidationError `json:"errors" doc:"List of validation errors (if invalid)"`
	Identifiers []string                    `json:"identifiers,omitempty" doc:"Bindings the expression reads"`
	Functions   []string                    `json:"functions,omitempty" doc:"Library functions the expression calls"`
}

// ExpressionValidationError represents a single validation error.
type ExpressionValidationError struct {
	Category string `json:"category" doc:"Error category (syntax, function)"`
	Message  string `json:"message" doc:"Human-readable error message"`
	Position *int   `json:"position,omitempty" doc:"Character position of the error in the expression"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// Validate validates an expression.
func (h *ExpressionHandler) Validate(_ context.Context, input *ValidateExpressionInput) (*ValidateExpressionOutput, error) {
	prog, err := h.engine.Compile(input.Body.Expression)
	if err != nil {
		return &ValidateExpressionOutput{Body: ValidateExpressionResponse{
			Errors: []ExpressionValidationError{validationError(err)},
		}}, nil
	}
	return &ValidateExpressionOutput{Body: ValidateExpressionResponse{
		IsValid:     true,
		Errors:      []ExpressionValidationError{},
		Identifiers: prog.Identifiers,
		Functions:   prog.Functions,
	}}, nil
}

func validationError(err error) ExpressionValidationError {
	var (
		parseErr *expression.ParseError
		lexErr   *expression.LexError
		fnErr    *expression.FunctionError
	)
	switch {
	case errors.As(err, &parseErr):
		pos := parseErr.Pos
		return ExpressionValidationError{Category: "syntax", Message: parseErr.Message, Position: &pos, Line: parseErr.Line, Column: parseErr.Column}
	case errors.As(err, &lexErr):
		pos := lexErr.Pos
		return ExpressionValidationError{Category: "syntax", Message: lexErr.Message, Position: &pos, Line: lexErr.Line, Column: lexErr.Column}
	case errors.As(err, &fnErr):
		return ExpressionValidationError{Category: "function", Message: fnErr.Error()}
	default:
		return ExpressionValidationError{Category: "syntax", Message: err.Error()}
	}
}

// EvaluateRequest is the body of an evaluation request.
type EvaluateRequest struct {
	Expression string                 `json:"expression"`
	Streams    []*models.ParsedStream `json:"streams,omitempty"`
	Context    *GroupContext          `json:"context,omitempty"`
}

// GroupContext supplies the group condition bindings. Times are in
// milliseconds.
type GroupContext struct {
	PreviousStreams        []*models.ParsedStream `json:"previousStreams,omitempty"`
	TotalStreams           []*models.ParsedStream `json:"totalStreams,omitempty"`
	PreviousGroupTimeTaken float64                `json:"previousGroupTimeTaken"`
	TotalTimeTaken         float64                `json:"totalTimeTaken"`
	QueryType              string                 `json:"queryType"`
}

// EvaluateExpressionInput is the input for evaluating an expression.
type EvaluateExpressionInput struct {
	RawBody []byte `contentType:"application/json"`
}

// EvaluateExpressionOutput is the output for evaluating an expression.
type EvaluateExpressionOutput struct {
	Body EvaluateExpressionResponse
}

// EvaluateExpressionResponse is the result of an evaluation.
type EvaluateExpressionResponse struct {
	Kind      string   `json:"kind" doc:"Result kind: boolean, number, string or stream array"`
	Value     any      `json:"value,omitempty" doc:"Scalar result"`
	StreamIDs []string `json:"streamIds,omitempty" doc:"Ids of the selected streams for stream results"`
	Truthy    bool     `json:"truthy" doc:"The result's truthiness, as used by group conditions"`
}

// Evaluate evaluates an expression.
func (h *ExpressionHandler) Evaluate(ctx context.Context, input *EvaluateExpressionInput) (*EvaluateExpressionOutput, error) {
	var req EvaluateRequest
	if err := json.Unmarshal(input.RawBody, &req); err != nil {
		return nil, huma.Error400BadRequest("invalid request body", err)
	}

	prog, err := h.engine.Compile(req.Expression)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid expression", err)
	}

	env := expression.Env{expression.BindStreams: expression.Streams(req.Streams)}
	if c := req.Context; c != nil {
		env[expression.BindPreviousStreams] = expression.Streams(c.PreviousStreams)
		env[expression.BindTotalStreams] = expression.Streams(c.TotalStreams)
		env[expression.BindPreviousGroupTimeTaken] = expression.Number(c.PreviousGroupTimeTaken)
		env[expression.BindTotalTimeTaken] = expression.Number(c.TotalTimeTaken)
		env[expression.BindQueryType] = expression.String(c.QueryType)
	}

	v, err := h.engine.Eval(ctx, prog, env)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("evaluation failed", err)
	}

	resp := EvaluateExpressionResponse{Kind: v.Kind.String(), Truthy: v.Truthy()}
	if v.Kind == expression.KindStreams {
		if err := expression.ValidateResult(v.Streams, req.universe()); err != nil {
			return nil, huma.Error422UnprocessableEntity("evaluation failed", err)
		}
		resp.StreamIDs = make([]string, 0, len(v.Streams))
		for _, s := range v.Streams {
			resp.StreamIDs = append(resp.StreamIDs, s.ID)
		}
	} else {
		resp.Value = v.Interface()
	}
	return &EvaluateExpressionOutput{Body: resp}, nil
}

// universe returns every stream an array result may be drawn from.
func (r *EvaluateRequest) universe() []*models.ParsedStream {
	all := append([]*models.ParsedStream{}, r.Streams...)
	if r.Context != nil {
		all = append(all, r.Context.PreviousStreams...)
		all = append(all, r.Context.TotalStreams...)
	}
	return all
}
