package precompute

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "precompute"
	// StageName is the human-readable name for this stage.
	StageName = "Precompute"
)

// Stage annotates streams with the preferred rules they match.
type Stage struct {
	shared.BaseStage
	engine *expression.Engine
	logger *slog.Logger
}

// New creates a new precompute stage.
func New(engine *expression.Engine, logger *slog.Logger) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		engine:    engine,
		logger:    logger,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		return New(deps.Engine, deps.Logger)
	}
}

// Execute annotates the streams held in state.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult(len(state.Streams))

	p, err := NewPrecomputer(state.UserData, s.engine, s.logger)
	if err != nil {
		return result, fmt.Errorf("compiling preferred rules: %w", err)
	}
	result.RecordsModified = p.Precompute(ctx, state.Streams)
	result.Message = fmt.Sprintf("Annotated %d/%d streams", result.RecordsModified, len(state.Streams))
	return result, nil
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
