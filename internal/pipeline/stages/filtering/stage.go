// Package filtering implements the stream filtering pipeline stage.
package filtering

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
	StageID = "filtering"
	// StageName is the human-readable name for this stage.
	StageName = "Filtering"
)

// Stage applies the user's include, exclude and require rules.
type Stage struct {
	shared.BaseStage
	engine *expression.Engine
	logger *slog.Logger
}

// New creates a new filtering stage.
func New(engine *expression.Engine, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
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

// Execute filters the streams held in state and records removal statistics.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult(len(state.Streams))

	opts := []Option{WithLogger(s.logger)}
	if state.Metadata != nil {
		opts = append(opts, WithMetadata(state.Metadata))
	}
	f, err := NewFilterer(state.UserData, s.engine, opts...)
	if err != nil {
		return result, fmt.Errorf("compiling filter rules: %w", err)
	}

	kept, err := f.Filter(ctx, state.Streams, Request{MediaType: state.MediaType, MediaID: state.MediaID})
	if err != nil {
		return result, err
	}

	result.RecordsRemoved = len(state.Streams) - len(kept)
	state.Streams = kept
	state.AddStatistics(f.Statistics()...)
	result.Message = fmt.Sprintf("Kept %d/%d streams", len(kept), result.RecordsProcessed)
	return result, nil
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
