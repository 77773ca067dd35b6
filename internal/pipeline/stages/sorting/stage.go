// Package sorting implements the stream ordering pipeline stage.
package sorting

import (
	"context"

	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "sorting"
	// StageName is the human-readable name for this stage.
	StageName = "Sorting"
)

// Stage orders streams by the user's sort criteria.
type Stage struct {
	shared.BaseStage
}

// New creates a new sorting stage.
func New() *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(_ *core.Dependencies) core.Stage {
		return New()
	}
}

// Execute sorts the streams held in state.
func (s *Stage) Execute(_ context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult(len(state.Streams))
	state.Streams = NewSorter(state.UserData).Sort(state.Streams, state.MediaType)
	result.Message = "Sorted streams"
	return result, nil
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
