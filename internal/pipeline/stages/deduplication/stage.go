// Package deduplication implements the duplicate stream removal pipeline stage.
package deduplication

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/streamfold/internal/models"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "deduplication"
	// StageName is the human-readable name for this stage.
	StageName = "Deduplication"
)

// Stage removes duplicate streams.
type Stage struct {
	shared.BaseStage
	logger *slog.Logger
}

// New creates a new deduplication stage.
func New(logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		logger:    logger,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		return New(deps.Logger)
	}
}

// Execute deduplicates the streams held in state.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult(len(state.Streams))

	d := NewDeduplicator(state.UserData)
	if !d.Enabled() {
		result.Message = "Deduplication disabled"
		return result, nil
	}

	kept, err := d.Deduplicate(state.Streams)
	if err != nil {
		return result, err
	}

	result.RecordsRemoved = len(state.Streams) - len(kept)
	state.Streams = kept
	if result.RecordsRemoved > 0 {
		state.AddStatistics(models.Statistic{
			Title:       "Deduplicated",
			Description: fmt.Sprintf("Removed %d duplicate streams", result.RecordsRemoved),
		})
	}
	s.logger.DebugContext(ctx, "deduplicated streams",
		slog.Int("input", result.RecordsProcessed),
		slog.Int("removed", result.RecordsRemoved),
	)
	result.Message = fmt.Sprintf("Removed %d duplicates", result.RecordsRemoved)
	return result, nil
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
