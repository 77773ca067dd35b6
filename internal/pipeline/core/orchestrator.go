package core

import (
	"context"
	"log/slog"
	"time"
)

// Orchestrator executes a sequence of pipeline stages over a State.
type Orchestrator struct {
	stages []Stage
	logger *slog.Logger
}

// NewOrchestrator creates a new Orchestrator with the given stages.
func NewOrchestrator(stages []Stage, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		stages: stages,
		logger: logger,
	}
}

// Execute runs all stages in sequence against state.
// Returns a Result with execution details and any errors. The first stage
// error aborts the run and is returned wrapped in a StageError.
func (o *Orchestrator) Execute(ctx context.Context, state *State) (*Result, error) {
	result := &Result{
		Success:      false,
		StageResults: make(map[string]*StageResult),
	}
	if state.UserData == nil {
		return result, ErrNoUserData
	}

	o.logger.DebugContext(ctx, "starting pipeline execution",
		slog.String("media_type", state.MediaType),
		slog.String("media_id", state.MediaID),
		slog.Int("stream_count", len(state.Streams)),
		slog.Int("stage_count", len(o.stages)),
	)

	startTime := time.Now()
	defer o.cleanupStages(ctx)

	for i, stage := range o.stages {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			result.Duration = time.Since(startTime)
			return result, err
		}

		stageResult, err := o.executeStage(ctx, i, stage, state)
		result.StageResults[stage.ID()] = stageResult

		if err != nil {
			stageErr := NewStageError(stage.ID(), stage.Name(), err)
			result.Errors = append(result.Errors, stageErr)
			result.Duration = time.Since(startTime)
			return result, stageErr
		}
	}

	result.Success = true
	result.StreamCount = len(state.Streams)
	result.Duration = time.Since(startTime)
	result.Errors = state.Errors

	o.logger.DebugContext(ctx, "pipeline execution completed",
		slog.Int("stream_count", result.StreamCount),
		slog.Duration("duration", result.Duration),
	)

	return result, nil
}

// executeStage runs a single stage and handles logging.
func (o *Orchestrator) executeStage(ctx context.Context, index int, stage Stage, state *State) (*StageResult, error) {
	stageStart := time.Now()
	before := len(state.Streams)

	stageResult, err := stage.Execute(ctx, state)
	if stageResult == nil {
		stageResult = &StageResult{}
	}
	stageResult.Duration = time.Since(stageStart)

	if err != nil {
		o.logger.ErrorContext(ctx, "stage failed",
			slog.String("stage_id", stage.ID()),
			slog.String("stage_name", stage.Name()),
			slog.String("error", err.Error()),
			slog.Duration("duration", stageResult.Duration),
		)
		return stageResult, err
	}

	o.logger.DebugContext(ctx, "stage completed",
		slog.Int("stage_num", index+1),
		slog.String("stage_id", stage.ID()),
		slog.Duration("duration", stageResult.Duration),
		slog.Int("streams_in", before),
		slog.Int("streams_out", len(state.Streams)),
		slog.Int("records_modified", stageResult.RecordsModified),
	)

	return stageResult, nil
}

// cleanupStages calls Cleanup on every stage.
func (o *Orchestrator) cleanupStages(ctx context.Context) {
	for _, stage := range o.stages {
		if err := stage.Cleanup(ctx); err != nil {
			o.logger.Warn("stage cleanup failed",
				slog.String("stage_id", stage.ID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Stages returns the configured stages (for testing).
func (o *Orchestrator) Stages() []Stage {
	return o.stages
}
