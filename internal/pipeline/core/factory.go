package core

import (
	"log/slog"

	"github.com/jmylchreest/streamfold/internal/expression"
)

// Dependencies bundles all dependencies needed by pipeline stages.
type Dependencies struct {
	// Engine compiles and evaluates stream expressions.
	Engine *expression.Engine
	Logger *slog.Logger
}

// StageConstructor is a function that creates a stage given dependencies.
type StageConstructor func(deps *Dependencies) Stage

// Factory creates configured Orchestrator instances with all required stages.
type Factory struct {
	deps              *Dependencies
	stageConstructors []StageConstructor
}

// NewFactory creates a new pipeline Factory.
func NewFactory(deps *Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Engine == nil {
		deps.Engine = expression.NewEngine()
	}
	return &Factory{
		deps:              deps,
		stageConstructors: make([]StageConstructor, 0),
	}
}

// RegisterStage adds a stage constructor to the factory.
// Stages are executed in the order they are registered.
func (f *Factory) RegisterStage(constructor StageConstructor) {
	f.stageConstructors = append(f.stageConstructors, constructor)
}

// Create creates a new Orchestrator with fresh instances of every
// registered stage.
func (f *Factory) Create() *Orchestrator {
	stages := make([]Stage, 0, len(f.stageConstructors))
	for _, constructor := range f.stageConstructors {
		stages = append(stages, constructor(f.deps))
	}
	return NewOrchestrator(stages, f.deps.Logger)
}

// Dependencies returns the dependencies handed to stage constructors.
func (f *Factory) Dependencies() *Dependencies {
	return f.deps
}

// OrchestratorFactory defines the interface for creating orchestrators.
type OrchestratorFactory interface {
	Create() *Orchestrator
}

// Ensure Factory implements OrchestratorFactory.
var _ OrchestratorFactory = (*Factory)(nil)
