// Package pipeline provides a composable pipeline architecture for stream
// post-processing. Each stage implements the Stage interface and operates on
// shared State.
//
// The pipeline is organized into several sub-packages:
//   - core: Orchestrator, interfaces, and base types
//   - shared: Utilities shared between stages
//   - stages/*: Individual stage implementations
//   - fetcher: Group-gated addon fan-out feeding the group pipeline
package pipeline

import (
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/stages/deduplication"
	"github.com/jmylchreest/streamfold/internal/pipeline/stages/filtering"
	"github.com/jmylchreest/streamfold/internal/pipeline/stages/precompute"
	"github.com/jmylchreest/streamfold/internal/pipeline/stages/sorting"
)

// NewGroupFactory creates the factory for the per-group pass: filtering,
// then deduplication, then precompute.
func NewGroupFactory(deps *core.Dependencies, cfg core.Config) *core.Factory {
	factory := core.NewFactory(deps)

	factory.RegisterStage(filtering.NewConstructor())
	if cfg.EnableDeduplication {
		factory.RegisterStage(deduplication.NewConstructor())
	}
	if cfg.EnablePrecompute {
		factory.RegisterStage(precompute.NewConstructor())
	}

	return factory
}

// NewFinalFactory creates the factory for the pass over the accumulated
// streams of every group.
func NewFinalFactory(deps *core.Dependencies) *core.Factory {
	factory := core.NewFactory(deps)
	factory.RegisterStage(sorting.NewConstructor())
	return factory
}
