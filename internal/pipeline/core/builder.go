package core

import (
	"log/slog"
	"time"

	"github.com/jmylchreest/streamfold/internal/expression"
)

// Config holds pipeline configuration options.
type Config struct {
	// ExpressionTimeout bounds a single expression evaluation.
	ExpressionTimeout time.Duration

	// EnableDeduplication registers the deduplication stage.
	EnableDeduplication bool

	// EnablePrecompute registers the precompute stage.
	EnablePrecompute bool
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() Config {
	return Config{
		ExpressionTimeout:   expression.DefaultTimeout,
		EnableDeduplication: true,
		EnablePrecompute:    true,
	}
}

// Builder provides a fluent interface for constructing Dependencies.
type Builder struct {
	engine *expression.Engine
	logger *slog.Logger
	config Config
}

// NewBuilder creates a new pipeline Builder.
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithEngine sets the expression engine. When unset one is created from
// the configured timeout.
func (b *Builder) WithEngine(engine *expression.Engine) *Builder {
	b.engine = engine
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithConfig sets the pipeline configuration.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// Build validates the settings and returns the stage dependencies.
func (b *Builder) Build() (*Dependencies, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	engine := b.engine
	if engine == nil {
		engine = expression.NewEngine(expression.WithTimeout(b.config.ExpressionTimeout))
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dependencies{
		Engine: engine,
		Logger: logger,
	}, nil
}

// validate checks the configured values.
func (b *Builder) validate() error {
	if b.config.ExpressionTimeout <= 0 {
		return NewConfigurationError("expressionTimeout", "must be positive")
	}
	return nil
}

// Config returns the current configuration.
func (b *Builder) Config() Config {
	return b.config
}
