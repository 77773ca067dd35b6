package core

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/streamfold/internal/expression"
)

func TestBuilder_Defaults(t *testing.T) {
	b := NewBuilder()
	deps, err := b.Build()
	require.NoError(t, err)

	assert.NotNil(t, deps.Engine)
	assert.Same(t, slog.Default(), deps.Logger)
	assert.Equal(t, DefaultConfig(), b.Config())
}

func TestBuilder_KeepsProvidedComponents(t *testing.T) {
	engine := expression.NewEngine()
	logger := slog.New(slog.DiscardHandler)
	cfg := Config{ExpressionTimeout: 2 * time.Second, EnablePrecompute: true}

	b := NewBuilder().WithEngine(engine).WithLogger(logger).WithConfig(cfg)
	deps, err := b.Build()
	require.NoError(t, err)

	assert.Same(t, engine, deps.Engine)
	assert.Same(t, logger, deps.Logger)
	assert.Equal(t, cfg, b.Config())
}

func TestBuilder_RejectsNonPositiveTimeout(t *testing.T) {
	for _, timeout := range []time.Duration{0, -time.Second} {
		t.Run(timeout.String(), func(t *testing.T) {
			_, err := NewBuilder().
				WithEngine(expression.NewEngine()).
				WithConfig(Config{ExpressionTimeout: timeout}).
				Build()
			require.ErrorIs(t, err, ErrInvalidConfiguration)

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "expressionTimeout", cfgErr.Field)
		})
	}
}
