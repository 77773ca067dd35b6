package cmd

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/streamfold/internal/config"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline:\n  max_concurrency: 2\n"), 0o600))

	cfg, err := config.LoadFrom(viper.New(), path)
	require.NoError(t, err)
	return cfg
}

func TestNewApp(t *testing.T) {
	a, err := newApp(loadTestConfig(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.NotNil(t, a.engine)
	assert.NotNil(t, a.http)
	assert.NotNil(t, a.service)
}

func TestNewApp_RejectsInvalidPipelineConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Pipeline.ExpressionTimeout = 0

	_, err := newApp(cfg, slog.New(slog.DiscardHandler))
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}
