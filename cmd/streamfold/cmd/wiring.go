package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jmylchreest/streamfold/internal/addon"
	"github.com/jmylchreest/streamfold/internal/config"
	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/metadata"
	"github.com/jmylchreest/streamfold/internal/observability"
	"github.com/jmylchreest/streamfold/internal/pipeline/core"
	"github.com/jmylchreest/streamfold/internal/pipeline/fetcher"
	"github.com/jmylchreest/streamfold/internal/service"
	"github.com/jmylchreest/streamfold/pkg/httpclient"
)

// app holds the components shared by the serve and streams commands.
type app struct {
	engine  *expression.Engine
	http    *httpclient.Client
	service *service.StreamService
}

// newApp wires the addon client, metadata lookup and stream pipeline from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	engine := expression.NewEngine(expression.WithTimeout(cfg.Pipeline.ExpressionTimeout))

	httpCfg := cfg.HTTPClient.Client()
	httpCfg.Logger = observability.WithComponent(logger, "httpclient")
	client := httpclient.New(httpCfg)

	addons := addon.NewClient(client).WithLogger(observability.WithComponent(logger, "addon"))

	opts := []fetcher.Option{fetcher.WithMaxConcurrency(cfg.Pipeline.MaxConcurrency)}
	if cfg.Metadata.Enabled {
		lookup, err := metadata.NewCinemeta(cfg.Metadata.Lookup(), client)
		if err != nil {
			return nil, fmt.Errorf("creating metadata client: %w", err)
		}
		lookup.WithLogger(observability.WithComponent(logger, "metadata"))
		opts = append(opts, fetcher.WithMetadata(lookup))
	}

	builder := core.NewBuilder().
		WithEngine(engine).
		WithLogger(observability.WithComponent(logger, "pipeline")).
		WithConfig(cfg.Pipeline.Core())
	deps, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}
	svc := service.NewStreamServiceFromDeps(addons, deps, builder.Config(), opts...)

	return &app{engine: engine, http: client, service: svc}, nil
}

// Close releases the pipeline worker pool.
func (a *app) Close() {
	a.service.Close()
}
