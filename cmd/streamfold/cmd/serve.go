package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalhttp "github.com/jmylchreest/streamfold/internal/http"
	"github.com/jmylchreest/streamfold/internal/http/handlers"
	"github.com/jmylchreest/streamfold/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the streamfold server",
	Long: `Start the streamfold HTTP server.

The server provides:
- POST /api/v1/streams for full pipeline runs
- Expression validation and evaluation under /api/v1/expressions
- A Stremio addon at /stremio/{config}/manifest.json
- The effective configuration at /api/v1/config
- Health checks at /health, /livez and /readyz
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 7979, "Port to listen on")
	serveCmd.Flags().Int("max-concurrency", 16, "Maximum concurrent addon queries")
	serveCmd.Flags().Bool("metadata", true, "Look up titles for title and year matching")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("pipeline.max_concurrency", serveCmd.Flags().Lookup("max-concurrency"))
	mustBindPFlag("metadata.enabled", serveCmd.Flags().Lookup("metadata"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()
	cfg := appConfig

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := internalhttp.NewServer(cfg.Server, logger, version.Short())

	handlers.NewHealthHandler(version.Short()).
		WithCircuits(a.http).
		WithReadinessCheck("pipeline", func(context.Context) error { return nil }).
		Register(server.API())
	handlers.NewStreamHandler(a.service).Register(server.API())
	handlers.NewExpressionHandler(a.engine).Register(server.API())
	handlers.NewConfigHandler(cfg, viper.ConfigFileUsed()).Register(server.API())
	handlers.NewStremioHandler(a.service, version.Short()).RegisterChiRoutes(server.Router())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting streamfold server",
		slog.String("address", cfg.Server.Address()),
		slog.String("version", version.Short()),
		slog.Bool("metadata", cfg.Metadata.Enabled),
		slog.Int("max_concurrency", cfg.Pipeline.MaxConcurrency),
	)

	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
