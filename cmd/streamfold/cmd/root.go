// Package cmd implements the CLI commands for streamfold.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/streamfold/internal/config"
	"github.com/jmylchreest/streamfold/internal/observability"
	"github.com/jmylchreest/streamfold/internal/version"
)

var (
	// cfgFile holds the config file path from CLI flag.
	cfgFile string

	// appConfig is loaded before any subcommand runs.
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "streamfold",
	Short:   "Stream aggregation and ranking for Stremio addons",
	Version: version.Short(),
	Long: `streamfold queries a user's Stremio addons in groups and post-processes
the combined results: it filters streams against the user's preferences,
collapses duplicates across addons and services, and ranks what is left.

Run "streamfold serve" for the HTTP API and Stremio addon endpoint, or
"streamfold streams" for a one-shot query from the command line.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	// initLogging reads rootCmd.PersistentFlags, so the hook is set here.
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initConfig()
	}

	// The log flags are not bound to viper. They only override config and
	// env when set explicitly.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./config.yaml, /etc/streamfold, $HOME/.streamfold)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json, pretty)")
}

// initConfig loads configuration and configures the default logger.
func initConfig() error {
	cfg, err := config.LoadFrom(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	if cfg.HTTPClient.UserAgent == "" {
		cfg.HTTPClient.UserAgent = version.UserAgent()
	}
	appConfig = cfg

	return initLogging(cfg)
}

// initLogging configures the slog logger based on configuration.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format), only if explicitly provided
//  2. Environment variables (STREAMFOLD_LOGGING_LEVEL, STREAMFOLD_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, json)
func initLogging(cfg *config.Config) error {
	logCfg := cfg.Logging

	if rootCmd.PersistentFlags().Changed("log-level") {
		logCfg.Level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		logCfg.Format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}

	logCfg.Level = strings.ToLower(logCfg.Level)
	logCfg.Format = strings.ToLower(logCfg.Format)
	if logCfg.Level == "warning" {
		logCfg.Level = "warn"
	}
	cfg.Logging = logCfg

	// stdout is reserved for command output.
	logger := observability.NewLoggerWithWriter(logCfg, observability.LogWriter(logCfg, os.Stderr))
	observability.SetDefault(logger)

	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
