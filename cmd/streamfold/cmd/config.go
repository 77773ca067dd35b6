package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing streamfold configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format: defaults, overlaid
with the config file, environment variables and flags.

Redirect the output to create a configuration template:

  streamfold config dump > config.yaml

Environment variables use the STREAMFOLD_ prefix and underscores for nesting.
Example: server.port -> STREAMFOLD_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(appConfig)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# streamfold configuration")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Duration format: 500ms, 30s, 6h")
	fmt.Fprintln(out, "# Size format: 1MiB, 16MB")
	fmt.Fprintln(out, "#")
	fmt.Fprintln(out, "# Environment variable overrides:")
	fmt.Fprintln(out, "#   STREAMFOLD_SERVER_HOST, STREAMFOLD_SERVER_PORT")
	fmt.Fprintln(out, "#   STREAMFOLD_LOGGING_LEVEL, STREAMFOLD_LOGGING_FORMAT")
	fmt.Fprintln(out, "#   STREAMFOLD_PIPELINE_MAX_CONCURRENCY, STREAMFOLD_METADATA_ENABLED")
	fmt.Fprintln(out, "#   etc.")
	fmt.Fprintln(out)
	_, err = out.Write(data)
	return err
}
