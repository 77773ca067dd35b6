package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/streamfold/internal/http/handlers"
)

var (
	streamsType     string
	streamsID       string
	streamsUserData string
	streamsStremio  bool
)

var streamsCmd = &cobra.Command{
	Use:   "streams",
	Short: "Run the stream pipeline once and print the result",
	Long: `Query the addons in a user data file for one title and print the
filtered, deduplicated and sorted streams as JSON.

Example:
  streamfold streams --type movie --id tt0245429 --user-data userdata.yaml`,
	RunE: runStreams,
}

func init() {
	rootCmd.AddCommand(streamsCmd)

	streamsCmd.Flags().StringVar(&streamsType, "type", "movie", "media type (movie, series, anime)")
	streamsCmd.Flags().StringVar(&streamsID, "id", "", "Stremio content id, e.g. tt0944947:1:2")
	streamsCmd.Flags().StringVar(&streamsUserData, "user-data", "", "user data file (JSON or YAML, - for stdin)")
	streamsCmd.Flags().BoolVar(&streamsStremio, "stremio", false, "print streams in the Stremio addon format")
	_ = streamsCmd.MarkFlagRequired("id")
	_ = streamsCmd.MarkFlagRequired("user-data")
}

func runStreams(cmd *cobra.Command, _ []string) error {
	ud, err := readUserData(streamsUserData)
	if err != nil {
		return err
	}

	a, err := newApp(appConfig, slog.Default())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.service.GetStreams(cmd.Context(), streamsType, streamsID, ud)
	if err != nil {
		return fmt.Errorf("getting streams: %w", err)
	}

	if streamsStremio {
		out := make([]handlers.StremioStream, 0, len(resp.Streams))
		for _, s := range resp.Streams {
			out = append(out, handlers.ToStremioStream(s))
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{"streams": out})
	}
	return printJSON(cmd.OutOrStdout(), resp)
}
