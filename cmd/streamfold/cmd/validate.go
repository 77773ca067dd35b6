package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/service"
)

var (
	validateType     string
	validateID       string
	validateUserData string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a user data file",
	Long: `Check a user data file without querying any addon. Every stream
expression and group condition is compiled.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateUserData, "user-data", "", "user data file (JSON or YAML, - for stdin)")
	validateCmd.Flags().StringVar(&validateType, "type", "movie", "media type to validate against")
	validateCmd.Flags().StringVar(&validateID, "id", "tt0000000", "content id to validate against")
	_ = validateCmd.MarkFlagRequired("user-data")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ud, err := readUserData(validateUserData)
	if err != nil {
		return err
	}

	engine := expression.NewEngine(expression.WithTimeout(appConfig.Pipeline.ExpressionTimeout))
	svc := service.NewStreamService(nil, nil, engine)
	if err := svc.Validate(validateType, validateID, ud); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d addons, %d groups)\n", validateUserData, len(ud.Addons), len(ud.Groups))
	return nil
}
