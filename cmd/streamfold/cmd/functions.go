package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/streamfold/internal/expression"
	"github.com/jmylchreest/streamfold/internal/http/handlers"
)

var functionsJSON bool

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List the expression function library",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fns := expression.Functions()
		if functionsJSON {
			out := make([]handlers.FunctionInfo, 0, len(fns))
			for _, fn := range fns {
				out = append(out, handlers.FunctionInfo{Name: fn.Name, Signature: fn.Signature, Description: fn.Description})
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, fn := range fns {
			fmt.Fprintf(w, "%s\t%s\n", fn.Signature, fn.Description)
		}
		return w.Flush()
	},
}

func init() {
	functionsCmd.Flags().BoolVar(&functionsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(functionsCmd)
}
