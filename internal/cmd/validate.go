package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <step>",
	Short: "Run the exit validation for a step",
	Long: `Run the exit-validation script for <step> and print PASSED or FAILED.
Session state is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.runner().Run(cmd.Context(), args[0])
	w := cmd.OutOrStdout()

	if validateJSON {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else if res.Passed {
		fmt.Fprintln(w, "PASSED")
	} else {
		fmt.Fprintln(w, "FAILED")
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if err := res.Err(); err != nil {
		return &silentError{cause: err}
	}
	return nil
}
