package cmd

import (
	"github.com/spf13/cobra"
)

var nextJSON bool

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Advance the session to the next step",
	Long: `Run the exit validation for the current step and, if it passes, record the
step as completed and move the session to the next one. Does nothing when
there is no session or the session is already at the final step.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

func init() {
	nextCmd.Flags().BoolVar(&nextJSON, "json", false, "output the outcome as JSON")
	rootCmd.AddCommand(nextCmd)
}

func runNext(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.engine().TransitionToNext(cmd.Context())
	if err != nil {
		return err
	}
	return reportOutcome(cmd.OutOrStdout(), out, nextJSON)
}
