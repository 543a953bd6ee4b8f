package cmd

import (
	"github.com/spf13/cobra"
)

var toJSON bool

var toCmd = &cobra.Command{
	Use:   "to <from> <to>",
	Short: "Transition between two specific steps",
	Long: `Attempt the transition from <from> to <to>. <to> must be the step that
follows <from>, and the session must currently be at <from>. The transition
only happens if the exit validation for <from> passes.`,
	Args: cobra.ExactArgs(2),
	RunE: runTo,
}

func init() {
	toCmd.Flags().BoolVar(&toJSON, "json", false, "output the outcome as JSON")
	rootCmd.AddCommand(toCmd)
}

func runTo(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.engine().AttemptTransition(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	return reportOutcome(cmd.OutOrStdout(), out, toJSON)
}
