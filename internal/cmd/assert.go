package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/skillcreator/skillgate/internal/gate"
)

var assertJSON bool

var assertCmd = &cobra.Command{
	Use:   "assert",
	Short: "Assertions for use inside exit-validation scripts",
	Long: `Check files produced by a step. Each subcommand prints one line per check
and exits 1 if any check fails, so exit-validation scripts can call it
directly:

  skillgate assert has-field requirements.json skill.name skill.description
  skillgate assert min-length requirements.json requirements 3`,
}

var assertFileExistsCmd = &cobra.Command{
	Use:   "file-exists <path>...",
	Short: "Assert that files exist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var checks []gate.Check
		for _, p := range args {
			checks = append(checks, gate.FileExists(p))
		}
		return runAssertions(cmd, checks)
	},
}

var assertDirExistsCmd = &cobra.Command{
	Use:   "dir-exists <path>...",
	Short: "Assert that directories exist",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var checks []gate.Check
		for _, p := range args {
			checks = append(checks, gate.DirectoryExists(p))
		}
		return runAssertions(cmd, checks)
	},
}

var assertValidJSONCmd = &cobra.Command{
	Use:   "valid-json <path>...",
	Short: "Assert that files contain valid JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var checks []gate.Check
		for _, p := range args {
			checks = append(checks, gate.ValidJSON(p))
		}
		return runAssertions(cmd, checks)
	},
}

var assertHasFieldCmd = &cobra.Command{
	Use:   "has-field <path> <field>...",
	Short: "Assert that dotted fields are present and non-empty",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var checks []gate.Check
		for _, f := range args[1:] {
			checks = append(checks, gate.HasField(args[0], f))
		}
		return runAssertions(cmd, checks)
	},
}

var assertFieldMatchesCmd = &cobra.Command{
	Use:   "field-matches <path> <field> <pattern>",
	Short: "Assert that a field matches a regular expression",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAssertions(cmd, []gate.Check{gate.FieldMatches(args[0], args[1], args[2])})
	},
}

var assertMinLengthCmd = &cobra.Command{
	Use:   "min-length <path> <field> <n>",
	Short: "Assert that an array field has at least n items",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[2])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid minimum length %q: expected a non-negative integer", args[2])
		}
		return runAssertions(cmd, []gate.Check{gate.ArrayMinLength(args[0], args[1], n)})
	},
}

func init() {
	assertCmd.PersistentFlags().BoolVar(&assertJSON, "json", false, "output the results as JSON")
	assertCmd.AddCommand(
		assertFileExistsCmd,
		assertDirExistsCmd,
		assertValidJSONCmd,
		assertHasFieldCmd,
		assertFieldMatchesCmd,
		assertMinLengthCmd,
	)
	rootCmd.AddCommand(assertCmd)
}

func runAssertions(cmd *cobra.Command, checks []gate.Check) error {
	summary := gate.RunChecks(checks...)
	w := cmd.OutOrStdout()

	if assertJSON {
		if err := writeJSON(w, summary); err != nil {
			return err
		}
	} else {
		gate.PrintResults(w, summary)
	}

	if !summary.Passed {
		return &silentError{}
	}
	return nil
}
