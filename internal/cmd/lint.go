package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillcreator/skillgate/internal/skillcheck"
)

var (
	lintJSON bool
	lintOnly string
)

var lintCmd = &cobra.Command{
	Use:   "lint <skill-dir> [skill-type]",
	Short: "Check a skill directory against its type's conventions",
	Long: `Run the structure, documentation and (for complex skills) COR-AFP-NTP
compliance checks on a skill directory. The skill type is detected from
SKILL.md when not given.

Use --only to run a single checker: structure, documentation or compliance.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runLint,
}

func init() {
	lintCmd.Flags().BoolVar(&lintJSON, "json", false, "output the report as JSON")
	lintCmd.Flags().StringVar(&lintOnly, "only", "", "run a single checker: structure, documentation or compliance")
	rootCmd.AddCommand(lintCmd)
}

func runLint(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	skillType := skillcheck.TypeUnknown
	if len(args) == 2 {
		if skillType = skillcheck.ParseSkillType(args[1]); skillType == skillcheck.TypeUnknown {
			return fmt.Errorf("invalid skill type %q: must be simple, standard or complex", args[1])
		}
	}

	w := cmd.OutOrStdout()

	if lintOnly != "" {
		return runSingleCheck(w, dir, skillType)
	}

	res, err := skillcheck.ValidateAll(dir, skillType)
	if err != nil {
		return err
	}

	if lintJSON {
		if err := writeJSON(w, res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, skillcheck.Render(res))
	}

	if !res.Passed {
		return &silentError{}
	}
	return nil
}

func runSingleCheck(w io.Writer, dir string, skillType skillcheck.SkillType) error {
	var (
		title  string
		report *skillcheck.Report
		result any
	)

	switch lintOnly {
	case "structure":
		if skillType == skillcheck.TypeUnknown {
			skillType = skillcheck.DetectSkillType(dir)
		}
		if skillType == skillcheck.TypeUnknown {
			return fmt.Errorf("could not detect skill type for %s; pass it explicitly", dir)
		}
		report = skillcheck.ValidateStructure(dir, skillType)
		title, result = "Structure Validation Results", report
	case "documentation":
		report = skillcheck.ValidateDocumentation(dir)
		title, result = "Documentation Validation Results", report
	case "compliance":
		c := skillcheck.ValidateCompliance(dir)
		report = &c.Report
		title, result = "COR-AFP-NTP Compliance Validation", c
	default:
		return fmt.Errorf("invalid --only value %q: must be structure, documentation or compliance", lintOnly)
	}

	if lintJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else {
		fmt.Fprint(w, skillcheck.RenderReport(title, report))
	}

	if !report.Passed {
		return &silentError{}
	}
	return nil
}
