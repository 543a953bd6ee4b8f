package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillcreator/skillgate/internal/skillcheck"
	"github.com/skillcreator/skillgate/internal/state"
)

var (
	startSkillName string
	startSkillType string
	startForce     bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session at the first step",
	Long: `Create the workspace and a fresh session-state record positioned at the
first process step. An existing session is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startSkillName, "skill-name", "", "name of the skill being authored")
	startCmd.Flags().StringVar(&startSkillType, "skill-type", "", "skill type: simple, standard or complex")
	startCmd.Flags().BoolVarP(&startForce, "force", "f", false, "replace an existing session")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	skillType := skillcheck.TypeUnknown
	if startSkillType != "" {
		skillType = skillcheck.ParseSkillType(startSkillType)
		if skillType == skillcheck.TypeUnknown {
			return fmt.Errorf("invalid skill type %q: must be simple, standard or complex", startSkillType)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := state.New(uuid.NewString(), a.steps.First(), time.Now())
	st.SkillName = startSkillName
	st.SkillType = string(skillType)

	if err := a.store.Create(st, startForce); err != nil {
		return fmt.Errorf("%w (use --force to replace it)", err)
	}
	a.logger.WithSession(st.SessionID).Info("session started", "current_node", st.CurrentNode)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Started session %s\n", st.SessionID)
	fmt.Fprintf(w, "State file: %s\n", a.store.Path())
	fmt.Fprintf(w, "Current Node: %s\n", st.CurrentNode)
	fmt.Fprintf(w, "Read: %s\n", state.StepReadme(st.CurrentNode))
	return nil
}
