package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/skillcreator/skillgate/internal/errors"
	"github.com/skillcreator/skillgate/internal/state"
)

var (
	statusJSON  bool
	statusWatch bool
)

var (
	statusTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	statusWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	statusError = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recovered session and how to resume it",
	Long: `Recover the session from the workspace and print where it stands: the
current step, the completed steps, and which README to read next. Declared
outputs missing from the workspace are listed as warnings.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output the recovery result as JSON")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "re-render whenever the state file changes")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	recoverer := state.NewRecoverer(a.store, a.logger)

	if !statusWatch {
		return renderStatus(w, recoverer, statusJSON)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = renderStatus(w, recoverer, statusJSON)
	return a.store.Watch(ctx, a.logger, func() {
		fmt.Fprintln(w)
		_ = renderStatus(w, recoverer, statusJSON)
	})
}

func renderStatus(w io.Writer, r *state.Recoverer, asJSON bool) error {
	rec, err := r.Recover()
	if err != nil {
		if asJSON {
			_ = writeJSON(w, map[string]string{"error": err.Error()})
			return &silentError{}
		}
		fmt.Fprintln(w, statusError.Render("Recovery failed: "+err.Error()))
		return &silentError{}
	}

	if asJSON {
		return writeJSON(w, rec)
	}

	fmt.Fprintln(w, statusTitle.Render("=== Session Recovery ==="))
	fmt.Fprintln(w)
	for _, line := range rec.Instructions() {
		fmt.Fprintln(w, line)
	}
	if len(rec.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, statusWarn.Render("WARNINGS:"))
		for _, warning := range rec.Warnings {
			style := statusWarn
			if warning.Kind.Severity() >= errors.SeverityError {
				style = statusError
			}
			fmt.Fprintln(w, style.Render("  ⚠ "+warning.Message))
		}
	}
	return nil
}
