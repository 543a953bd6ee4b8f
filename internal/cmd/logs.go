package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/skillcreator/skillgate/internal/config"
	"github.com/skillcreator/skillgate/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View skillgate logs",
	Long: `View and filter the structured log written by skillgate commands.

Examples:
  # Show the last 50 entries
  skillgate logs

  # Only blocked transitions for one step
  skillgate logs --step 02-structure --level warn

  # Everything for one session in the last hour
  skillgate logs --session 3f2a... --since 1h -n 0`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsSessionID string
	logsStep      string
	logsTail      int
	logsLevel     string
	logsSince     string
	logsGrep      string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsSessionID, "session", "s", "", "only entries for this session ID")
	logsCmd.Flags().StringVar(&logsStep, "step", "", "only entries for this step")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only entries newer than this duration (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "only entries matching this regular expression")
}

// logEntry is one parsed JSON log line.
type logEntry struct {
	Time      time.Time      `json:"time"`
	Level     string         `json:"level"`
	Msg       string         `json:"msg"`
	SessionID string         `json:"session_id,omitempty"`
	Step      string         `json:"step,omitempty"`
	Extra     map[string]any `json:"-"`
}

func (e *logEntry) UnmarshalJSON(data []byte) error {
	type alias logEntry
	if err := json.Unmarshal(data, (*alias)(e)); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range []string{"time", "level", "msg", "session_id", "step"} {
		delete(all, k)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter selects log entries. Zero values match everything.
type logFilter struct {
	sessionID string
	step      string
	minLevel  int
	since     time.Time
	grep      *regexp.Regexp
}

func (f logFilter) match(e *logEntry) bool {
	if f.sessionID != "" && e.SessionID != f.sessionID {
		return false
	}
	if f.step != "" && e.Step != f.step {
		return false
	}
	if f.minLevel >= 0 && levelPriority(e.Level) < f.minLevel {
		return false
	}
	if !f.since.IsZero() && e.Time.Before(f.since) {
		return false
	}
	if f.grep != nil {
		text := e.Msg
		for _, k := range sortedKeys(e.Extra) {
			text += fmt.Sprintf(" %v", e.Extra[k])
		}
		if !f.grep.MatchString(text) {
			return false
		}
	}
	return true
}

func levelPriority(level string) int {
	return slices.Index(logging.ValidLevels(), strings.ToUpper(level))
}

var (
	logTimeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	logKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22D3EE"))
	logLevels    = map[string]lipgloss.Style{
		logging.LevelDebug: lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		logging.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA")),
		logging.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		logging.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
	}
)

func formatLogEntry(e *logEntry) string {
	level := strings.ToUpper(e.Level)
	parts := []string{
		logTimeStyle.Render("[" + e.Time.Format("15:04:05.000") + "]"),
		logLevels[level].Render("[" + level + "]"),
		e.Msg,
	}
	if e.Step != "" {
		parts = append(parts, logKeyStyle.Render("step=")+e.Step)
	}
	for _, k := range sortedKeys(e.Extra) {
		parts = append(parts, logKeyStyle.Render(k+"=")+fmt.Sprintf("%v", e.Extra[k]))
	}
	return strings.Join(parts, " ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	filter := logFilter{sessionID: logsSessionID, step: logsStep, minLevel: -1}
	if logsLevel != "" {
		filter.minLevel = levelPriority(logging.ParseLevel(logsLevel))
	}
	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.since = time.Now().Add(-d)
	}
	if logsGrep != "" {
		if filter.grep, err = regexp.Compile(logsGrep); err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	w := cmd.OutOrStdout()
	logPath := filepath.Join(cfg.LogDir(), logging.LogFileName)
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(w, "No logs found at %s\n", logPath)
			return nil
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	return displayLogs(w, file, logsTail, filter)
}

// displayLogs prints the last tail entries of r that pass filter. Lines that
// are not JSON are shown raw.
func displayLogs(w io.Writer, r io.Reader, tail int, filter logFilter) error {
	var lines []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var entry logEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			lines = append(lines, line)
			continue
		}
		if filter.match(&entry) {
			lines = append(lines, formatLogEntry(&entry))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	if len(lines) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
		return nil
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
