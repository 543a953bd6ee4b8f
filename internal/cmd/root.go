package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skillcreator/skillgate/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "skillgate",
	Short: "Gated step workflow for skill authoring",
	Long: `skillgate walks a skill author through a fixed sequence of process steps.
Progress is recorded in a session-state file in the workspace, and a step can
only be left once its exit-validation script passes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/skillgate/config.yaml)")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace directory (overrides workspace.dir)")
	rootCmd.PersistentFlags().StringP("process-dir", "p", "", "process directory (overrides process.dir)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("workspace.dir", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("process.dir", rootCmd.PersistentFlags().Lookup("process-dir"))
}

func initConfig() {
	// Defaults and env bindings first so they apply even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
