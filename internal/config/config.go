package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/skillcreator/skillgate/internal/process"
)

// EnvPrefix is the prefix for environment overrides, e.g.
// SKILLGATE_VALIDATOR_TIMEOUT_SECONDS for validator.timeout_seconds.
const EnvPrefix = "SKILLGATE"

// Config represents the complete skillgate configuration
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Process   ProcessConfig   `mapstructure:"process" yaml:"process"`
	State     StateConfig     `mapstructure:"state" yaml:"state"`
	Validator ValidatorConfig `mapstructure:"validator" yaml:"validator"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// WorkspaceConfig locates the directory holding session state and produced
// artifacts.
type WorkspaceConfig struct {
	// Dir supports ~ for home directory expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ProcessConfig locates the step definitions and their order.
type ProcessConfig struct {
	// Dir holds one sub-directory per step with its README and exit script.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// Steps is the ordered step sequence. Order is taken from this list, never
	// from the step names.
	Steps []string `mapstructure:"steps" yaml:"steps"`
}

// StateConfig controls the session-state file.
type StateConfig struct {
	File string `mapstructure:"file" yaml:"file"`
	// Lock enables the advisory lock around transitions. Off by default: the
	// tool assumes a single writer per workspace.
	Lock bool `mapstructure:"lock" yaml:"lock"`
}

// ValidatorConfig controls how exit-validation scripts are run.
type ValidatorConfig struct {
	Shell  string `mapstructure:"shell" yaml:"shell"`
	Script string `mapstructure:"script" yaml:"script"`
	// TimeoutSeconds bounds a single script run; 0 disables the limit.
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Enabled controls whether logs are written (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty selects <config dir>/logs.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Dir: "~/.claude/skills/skill-creator/workspace",
		},
		Process: ProcessConfig{
			Dir:   "~/.claude/skills/skill-creator/process",
			Steps: process.Reference().Steps(),
		},
		State: StateConfig{
			File: "current-process.json",
			Lock: false,
		},
		Validator: ValidatorConfig{
			Shell:          "bash",
			Script:         "exit-validation.sh",
			TimeoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// WorkspaceDir returns the expanded workspace directory.
func (c *Config) WorkspaceDir() string {
	return ExpandPath(c.Workspace.Dir)
}

// ProcessDir returns the expanded process directory.
func (c *Config) ProcessDir() string {
	return ExpandPath(c.Process.Dir)
}

// LogDir returns the expanded log directory.
func (c *Config) LogDir() string {
	if c.Logging.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return ExpandPath(c.Logging.Dir)
}

// Sequence builds the step sequence from Process.Steps.
func (c *Config) Sequence() (*process.Sequence, error) {
	return process.NewSequence(c.Process.Steps)
}

// Timeout converts TimeoutSeconds to a duration.
func (v ValidatorConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}

// SetDefaults registers defaults and environment bindings with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("workspace.dir", defaults.Workspace.Dir)

	viper.SetDefault("process.dir", defaults.Process.Dir)
	viper.SetDefault("process.steps", defaults.Process.Steps)

	viper.SetDefault("state.file", defaults.State.File)
	viper.SetDefault("state.lock", defaults.State.Lock)

	viper.SetDefault("validator.shell", defaults.Validator.Shell)
	viper.SetDefault("validator.script", defaults.Validator.Script)
	viper.SetDefault("validator.timeout_seconds", defaults.Validator.TimeoutSeconds)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Exit-validation scripts and older tooling export the unprefixed names.
	_ = viper.BindEnv("workspace.dir", EnvPrefix+"_WORKSPACE_DIR", "WORKSPACE_DIR")
	_ = viper.BindEnv("process.dir", EnvPrefix+"_PROCESS_DIR", "PROCESS_DIR")
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "skillgate")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skillgate"
	}
	return filepath.Join(home, ".config", "skillgate")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
