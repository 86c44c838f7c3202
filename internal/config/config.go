// Package config loads workflow configuration from YAML files and the
// environment. It supports XDG config paths, a working-directory
// override, and BRIGHTDESK_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all settings of the workflow core.
type Config struct {
	Defaults   DefaultsConfig   `mapstructure:"defaults"`
	Progress   ProgressConfig   `mapstructure:"progress"`
	Quality    QualityConfig    `mapstructure:"quality"`
	Backoff    BackoffConfig    `mapstructure:"backoff"`
	Oracle     OracleConfig     `mapstructure:"oracle"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Rules      RulesConfig      `mapstructure:"rules"`
	State      StateConfig      `mapstructure:"state"`
}

// DefaultsConfig holds the stamped-on subtask defaults.
type DefaultsConfig struct {
	// MaxRetries is the default retry budget per subtask.
	MaxRetries int `mapstructure:"max_retries"`
	// Timeout is the default per-attempt timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// Parallel allows concurrent waves when a plan supports them.
	Parallel bool `mapstructure:"parallel"`
	// ContinueOnFailure keeps unrelated branches running after a failure.
	ContinueOnFailure bool `mapstructure:"continue_on_failure"`
}

// ProgressConfig tunes progress notifications.
type ProgressConfig struct {
	// ThresholdPercent is the minimum advance between notices.
	ThresholdPercent int `mapstructure:"threshold_percent"`
	// Staleness is the keepalive interval for long-running plans.
	Staleness time.Duration `mapstructure:"staleness"`
}

// QualityConfig tunes the post-run quality phase.
type QualityConfig struct {
	// Enabled toggles the quality phase.
	Enabled bool `mapstructure:"enabled"`
	// MinScore is the acceptance bar for the aggregate score.
	MinScore float64 `mapstructure:"min_score"`
}

// BackoffConfig tunes the top-level retry backoff.
type BackoffConfig struct {
	// Base is the first-step delay.
	Base time.Duration `mapstructure:"base"`
	// Cap bounds delay growth.
	Cap time.Duration `mapstructure:"cap"`
}

// OracleConfig configures the model-backed decomposition oracle.
type OracleConfig struct {
	// Enabled turns the oracle on; rules and passthrough work without it.
	Enabled bool `mapstructure:"enabled"`
	// Model is the Claude model name.
	Model string `mapstructure:"model"`
	// APIKey overrides the ANTHROPIC_API_KEY environment variable.
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes calls through AWS Bedrock.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the Bedrock region.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS shared-config profile.
	AWSProfile string `mapstructure:"aws_profile"`
}

// EscalationConfig configures escalation delivery.
type EscalationConfig struct {
	// Target is the default recipient of escalation messages.
	Target string `mapstructure:"target"`
	// Dir is the root of the file channel's outbox and inbox.
	Dir string `mapstructure:"dir"`
}

// RulesConfig points at an extra decomposition rule file.
type RulesConfig struct {
	// File is an optional YAML rule file appended to the built-ins.
	File string `mapstructure:"file"`
}

// StateConfig configures run recording.
type StateConfig struct {
	// Enabled toggles SQLite run recording.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the default database location.
	Path string `mapstructure:"path"`
}

// UserConfigDir returns the XDG config directory for the workflow core.
func UserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "brightdesk")
}

// Load reads workflow.yaml from the XDG config dir, then the working
// directory, applies BRIGHTDESK_ environment overrides, and fills in
// defaults. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("workflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(UserConfigDir())
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("BRIGHTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadFile reads one specific config file, with defaults and environment
// overrides applied the same way as Load.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix("BRIGHTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("defaults.max_retries", 3)
	v.SetDefault("defaults.timeout", "30s")
	v.SetDefault("defaults.parallel", true)
	v.SetDefault("defaults.continue_on_failure", true)

	v.SetDefault("progress.threshold_percent", 25)
	v.SetDefault("progress.staleness", "60s")

	v.SetDefault("quality.enabled", true)
	v.SetDefault("quality.min_score", 0.7)

	v.SetDefault("backoff.base", "1s")
	v.SetDefault("backoff.cap", "30s")

	v.SetDefault("oracle.enabled", false)
	v.SetDefault("oracle.model", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.use_bedrock", false)
	v.SetDefault("oracle.aws_region", "")
	v.SetDefault("oracle.aws_profile", "")

	v.SetDefault("escalation.target", "operator")
	v.SetDefault("escalation.dir", "")

	v.SetDefault("rules.file", "")

	v.SetDefault("state.enabled", false)
	v.SetDefault("state.path", "")
}
