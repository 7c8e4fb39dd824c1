// Package config handles configuration loading and management for Loom.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Loom.
type Config struct {
	Anthropic Anthropic `mapstructure:"anthropic"`
	Ollama    Ollama    `mapstructure:"ollama"`
	Budget    Budget    `mapstructure:"budget"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Workflow  Workflow  `mapstructure:"workflow"`
}

// Anthropic holds Anthropic API settings.
type Anthropic struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes requests through AWS Bedrock instead of the direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// Ollama holds settings for the local model server.
type Ollama struct {
	Host string `mapstructure:"host"`
}

// Budget holds the budget ceilings in USD.
type Budget struct {
	Daily   float64 `mapstructure:"daily"`
	Monthly float64 `mapstructure:"monthly"`
}

// Scheduler holds task scheduling settings.
type Scheduler struct {
	// MaxConcurrentTasks bounds the per-stage fan-out.
	MaxConcurrentTasks int `mapstructure:"max_concurrent_tasks"`
	// TaskTimeout is the per-task execution deadline.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// TaskRetries is the number of additional attempts after a
	// failed task execution (0 disables retry).
	TaskRetries int `mapstructure:"task_retries"`
	// RetryBackoff is the initial backoff between attempts; it doubles
	// per attempt.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// Workflow holds workflow engine settings.
type Workflow struct {
	// RegistryPath points to a YAML stage registry. Empty uses the
	// built-in registry.
	RegistryPath string `mapstructure:"registry_path"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, LOOM_*)
// 2. Project config (.loom.yaml in current directory or parent)
// 3. User config (~/.config/loom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("LOOM")
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("ollama.host", "OLLAMA_HOST")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("ollama.host", cfg.Ollama.Host)
	v.Set("budget.daily", cfg.Budget.Daily)
	v.Set("budget.monthly", cfg.Budget.Monthly)
	v.Set("scheduler.max_concurrent_tasks", cfg.Scheduler.MaxConcurrentTasks)
	v.Set("scheduler.task_timeout", cfg.Scheduler.TaskTimeout.String())
	v.Set("scheduler.task_retries", cfg.Scheduler.TaskRetries)
	v.Set("scheduler.retry_backoff", cfg.Scheduler.RetryBackoff.String())
	v.Set("workflow.registry_path", cfg.Workflow.RegistryPath)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("ollama.host", "http://localhost:11434")

	v.SetDefault("budget.daily", 50.0)
	v.SetDefault("budget.monthly", 1000.0)

	v.SetDefault("scheduler.max_concurrent_tasks", 3)
	v.SetDefault("scheduler.task_timeout", "10m")
	v.SetDefault("scheduler.task_retries", 2)
	v.SetDefault("scheduler.retry_backoff", "2s")

	v.SetDefault("workflow.registry_path", "")
}

// getUserConfigDir returns the XDG config directory for Loom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "loom")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "loom")
	}
	return filepath.Join(home, ".config", "loom")
}

// findProjectConfig searches for .loom.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".loom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Ollama: Ollama{
			Host: "http://localhost:11434",
		},
		Budget: Budget{
			Daily:   50.0,
			Monthly: 1000.0,
		},
		Scheduler: Scheduler{
			MaxConcurrentTasks: 3,
			TaskTimeout:        10 * time.Minute,
			TaskRetries:        2,
			RetryBackoff:       2 * time.Second,
		},
	}
}
