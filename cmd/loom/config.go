package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rfoley/loom/internal/config"
)

// parseDuration parses a duration string like "10m" or "2s".
func parseDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", value)
	}
	return d, nil
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Loom configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/loom/config.yaml
Project-specific overrides can be placed in .loom.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
	fmt.Printf("ollama.host: %s\n", cfg.Ollama.Host)
	fmt.Printf("budget.daily: %.2f\n", cfg.Budget.Daily)
	fmt.Printf("budget.monthly: %.2f\n", cfg.Budget.Monthly)
	fmt.Printf("scheduler.max_concurrent_tasks: %d\n", cfg.Scheduler.MaxConcurrentTasks)
	fmt.Printf("scheduler.task_timeout: %s\n", cfg.Scheduler.TaskTimeout)
	fmt.Printf("scheduler.task_retries: %d\n", cfg.Scheduler.TaskRetries)
	fmt.Printf("scheduler.retry_backoff: %s\n", cfg.Scheduler.RetryBackoff)
	fmt.Printf("workflow.registry_path: %s\n", cfg.Workflow.RegistryPath)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "ollama.host":
		return cfg.Ollama.Host, nil
	case "budget.daily":
		return strconv.FormatFloat(cfg.Budget.Daily, 'f', 2, 64), nil
	case "budget.monthly":
		return strconv.FormatFloat(cfg.Budget.Monthly, 'f', 2, 64), nil
	case "scheduler.max_concurrent_tasks":
		return strconv.Itoa(cfg.Scheduler.MaxConcurrentTasks), nil
	case "scheduler.task_timeout":
		return cfg.Scheduler.TaskTimeout.String(), nil
	case "scheduler.task_retries":
		return strconv.Itoa(cfg.Scheduler.TaskRetries), nil
	case "scheduler.retry_backoff":
		return cfg.Scheduler.RetryBackoff.String(), nil
	case "workflow.registry_path":
		return cfg.Workflow.RegistryPath, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue updates a configuration field by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "ollama.host":
		cfg.Ollama.Host = value
	case "budget.daily":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid budget: %s", value)
		}
		cfg.Budget.Daily = f
	case "budget.monthly":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid budget: %s", value)
		}
		cfg.Budget.Monthly = f
	case "scheduler.max_concurrent_tasks":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid concurrency: %s", value)
		}
		cfg.Scheduler.MaxConcurrentTasks = n
	case "scheduler.task_timeout":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Scheduler.TaskTimeout = d
	case "scheduler.task_retries":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid retry count: %s", value)
		}
		cfg.Scheduler.TaskRetries = n
	case "scheduler.retry_backoff":
		d, err := parseDuration(value)
		if err != nil {
			return err
		}
		cfg.Scheduler.RetryBackoff = d
	case "workflow.registry_path":
		cfg.Workflow.RegistryPath = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
