package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Budget.Daily != 50.0 {
		t.Errorf("expected daily budget 50.0, got %v", cfg.Budget.Daily)
	}
	if cfg.Budget.Monthly != 1000.0 {
		t.Errorf("expected monthly budget 1000.0, got %v", cfg.Budget.Monthly)
	}
	if cfg.Scheduler.MaxConcurrentTasks != 3 {
		t.Errorf("expected max concurrent tasks 3, got %d", cfg.Scheduler.MaxConcurrentTasks)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("unexpected ollama host %q", cfg.Ollama.Host)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
budget:
  daily: 25.5
  monthly: 400
scheduler:
  max_concurrent_tasks: 8
  task_timeout: 30s
  task_retries: 0
workflow:
  registry_path: stages.yaml
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Budget.Daily != 25.5 {
		t.Errorf("expected daily budget 25.5, got %v", cfg.Budget.Daily)
	}
	if cfg.Budget.Monthly != 400 {
		t.Errorf("expected monthly budget 400, got %v", cfg.Budget.Monthly)
	}
	if cfg.Scheduler.MaxConcurrentTasks != 8 {
		t.Errorf("expected max concurrent tasks 8, got %d", cfg.Scheduler.MaxConcurrentTasks)
	}
	if cfg.Scheduler.TaskTimeout != 30*time.Second {
		t.Errorf("expected task timeout 30s, got %v", cfg.Scheduler.TaskTimeout)
	}
	if cfg.Scheduler.TaskRetries != 0 {
		t.Errorf("expected task retries 0, got %d", cfg.Scheduler.TaskRetries)
	}
	if cfg.Workflow.RegistryPath != "stages.yaml" {
		t.Errorf("expected registry path stages.yaml, got %q", cfg.Workflow.RegistryPath)
	}
}

func TestLoadFromPath_DefaultsApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	// Partial config: unset keys should fall back to defaults.
	if err := os.WriteFile(path, []byte("budget:\n  daily: 10\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Budget.Daily != 10 {
		t.Errorf("expected daily budget 10, got %v", cfg.Budget.Daily)
	}
	if cfg.Budget.Monthly != 1000.0 {
		t.Errorf("expected default monthly budget, got %v", cfg.Budget.Monthly)
	}
	if cfg.Scheduler.TaskTimeout != 10*time.Minute {
		t.Errorf("expected default task timeout, got %v", cfg.Scheduler.TaskTimeout)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
