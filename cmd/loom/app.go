package main

import (
	"fmt"
	"os"

	"github.com/rfoley/loom/internal/budget"
	"github.com/rfoley/loom/internal/config"
	"github.com/rfoley/loom/internal/logging"
	"github.com/rfoley/loom/internal/modelexec"
	"github.com/rfoley/loom/internal/orchestrator"
	"github.com/rfoley/loom/internal/state"
	"github.com/rfoley/loom/internal/workflow"
)

// app holds the wired component stack for a command invocation.
// One database connection pool is opened per process and shared by
// every component; Close drains it on teardown.
type app struct {
	cfg      *config.Config
	db       *state.DB
	budget   *budget.Manager
	registry *workflow.Registry
	engine   *workflow.Engine
	orch     *orchestrator.Orchestrator
	logger   *logging.DebugLogger
}

// newApp loads configuration and wires the full stack rooted in the
// current working directory.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	db, err := state.Open(state.ProjectDBPath(cwd))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger := logging.NewDebugLoggerForProject(cwd)

	mgr := budget.NewManager(db, cfg.Budget.Daily, cfg.Budget.Monthly)

	registry := workflow.DefaultRegistry()
	if cfg.Workflow.RegistryPath != "" {
		registry, err = workflow.LoadRegistry(cfg.Workflow.RegistryPath)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("load stage registry: %w", err)
		}
	}

	executor, err := buildExecutor(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		Store:    db,
		Budget:   mgr,
		Registry: registry,
		Executor: executor,
	},
		orchestrator.WithMaxConcurrent(cfg.Scheduler.MaxConcurrentTasks),
		orchestrator.WithTaskTimeout(cfg.Scheduler.TaskTimeout),
		orchestrator.WithRetries(cfg.Scheduler.TaskRetries, cfg.Scheduler.RetryBackoff),
		orchestrator.WithLogger(logger),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	engine := workflow.NewEngine(registry, db, workflow.WithLogger(logger))

	return &app{
		cfg:      cfg,
		db:       db,
		budget:   mgr,
		registry: registry,
		engine:   engine,
		orch:     orch,
		logger:   logger,
	}, nil
}

// buildExecutor wires the model router: Anthropic (direct or Bedrock)
// for hosted models, Ollama for local ones. A missing Anthropic key is
// tolerated so local-only setups still work; hosted requests then fail
// with a clear error.
func buildExecutor(cfg *config.Config) (orchestrator.ModelExecutor, error) {
	var hosted orchestrator.ModelExecutor
	if anthropic, err := modelexec.NewAnthropicExecutor(cfg.Anthropic); err == nil {
		hosted = anthropic
	}

	local := modelexec.NewOllamaExecutor(cfg.Ollama.Host)

	return modelexec.NewRouter(hosted, local), nil
}

// Close releases the shared resources.
func (a *app) Close() {
	a.logger.Close()
	a.db.Close()
}
