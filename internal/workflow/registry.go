// Package workflow implements the staged execution state machine that
// drives a project from requirements through release.
package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/pkg/models"
)

// SubStageDef defines one atomic unit of work within a stage.
type SubStageDef struct {
	// Key is the stable identifier, unique within the stage.
	Key string `yaml:"key"`
	// Name is the human-readable name.
	Name string `yaml:"name"`
	// Required sub-stages abort the stage on error. Optional ones are
	// logged and skipped.
	Required bool `yaml:"required"`
	// Assist marks a human-assist point invoked before this sub-stage.
	Assist bool `yaml:"assist,omitempty"`
}

// StageDef defines one ordered phase of project execution.
type StageDef struct {
	// Ordinal is the 1-based execution position.
	Ordinal int `yaml:"ordinal"`
	// Key is the stable stage identifier.
	Key string `yaml:"key"`
	// Name is the human-readable name.
	Name string `yaml:"name"`
	// Description summarizes the stage's purpose.
	Description string `yaml:"description,omitempty"`
	// Complexity classifies the work for model selection.
	Complexity models.Complexity `yaml:"complexity"`
	// Agents is the fan-out width: how many tasks the scheduler creates.
	Agents int `yaml:"agents"`
	// Optimize marks a stage whose first sub-stage triggers the
	// optimize hook.
	Optimize bool `yaml:"optimize,omitempty"`
	// SubStages execute in declared order.
	SubStages []SubStageDef `yaml:"sub_stages"`
	// Outputs lists the artifact names the stage declares.
	Outputs []string `yaml:"outputs,omitempty"`
}

// Registry is the canonical ordered list of stage definitions. Both
// the workflow engine and the task scheduler consume the same registry,
// so stage ordinals, complexity tiers, and agent counts cannot drift
// apart.
type Registry struct {
	Stages []StageDef `yaml:"stages"`
}

// Len returns the number of stages.
func (r *Registry) Len() int {
	return len(r.Stages)
}

// Stage returns the definition for the given ordinal.
func (r *Registry) Stage(ordinal int) (*StageDef, error) {
	if ordinal < 1 || ordinal > len(r.Stages) {
		return nil, loomerrors.New(loomerrors.CodeNotFound, "unknown stage %d", ordinal)
	}
	return &r.Stages[ordinal-1], nil
}

// Validate checks structural invariants: contiguous 1-based ordinals,
// unique stage keys, a positive agent count, a known complexity, and
// at least one sub-stage per stage with unique keys.
func (r *Registry) Validate() error {
	if len(r.Stages) == 0 {
		return loomerrors.New(loomerrors.CodeValidation, "registry has no stages")
	}

	keys := make(map[string]bool, len(r.Stages))
	for i, stage := range r.Stages {
		if stage.Ordinal != i+1 {
			return loomerrors.New(loomerrors.CodeValidation,
				"stage %q: ordinal %d at position %d, ordinals must be contiguous from 1", stage.Key, stage.Ordinal, i+1)
		}
		if stage.Key == "" {
			return loomerrors.New(loomerrors.CodeValidation, "stage %d: missing key", stage.Ordinal)
		}
		if keys[stage.Key] {
			return loomerrors.New(loomerrors.CodeValidation, "duplicate stage key %q", stage.Key)
		}
		keys[stage.Key] = true

		if !stage.Complexity.Valid() {
			return loomerrors.New(loomerrors.CodeValidation,
				"stage %q: unknown complexity %q", stage.Key, stage.Complexity)
		}
		if stage.Agents < 1 {
			return loomerrors.New(loomerrors.CodeValidation,
				"stage %q: agent count must be at least 1", stage.Key)
		}
		if len(stage.SubStages) == 0 {
			return loomerrors.New(loomerrors.CodeValidation,
				"stage %q: at least one sub-stage is required", stage.Key)
		}

		subKeys := make(map[string]bool, len(stage.SubStages))
		for _, sub := range stage.SubStages {
			if sub.Key == "" {
				return loomerrors.New(loomerrors.CodeValidation,
					"stage %q: sub-stage with missing key", stage.Key)
			}
			if subKeys[sub.Key] {
				return loomerrors.New(loomerrors.CodeValidation,
					"stage %q: duplicate sub-stage key %q", stage.Key, sub.Key)
			}
			subKeys[sub.Key] = true
		}
	}
	return nil
}

// LoadRegistry reads a stage registry from a YAML file and validates it.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodeValidation, err, "parse registry %s", path)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// DefaultRegistry returns the built-in ten-stage registry.
func DefaultRegistry() *Registry {
	return &Registry{Stages: []StageDef{
		{
			Ordinal:     1,
			Key:         "requirements",
			Name:        "Requirements Analysis",
			Description: "Gather and refine what the project must do",
			Complexity:  models.ComplexityMedium,
			Agents:      2,
			SubStages: []SubStageDef{
				{Key: "gather_requirements", Name: "Gather requirements", Required: true},
				{Key: "clarify_constraints", Name: "Clarify constraints"},
				{Key: "requirements_review", Name: "Requirements review", Required: true, Assist: true},
			},
			Outputs: []string{"requirements.md"},
		},
		{
			Ordinal:     2,
			Key:         "architecture",
			Name:        "Architecture Design",
			Description: "Design the system structure and component boundaries",
			Complexity:  models.ComplexityHigh,
			Agents:      2,
			SubStages: []SubStageDef{
				{Key: "draft_architecture", Name: "Draft architecture", Required: true},
				{Key: "evaluate_tradeoffs", Name: "Evaluate tradeoffs"},
				{Key: "design_review", Name: "Design review", Required: true, Assist: true},
			},
			Outputs: []string{"architecture.md", "component-map.json"},
		},
		{
			Ordinal:     3,
			Key:         "scaffold",
			Name:        "Project Scaffold",
			Description: "Initialize the repository and build tooling",
			Complexity:  models.ComplexityCode,
			Agents:      1,
			SubStages: []SubStageDef{
				{Key: "init_repo", Name: "Initialize repository", Required: true},
				{Key: "configure_tooling", Name: "Configure tooling"},
			},
			Outputs: []string{"repo-layout.txt"},
		},
		{
			Ordinal:     4,
			Key:         "data_model",
			Name:        "Data Model",
			Description: "Design the schema and write migrations",
			Complexity:  models.ComplexityHigh,
			Agents:      2,
			SubStages: []SubStageDef{
				{Key: "design_schema", Name: "Design schema", Required: true},
				{Key: "write_migrations", Name: "Write migrations", Required: true},
				{Key: "seed_data", Name: "Seed data"},
			},
			Outputs: []string{"schema.sql", "migrations/"},
		},
		{
			Ordinal:     5,
			Key:         "backend",
			Name:        "Backend Implementation",
			Description: "Implement services and persistence",
			Complexity:  models.ComplexityCode,
			Agents:      3,
			Optimize:    true,
			SubStages: []SubStageDef{
				{Key: "implement_services", Name: "Implement services", Required: true},
				{Key: "wire_persistence", Name: "Wire persistence", Required: true},
				{Key: "instrument_logging", Name: "Instrument logging"},
			},
			Outputs: []string{"services/"},
		},
		{
			Ordinal:     6,
			Key:         "frontend",
			Name:        "Frontend Implementation",
			Description: "Build views and connect them to the API",
			Complexity:  models.ComplexityCode,
			Agents:      3,
			Optimize:    true,
			SubStages: []SubStageDef{
				{Key: "build_views", Name: "Build views", Required: true},
				{Key: "connect_api", Name: "Connect API", Required: true},
				{Key: "polish_styles", Name: "Polish styles"},
			},
			Outputs: []string{"views/"},
		},
		{
			Ordinal:     7,
			Key:         "integration",
			Name:        "Integration",
			Description: "Integrate components and smoke-test the whole",
			Complexity:  models.ComplexityMedium,
			Agents:      2,
			SubStages: []SubStageDef{
				{Key: "integrate_components", Name: "Integrate components", Required: true},
				{Key: "smoke_test", Name: "Smoke test", Required: true},
			},
			Outputs: []string{"integration-report.md"},
		},
		{
			Ordinal:     8,
			Key:         "testing",
			Name:        "Testing",
			Description: "Write and run the test suite",
			Complexity:  models.ComplexityMedium,
			Agents:      2,
			SubStages: []SubStageDef{
				{Key: "write_tests", Name: "Write tests", Required: true},
				{Key: "run_suite", Name: "Run suite", Required: true},
				{Key: "coverage_report", Name: "Coverage report"},
			},
			Outputs: []string{"test-report.md"},
		},
		{
			Ordinal:     9,
			Key:         "documentation",
			Name:        "Documentation",
			Description: "Produce API reference and user guide",
			Complexity:  models.ComplexityLow,
			Agents:      1,
			SubStages: []SubStageDef{
				{Key: "api_reference", Name: "API reference", Required: true},
				{Key: "user_guide", Name: "User guide"},
			},
			Outputs: []string{"docs/"},
		},
		{
			Ordinal:     10,
			Key:         "release",
			Name:        "Release",
			Description: "Package artifacts and sign off the release",
			Complexity:  models.ComplexityHigh,
			Agents:      1,
			SubStages: []SubStageDef{
				{Key: "package_artifacts", Name: "Package artifacts", Required: true},
				{Key: "deploy_checklist", Name: "Deploy checklist", Required: true},
				{Key: "release_signoff", Name: "Release signoff", Required: true, Assist: true},
			},
			Outputs: []string{"release-notes.md"},
		},
	}}
}
