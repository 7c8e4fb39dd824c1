package workflow

import (
	"os"
	"path/filepath"
	"testing"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/pkg/models"
)

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	if err := reg.Validate(); err != nil {
		t.Fatalf("default registry invalid: %v", err)
	}
	if reg.Len() != 10 {
		t.Errorf("expected 10 stages, got %d", reg.Len())
	}

	// Every stage must carry at least one required sub-stage so a
	// stage cannot complete with all work skipped.
	for _, stage := range reg.Stages {
		required := 0
		for _, sub := range stage.SubStages {
			if sub.Required {
				required++
			}
		}
		if required == 0 {
			t.Errorf("stage %s has no required sub-stages", stage.Key)
		}
	}
}

func TestRegistryStage(t *testing.T) {
	reg := DefaultRegistry()

	stage, err := reg.Stage(5)
	if err != nil {
		t.Fatalf("Stage(5): %v", err)
	}
	if stage.Key != "backend" || stage.Agents != 3 || !stage.Optimize {
		t.Errorf("unexpected stage 5: %+v", stage)
	}
	if stage.Complexity != models.ComplexityCode {
		t.Errorf("stage 5 complexity = %s, want code", stage.Complexity)
	}

	for _, ordinal := range []int{0, 11, -1} {
		if _, err := reg.Stage(ordinal); !loomerrors.IsNotFound(err) {
			t.Errorf("Stage(%d): expected not-found, got %v", ordinal, err)
		}
	}
}

func TestRegistryValidate(t *testing.T) {
	valid := func() *Registry {
		return &Registry{Stages: []StageDef{
			{Ordinal: 1, Key: "one", Name: "One", Complexity: models.ComplexityLow, Agents: 1,
				SubStages: []SubStageDef{{Key: "a", Name: "A", Required: true}}},
			{Ordinal: 2, Key: "two", Name: "Two", Complexity: models.ComplexityHigh, Agents: 2,
				SubStages: []SubStageDef{{Key: "b", Name: "B", Required: true}}},
		}}
	}

	tests := []struct {
		name   string
		mutate func(*Registry)
	}{
		{"empty registry", func(r *Registry) { r.Stages = nil }},
		{"gap in ordinals", func(r *Registry) { r.Stages[1].Ordinal = 3 }},
		{"duplicate key", func(r *Registry) { r.Stages[1].Key = "one" }},
		{"missing key", func(r *Registry) { r.Stages[0].Key = "" }},
		{"unknown complexity", func(r *Registry) { r.Stages[0].Complexity = "extreme" }},
		{"zero agents", func(r *Registry) { r.Stages[0].Agents = 0 }},
		{"no sub-stages", func(r *Registry) { r.Stages[0].SubStages = nil }},
		{"duplicate sub-stage key", func(r *Registry) {
			r.Stages[0].SubStages = append(r.Stages[0].SubStages, SubStageDef{Key: "a", Name: "A2"})
		}},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline registry should be valid: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid()
			tt.mutate(reg)
			err := reg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !loomerrors.IsValidation(err) {
				t.Errorf("expected validation code, got %v", err)
			}
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stages.yaml")

	content := `stages:
  - ordinal: 1
    key: plan
    name: Planning
    complexity: medium
    agents: 2
    sub_stages:
      - key: outline
        name: Outline
        required: true
      - key: review
        name: Review
        assist: true
  - ordinal: 2
    key: build
    name: Build
    complexity: code
    agents: 3
    optimize: true
    sub_stages:
      - key: implement
        name: Implement
        required: true
    outputs:
      - build/
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 stages, got %d", reg.Len())
	}
	if !reg.Stages[0].SubStages[1].Assist {
		t.Errorf("expected assist flag on review sub-stage")
	}
	if !reg.Stages[1].Optimize || reg.Stages[1].Outputs[0] != "build/" {
		t.Errorf("unexpected build stage: %+v", reg.Stages[1])
	}
}

func TestLoadRegistry_Invalid(t *testing.T) {
	dir := t.TempDir()

	badYAML := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badYAML, []byte("stages: ["), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadRegistry(badYAML); !loomerrors.IsValidation(err) {
		t.Errorf("expected validation error for malformed yaml, got %v", err)
	}

	badReg := filepath.Join(dir, "badreg.yaml")
	content := `stages:
  - ordinal: 2
    key: plan
    name: Planning
    complexity: medium
    agents: 1
    sub_stages:
      - key: outline
        name: Outline
`
	if err := os.WriteFile(badReg, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadRegistry(badReg); !loomerrors.IsValidation(err) {
		t.Errorf("expected validation error for bad ordinals, got %v", err)
	}

	if _, err := LoadRegistry(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
