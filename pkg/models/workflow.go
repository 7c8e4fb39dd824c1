package models

import "time"

// WorkflowStatus represents the state of a workflow instance.
type WorkflowStatus string

const (
	// WorkflowInitialized indicates the instance exists but no stage has run.
	WorkflowInitialized WorkflowStatus = "initialized"
	// WorkflowInProgress indicates at least one stage has completed.
	WorkflowInProgress WorkflowStatus = "in_progress"
	// WorkflowCompleted indicates every stage completed.
	WorkflowCompleted WorkflowStatus = "completed"
	// WorkflowFailed indicates a required sub-stage or stage errored.
	WorkflowFailed WorkflowStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s WorkflowStatus) Valid() bool {
	switch s {
	case WorkflowInitialized, WorkflowInProgress, WorkflowCompleted, WorkflowFailed:
		return true
	default:
		return false
	}
}

// SubStageResult records the outcome of one sub-stage execution.
type SubStageResult struct {
	// Key is the sub-stage key.
	Key string `json:"key"`
	// Name is the human-readable sub-stage name.
	Name string `json:"name"`
	// Required mirrors the definition's required flag.
	Required bool `json:"required"`
	// Status is "completed" or "skipped" (optional sub-stage that errored).
	Status string `json:"status"`
	// Error holds the logged error for a skipped optional sub-stage.
	Error string `json:"error,omitempty"`
	// CompletedAt is when the sub-stage finished.
	CompletedAt time.Time `json:"completed_at"`
}

// StageOutput aggregates the results of a completed stage.
type StageOutput struct {
	// Stage is the stage ordinal.
	Stage int `json:"stage"`
	// Name is the stage name.
	Name string `json:"name"`
	// SubStages holds per-sub-stage results in execution order.
	SubStages []SubStageResult `json:"sub_stages"`
	// Artifacts lists the output artifact names the stage declares.
	Artifacts []string `json:"artifacts,omitempty"`
	// CompletedAt is when the stage finished.
	CompletedAt time.Time `json:"completed_at"`
}

// WorkflowInstance is the per-project runtime state of the stage machine.
// One instance exists per project; it is mutated only by the workflow
// engine and snapshotted to the context store after every transition.
type WorkflowInstance struct {
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// CurrentStage is the ordinal of the next stage to execute.
	CurrentStage int `json:"current_stage"`
	// CurrentSubStage is the key of the next sub-stage within CurrentStage.
	CurrentSubStage string `json:"current_sub_stage"`
	// CompletedStages lists completed stage ordinals in strictly
	// increasing order. A stage appears here only if every required
	// sub-stage completed without error.
	CompletedStages []int `json:"completed_stages"`
	// CompletedSubStages maps stage ordinal to completed sub-stage keys.
	CompletedSubStages map[int][]string `json:"completed_sub_stages"`
	// StageOutputs maps stage ordinal to its aggregated output record.
	StageOutputs map[int]StageOutput `json:"stage_outputs"`
	// Status is the state-machine status.
	Status WorkflowStatus `json:"status"`
	// Error is the triggering error message when Status is failed.
	Error string `json:"error,omitempty"`
	// StartedAt is when the workflow was initialized.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the workflow reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Duration is the wall-clock duration of a completed workflow.
	Duration time.Duration `json:"duration,omitempty"`
}

// StageCompleted returns true if the given stage ordinal is in CompletedStages.
func (w *WorkflowInstance) StageCompleted(stage int) bool {
	for _, s := range w.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}
