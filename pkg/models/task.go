package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not started.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusRunning indicates the task is being executed.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task represents one agent's unit of work within a stage.
// Exactly one task exists per (stage, agent) pair and it reaches
// exactly one terminal state.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// Stage is the ordinal of the stage this task belongs to.
	Stage int `json:"stage"`
	// AgentName identifies the agent slot executing this task.
	AgentName string `json:"agent_name"`
	// Model is the model identifier selected for this task.
	Model string `json:"model,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Input is the payload handed to the model-execution collaborator.
	Input string `json:"input,omitempty"`
	// Output is the result payload reported by the collaborator.
	Output string `json:"output,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution began, if it did.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CostRecord is one append-only entry of model spend.
// Records are immutable once written and are the sole input to
// all budget aggregates.
type CostRecord struct {
	// ProjectID is the owning project.
	ProjectID string `json:"project_id"`
	// TaskID is the task this spend belongs to.
	TaskID string `json:"task_id"`
	// AgentName identifies the agent that incurred the spend.
	AgentName string `json:"agent_name"`
	// Model is the model identifier that was billed.
	Model string `json:"model"`
	// TokensInput is the number of input tokens consumed.
	TokensInput int64 `json:"tokens_input"`
	// TokensOutput is the number of output tokens produced.
	TokensOutput int64 `json:"tokens_output"`
	// Cost is the computed spend in USD.
	Cost float64 `json:"cost_usd"`
	// RecordedAt is when the record was written.
	RecordedAt time.Time `json:"recorded_at"`
}
