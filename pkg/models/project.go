package models

import "time"

// ProjectStatus represents the current state of a project.
type ProjectStatus string

const (
	// ProjectStatusCreated indicates the project exists but has not started.
	ProjectStatusCreated ProjectStatus = "created"
	// ProjectStatusRunning indicates stages are currently executing.
	ProjectStatusRunning ProjectStatus = "running"
	// ProjectStatusCompleted indicates all stages finished successfully.
	ProjectStatusCompleted ProjectStatus = "completed"
	// ProjectStatusFailed indicates a stage aborted the project.
	ProjectStatusFailed ProjectStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusCreated, ProjectStatusRunning, ProjectStatusCompleted, ProjectStatusFailed:
		return true
	default:
		return false
	}
}

// Project represents a unit of delivery driven through the stage pipeline.
type Project struct {
	// ID is the unique identifier for this project.
	ID string `json:"id"`
	// Name is the short human-readable project name.
	Name string `json:"name"`
	// Description provides detailed information about the project.
	Description string `json:"description,omitempty"`
	// Requirements is the free-form requirements payload handed to agents.
	Requirements string `json:"requirements,omitempty"`
	// StoryPoints is the effort estimate for the whole project.
	StoryPoints int `json:"story_points,omitempty"`
	// BudgetDaily overrides the configured daily budget in USD (0 = use config).
	BudgetDaily float64 `json:"budget_daily,omitempty"`
	// BudgetMonthly overrides the configured monthly budget in USD (0 = use config).
	BudgetMonthly float64 `json:"budget_monthly,omitempty"`
	// Status is the current state of the project.
	Status ProjectStatus `json:"status"`
	// Error contains the triggering error message if the project failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the project was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the project was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}
