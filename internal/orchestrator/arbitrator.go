package orchestrator

import "context"

// Conflict describes an incompatibility between concurrent task
// outputs within a stage, as reported by the arbitrator.
type Conflict struct {
	// Stage is the stage ordinal the conflict was detected in.
	Stage int `json:"stage"`
	// TaskIDs lists the tasks involved.
	TaskIDs []string `json:"task_ids"`
	// Description is a human-readable summary.
	Description string `json:"description"`
}

// Arbitrator checks a completed stage for conflicts between its tasks.
// Detection is external; the scheduler only queries and logs the
// result. Conflicts do not block progression.
type Arbitrator interface {
	CheckConflicts(ctx context.Context, projectID string, stage int) ([]Conflict, error)
}

// NopArbitrator reports no conflicts.
type NopArbitrator struct{}

func (NopArbitrator) CheckConflicts(ctx context.Context, projectID string, stage int) ([]Conflict, error) {
	return nil, nil
}
