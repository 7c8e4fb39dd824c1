package orchestrator

import (
	"github.com/rfoley/loom/internal/budget"
	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/state"
	"github.com/rfoley/loom/pkg/models"
)

// Metrics aggregates project and task counts with budget status and
// context-store totals.
type Metrics struct {
	Projects  map[models.ProjectStatus]int `json:"projects"`
	Tasks     map[models.TaskStatus]int    `json:"tasks"`
	Budget    *budget.Status               `json:"budget"`
	Contexts  int                          `json:"contexts"`
	TotalCost float64                      `json:"total_cost"`
}

// GetMetrics assembles the current coordinator metrics from storage
// and the budget manager.
func (o *Orchestrator) GetMetrics() (*Metrics, error) {
	projects, err := o.store.CountProjectsByStatus()
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "count projects")
	}
	tasks, err := o.store.CountTasksByStatus()
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "count tasks")
	}
	status, err := o.budget.GetStatus("")
	if err != nil {
		return nil, err
	}
	contexts, err := o.store.CountContexts()
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "count contexts")
	}
	totalCost, err := o.store.GetCounter(state.CounterTotalCost)
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "read total cost counter")
	}

	return &Metrics{
		Projects:  projects,
		Tasks:     tasks,
		Budget:    status,
		Contexts:  contexts,
		TotalCost: totalCost,
	}, nil
}
