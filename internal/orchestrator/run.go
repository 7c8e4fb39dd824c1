package orchestrator

import (
	"context"
	"sync"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/workflow"
	"github.com/rfoley/loom/pkg/models"
)

// ExecuteProject runs every stage of the registry for the project in
// ascending ordinal order. The project transitions created → running,
// then completed on success or failed with the triggering message.
// Cancelling ctx stops scheduling of not-yet-started tasks.
func (o *Orchestrator) ExecuteProject(ctx context.Context, projectID string) error {
	p, err := o.store.GetProject(projectID)
	if err != nil {
		return loomerrors.Wrap(loomerrors.CodePersistence, err, "load project %s", projectID)
	}
	if p == nil {
		return loomerrors.New(loomerrors.CodeNotFound, "project %s not found", projectID)
	}

	p.Status = models.ProjectStatusRunning
	if err := o.store.UpdateProject(p); err != nil {
		return loomerrors.Wrap(loomerrors.CodePersistence, err, "mark project running")
	}
	o.logger.Log("project %s: running, %d stages", projectID, o.registry.Len())

	for _, stage := range o.registry.Stages {
		if err := ctx.Err(); err != nil {
			return o.failProject(p, loomerrors.Wrap(loomerrors.CodeTaskExecution, err, "project cancelled before stage %d", stage.Ordinal))
		}
		if err := o.ExecuteStage(ctx, projectID, &stage); err != nil {
			return o.failProject(p, err)
		}
	}

	p.Status = models.ProjectStatusCompleted
	if err := o.store.UpdateProject(p); err != nil {
		return loomerrors.Wrap(loomerrors.CodePersistence, err, "mark project completed")
	}
	o.logger.Log("project %s: completed", projectID)
	return nil
}

// ExecuteStage selects one shared model for the stage, fans out one
// task per agent bounded by the concurrency limit, joins on all of
// them, and afterwards asks the arbitrator for conflicts. The first
// task failure cancels not-yet-started siblings and fails the stage.
func (o *Orchestrator) ExecuteStage(ctx context.Context, projectID string, stage *workflow.StageDef) error {
	model, err := o.budget.SelectModel(stage.Complexity, projectID)
	if err != nil {
		return err
	}
	o.logger.Log("project %s: stage %d (%s) using model %s, %d agents",
		projectID, stage.Ordinal, stage.Key, model, stage.Agents)

	tasks := make([]*models.Task, 0, stage.Agents)
	for i := 0; i < stage.Agents; i++ {
		task, err := o.createTask(projectID, stage, i+1, model)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	stageCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, o.maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, task := range tasks {
		// A failed sibling cancels the stage; tasks that have not
		// started stay pending.
		if stageCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(task *models.Task) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-stageCtx.Done():
				return
			}
			if stageCtx.Err() != nil {
				return
			}

			if _, err := o.executeTask(stageCtx, task); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					cancel()
				}
				mu.Unlock()
			}
		}(task)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := ctx.Err(); err != nil {
		return loomerrors.Wrap(loomerrors.CodeTaskExecution, err, "stage %d cancelled", stage.Ordinal)
	}

	conflicts, err := o.arbitrator.CheckConflicts(ctx, projectID, stage.Ordinal)
	if err != nil {
		o.logger.Log("project %s: conflict check for stage %d errored: %v", projectID, stage.Ordinal, err)
	}
	for _, c := range conflicts {
		o.logger.Log("project %s: conflict in stage %d: %s (tasks %v)",
			projectID, c.Stage, c.Description, c.TaskIDs)
	}

	return nil
}

// failProject records the failed status and the triggering message,
// then returns the original error.
func (o *Orchestrator) failProject(p *models.Project, cause error) error {
	p.Status = models.ProjectStatusFailed
	p.Error = cause.Error()
	if err := o.store.UpdateProject(p); err != nil {
		o.logger.Log("project %s: failed to persist failure: %v", p.ID, err)
	}
	o.logger.Log("project %s: failed: %v", p.ID, cause)
	return cause
}
