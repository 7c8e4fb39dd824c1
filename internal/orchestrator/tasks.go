package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/workflow"
	"github.com/rfoley/loom/pkg/models"
)

// createTask persists one pending task for an agent slot in a stage.
func (o *Orchestrator) createTask(projectID string, stage *workflow.StageDef, agent int, model string) (*models.Task, error) {
	task := &models.Task{
		ID:        uuid.New().String()[:8],
		ProjectID: projectID,
		Stage:     stage.Ordinal,
		AgentName: fmt.Sprintf("%s-agent-%d", stage.Key, agent),
		Model:     model,
		Status:    models.TaskStatusPending,
		Input:     stage.Description,
		CreatedAt: o.now().UTC(),
	}
	if err := o.store.CreateTask(task); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "create task for stage %d", stage.Ordinal)
	}
	return task, nil
}

// executeTask drives one task through pending → running → terminal.
// Execution failures are retried with exponential backoff up to the
// configured attempt count; persistence failures are never retried.
// On success, cost is recorded exactly once from the executor's
// reported token counts.
func (o *Orchestrator) executeTask(ctx context.Context, task *models.Task) (*ExecResult, error) {
	started := o.now().UTC()
	task.Status = models.TaskStatusRunning
	task.StartedAt = &started
	if err := o.store.UpdateTask(task); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "mark task %s running", task.ID)
	}

	result, execErr := o.executeWithRetry(ctx, task)
	if execErr != nil {
		return nil, o.failTask(task, execErr)
	}

	if _, err := o.budget.RecordCost(task.ProjectID, task.ID, task.AgentName, task.Model,
		result.TokensInput, result.TokensOutput); err != nil {
		return nil, o.failTask(task, err)
	}

	done := o.now().UTC()
	task.Status = models.TaskStatusCompleted
	task.Output = result.Result
	task.CompletedAt = &done
	if err := o.store.UpdateTask(task); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "mark task %s completed", task.ID)
	}

	o.logger.Log("task %s: completed (%d in / %d out tokens)", task.ID, result.TokensInput, result.TokensOutput)
	return result, nil
}

// executeWithRetry invokes the executor under the per-task deadline,
// retrying transient execution failures. Cancellation of ctx stops
// further attempts immediately.
func (o *Orchestrator) executeWithRetry(ctx context.Context, task *models.Task) (*ExecResult, error) {
	req := ExecRequest{
		TaskID:    task.ID,
		ProjectID: task.ProjectID,
		Stage:     task.Stage,
		AgentName: task.AgentName,
		Model:     task.Model,
		Input:     task.Input,
	}

	backoff := o.retryBackoff
	var lastErr error

	for attempt := 0; attempt <= o.taskRetries; attempt++ {
		if attempt > 0 {
			o.logger.Log("task %s: retry %d/%d after %v", task.ID, attempt, o.taskRetries, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, loomerrors.Wrap(loomerrors.CodeTaskExecution, ctx.Err(), "task %s cancelled", task.ID)
			}
			backoff *= 2
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if o.taskTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, o.taskTimeout)
		}
		result, err := o.executor.Execute(attemptCtx, req)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			// The stage was cancelled; do not burn retries.
			break
		}
	}

	return nil, loomerrors.Wrap(loomerrors.CodeTaskExecution, lastErr, "task %s execution failed", task.ID)
}

// failTask persists the terminal failed state with the error message,
// then returns the error.
func (o *Orchestrator) failTask(task *models.Task, cause error) error {
	done := o.now().UTC()
	task.Status = models.TaskStatusFailed
	task.Error = cause.Error()
	task.CompletedAt = &done
	if err := o.store.UpdateTask(task); err != nil {
		o.logger.Log("task %s: failed to persist failure: %v", task.ID, err)
	}
	return cause
}
