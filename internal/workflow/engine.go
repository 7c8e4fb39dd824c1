package workflow

import (
	"context"
	"encoding/json"
	"time"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/logging"
	"github.com/rfoley/loom/internal/state"
	"github.com/rfoley/loom/pkg/models"
)

// WorkflowKey returns the context-store key for a project's workflow
// snapshot.
func WorkflowKey(projectID string) string {
	return "workflow:" + projectID
}

// Engine drives the per-project stage state machine. It owns ordering,
// required/optional semantics, and snapshot persistence; the actual
// work of a sub-stage is delegated to the injected SubStageRunner.
// Stages for a given project execute strictly in ascending ordinal
// order.
type Engine struct {
	registry *Registry
	store    state.ContextStore
	runner   SubStageRunner
	assist   AssistAgent
	optimize OptimizeAgent
	gate     HumanGate
	logger   *logging.DebugLogger
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRunner sets the sub-stage runner.
func WithRunner(r SubStageRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// WithAssist sets the human-assist collaborator.
func WithAssist(a AssistAgent) Option {
	return func(e *Engine) { e.assist = a }
}

// WithOptimize sets the optimize collaborator.
func WithOptimize(o OptimizeAgent) Option {
	return func(e *Engine) { e.optimize = o }
}

// WithGate sets the human-in-loop gate invoked between stages.
func WithGate(g HumanGate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over the given registry and snapshot
// store. All collaborators default to no-ops.
func NewEngine(registry *Registry, store state.ContextStore, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		store:    store,
		runner: SubStageRunnerFunc(func(context.Context, string, int, SubStageDef) error {
			return nil
		}),
		assist:   NopAssist{},
		optimize: NopOptimize{},
		gate:     NopGate{},
		logger:   logging.NopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the stage registry the engine executes.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// InitializeWorkflow creates a new workflow instance for the project
// in the initialized state, positioned at the first sub-stage of stage
// 1, and persists the initial snapshot.
func (e *Engine) InitializeWorkflow(projectID string) (*models.WorkflowInstance, error) {
	first, err := e.registry.Stage(1)
	if err != nil {
		return nil, err
	}

	inst := &models.WorkflowInstance{
		ProjectID:          projectID,
		CurrentStage:       1,
		CurrentSubStage:    first.SubStages[0].Key,
		CompletedStages:    []int{},
		CompletedSubStages: make(map[int][]string),
		StageOutputs:       make(map[int]models.StageOutput),
		Status:             models.WorkflowInitialized,
		StartedAt:          e.now().UTC(),
	}

	if err := e.persist(inst); err != nil {
		return nil, err
	}
	e.logger.Log("workflow %s: initialized, %d stages", projectID, e.registry.Len())
	return inst, nil
}

// GetWorkflow loads the project's workflow snapshot.
func (e *Engine) GetWorkflow(projectID string) (*models.WorkflowInstance, error) {
	data, err := e.store.GetContext(WorkflowKey(projectID))
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "load workflow %s", projectID)
	}
	if data == nil {
		return nil, loomerrors.New(loomerrors.CodeNotFound, "no workflow for project %s", projectID)
	}

	var inst models.WorkflowInstance
	if err := json.Unmarshal(data, &inst); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "decode workflow %s", projectID)
	}
	return &inst, nil
}

// ExecuteStage runs every sub-stage of the given stage in declared
// order. A required sub-stage error aborts immediately: the stage is
// not added to CompletedStages, the workflow is marked failed, and the
// error propagates. Optional sub-stage errors are logged and skipped.
// On success the stage's ordinal is appended to CompletedStages and
// the snapshot is persisted.
func (e *Engine) ExecuteStage(ctx context.Context, projectID string, stageID int) (*models.StageOutput, error) {
	inst, err := e.GetWorkflow(projectID)
	if err != nil {
		return nil, err
	}
	stage, err := e.registry.Stage(stageID)
	if err != nil {
		return nil, err
	}

	e.logger.Log("workflow %s: executing stage %d (%s)", projectID, stageID, stage.Key)
	inst.CurrentStage = stageID

	results := make([]models.SubStageResult, 0, len(stage.SubStages))
	for i, sub := range stage.SubStages {
		inst.CurrentSubStage = sub.Key

		res, err := e.executeSubStage(ctx, inst, stage, sub, i == 0)
		if err != nil {
			if sub.Required {
				return nil, e.failStage(inst, stage, sub, err)
			}
			e.logger.Log("workflow %s: optional sub-stage %s skipped: %v", projectID, sub.Key, err)
			results = append(results, models.SubStageResult{
				Key:         sub.Key,
				Name:        sub.Name,
				Required:    false,
				Status:      "skipped",
				Error:       err.Error(),
				CompletedAt: e.now().UTC(),
			})
			continue
		}
		results = append(results, *res)
	}

	output := models.StageOutput{
		Stage:       stageID,
		Name:        stage.Name,
		SubStages:   results,
		Artifacts:   stage.Outputs,
		CompletedAt: e.now().UTC(),
	}
	inst.StageOutputs[stageID] = output
	inst.CompletedStages = append(inst.CompletedStages, stageID)
	inst.CurrentStage = stageID + 1

	if stageID == e.registry.Len() {
		inst.Status = models.WorkflowCompleted
		done := e.now().UTC()
		inst.CompletedAt = &done
		inst.Duration = done.Sub(inst.StartedAt)
	} else {
		inst.Status = models.WorkflowInProgress
		next, err := e.registry.Stage(stageID + 1)
		if err != nil {
			return nil, err
		}
		inst.CurrentSubStage = next.SubStages[0].Key
	}

	if err := e.persist(inst); err != nil {
		return nil, err
	}
	e.logger.Log("workflow %s: stage %d complete", projectID, stageID)
	return &output, nil
}

// ExecuteWorkflow runs all stages in ascending ordinal order, invoking
// the human-in-loop gate after each successful stage. Already-completed
// stages are skipped, so a failed workflow can be resumed. On any
// propagated error the workflow is failed with the triggering message.
func (e *Engine) ExecuteWorkflow(ctx context.Context, projectID string) (*models.WorkflowInstance, error) {
	inst, err := e.GetWorkflow(projectID)
	if err != nil {
		return nil, err
	}

	for ordinal := 1; ordinal <= e.registry.Len(); ordinal++ {
		if inst.StageCompleted(ordinal) {
			continue
		}
		if _, err := e.ExecuteStage(ctx, projectID, ordinal); err != nil {
			return nil, err
		}
		if err := e.gate.Approve(ctx, projectID, ordinal); err != nil {
			inst, loadErr := e.GetWorkflow(projectID)
			if loadErr == nil {
				inst.Status = models.WorkflowFailed
				inst.Error = err.Error()
				e.persist(inst)
			}
			return nil, loomerrors.Wrap(loomerrors.CodeWorkflowStage, err, "gate rejected after stage %d", ordinal)
		}
		// Reload so the loop observes the persisted transition.
		inst, err = e.GetWorkflow(projectID)
		if err != nil {
			return nil, err
		}
	}
	return inst, nil
}

// executeSubStage runs the collaborator hooks and the sub-stage work,
// then records the key in CompletedSubStages.
func (e *Engine) executeSubStage(ctx context.Context, inst *models.WorkflowInstance, stage *StageDef, sub SubStageDef, first bool) (*models.SubStageResult, error) {
	if sub.Assist {
		if err := e.assist.Assist(ctx, inst.ProjectID, stage.Ordinal, sub.Key); err != nil {
			return nil, loomerrors.Wrap(loomerrors.CodeWorkflowStage, err, "assist hook for %s", sub.Key)
		}
	}
	if first && stage.Optimize {
		if err := e.optimize.Optimize(ctx, inst.ProjectID, stage.Ordinal); err != nil {
			return nil, loomerrors.Wrap(loomerrors.CodeWorkflowStage, err, "optimize hook for stage %d", stage.Ordinal)
		}
	}

	if err := e.runner.RunSubStage(ctx, inst.ProjectID, stage.Ordinal, sub); err != nil {
		return nil, err
	}

	inst.CompletedSubStages[stage.Ordinal] = append(inst.CompletedSubStages[stage.Ordinal], sub.Key)
	return &models.SubStageResult{
		Key:         sub.Key,
		Name:        sub.Name,
		Required:    sub.Required,
		Status:      "completed",
		CompletedAt: e.now().UTC(),
	}, nil
}

// failStage marks the workflow failed, persists the snapshot, and
// returns the stage error. The stage ordinal is deliberately left out
// of CompletedStages.
func (e *Engine) failStage(inst *models.WorkflowInstance, stage *StageDef, sub SubStageDef, cause error) error {
	err := loomerrors.Wrap(loomerrors.CodeWorkflowStage, cause,
		"stage %d (%s): required sub-stage %s failed", stage.Ordinal, stage.Key, sub.Key)

	inst.Status = models.WorkflowFailed
	inst.Error = err.Error()
	if perr := e.persist(inst); perr != nil {
		e.logger.Log("workflow %s: failed to persist failure snapshot: %v", inst.ProjectID, perr)
	}
	return err
}

func (e *Engine) persist(inst *models.WorkflowInstance) error {
	data, err := json.Marshal(inst)
	if err != nil {
		return loomerrors.Wrap(loomerrors.CodePersistence, err, "encode workflow %s", inst.ProjectID)
	}
	if err := e.store.SetContext(WorkflowKey(inst.ProjectID), data); err != nil {
		return loomerrors.Wrap(loomerrors.CodePersistence, err, "persist workflow %s", inst.ProjectID)
	}
	return nil
}
