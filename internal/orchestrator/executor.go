// Package orchestrator schedules per-stage agent tasks, delegating
// model inference to an external executor and spend tracking to the
// budget manager.
package orchestrator

import "context"

// ExecRequest carries one task invocation to the model-execution
// collaborator.
type ExecRequest struct {
	// TaskID identifies the task being executed.
	TaskID string
	// ProjectID is the owning project.
	ProjectID string
	// Stage is the stage ordinal the task belongs to.
	Stage int
	// AgentName identifies the agent slot.
	AgentName string
	// Model is the model identifier to invoke.
	Model string
	// Input is the prompt payload.
	Input string
}

// ExecResult is the collaborator's report for a completed invocation.
type ExecResult struct {
	// TokensInput is the number of input tokens billed.
	TokensInput int64
	// TokensOutput is the number of output tokens billed.
	TokensOutput int64
	// Result is the output payload.
	Result string
}

// ModelExecutor performs model inference for a task. Implementations
// must honor ctx cancellation; a deadline is applied per task by the
// scheduler.
type ModelExecutor interface {
	Execute(ctx context.Context, req ExecRequest) (*ExecResult, error)
}

// ModelExecutorFunc adapts a function to the ModelExecutor interface.
type ModelExecutorFunc func(ctx context.Context, req ExecRequest) (*ExecResult, error)

func (f ModelExecutorFunc) Execute(ctx context.Context, req ExecRequest) (*ExecResult, error) {
	return f(ctx, req)
}
