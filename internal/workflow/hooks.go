package workflow

import "context"

// AssistAgent is invoked synchronously before a sub-stage marked as a
// human-assist point. Its return value is not consumed beyond
// completion; an error fails the sub-stage.
type AssistAgent interface {
	Assist(ctx context.Context, projectID string, stage int, subStageKey string) error
}

// OptimizeAgent is invoked when an optimize-flagged stage starts its
// first sub-stage.
type OptimizeAgent interface {
	Optimize(ctx context.Context, projectID string, stage int) error
}

// HumanGate is a synchronous checkpoint invoked between stages.
// Returning an error halts workflow progression.
type HumanGate interface {
	Approve(ctx context.Context, projectID string, completedStage int) error
}

// SubStageRunner performs the actual work of a sub-stage. The engine
// owns ordering and bookkeeping; the runner owns execution. A returned
// error fails the sub-stage.
type SubStageRunner interface {
	RunSubStage(ctx context.Context, projectID string, stage int, sub SubStageDef) error
}

// SubStageRunnerFunc adapts a function to the SubStageRunner interface.
type SubStageRunnerFunc func(ctx context.Context, projectID string, stage int, sub SubStageDef) error

func (f SubStageRunnerFunc) RunSubStage(ctx context.Context, projectID string, stage int, sub SubStageDef) error {
	return f(ctx, projectID, stage, sub)
}

// NopAssist is an AssistAgent that approves immediately.
type NopAssist struct{}

func (NopAssist) Assist(ctx context.Context, projectID string, stage int, subStageKey string) error {
	return nil
}

// NopOptimize is an OptimizeAgent that does nothing.
type NopOptimize struct{}

func (NopOptimize) Optimize(ctx context.Context, projectID string, stage int) error {
	return nil
}

// NopGate is a HumanGate that always approves.
type NopGate struct{}

func (NopGate) Approve(ctx context.Context, projectID string, completedStage int) error {
	return nil
}
