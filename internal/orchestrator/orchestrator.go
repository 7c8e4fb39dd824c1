package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rfoley/loom/internal/budget"
	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/logging"
	"github.com/rfoley/loom/internal/state"
	"github.com/rfoley/loom/internal/workflow"
	"github.com/rfoley/loom/pkg/models"
)

// RequiredConfig contains the minimal required configuration for an
// Orchestrator. All fields are required and have no defaults.
type RequiredConfig struct {
	// Store is the shared persistence layer, constructed once at
	// process start and passed by reference.
	Store state.Store
	// Budget tracks spend and selects models.
	Budget *budget.Manager
	// Registry is the canonical stage registry. The same registry
	// drives the workflow engine, so stage ordinals and agent counts
	// cannot diverge.
	Registry *workflow.Registry
	// Executor performs model inference for tasks.
	Executor ModelExecutor
}

// Orchestrator schedules the per-stage agent tasks of a project:
// model selection, bounded concurrent fan-out, cost recording, and
// post-stage conflict checks.
type Orchestrator struct {
	store    state.Store
	budget   *budget.Manager
	registry *workflow.Registry
	executor ModelExecutor

	arbitrator    Arbitrator
	logger        *logging.DebugLogger
	maxConcurrent int
	taskTimeout   time.Duration
	taskRetries   int
	retryBackoff  time.Duration
	now           func() time.Time
}

// New creates an Orchestrator from required configuration and options.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.Store == nil {
		return nil, loomerrors.New(loomerrors.CodeValidation, "store is required")
	}
	if req.Budget == nil {
		return nil, loomerrors.New(loomerrors.CodeValidation, "budget manager is required")
	}
	if req.Registry == nil {
		return nil, loomerrors.New(loomerrors.CodeValidation, "stage registry is required")
	}
	if req.Executor == nil {
		return nil, loomerrors.New(loomerrors.CodeValidation, "model executor is required")
	}
	if err := req.Registry.Validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		store:         req.Store,
		budget:        req.Budget,
		registry:      req.Registry,
		executor:      req.Executor,
		arbitrator:    NopArbitrator{},
		logger:        logging.NopLogger(),
		maxConcurrent: DefaultMaxConcurrentTasks,
		taskTimeout:   DefaultTaskTimeout,
		taskRetries:   DefaultTaskRetries,
		retryBackoff:  DefaultRetryBackoff,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// CreateProjectInput carries the user-supplied fields for a new project.
type CreateProjectInput struct {
	Name          string
	Description   string
	Requirements  string
	StoryPoints   int
	BudgetDaily   float64
	BudgetMonthly float64
}

// ProjectDetail is a project together with its tasks and context
// snapshot, as assembled by GetProject.
type ProjectDetail struct {
	Project  *models.Project `json:"project"`
	Tasks    []models.Task   `json:"tasks"`
	Workflow json.RawMessage `json:"workflow,omitempty"`
}

// projectKey returns the context-store key for a project's initial
// context snapshot.
func projectKey(projectID string) string {
	return "project:" + projectID
}

// CreateProject allocates an id, persists the project row, and writes
// the initial context snapshot.
func (o *Orchestrator) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, loomerrors.New(loomerrors.CodeValidation, "project name is required")
	}

	now := o.now().UTC()
	p := &models.Project{
		ID:            uuid.New().String(),
		Name:          input.Name,
		Description:   input.Description,
		Requirements:  input.Requirements,
		StoryPoints:   input.StoryPoints,
		BudgetDaily:   input.BudgetDaily,
		BudgetMonthly: input.BudgetMonthly,
		Status:        models.ProjectStatusCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.store.CreateProject(p); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "create project %s", p.Name)
	}

	snapshot, err := json.Marshal(map[string]any{
		"requirements":   p.Requirements,
		"budget_daily":   p.BudgetDaily,
		"budget_monthly": p.BudgetMonthly,
		"status":         p.Status,
	})
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "encode project snapshot")
	}
	if err := o.store.SetContext(projectKey(p.ID), snapshot); err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "write project snapshot")
	}

	o.logger.Log("project %s created (%s)", p.ID, p.Name)
	return p, nil
}

// GetProject returns the project with its tasks and workflow snapshot.
func (o *Orchestrator) GetProject(projectID string) (*ProjectDetail, error) {
	p, err := o.store.GetProject(projectID)
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "load project %s", projectID)
	}
	if p == nil {
		return nil, loomerrors.New(loomerrors.CodeNotFound, "project %s not found", projectID)
	}

	tasks, err := o.store.ListTasksByProject(projectID)
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "load tasks for %s", projectID)
	}

	snapshot, err := o.store.GetContext(workflow.WorkflowKey(projectID))
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "load workflow snapshot for %s", projectID)
	}

	return &ProjectDetail{Project: p, Tasks: tasks, Workflow: snapshot}, nil
}

// ListProjects returns all projects, optionally filtered by status.
func (o *Orchestrator) ListProjects(status *models.ProjectStatus) ([]models.Project, error) {
	projects, err := o.store.ListProjects(status)
	if err != nil {
		return nil, loomerrors.Wrap(loomerrors.CodePersistence, err, "list projects")
	}
	return projects, nil
}
