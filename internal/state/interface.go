// Package state provides SQLite-based persistence for Loom.
package state

import (
	"io"
	"time"

	"github.com/rfoley/loom/pkg/models"
)

// ProjectStore handles project-related persistence operations.
type ProjectStore interface {
	CreateProject(p *models.Project) error
	GetProject(id string) (*models.Project, error)
	UpdateProject(p *models.Project) error
	ListProjects(status *models.ProjectStatus) ([]models.Project, error)
	CountProjectsByStatus() (map[models.ProjectStatus]int, error)
}

// TaskStore handles task-related persistence operations.
type TaskStore interface {
	CreateTask(t *models.Task) error
	GetTask(id string) (*models.Task, error)
	UpdateTask(t *models.Task) error
	ListTasksByProject(projectID string) ([]models.Task, error)
	CountTasksByStatus() (map[models.TaskStatus]int, error)
}

// CostStore handles the append-only cost ledger.
type CostStore interface {
	AppendCostRecord(rec *models.CostRecord) error
	SumCostsSince(projectID string, since time.Time) (float64, error)
	ListCostRecords(projectID string) ([]models.CostRecord, error)
}

// ContextStore handles context documents, workflow snapshots, and
// aggregate counters.
type ContextStore interface {
	SetContext(key string, value []byte) error
	GetContext(key string) ([]byte, error)
	DeleteContext(key string) error
	CountContexts() (int, error)
	IncrementCounter(name string, delta float64) error
	GetCounter(name string) (float64, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the full interface for state persistence.
// It composes focused sub-interfaces so components can depend on
// only the slices they use.
type Store interface {
	io.Closer
	Migrator
	ProjectStore
	TaskStore
	CostStore
	ContextStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ ProjectStore = (*DB)(nil)
	_ TaskStore    = (*DB)(nil)
	_ CostStore    = (*DB)(nil)
	_ ContextStore = (*DB)(nil)
)
