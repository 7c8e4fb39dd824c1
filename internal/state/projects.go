package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rfoley/loom/pkg/models"
)

// Project CRUD operations

// CreateProject creates a new project row.
func (db *DB) CreateProject(p *models.Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (id, name, description, requirements, story_points, budget_daily, budget_monthly, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Description, p.Requirements, p.StoryPoints, p.BudgetDaily, p.BudgetMonthly, string(p.Status), p.Error, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by ID. Returns nil if absent.
func (db *DB) GetProject(id string) (*models.Project, error) {
	row := db.QueryRow(`
		SELECT id, name, description, requirements, story_points, budget_daily, budget_monthly, status, error_message, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateProject updates a project row and bumps updated_at.
func (db *DB) UpdateProject(p *models.Project) error {
	p.UpdatedAt = time.Now()
	_, err := db.Exec(`
		UPDATE projects SET name = ?, description = ?, requirements = ?, story_points = ?,
			budget_daily = ?, budget_monthly = ?, status = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Description, p.Requirements, p.StoryPoints, p.BudgetDaily, p.BudgetMonthly, string(p.Status), p.Error, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// ListProjects lists all projects, optionally filtered by status.
func (db *DB) ListProjects(status *models.ProjectStatus) ([]models.Project, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, name, description, requirements, story_points, budget_daily, budget_monthly, status, error_message, created_at, updated_at
			FROM projects WHERE status = ? ORDER BY created_at
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, name, description, requirements, story_points, budget_daily, budget_monthly, status, error_message, created_at, updated_at
			FROM projects ORDER BY created_at
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// CountProjectsByStatus returns a map of status to project count.
func (db *DB) CountProjectsByStatus() (map[models.ProjectStatus]int, error) {
	rows, err := db.Query("SELECT status, COUNT(*) FROM projects GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ProjectStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan project count: %w", err)
		}
		counts[models.ProjectStatus(status)] = n
	}
	return counts, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var description, requirements, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &description, &requirements, &p.StoryPoints,
		&p.BudgetDaily, &p.BudgetMonthly, &p.Status, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		p.Description = description.String
	}
	if requirements.Valid {
		p.Requirements = requirements.String
	}
	if errMsg.Valid {
		p.Error = errMsg.String
	}
	p.CreatedAt, _ = parseTime(createdAt)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}
