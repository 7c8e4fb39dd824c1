package state

import (
	"database/sql"
	"fmt"

	"github.com/rfoley/loom/pkg/models"
)

// Task CRUD operations

// CreateTask creates a new task row.
func (db *DB) CreateTask(t *models.Task) error {
	var startedAt, completedAt *string
	if t.StartedAt != nil {
		s := formatTime(*t.StartedAt)
		startedAt = &s
	}
	if t.CompletedAt != nil {
		s := formatTime(*t.CompletedAt)
		completedAt = &s
	}

	_, err := db.Exec(`
		INSERT INTO tasks (id, project_id, stage, agent_name, model_used, status, input_data, output_data, error_message, created_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ProjectID, t.Stage, t.AgentName, t.Model, string(t.Status), t.Input, t.Output, t.Error, formatTime(t.CreatedAt), startedAt, completedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil if absent.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`
		SELECT id, project_id, stage, agent_name, model_used, status, input_data, output_data, error_message, created_at, started_at, completed_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask updates a task row.
func (db *DB) UpdateTask(t *models.Task) error {
	var startedAt, completedAt *string
	if t.StartedAt != nil {
		s := formatTime(*t.StartedAt)
		startedAt = &s
	}
	if t.CompletedAt != nil {
		s := formatTime(*t.CompletedAt)
		completedAt = &s
	}

	_, err := db.Exec(`
		UPDATE tasks SET project_id = ?, stage = ?, agent_name = ?, model_used = ?, status = ?,
			input_data = ?, output_data = ?, error_message = ?, started_at = ?, completed_at = ?
		WHERE id = ?
	`, t.ProjectID, t.Stage, t.AgentName, t.Model, string(t.Status), t.Input, t.Output, t.Error, startedAt, completedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasksByProject lists all tasks for a project in creation order.
func (db *DB) ListTasksByProject(projectID string) ([]models.Task, error) {
	rows, err := db.Query(`
		SELECT id, project_id, stage, agent_name, model_used, status, input_data, output_data, error_message, created_at, started_at, completed_at
		FROM tasks WHERE project_id = ? ORDER BY stage, created_at
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by project: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// CountTasksByStatus returns a map of status to task count.
func (db *DB) CountTasksByStatus() (map[models.TaskStatus]int, error) {
	rows, err := db.Query("SELECT status, COUNT(*) FROM tasks GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.TaskStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		counts[models.TaskStatus(status)] = n
	}
	return counts, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var model, input, output, errMsg sql.NullString
	var createdAt string
	var startedAt, completedAt sql.NullString

	err := row.Scan(&t.ID, &t.ProjectID, &t.Stage, &t.AgentName, &model, &t.Status,
		&input, &output, &errMsg, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if model.Valid {
		t.Model = model.String
	}
	if input.Valid {
		t.Input = input.String
	}
	if output.Valid {
		t.Output = output.String
	}
	if errMsg.Valid {
		t.Error = errMsg.String
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.StartedAt = parseNullableTime(startedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
