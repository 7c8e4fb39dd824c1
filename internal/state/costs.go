package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rfoley/loom/pkg/models"
)

// Counter names for aggregate cost metrics kept in the counters table.
const (
	// CounterTotalCost accumulates spend across all projects.
	CounterTotalCost = "cost:total"
	// counterProjectPrefix prefixes the per-project spend counters.
	counterProjectPrefix = "cost:project:"
)

// ProjectCostCounter returns the counter name for a project's running spend.
func ProjectCostCounter(projectID string) string {
	return counterProjectPrefix + projectID
}

// AppendCostRecord appends a cost record and increments the total and
// per-project aggregate counters in a single transaction, so two tasks
// recording cost at the same instant cannot lose an update.
func (db *DB) AppendCostRecord(rec *models.CostRecord) error {
	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO cost_records (project_id, task_id, agent_name, model_used, tokens_input, tokens_output, cost_usd, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ProjectID, rec.TaskID, rec.AgentName, rec.Model, rec.TokensInput, rec.TokensOutput, rec.Cost, formatTime(rec.RecordedAt))
		if err != nil {
			return fmt.Errorf("append cost record: %w", err)
		}

		if err := incrementCounterTx(tx, CounterTotalCost, rec.Cost); err != nil {
			return err
		}
		return incrementCounterTx(tx, ProjectCostCounter(rec.ProjectID), rec.Cost)
	})
}

// SumCostsSince sums cost_usd over records at or after since.
// An empty projectID sums across all projects.
func (db *DB) SumCostsSince(projectID string, since time.Time) (float64, error) {
	var row *sql.Row
	if projectID != "" {
		row = db.QueryRow(`
			SELECT COALESCE(SUM(cost_usd), 0) FROM cost_records
			WHERE recorded_at >= ? AND project_id = ?
		`, formatTime(since), projectID)
	} else {
		row = db.QueryRow(`
			SELECT COALESCE(SUM(cost_usd), 0) FROM cost_records
			WHERE recorded_at >= ?
		`, formatTime(since))
	}

	var total float64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum costs: %w", err)
	}
	return total, nil
}

// ListCostRecords lists cost records for a project in recording order.
// An empty projectID lists all records.
func (db *DB) ListCostRecords(projectID string) ([]models.CostRecord, error) {
	var rows *sql.Rows
	var err error

	if projectID != "" {
		rows, err = db.Query(`
			SELECT project_id, task_id, agent_name, model_used, tokens_input, tokens_output, cost_usd, recorded_at
			FROM cost_records WHERE project_id = ? ORDER BY recorded_at
		`, projectID)
	} else {
		rows, err = db.Query(`
			SELECT project_id, task_id, agent_name, model_used, tokens_input, tokens_output, cost_usd, recorded_at
			FROM cost_records ORDER BY recorded_at
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list cost records: %w", err)
	}
	defer rows.Close()

	var records []models.CostRecord
	for rows.Next() {
		var rec models.CostRecord
		var recordedAt string
		if err := rows.Scan(&rec.ProjectID, &rec.TaskID, &rec.AgentName, &rec.Model,
			&rec.TokensInput, &rec.TokensOutput, &rec.Cost, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan cost record: %w", err)
		}
		rec.RecordedAt, _ = parseTime(recordedAt)
		records = append(records, rec)
	}
	return records, nil
}
