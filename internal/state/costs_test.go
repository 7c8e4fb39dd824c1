package state

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rfoley/loom/pkg/models"
)

func costRecord(projectID, taskID string, cost float64, at time.Time) *models.CostRecord {
	return &models.CostRecord{
		ProjectID:    projectID,
		TaskID:       taskID,
		AgentName:    "agent-1",
		Model:        "claude-sonnet-4-20250514",
		TokensInput:  1000,
		TokensOutput: 2000,
		Cost:         cost,
		RecordedAt:   at,
	}
}

func TestAppendCostRecord_UpdatesCounters(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	if err := db.AppendCostRecord(costRecord("p1", "t1", 0.5, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}
	if err := db.AppendCostRecord(costRecord("p1", "t2", 0.25, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}
	if err := db.AppendCostRecord(costRecord("p2", "t3", 1.0, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}

	total, err := db.GetCounter(CounterTotalCost)
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	if total != 1.75 {
		t.Errorf("expected total counter 1.75, got %v", total)
	}

	p1, err := db.GetCounter(ProjectCostCounter("p1"))
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	if p1 != 0.75 {
		t.Errorf("expected p1 counter 0.75, got %v", p1)
	}
}

func TestSumCostsSince_Window(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()

	// One record inside the window, one well before it.
	if err := db.AppendCostRecord(costRecord("p1", "t1", 0.4, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}
	if err := db.AppendCostRecord(costRecord("p1", "t2", 9.9, now.Add(-48*time.Hour))); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}

	since := now.Add(-time.Hour)
	got, err := db.SumCostsSince("p1", since)
	if err != nil {
		t.Fatalf("SumCostsSince: %v", err)
	}
	if got != 0.4 {
		t.Errorf("expected 0.4 inside window, got %v", got)
	}

	all, err := db.SumCostsSince("", now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("SumCostsSince all: %v", err)
	}
	if all != 10.3 {
		t.Errorf("expected 10.3 across full window, got %v", all)
	}
}

func TestSumCostsSince_ProjectFilter(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	if err := db.AppendCostRecord(costRecord("p1", "t1", 1.0, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}
	if err := db.AppendCostRecord(costRecord("p2", "t2", 2.0, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}

	got, err := db.SumCostsSince("p2", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("SumCostsSince: %v", err)
	}
	if got != 2.0 {
		t.Errorf("expected 2.0 for p2, got %v", got)
	}
}

func TestAppendCostRecord_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	// Two concurrent writers for the same project must both land:
	// no lost update on the aggregate counters or the ledger.
	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- db.AppendCostRecord(costRecord("p1", fmt.Sprintf("t%d", n), 0.1, now))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent AppendCostRecord: %v", err)
		}
	}

	sum, err := db.SumCostsSince("p1", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("SumCostsSince: %v", err)
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("expected sum ~1.0 after %d writes, got %v", writers, sum)
	}

	counter, err := db.GetCounter(ProjectCostCounter("p1"))
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	if counter < 0.999 || counter > 1.001 {
		t.Errorf("expected counter ~1.0, got %v", counter)
	}
}

func TestListCostRecords(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now()

	if err := db.AppendCostRecord(costRecord("p1", "t1", 0.033, now)); err != nil {
		t.Fatalf("AppendCostRecord: %v", err)
	}

	records, err := db.ListCostRecords("p1")
	if err != nil {
		t.Fatalf("ListCostRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.TaskID != "t1" || rec.TokensInput != 1000 || rec.TokensOutput != 2000 || rec.Cost != 0.033 {
		t.Errorf("unexpected record round-trip: %+v", rec)
	}
}
