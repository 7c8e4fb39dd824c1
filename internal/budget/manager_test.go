package budget

import (
	"errors"
	"math"
	"testing"
	"time"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/pkg/models"
)

// fakeCostStore is an in-memory CostStore for policy tests.
type fakeCostStore struct {
	records   []models.CostRecord
	appendErr error
	sumErr    error
}

func (f *fakeCostStore) AppendCostRecord(rec *models.CostRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, *rec)
	return nil
}

func (f *fakeCostStore) SumCostsSince(projectID string, since time.Time) (float64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	var sum float64
	for _, r := range f.records {
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		if r.RecordedAt.Before(since) {
			continue
		}
		sum += r.Cost
	}
	return sum, nil
}

func (f *fakeCostStore) ListCostRecords(projectID string) ([]models.CostRecord, error) {
	return f.records, nil
}

// fixedNow pins the clock mid-month so calendar windows are stable.
var fixedNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestManager(store *fakeCostStore, daily, monthly float64) *Manager {
	return NewManager(store, daily, monthly, WithClock(func() time.Time { return fixedNow }))
}

// spend seeds the fake ledger with one record at the given time.
func spend(store *fakeCostStore, projectID string, cost float64, at time.Time) {
	store.records = append(store.records, models.CostRecord{
		ProjectID:  projectID,
		TaskID:     "t",
		Cost:       cost,
		RecordedAt: at,
	})
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateCost(t *testing.T) {
	m := newTestManager(&fakeCostStore{}, 50, 1000)

	tests := []struct {
		name      string
		model     string
		tokensIn  int64
		tokensOut int64
		want      float64
	}{
		{"premium", ModelPremium, 1000, 1000, 0.015 + 0.075},
		{"mid", ModelMid, 2000, 1000, 0.006 + 0.015},
		{"budget", ModelBudget, 1000, 500, 0.0008 + 0.002},
		{"local is free", ModelLocalGeneral, 50000, 50000, 0},
		{"unknown falls back to mid rate", "gpt-unknown", 1000, 1000, 0.003 + 0.015},
		{"zero tokens", ModelPremium, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.CalculateCost(tt.model, tt.tokensIn, tt.tokensOut)
			if !approx(got, tt.want) {
				t.Errorf("CalculateCost(%s, %d, %d) = %v, want %v",
					tt.model, tt.tokensIn, tt.tokensOut, got, tt.want)
			}
		})
	}
}

func TestRecordCost(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 50, 1000)

	cost, err := m.RecordCost("p1", "t1", "backend-dev", ModelMid, 1000, 2000)
	if err != nil {
		t.Fatalf("RecordCost: %v", err)
	}
	want := 0.003 + 2*0.015
	if !approx(cost, want) {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	if len(store.records) != 1 {
		t.Fatalf("expected 1 record appended, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.ProjectID != "p1" || rec.TaskID != "t1" || rec.AgentName != "backend-dev" {
		t.Errorf("unexpected record identity: %+v", rec)
	}
	if !approx(rec.Cost, want) {
		t.Errorf("recorded cost = %v, want %v", rec.Cost, want)
	}
	if !rec.RecordedAt.Equal(fixedNow) {
		t.Errorf("recorded_at = %v, want pinned clock %v", rec.RecordedAt, fixedNow)
	}
}

func TestRecordCost_PersistenceError(t *testing.T) {
	store := &fakeCostStore{appendErr: errors.New("disk full")}
	m := newTestManager(store, 50, 1000)

	_, err := m.RecordCost("p1", "t1", "agent", ModelMid, 100, 100)
	if err == nil {
		t.Fatal("expected error")
	}
	if !loomerrors.IsPersistence(err) {
		t.Errorf("expected persistence code, got %v", err)
	}
}

func TestDailyAndMonthlyWindows(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 50, 1000)

	spend(store, "p1", 1.0, fixedNow.Add(-time.Hour))        // today
	spend(store, "p1", 2.0, fixedNow.AddDate(0, 0, -3))      // this month, not today
	spend(store, "p1", 4.0, fixedNow.AddDate(0, -1, 0))      // last month
	spend(store, "p2", 8.0, fixedNow.Add(-2*time.Hour))      // other project, today

	daily, err := m.DailyCost("p1")
	if err != nil {
		t.Fatalf("DailyCost: %v", err)
	}
	if !approx(daily, 1.0) {
		t.Errorf("daily p1 = %v, want 1.0", daily)
	}

	monthly, err := m.MonthlyCost("p1")
	if err != nil {
		t.Fatalf("MonthlyCost: %v", err)
	}
	if !approx(monthly, 3.0) {
		t.Errorf("monthly p1 = %v, want 3.0", monthly)
	}

	allDaily, err := m.DailyCost("")
	if err != nil {
		t.Fatalf("DailyCost all: %v", err)
	}
	if !approx(allDaily, 9.0) {
		t.Errorf("daily all = %v, want 9.0", allDaily)
	}
}

func TestGetStatus(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 10, 100)

	spend(store, "p1", 4.0, fixedNow.Add(-time.Hour))
	spend(store, "p1", 16.0, fixedNow.AddDate(0, 0, -5))

	status, err := m.GetStatus("")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}

	if !approx(status.Daily.Spent, 4.0) || !approx(status.Daily.Percent, 40.0) {
		t.Errorf("daily window = %+v", status.Daily)
	}
	if !approx(status.Daily.Remaining, 6.0) {
		t.Errorf("daily remaining = %v, want 6.0", status.Daily.Remaining)
	}
	if !approx(status.Monthly.Spent, 20.0) || !approx(status.Monthly.Percent, 20.0) {
		t.Errorf("monthly window = %+v", status.Monthly)
	}
}

func TestGetStatus_NoCeiling(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 0, 0)
	spend(store, "p1", 99.0, fixedNow.Add(-time.Hour))

	status, err := m.GetStatus("")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Daily.Percent != 0 || status.Monthly.Percent != 0 {
		t.Errorf("expected zero percent without ceilings, got %+v", status)
	}
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		name         string
		dailySpent   float64
		monthlySpent float64
		complexity   models.Complexity
		want         string
	}{
		// Plenty of budget: complexity decides.
		{"high gets premium", 1, 1, models.ComplexityHigh, ModelPremium},
		{"medium gets mid", 1, 1, models.ComplexityMedium, ModelMid},
		{"low gets local fast", 1, 1, models.ComplexityLow, ModelLocalFast},
		{"code gets local code model", 1, 1, models.ComplexityCode, ModelLocalCode},

		// Daily above 95%: local tier even for high complexity.
		{"daily critical forces local", 9.6, 9.6, models.ComplexityHigh, ModelLocalGeneral},
		{"daily critical code", 9.6, 9.6, models.ComplexityCode, ModelLocalCode},

		// Daily above 80%: local unless high, which degrades to mid.
		{"daily warning degrades high to mid", 8.5, 8.5, models.ComplexityHigh, ModelMid},
		{"daily warning medium goes local", 8.5, 8.5, models.ComplexityMedium, ModelLocalGeneral},
		{"daily warning low goes local", 8.5, 8.5, models.ComplexityLow, ModelLocalFast},

		// Monthly above 90% with daily healthy: same degradation rule.
		{"monthly pressure degrades high to mid", 1, 95, models.ComplexityHigh, ModelMid},
		{"monthly pressure medium goes local", 1, 95, models.ComplexityMedium, ModelLocalGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeCostStore{}
			// Daily budget 10, monthly 100. Spend split so the daily
			// window sees dailySpent and the month sees monthlySpent.
			spend(store, "p1", tt.dailySpent, fixedNow.Add(-time.Hour))
			if extra := tt.monthlySpent - tt.dailySpent; extra > 0 {
				spend(store, "p1", extra, fixedNow.AddDate(0, 0, -2))
			}
			m := newTestManager(store, 10, 100)

			got, err := m.SelectModel(tt.complexity, "")
			if err != nil {
				t.Fatalf("SelectModel: %v", err)
			}
			if got != tt.want {
				t.Errorf("SelectModel(%s) = %s, want %s", tt.complexity, got, tt.want)
			}
		})
	}
}

func TestSelectModel_PersistenceError(t *testing.T) {
	store := &fakeCostStore{sumErr: errors.New("db closed")}
	m := newTestManager(store, 10, 100)

	_, err := m.SelectModel(models.ComplexityHigh, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !loomerrors.IsPersistence(err) {
		t.Errorf("expected persistence code, got %v", err)
	}
}

func TestForecastMonthly(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 50, 100)

	// 60 spent by March 15: average 4/day, 31 days in March.
	spend(store, "p1", 60.0, fixedNow.AddDate(0, 0, -4))

	f, err := m.ForecastMonthly()
	if err != nil {
		t.Fatalf("ForecastMonthly: %v", err)
	}
	if !approx(f.DailyAverage, 4.0) {
		t.Errorf("daily average = %v, want 4.0", f.DailyAverage)
	}
	if !approx(f.Forecast, 124.0) {
		t.Errorf("forecast = %v, want 124.0", f.Forecast)
	}
	if f.DaysRemaining != 16 {
		t.Errorf("days remaining = %d, want 16", f.DaysRemaining)
	}
	if !approx(f.ProjectedOverrun, 24.0) {
		t.Errorf("projected overrun = %v, want 24.0", f.ProjectedOverrun)
	}
}

func TestForecastMonthly_UnderBudget(t *testing.T) {
	store := &fakeCostStore{}
	m := newTestManager(store, 50, 1000)
	spend(store, "p1", 15.0, fixedNow.AddDate(0, 0, -1))

	f, err := m.ForecastMonthly()
	if err != nil {
		t.Fatalf("ForecastMonthly: %v", err)
	}
	if f.ProjectedOverrun != 0 {
		t.Errorf("expected no overrun, got %v", f.ProjectedOverrun)
	}
}
