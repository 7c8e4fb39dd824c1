package budget

import (
	"time"

	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/internal/state"
	"github.com/rfoley/loom/pkg/models"
)

// Thresholds for the model selection policy, as percentages of the
// configured ceilings.
const (
	dailyCriticalPercent = 95.0
	dailyWarningPercent  = 80.0
	monthlyWarnPercent   = 90.0
)

// WindowStatus describes consumption within one budget window.
type WindowStatus struct {
	Spent     float64 `json:"spent"`
	Budget    float64 `json:"budget"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// Status combines the daily and monthly windows.
type Status struct {
	Daily   WindowStatus `json:"daily"`
	Monthly WindowStatus `json:"monthly"`
}

// Forecast is a linear extrapolation of month-to-date spend.
type Forecast struct {
	Forecast         float64 `json:"forecast"`
	DailyAverage     float64 `json:"daily_average"`
	DaysRemaining    int     `json:"days_remaining"`
	ProjectedOverrun float64 `json:"projected_overrun"`
}

// Manager tracks spend against the configured ceilings and selects
// models by cost tier. Status is always derived from the cost ledger,
// never cached, so concurrent writers cannot leave it stale.
type Manager struct {
	store   state.CostStore
	daily   float64
	monthly float64
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests to pin the
// calendar windows.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager backed by the given cost store with
// daily and monthly budget ceilings in USD. A ceiling of 0 disables
// that window's limit.
func NewManager(store state.CostStore, daily, monthly float64, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		daily:   daily,
		monthly: monthly,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CalculateCost computes the USD cost for a model invocation. Pure
// function of the rate table.
func (m *Manager) CalculateCost(model string, tokensIn, tokensOut int64) float64 {
	r := RateFor(model)
	return float64(tokensIn)/1000*r.Input + float64(tokensOut)/1000*r.Output
}

// RecordCost computes the cost for a completed invocation and appends
// it to the ledger. The append and the aggregate counter increments
// commit in one transaction, so concurrent callers cannot lose
// updates. Returns the computed cost.
func (m *Manager) RecordCost(projectID, taskID, agentName, model string, tokensIn, tokensOut int64) (float64, error) {
	cost := m.CalculateCost(model, tokensIn, tokensOut)
	rec := &models.CostRecord{
		ProjectID:    projectID,
		TaskID:       taskID,
		AgentName:    agentName,
		Model:        model,
		TokensInput:  tokensIn,
		TokensOutput: tokensOut,
		Cost:         cost,
		RecordedAt:   m.now().UTC(),
	}
	if err := m.store.AppendCostRecord(rec); err != nil {
		return 0, loomerrors.Wrap(loomerrors.CodePersistence, err, "record cost for task %s", taskID)
	}
	return cost, nil
}

// DailyCost sums ledger entries since the start of the current
// calendar day (UTC). Empty projectID sums across all projects.
func (m *Manager) DailyCost(projectID string) (float64, error) {
	sum, err := m.store.SumCostsSince(projectID, m.startOfDay())
	if err != nil {
		return 0, loomerrors.Wrap(loomerrors.CodePersistence, err, "daily cost")
	}
	return sum, nil
}

// MonthlyCost sums ledger entries since the first day of the current
// calendar month (UTC). Empty projectID sums across all projects.
func (m *Manager) MonthlyCost(projectID string) (float64, error) {
	sum, err := m.store.SumCostsSince(projectID, m.startOfMonth())
	if err != nil {
		return 0, loomerrors.Wrap(loomerrors.CodePersistence, err, "monthly cost")
	}
	return sum, nil
}

// GetStatus derives the current budget status for both windows.
func (m *Manager) GetStatus(projectID string) (*Status, error) {
	daily, err := m.DailyCost(projectID)
	if err != nil {
		return nil, err
	}
	monthly, err := m.MonthlyCost(projectID)
	if err != nil {
		return nil, err
	}
	return &Status{
		Daily:   windowStatus(daily, m.daily),
		Monthly: windowStatus(monthly, m.monthly),
	}, nil
}

// SelectModel picks a model for a task, trading capability against
// remaining budget. The rules are checked in order:
//
//  1. Daily spend above 95% forces the local tier regardless of
//     complexity.
//  2. Daily spend above 80% uses the local tier, except high
//     complexity which gets the mid tier.
//  3. Monthly spend above 90% applies the same rule as (2).
//  4. Otherwise complexity alone decides: high gets the premium tier,
//     medium the mid tier, everything else a local model.
func (m *Manager) SelectModel(complexity models.Complexity, projectID string) (string, error) {
	status, err := m.GetStatus(projectID)
	if err != nil {
		return "", err
	}

	degraded := func() string {
		if complexity == models.ComplexityHigh {
			return ModelMid
		}
		return localModelFor(complexity)
	}

	switch {
	case status.Daily.Percent > dailyCriticalPercent:
		return localModelFor(complexity), nil
	case status.Daily.Percent > dailyWarningPercent:
		return degraded(), nil
	case status.Monthly.Percent > monthlyWarnPercent:
		return degraded(), nil
	}

	switch complexity {
	case models.ComplexityHigh:
		return ModelPremium, nil
	case models.ComplexityMedium:
		return ModelMid, nil
	default:
		return localModelFor(complexity), nil
	}
}

// ForecastMonthly extrapolates month-to-date spend linearly to the end
// of the month.
func (m *Manager) ForecastMonthly() (*Forecast, error) {
	spent, err := m.MonthlyCost("")
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	day := now.Day()
	daysInMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()

	avg := spent / float64(day)
	forecast := avg * float64(daysInMonth)

	overrun := 0.0
	if m.monthly > 0 && forecast > m.monthly {
		overrun = forecast - m.monthly
	}

	return &Forecast{
		Forecast:         forecast,
		DailyAverage:     avg,
		DaysRemaining:    daysInMonth - day,
		ProjectedOverrun: overrun,
	}, nil
}

func (m *Manager) startOfDay() time.Time {
	now := m.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (m *Manager) startOfMonth() time.Time {
	now := m.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func windowStatus(spent, budget float64) WindowStatus {
	ws := WindowStatus{
		Spent:     spent,
		Budget:    budget,
		Remaining: budget - spent,
	}
	if budget > 0 {
		ws.Percent = spent / budget * 100
	}
	return ws
}
