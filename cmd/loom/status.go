package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rfoley/loom/internal/budget"
	loomerrors "github.com/rfoley/loom/internal/errors"
	"github.com/rfoley/loom/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show projects, tasks, and budget",
	Long: `Display coordinator state.

Without arguments, shows aggregate metrics: project and task counts,
budget windows, and total spend. With a project id, shows that
project's tasks and workflow position.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		return showProject(a, args[0])
	}
	return showMetrics(a)
}

func showMetrics(a *app) error {
	m, err := a.orch.GetMetrics()
	if err != nil {
		return err
	}

	fmt.Println(color.New(color.Bold).Sprint("Projects"))
	for _, s := range []models.ProjectStatus{
		models.ProjectStatusCreated,
		models.ProjectStatusRunning,
		models.ProjectStatusCompleted,
		models.ProjectStatusFailed,
	} {
		if n := m.Projects[s]; n > 0 {
			fmt.Printf("  %-10s %d\n", s, n)
		}
	}

	fmt.Println(color.New(color.Bold).Sprint("Tasks"))
	for _, s := range []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusRunning,
		models.TaskStatusCompleted,
		models.TaskStatusFailed,
	} {
		if n := m.Tasks[s]; n > 0 {
			fmt.Printf("  %-10s %d\n", s, n)
		}
	}

	fmt.Println(color.New(color.Bold).Sprint("Budget"))
	printWindow("daily", m.Budget.Daily)
	printWindow("monthly", m.Budget.Monthly)
	fmt.Printf("  total spend: $%.4f\n", m.TotalCost)
	return nil
}

func showProject(a *app, projectID string) error {
	detail, err := a.orch.GetProject(projectID)
	if err != nil {
		if loomerrors.IsNotFound(err) {
			fmt.Printf("Project %s not found.\n", projectID)
			return nil
		}
		return err
	}

	p := detail.Project
	fmt.Printf("%s %s\n", color.New(color.Bold).Sprint(p.Name), statusColor(string(p.Status)))
	if p.Error != "" {
		fmt.Printf("  error: %s\n", p.Error)
	}

	wf, err := a.engine.GetWorkflow(projectID)
	if err == nil {
		fmt.Printf("  workflow: stage %d/%d (%s), %s\n",
			wf.CurrentStage, a.registry.Len(), wf.CurrentSubStage, wf.Status)
	}

	if len(detail.Tasks) > 0 {
		fmt.Println("  tasks:")
		for _, task := range detail.Tasks {
			fmt.Printf("    [%d] %-24s %-10s %s\n",
				task.Stage, task.AgentName, statusColor(string(task.Status)), task.Model)
		}
	}

	spent, err := a.budget.DailyCost(projectID)
	if err == nil {
		fmt.Printf("  spend today: $%.4f\n", spent)
	}
	return nil
}

func printWindow(name string, w budget.WindowStatus) {
	pct := fmt.Sprintf("%.1f%%", w.Percent)
	switch {
	case w.Percent > 95:
		pct = color.RedString(pct)
	case w.Percent > 80:
		pct = color.YellowString(pct)
	default:
		pct = color.GreenString(pct)
	}
	fmt.Printf("  %-8s $%.2f / $%.2f (%s)\n", name, w.Spent, w.Budget, pct)
}

func statusColor(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "running", "in_progress":
		return color.CyanString(status)
	default:
		return status
	}
}
