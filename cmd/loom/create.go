package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rfoley/loom/internal/orchestrator"
)

var (
	createDescription   string
	createRequirements  string
	createStoryPoints   int
	createBudgetDaily   float64
	createBudgetMonthly float64
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Long: `Create a new project and initialize its workflow.

The project starts in the created state. Run 'loom run <project-id>'
to execute its stages.`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "Project description")
	createCmd.Flags().StringVarP(&createRequirements, "requirements", "r", "", "Requirements handed to agents")
	createCmd.Flags().IntVar(&createStoryPoints, "points", 0, "Story point estimate")
	createCmd.Flags().Float64Var(&createBudgetDaily, "budget-daily", 0, "Daily budget override in USD")
	createCmd.Flags().Float64Var(&createBudgetMonthly, "budget-monthly", 0, "Monthly budget override in USD")
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.orch.CreateProject(orchestrator.CreateProjectInput{
		Name:          args[0],
		Description:   createDescription,
		Requirements:  createRequirements,
		StoryPoints:   createStoryPoints,
		BudgetDaily:   createBudgetDaily,
		BudgetMonthly: createBudgetMonthly,
	})
	if err != nil {
		return err
	}

	if _, err := a.engine.InitializeWorkflow(p.ID); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: workflow initialization failed: %v\n", err)
	}

	fmt.Printf("%s Project %s created\n", color.GreenString("✓"), color.CyanString(p.Name))
	fmt.Printf("  id:     %s\n", p.ID)
	fmt.Printf("  stages: %d\n", a.registry.Len())
	fmt.Printf("\nRun it with:\n  loom run %s\n", p.ID)
	return nil
}
