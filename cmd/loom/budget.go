package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show budget status and monthly forecast",
	Long: `Display current spend against the daily and monthly ceilings,
plus a linear forecast of where this month is heading.`,
	RunE: runBudget,
}

func runBudget(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.budget.GetStatus("")
	if err != nil {
		return err
	}

	fmt.Println(color.New(color.Bold).Sprint("Budget"))
	printWindow("daily", status.Daily)
	printWindow("monthly", status.Monthly)

	f, err := a.budget.ForecastMonthly()
	if err != nil {
		return err
	}

	fmt.Println(color.New(color.Bold).Sprint("Forecast"))
	fmt.Printf("  daily average:  $%.4f\n", f.DailyAverage)
	fmt.Printf("  month end:      $%.2f (%d days remaining)\n", f.Forecast, f.DaysRemaining)
	if f.ProjectedOverrun > 0 {
		fmt.Printf("  %s projected overrun of $%.2f\n", color.RedString("⚠"), f.ProjectedOverrun)
	} else {
		fmt.Printf("  %s on track\n", color.GreenString("✓"))
	}
	return nil
}
