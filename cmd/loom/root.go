package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "loom",
	Short: "Budget-aware multi-agent project coordinator",
	Long: `Loom drives software projects through a staged delivery pipeline,
fanning out agent tasks per stage while keeping model spend inside
configured daily and monthly budgets.

Core capabilities:
- Ten-stage delivery workflow with required and optional sub-stages
- Per-stage model selection that degrades under budget pressure
- Bounded concurrent task fan-out with retry and timeout
- Append-only cost ledger with daily/monthly windows and forecasting`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(budgetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
