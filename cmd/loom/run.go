package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <project-id>",
	Short: "Execute a project's stages",
	Long: `Execute every stage of the project in order.

Each stage selects one model based on its complexity and the current
budget pressure, then fans its agent tasks out concurrently. Press
Ctrl-C to cancel; tasks that have not started will not be scheduled.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	projectID := args[0]

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nCancelling; letting in-flight tasks finish...")
		cancel()
	}()

	fmt.Printf("Executing project %s (%d stages)\n", projectID, a.registry.Len())

	if err := a.orch.ExecuteProject(ctx, projectID); err != nil {
		fmt.Printf("%s Project failed: %v\n", color.RedString("✗"), err)
		return err
	}

	fmt.Printf("%s Project completed\n", color.GreenString("✓"))
	return nil
}
