// Command guidancectl runs maintenance tasks against the guidance database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	logger.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "guidancectl",
		Short:         "Maintenance commands for the guidance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bind(root.PersistentFlags())

	root.AddCommand(
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newFixSummonedStatusCommand(opts),
		newCleanupInvalidTalliesCommand(opts),
		newRecomputeTalliesCommand(opts),
		newRolloverCommand(opts),
	)
	return root
}
