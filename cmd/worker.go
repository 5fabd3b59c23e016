package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/sessiond/internal/pool"
	"github.com/spf13/cobra"
)

// newWorkerCmd is the child side of host --pool --subprocess. It ticks until
// SIGTERM.
func newWorkerCmd(app *app) *cobra.Command {
	var (
		label string
		poll  time.Duration
	)

	cmd := &cobra.Command{
		Use:    "worker",
		Short:  "Run a reference pool worker until terminated",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err := pool.Ticker(app.logger, label, poll)(ctx, pool.NewToken())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&label, "label", "worker", "Worker label used in logs")
	cmd.Flags().DurationVar(&poll, "poll", app.cfg.Pool.PollInterval, "Alive log interval")

	return cmd
}
