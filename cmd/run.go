package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/pool"
	"github.com/spf13/cobra"
)

var errKilledByOperator = errors.New("session terminated by administrator")

func newRunCmd(app *app) *cobra.Command {
	var (
		appName string
		userID  string
		task    string
	)

	cmd := &cobra.Command{
		Use:   "run -- <command> [args...]",
		Short: "Run a command as a tracked session",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("run requires a command after '--'")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := agent.New(ctx, app.client(), agent.AppInfo{AppName: appName, UserID: userID}, app.agentOptions()...)
			if err != nil {
				return err
			}

			if !a.Online() {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "session registry unreachable, running untracked as %s\n", a.ID())
			}

			token := pool.NewToken()
			a.OnKill(token.Cancel)

			label := task
			if label == "" {
				label = args[0]
			}
			child := pool.Command(app.logger, args[0], args[1:]...)
			runErr := a.Task(ctx, label, func(ctx context.Context) error {
				return child(ctx, token)
			})

			a.Stop(context.WithoutCancel(ctx))
			<-a.Done()
			if a.KillRequested() {
				return fmt.Errorf("%s: %w", a.ID(), errKilledByOperator)
			}
			if runErr != nil {
				return fmt.Errorf("run child command: %w", runErr)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "Application name to register")
	cmd.Flags().StringVar(&userID, "user", "", "User id to register")
	cmd.Flags().StringVar(&task, "task", "", "Task label reported while the command runs")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}
