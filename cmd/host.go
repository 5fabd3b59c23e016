package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/sessiond/internal/agent"
	"github.com/bnema/sessiond/internal/host"
	"github.com/bnema/sessiond/internal/pool"
	"github.com/spf13/cobra"
)

const hostShutdownTimeout = 10 * time.Second

func newHostCmd(app *app) *cobra.Command {
	var (
		appName    string
		userID     string
		addr       string
		usePool    bool
		subprocess bool
	)

	cmd := &cobra.Command{
		Use:   "host",
		Short: "Serve tracked sessions over websocket, one session per connection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := app.logger.With("app", appName)
			agents := agent.NewManager(app.client(), logger, append(app.agentOptions(), agent.WithLogger(logger))...)

			opts := host.Options{AppName: appName, UserID: userID, Logger: logger}
			if usePool {
				shared := pool.NewManager(app.cfg.Pool.Workers, logger)
				defer shared.Shutdown()

				opts.Pool = shared
				opts.Work = tickerWork(app.cfg.Pool.PollInterval)
				if subprocess {
					work, err := subprocessWork(app.cfg.Pool.PollInterval)
					if err != nil {
						return err
					}
					opts.Work = work
				}
			}

			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", host.New(agents, opts))
			server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			serveErr := make(chan error, 1)
			go func() {
				if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			logger.Info("session host started", "addr", listener.Addr().String(), "pool", usePool)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "hosting %s sessions on ws://%s/ws\n", appName, listener.Addr())

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-serveErr:
			}

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), hostShutdownTimeout)
			defer cancel()

			agents.StopAll(shutdownCtx)
			return errors.Join(runErr, server.Shutdown(shutdownCtx))
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "Application name reported for every session")
	cmd.Flags().StringVar(&userID, "user", "", "User id reported for every session")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8100", "Listen address")
	cmd.Flags().BoolVar(&usePool, "pool", false, "Run tasks on the shared worker pool")
	cmd.Flags().BoolVar(&subprocess, "subprocess", false, "Run pool workers as child processes")
	_ = cmd.MarkFlagRequired("app")

	return cmd
}

func tickerWork(poll time.Duration) host.WorkFactory {
	return func(logger *slog.Logger, label string) pool.Work {
		return pool.Ticker(logger, label, poll)
	}
}

// subprocessWork re-executes this binary as a hidden worker per pool slot.
func subprocessWork(poll time.Duration) (host.WorkFactory, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return func(logger *slog.Logger, label string) pool.Work {
		return pool.Command(logger, self, "worker", "--label", label, "--poll", poll.String())
	}, nil
}
