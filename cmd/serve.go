package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/sessiond/internal/adapters/transport/httpapi"
	"github.com/bnema/sessiond/internal/application"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var (
		addr   string
		driver string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the session registry REST server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			repo, closeStore, err := openStore(driver, dbPath)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeStore(); err != nil {
					app.logger.Warn("close store", "error", err)
				}
			}()

			monitor := application.NewMonitor(repo, ports.SystemClock{}, app.cfg.Registry.StaleThreshold)
			server, err := httpapi.Start(addr, httpapi.NewHandler(monitor, app.logger))
			if err != nil {
				return err
			}

			app.logger.Info("session registry started", "addr", server.Addr(), "store", driver)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on http://%s\n", server.Addr())

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-server.Err():
			}

			shutdownErr := server.Shutdown(context.WithoutCancel(ctx))
			return errors.Join(serveErr, shutdownErr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", app.cfg.Server.Addr, "Listen address")
	cmd.Flags().StringVar(&driver, "store", app.cfg.Store.Driver, "Session store (sqlite or memory)")
	cmd.Flags().StringVar(&dbPath, "db", app.cfg.Store.Path, "SQLite database path")

	return cmd
}
