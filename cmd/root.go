package cmd

import (
	"github.com/bnema/sessiond/internal/logging"
	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sessiond",
		Short:         "sessiond: session liveness monitor and kill coordinator",
		Long:          "sessiond tracks long-running worker sessions through heartbeats, lets operators list, sweep and kill them, and hosts tracked sessions that share a worker pool.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().StringVar(&app.serverURL, "server", app.serverURL, "Session monitor base URL")
	rootCmd.PersistentFlags().StringVar(&app.cfg.Log.Level, "log-level", app.cfg.Log.Level, "Log level (debug, info, warn, error)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		app.logger = logging.New(cmd.ErrOrStderr(), app.cfg.Log.Level, app.cfg.Log.Format)
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newServeCmd(app),
		newSessionsCmd(app),
		newHostCmd(app),
		newRunCmd(app),
		newWorkerCmd(app),
	)

	return rootCmd
}
