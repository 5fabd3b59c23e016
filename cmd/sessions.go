package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sessionsrender "github.com/bnema/sessiond/internal/adapters/render/sessions"
	"github.com/bnema/sessiond/internal/adapters/transport/httpapi"
	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
	"github.com/spf13/cobra"
)

const killPollInterval = 250 * time.Millisecond

func newSessionsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and control tracked sessions",
	}

	cmd.AddCommand(
		newSessionsListCmd(app),
		newSessionsKillCmd(app),
		newSessionsSweepCmd(app),
		newSessionsWatchCmd(app),
	)

	return cmd
}

func newSessionsListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, err := app.client().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			return writeSessionsOutput(cmd, app, views, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")

	return cmd
}

func newSessionsKillCmd(app *app) *cobra.Command {
	var (
		appName string
		wait    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "kill [session-id]",
		Short: "Request termination of a session or of every session of an app",
		Args: func(_ *cobra.Command, args []string) error {
			switch {
			case appName == "" && len(args) != 1:
				return errors.New("kill requires a session id or --app")
			case appName != "" && len(args) > 0:
				return errors.New("kill accepts either a session id or --app, not both")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			client := app.client()
			out := cmd.OutOrStdout()

			var targets []domain.SessionID
			if appName != "" {
				views, err := client.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("list sessions: %w", err)
				}
				for _, view := range views {
					if view.AppName == appName {
						targets = append(targets, view.ID)
					}
				}

				affected, err := client.RequestKillForApp(cmd.Context(), appName)
				if err != nil {
					return fmt.Errorf("kill app %s: %w", appName, err)
				}
				_, _ = fmt.Fprintf(out, "kill requested for %d session(s) of %s\n", affected, appName)
			} else {
				id := domain.SessionID(strings.TrimSpace(args[0]))
				killed, err := client.RequestKill(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("kill session %s: %w", id, err)
				}
				if !killed {
					return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
				}
				targets = append(targets, id)
				_, _ = fmt.Fprintf(out, "kill requested for %s\n", id)
			}

			if !wait || len(targets) == 0 {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			err := runWaitSpinner(ctx, cmd.ErrOrStderr(), exitProgress(len(targets), 0, len(targets)), func(ctx context.Context, progress func(string)) error {
				return waitForExit(ctx, client, targets, progress)
			})
			if err != nil {
				return fmt.Errorf("wait for sessions to exit: %w", err)
			}

			_, _ = fmt.Fprintln(out, "all targeted sessions exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&appName, "app", "", "Kill every session of this app")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the targeted sessions are gone")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Maximum time to wait with --wait")

	return cmd
}

func newSessionsSweepCmd(app *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete sessions whose last heartbeat is older than the cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deleted, err := app.client().SweepStale(cmd.Context(), olderThan)
			if err != nil {
				return fmt.Errorf("sweep stale sessions: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d stale session(s)\n", deleted)
			return err
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", app.cfg.Reaper.EvictionAge, "Eviction age")

	return cmd
}

func newSessionsWatchCmd(app *app) *cobra.Command {
	var (
		every     time.Duration
		olderThan time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the session list and sweep stale sessions until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if every <= 0 {
				return fmt.Errorf("--every must be positive, got %s", every)
			}

			ctx := cmd.Context()
			client := app.client()
			ticker := time.NewTicker(every)
			defer ticker.Stop()

			for {
				if err := watchOnce(cmd, app, client, olderThan); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					app.logger.Warn("dashboard refresh failed", "error", err)
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&every, "every", 10*time.Second, "Refresh interval")
	cmd.Flags().DurationVar(&olderThan, "older-than", app.cfg.Reaper.EvictionAge, "Eviction age for the sweep")

	return cmd
}

func watchOnce(cmd *cobra.Command, app *app, dashboard ports.Dashboard, olderThan time.Duration) error {
	deleted, err := dashboard.SweepStale(cmd.Context(), olderThan)
	if err != nil {
		return fmt.Errorf("sweep stale sessions: %w", err)
	}
	if deleted > 0 {
		app.logger.Info("swept stale sessions", "deleted", deleted)
	}

	views, err := dashboard.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	return writeSessionsOutput(cmd, app, views, false)
}

// waitForExit polls the session list until none of ids remain, reporting
// progress whenever the remaining or stale count changes.
func waitForExit(ctx context.Context, dashboard ports.Dashboard, ids []domain.SessionID, progress func(string)) error {
	pending := make(map[domain.SessionID]struct{}, len(ids))
	for _, id := range ids {
		pending[id] = struct{}{}
	}

	ticker := time.NewTicker(killPollInterval)
	defer ticker.Stop()

	lastRemaining, lastStale := len(ids), 0
	for {
		views, err := dashboard.List(ctx)
		if err != nil {
			return err
		}

		remaining, stale := 0, 0
		for _, view := range views {
			if _, ok := pending[view.ID]; ok {
				remaining++
				if view.IsStale {
					stale++
				}
			}
		}
		if remaining == 0 {
			return nil
		}
		if remaining != lastRemaining || stale != lastStale {
			lastRemaining, lastStale = remaining, stale
			progress(exitProgress(remaining, stale, len(ids)))
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%d session(s) still active: %w", remaining, ctx.Err())
		case <-ticker.C:
		}
	}
}

// exitProgress labels the wait spinner. Stale sessions no longer heartbeat,
// so they only disappear once swept.
func exitProgress(remaining, stale, total int) string {
	label := fmt.Sprintf("Waiting for %d of %d session(s) to exit", remaining, total)
	if stale > 0 {
		label += fmt.Sprintf(" (%d stale, awaiting sweep)", stale)
	}
	return label + "..."
}

func writeSessionsOutput(cmd *cobra.Command, app *app, views []ports.SessionView, asJSON bool) error {
	if asJSON {
		list := httpapi.SessionList{Sessions: make([]httpapi.Session, 0, len(views))}
		for _, view := range views {
			list.Sessions = append(list.Sessions, httpapi.FromView(view))
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	rendered, err := app.renderer(views, sessionsrender.RenderOptions{
		Now:        app.now(),
		StaleAfter: app.cfg.Registry.StaleThreshold,
	})
	if err != nil {
		return fmt.Errorf("render sessions: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
