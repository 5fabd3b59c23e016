package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/bnema/sessiond/internal/logging"
)

// CommandWaitDelay is how long a subprocess gets to exit after SIGTERM before
// it is killed.
const CommandWaitDelay = 5 * time.Second

// Command returns Work that runs a subprocess. Token cancellation and pool
// termination are forwarded to the child as SIGTERM. A child stopped by its
// token counts as a clean exit.
func Command(logger *slog.Logger, name string, args ...string) Work {
	logger = logging.OrDiscard(logger)

	return func(ctx context.Context, token *Token) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			select {
			case <-token.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()

		cmd := exec.CommandContext(runCtx, name, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Cancel = func() error {
			return cmd.Process.Signal(syscall.SIGTERM)
		}
		cmd.WaitDelay = CommandWaitDelay

		if err := cmd.Start(); err != nil {
			return fmt.Errorf("start %s: %w", name, err)
		}
		logger.Debug("subprocess started", "command", name, "pid", cmd.Process.Pid)

		err := cmd.Wait()
		switch {
		case token.Cancelled():
			logger.Debug("subprocess stopped by session", "command", name)
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return fmt.Errorf("%s exited with code %d: %w", name, exitErr.ExitCode(), err)
			}
			return fmt.Errorf("run %s: %w", name, err)
		}

		return nil
	}
}

// Ticker returns the reference in-process worker: it logs an alive line every
// poll until its token is cancelled or the pool terminates.
func Ticker(logger *slog.Logger, label string, poll time.Duration) Work {
	logger = logging.OrDiscard(logger).With("worker", label)
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	return func(ctx context.Context, token *Token) error {
		logger.Info("worker started")

		timer := time.NewTimer(poll)
		defer timer.Stop()

		for {
			select {
			case <-token.Done():
				logger.Info("worker stopped")
				return nil
			case <-ctx.Done():
				logger.Info("worker terminated")
				return ctx.Err()
			case <-timer.C:
				logger.Info("worker alive")
				timer.Reset(poll)
			}
		}
	}
}
