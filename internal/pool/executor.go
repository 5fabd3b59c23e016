// Package pool runs session work on a shared, reference-counted set of
// workers. Each session cancels its own work through a Token; terminating the
// pool cancels everything.
package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// ErrTerminated resolves work that was still queued, or submitted, after the
// executor shut down.
var ErrTerminated = errors.New("pool terminated")

// Work is a unit of session work. ctx ends when the pool terminates or the
// submitter's context is done; token is the submitting session's flag.
type Work func(ctx context.Context, token *Token) error

type job struct {
	ctx    context.Context
	token  *Token
	work   Work
	result chan error
}

type Executor struct {
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup

	mu      sync.Mutex
	cond    *sync.Cond
	pending []job
	closed  bool
	workers int
}

func newExecutor(workers int, logger *slog.Logger) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Executor{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		workers: workers,
	}
	e.cond = sync.NewCond(&e.mu)

	for i := 0; i < workers; i++ {
		e.wg.Go(e.loop)
	}

	return e
}

// Submit queues work and returns a channel that receives its result exactly
// once. A nil token means the work can only be stopped by the pool.
func (e *Executor) Submit(ctx context.Context, token *Token, work Work) <-chan error {
	result := make(chan error, 1)
	if token == nil {
		token = NewToken()
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		result <- ErrTerminated
		return result
	}
	e.pending = append(e.pending, job{ctx: ctx, token: token, work: work, result: result})
	e.mu.Unlock()
	e.cond.Signal()

	return result
}

func (e *Executor) Workers() int {
	return e.workers
}

func (e *Executor) Alive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

func (e *Executor) loop() {
	for {
		j, ok := e.next()
		if !ok {
			return
		}
		j.result <- e.run(j)
	}
}

func (e *Executor) next() (job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for len(e.pending) == 0 && !e.closed {
		e.cond.Wait()
	}
	if e.closed {
		return job{}, false
	}

	j := e.pending[0]
	e.pending[0] = job{}
	e.pending = e.pending[1:]
	return j, true
}

func (e *Executor) run(j job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(e.ctx)
	defer cancel()
	stop := context.AfterFunc(j.ctx, cancel)
	defer stop()

	var err error
	if recovered := panics.Try(func() { err = j.work(ctx, j.token) }); recovered != nil {
		e.logger.Warn("pool work panicked", "panic", recovered.Value)
		return recovered.AsError()
	}

	return err
}

// terminate cancels running work, fails queued work with ErrTerminated and
// waits for every worker to return.
func (e *Executor) terminate() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	drained := e.pending
	e.pending = nil
	e.mu.Unlock()

	e.cond.Broadcast()
	e.cancel()

	for _, j := range drained {
		j.result <- ErrTerminated
	}

	e.wg.Wait()
}
