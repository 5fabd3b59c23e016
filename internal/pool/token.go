package pool

import (
	"sync"
	"time"
)

// Token is a per-session cancellation flag shared by all the work a session
// submits. Work polls it; nothing is preempted.
type Token struct {
	mu        sync.Mutex
	done      chan struct{}
	cancelled bool
}

func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Cancel sets the flag. Calling it again is a no-op.
func (t *Token) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return
	}
	t.cancelled = true
	close(t.done)
}

func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Done returns a channel closed on Cancel. After Reset it returns a new
// channel.
func (t *Token) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Wait blocks for up to d and reports whether the token was cancelled.
func (t *Token) Wait(d time.Duration) bool {
	done := t.Done()
	if d <= 0 {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return t.Cancelled()
	}
}

// Reset clears a cancelled token so the session can submit work again.
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.cancelled {
		return
	}
	t.cancelled = false
	t.done = make(chan struct{})
}
