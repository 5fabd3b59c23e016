package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
)

// Repository keeps sessions in process memory. The map lock only guards
// membership; each record carries its own mutex for read-modify-write.
type Repository struct {
	mu      sync.RWMutex
	entries map[domain.SessionID]*entry
}

type entry struct {
	mu      sync.Mutex
	session domain.Session
	deleted bool
}

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{entries: map[domain.SessionID]*entry{}}
}

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[session.ID]; ok {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	r.entries[session.ID] = &entry{session: session}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	var session domain.Session
	err := r.withEntry(id, func(e *entry) {
		session = e.session
	})

	return session, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := r.snapshot()
	sessions := make([]domain.Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			sessions = append(sessions, e.session)
		}
		e.mu.Unlock()
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	return sessions, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.SessionID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return false, nil
	}

	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()

	return true, nil
}

func (r *Repository) Touch(ctx context.Context, id domain.SessionID, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var killRequested bool
	err := r.withEntry(id, func(e *entry) {
		e.session.Touch(at)
		killRequested = e.session.KillRequested
	})

	return killRequested, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.withEntry(id, func(e *entry) {
		e.session.Status = status
		e.session.CurrentTask = currentTask
		e.session.Touch(at)
	})
}

func (r *Repository) MarkKill(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.withEntry(id, func(e *entry) {
		e.session.KillRequested = true
	})
}

func (r *Repository) MarkKillForApp(ctx context.Context, appName string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, e := range r.snapshot() {
		e.mu.Lock()
		if !e.deleted && e.session.AppName == appName {
			e.session.KillRequested = true
			count++
		}
		e.mu.Unlock()
	}

	return count, nil
}

func (r *Repository) DeleteHeartbeatBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, e := range r.entries {
		e.mu.Lock()
		if e.session.LastHeartbeatAt.Before(cutoff) {
			e.deleted = true
			delete(r.entries, id)
			removed++
		}
		e.mu.Unlock()
	}

	return removed, nil
}

func (r *Repository) withEntry(id domain.SessionID, fn func(*entry)) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return domain.ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Deleted between the map lookup and the record lock.
	if e.deleted {
		return domain.ErrSessionNotFound
	}
	fn(e)

	return nil
}

func (r *Repository) snapshot() []*entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}

	return entries
}
