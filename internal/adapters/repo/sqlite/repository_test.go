package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func fixtureSession(id domain.SessionID, app string, at time.Time) domain.Session {
	return domain.Session{
		ID:              id,
		AppName:         app,
		Status:          domain.StatusIdle,
		CreatedAt:       at,
		LastHeartbeatAt: at,
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	session := fixtureSession("s-1", "demo", at)
	session.UserID = "alice"
	require.NoError(t, repo.Create(ctx, session))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, fixtureSession("old", "demo", at)))
	require.NoError(t, repo.Create(ctx, fixtureSession("new", "demo", at.Add(time.Minute))))

	sessions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, domain.SessionID("new"), sessions[0].ID)
	assert.Equal(t, domain.SessionID("old"), sessions[1].ID)
}

func TestRepositoryTouchIsMonotonicAndReturnsKillFlag(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("s-1", "demo", at)))

	kill, err := repo.Touch(ctx, "s-1", at.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, kill)

	_, err = repo.Touch(ctx, "s-1", at)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, at.Add(time.Minute), got.LastHeartbeatAt)

	require.NoError(t, repo.MarkKill(ctx, "s-1"))
	kill, err = repo.Touch(ctx, "s-1", at.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, kill)

	_, err = repo.Touch(ctx, "missing", at)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRepositoryMarkKillIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("s-1", "demo", at)))

	require.NoError(t, repo.MarkKill(ctx, "s-1"))
	require.NoError(t, repo.MarkKill(ctx, "s-1"))
	assert.ErrorIs(t, repo.MarkKill(ctx, "missing"), domain.ErrSessionNotFound)
}

func TestRepositoryMarkKillForAppTouchesOnlyThatApp(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("a-1", "demo", at)))
	require.NoError(t, repo.Create(ctx, fixtureSession("a-2", "demo", at)))
	require.NoError(t, repo.Create(ctx, fixtureSession("b-1", "other", at)))

	count, err := repo.MarkKillForApp(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	other, err := repo.GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, other.KillRequested)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("s-1", "demo", at)))

	require.NoError(t, repo.UpdateStatus(ctx, "s-1", domain.StatusRunning, "report", at.Add(time.Second)))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
	assert.Equal(t, "report", got.CurrentTask)
	assert.Equal(t, at.Add(time.Second), got.LastHeartbeatAt)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", domain.StatusIdle, "", at), domain.ErrSessionNotFound)
}

func TestRepositoryDeleteAndSweep(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("old", "demo", at.Add(-20*time.Minute))))
	require.NoError(t, repo.Create(ctx, fixtureSession("fresh", "demo", at)))

	removed, err := repo.DeleteHeartbeatBefore(ctx, at.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	removed, err = repo.DeleteHeartbeatBefore(ctx, at.Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	deleted, err := repo.Delete(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRepositoryConcurrentTouchAndKillNeverLosesFlag(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, fixtureSession("s-1", "demo", at)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = repo.Touch(ctx, "s-1", at.Add(time.Duration(i)*time.Second))
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = repo.MarkKill(ctx, "s-1")
	}()
	wg.Wait()

	kill, err := repo.Touch(ctx, "s-1", at)
	require.NoError(t, err)
	assert.True(t, kill)

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, at.Add(19*time.Second), got.LastHeartbeatAt)
}

func TestNewRepositoryRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewRepository("")
	require.Error(t, err)
}
