package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	dbDirMode  = 0o700
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	app_name       TEXT NOT NULL,
	user_id        TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'idle',
	current_task   TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	last_heartbeat INTEGER NOT NULL,
	kill_requested INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_app_name ON sessions(app_name);
CREATE INDEX IF NOT EXISTS idx_sessions_last_heartbeat ON sessions(last_heartbeat);
`

const selectColumns = `session_id, app_name, user_id, status, current_task, created_at, last_heartbeat, kill_requested`

// Repository stores sessions in SQLite. All statements go through a single
// connection, which serializes writers and keeps ":memory:" databases shared.
type Repository struct {
	db *sql.DB
}

var _ ports.SessionRepository = (*Repository)(nil)

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}

	dsn := path
	if path != ":memory:" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve sqlite path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), dbDirMode); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		dsn = "file:" + absPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Create(ctx context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(session.ID),
		session.AppName,
		session.UserID,
		string(session.Status),
		session.CurrentTask,
		toUnix(session.CreatedAt),
		toUnix(session.LastHeartbeatAt),
		boolToInt(session.KillRequested),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sessions WHERE session_id = ?`, string(id))

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("select session: %w", err)
	}

	return session, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM sessions ORDER BY created_at DESC, session_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.SessionID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, string(id))
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session rows: %w", err)
	}

	return affected > 0, nil
}

func (r *Repository) Touch(ctx context.Context, id domain.SessionID, at time.Time) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE sessions SET last_heartbeat = MAX(last_heartbeat, ?) WHERE session_id = ? RETURNING kill_requested`,
		toUnix(at), string(id),
	)

	var killRequested int
	if err := row.Scan(&killRequested); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrSessionNotFound
		}
		return false, fmt.Errorf("touch session: %w", err)
	}

	return killRequested != 0, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, current_task = ?, last_heartbeat = MAX(last_heartbeat, ?) WHERE session_id = ?`,
		string(status), currentTask, toUnix(at), string(id),
	)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}

	return requireAffected(res)
}

func (r *Repository) MarkKill(ctx context.Context, id domain.SessionID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET kill_requested = 1 WHERE session_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("mark session kill: %w", err)
	}

	return requireAffected(res)
}

func (r *Repository) MarkKillForApp(ctx context.Context, appName string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET kill_requested = 1 WHERE app_name = ?`, appName)
	if err != nil {
		return 0, fmt.Errorf("mark app kill: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark app kill rows: %w", err)
	}

	return int(affected), nil
}

func (r *Repository) DeleteHeartbeatBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_heartbeat < ?`, toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions rows: %w", err)
	}

	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.Session, error) {
	var (
		id, appName, userID, status, currentTask string
		createdAt, lastHeartbeat                 int64
		killRequested                            int
	)
	if err := row.Scan(&id, &appName, &userID, &status, &currentTask, &createdAt, &lastHeartbeat, &killRequested); err != nil {
		return domain.Session{}, err
	}

	return domain.Session{
		ID:              domain.SessionID(id),
		AppName:         appName,
		UserID:          userID,
		Status:          domain.Status(status),
		CurrentTask:     currentTask,
		CreatedAt:       fromUnix(createdAt),
		LastHeartbeatAt: fromUnix(lastHeartbeat),
		KillRequested:   killRequested != 0,
	}, nil
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(v int64) time.Time {
	return time.Unix(0, v).UTC()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
