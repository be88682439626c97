package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	tderrors "github.com/taskdaemon/taskdaemon/errors"
	"github.com/taskdaemon/taskdaemon/tasks"
)

// createSchemaSQL is the persisted state layout: one table of Task records
// keyed by id. The (status, lease_expiry) index is what makes stale-lease
// reclamation a cheap scan instead of a full-table walk.
const createSchemaSQL = `
CREATE TABLE IF NOT EXISTS tasks (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    task_type    TEXT    NOT NULL,
    payload      TEXT    NOT NULL,
    status       TEXT    NOT NULL DEFAULT 'queued',
    attempts     INTEGER NOT NULL DEFAULT 0,
    max_retries  INTEGER NOT NULL DEFAULT 3,
    result       TEXT    NULL,
    last_error   TEXT    NULL,
    claim_owner  TEXT    NULL,
    lease_expiry INTEGER NULL,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_status_lease ON tasks (status, lease_expiry);
`

const taskColumns = `id, task_type, payload, status, attempts, max_retries,
    result, last_error, claim_owner, lease_expiry, created_at, updated_at`

// claimRaceRetries bounds how many times Claim re-runs its select-then-CAS
// loop after losing a race to another claimer before reporting no work.
const claimRaceRetries = 8

// SQLiteStore implements Store on a crash-durable SQLite database. Any
// state change acknowledged to a caller survives process restart. Multiple
// daemon processes may share one database file; claim atomicity is
// enforced by a conditional update, not by in-process locking.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if necessary) the task database at path and
// ensures the schema. Plain paths get WAL journaling and a busy timeout;
// pass a full DSN (anything containing '?') to control pragmas yourself.
func OpenSQLite(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := path
	if !strings.Contains(dsn, "?") {
		if !strings.HasPrefix(dsn, "file:") {
			dsn = "file:" + dsn
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "open task database")
	}
	if _, err := db.Exec(createSchemaSQL); err != nil {
		db.Close()
		return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "ensure task schema")
	}

	return &SQLiteStore{db: db, opts: o}, nil
}

// Enqueue creates a task in queued state and returns its ID.
func (s *SQLiteStore) Enqueue(ctx context.Context, taskType string, payload any, opts ...EnqueueOption) (int64, error) {
	if taskType == "" {
		return 0, tderrors.InvalidInput("task type must not be empty")
	}

	var eo enqueueOptions
	for _, opt := range opts {
		opt(&eo)
	}

	payloadJSON, err := marshalValue(payload)
	if err != nil {
		return 0, tderrors.InvalidInput("payload is not serializable", tderrors.WithCause(err))
	}

	now := s.opts.now().UnixNano()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (task_type, payload, status, max_retries, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		taskType, payloadJSON, string(tasks.StatusQueued),
		eo.resolveMaxRetries(s.opts.defaultMaxRetries), now, now)
	if err != nil {
		return 0, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "enqueue task")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "enqueue task")
	}
	return id, nil
}

// Claim hands the oldest eligible task to workerID under a lease.
//
// The claim is a single conditional update guarded by the expected prior
// state: between selecting a candidate and updating it, another worker (or
// another process) may have won the row, in which case the update matches
// zero rows and we pick the next candidate.
func (s *SQLiteStore) Claim(ctx context.Context, workerID string, lease time.Duration) (*tasks.Task, error) {
	if workerID == "" {
		return nil, tderrors.InvalidInput("worker ID must not be empty")
	}

	for attempt := 0; attempt < claimRaceRetries; attempt++ {
		now := s.opts.now()
		nowNano := now.UnixNano()

		var id int64
		var status string
		var owner sql.NullString
		err := s.db.QueryRowContext(ctx,
			`SELECT id, status, claim_owner FROM tasks
			 WHERE status = ? OR (status = ? AND lease_expiry <= ?)
			 ORDER BY id ASC LIMIT 1`,
			string(tasks.StatusQueued), string(tasks.StatusProcessing), nowNano).
			Scan(&id, &status, &owner)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "select claimable task")
		}

		expiry := now.Add(lease).UnixNano()
		res, err := s.db.ExecContext(ctx,
			`UPDATE tasks
			 SET status = ?, claim_owner = ?, lease_expiry = ?, updated_at = ?
			 WHERE id = ? AND (status = ? OR (status = ? AND lease_expiry <= ?))`,
			string(tasks.StatusProcessing), workerID, expiry, nowNano,
			id, string(tasks.StatusQueued), string(tasks.StatusProcessing), nowNano)
		if err != nil {
			return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "claim task")
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "claim task")
		}
		if rows == 0 {
			// Lost the race to another claimer; try the next candidate.
			continue
		}

		if status == string(tasks.StatusProcessing) {
			s.opts.logger.Debug("stale_lease_reclaimed", map[string]interface{}{
				"task":  id,
				"owner": owner.String,
			})
		}
		return s.Get(ctx, id)
	}
	return nil, nil
}

// Complete marks a processing task completed and stores its result.
func (s *SQLiteStore) Complete(ctx context.Context, id int64, result any) error {
	resultJSON, err := marshalValue(result)
	if err != nil {
		return tderrors.InvalidInput("result is not serializable", tderrors.WithCause(err))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "complete task")
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return tderrors.NotFound(id)
	}
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "complete task")
	}

	switch tasks.Status(status) {
	case tasks.StatusCompleted:
		// Idempotent - already completed
		return nil
	case tasks.StatusProcessing:
	default:
		return tderrors.Conflict("cannot complete task in status "+status, tderrors.WithTaskID(id))
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE tasks
		 SET status = ?, attempts = attempts + 1, result = ?,
		     claim_owner = NULL, lease_expiry = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(tasks.StatusCompleted), resultJSON, s.opts.now().UnixNano(),
		id, string(tasks.StatusProcessing))
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "complete task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tderrors.Conflict("task changed status during completion", tderrors.WithTaskID(id))
	}

	if err := tx.Commit(); err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "complete task")
	}
	return nil
}

// Fail reports a failed execution and returns the resulting status. The
// attempts increment and the status transition commit atomically.
func (s *SQLiteStore) Fail(ctx context.Context, id int64, failure error) (tasks.Status, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "fail task")
	}
	defer tx.Rollback()

	var status string
	var attempts, maxRetries int
	err = tx.QueryRowContext(ctx,
		`SELECT status, attempts, max_retries FROM tasks WHERE id = ?`, id).
		Scan(&status, &attempts, &maxRetries)
	if errors.Is(err, sql.ErrNoRows) {
		return "", tderrors.NotFound(id)
	}
	if err != nil {
		return "", tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "fail task")
	}

	switch tasks.Status(status) {
	case tasks.StatusDead:
		// Idempotent - already terminally failed
		return tasks.StatusDead, nil
	case tasks.StatusProcessing:
	default:
		return "", tderrors.Conflict("cannot fail task in status "+status, tderrors.WithTaskID(id))
	}

	newAttempts, next := failOutcome(attempts, maxRetries, failure)
	res, err := tx.ExecContext(ctx,
		`UPDATE tasks
		 SET status = ?, attempts = ?, last_error = ?,
		     claim_owner = NULL, lease_expiry = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(next), newAttempts, errorText(failure), s.opts.now().UnixNano(),
		id, string(tasks.StatusProcessing))
	if err != nil {
		return "", tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "fail task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", tderrors.Conflict("task changed status during failure report", tderrors.WithTaskID(id))
	}

	if err := tx.Commit(); err != nil {
		return "", tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "fail task")
	}
	return next, nil
}

// Redrive moves a failed/dead task back to queued, preserving attempts.
func (s *SQLiteStore) Redrive(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks
		 SET status = ?, last_error = NULL, claim_owner = NULL, lease_expiry = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?)`,
		string(tasks.StatusQueued), s.opts.now().UnixNano(),
		id, string(tasks.StatusFailed), string(tasks.StatusDead))
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "redrive task")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Distinguish a missing task from one in the wrong status.
	var status string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return tderrors.NotFound(id)
	}
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "redrive task")
	}
	return tderrors.Conflict("cannot redrive task in status "+status, tderrors.WithTaskID(id))
}

// Delete removes the record in any status.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "delete task")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tderrors.NotFound(id)
	}
	return nil
}

// Get returns a copy of the task.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*tasks.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tderrors.NotFound(id)
	}
	if err != nil {
		return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "get task")
	}
	return t, nil
}

// List returns up to limit tasks, most recent first.
func (s *SQLiteStore) List(ctx context.Context, limit int, status tasks.Status) ([]*tasks.Task, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "list tasks")
	}
	defer rows.Close()

	var out []*tasks.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "list tasks")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "list tasks")
	}
	return out, nil
}

// Depth returns the count of claimable tasks.
func (s *SQLiteStore) Depth(ctx context.Context) (int, error) {
	var depth int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE status = ? OR (status = ? AND lease_expiry <= ?)`,
		string(tasks.StatusQueued), string(tasks.StatusProcessing),
		s.opts.now().UnixNano()).Scan(&depth)
	if err != nil {
		return 0, tderrors.WrapWithCode(err, tderrors.ErrCodeStore, "queue depth")
	}
	return depth, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*tasks.Task, error) {
	var t tasks.Task
	var status, payloadJSON string
	var resultJSON, lastError, claimOwner sql.NullString
	var leaseExpiry sql.NullInt64
	var createdAt, updatedAt int64

	if err := row.Scan(&t.ID, &t.Type, &payloadJSON, &status, &t.Attempts, &t.MaxRetries,
		&resultJSON, &lastError, &claimOwner, &leaseExpiry, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	t.Status = tasks.Status(status)
	t.Payload = unmarshalValue(payloadJSON)
	if resultJSON.Valid {
		t.Result = unmarshalValue(resultJSON.String)
	}
	if lastError.Valid {
		t.Error = lastError.String
	}
	if claimOwner.Valid {
		t.ClaimOwner = claimOwner.String
	}
	if leaseExpiry.Valid {
		expiry := time.Unix(0, leaseExpiry.Int64).UTC()
		t.LeaseExpiry = &expiry
	}
	t.CreatedAt = time.Unix(0, createdAt).UTC()
	t.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &t, nil
}

// marshalValue encodes a structured payload/result for storage. The store
// persists JSON text but never interprets it.
func marshalValue(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalValue(s string) any {
	if s == "" || s == "null" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		// Stored by an older writer or external tool; surface as raw text.
		return s
	}
	return v
}
