// Package storage provides the task, cache and delivery stores in memory,
// Postgres and Redis flavours.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/review-broker/internal/core"
)

const taskColumns = `id, repo_full_name, pr_number, revision, status, result, source_task_id, error, active_key, created_at, updated_at`

type taskRow struct {
	ID           string             `db:"id"`
	RepoFullName string             `db:"repo_full_name"`
	PRNumber     int                `db:"pr_number"`
	Revision     string             `db:"revision"`
	Status       string             `db:"status"`
	Result       types.NullJSONText `db:"result"`
	SourceTaskID string             `db:"source_task_id"`
	Error        string             `db:"error"`
	ActiveKey    sql.NullString     `db:"active_key"`
	CreatedAt    time.Time          `db:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at"`
}

func newTaskRow(task *core.Task) (*taskRow, error) {
	row := &taskRow{
		ID:           task.ID,
		RepoFullName: task.Repository,
		PRNumber:     task.PRNumber,
		Revision:     task.Revision,
		Status:       string(task.Status),
		SourceTaskID: task.SourceTaskID,
		Error:        task.Error,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
	if task.Result != nil {
		raw, err := json.Marshal(task.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode review result: %w", err)
		}
		row.Result = types.NullJSONText{JSONText: raw, Valid: true}
	}
	if key, ok := task.ActiveKey(); ok {
		row.ActiveKey = sql.NullString{String: key.String(), Valid: true}
	}
	return row, nil
}

func (r *taskRow) toTask() (*core.Task, error) {
	task := &core.Task{
		ID:           r.ID,
		Repository:   r.RepoFullName,
		PRNumber:     r.PRNumber,
		Revision:     r.Revision,
		Status:       core.TaskStatus(r.Status),
		SourceTaskID: r.SourceTaskID,
		Error:        r.Error,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Result.Valid {
		var result core.ReviewResult
		if err := r.Result.Unmarshal(&result); err != nil {
			return nil, fmt.Errorf("failed to decode review result of task %s: %w", r.ID, err)
		}
		task.Result = &result
	}
	return task, nil
}

type postgresTaskStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresTaskStore returns a TaskStore backed by the review_tasks table.
// Every call is bounded by timeout.
func NewPostgresTaskStore(db *sqlx.DB, timeout time.Duration) core.TaskStore {
	return &postgresTaskStore{db: db, timeout: timeout, now: time.Now}
}

// Create inserts the task. The partial unique index on active_key enforces a
// single non-terminal task per revision.
func (s *postgresTaskStore) Create(ctx context.Context, task *core.Task) error {
	if err := validateNewTask(task); err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stored := *task
	stampTimes(&stored, s.now().UTC())
	row, err := newTaskRow(&stored)
	if err != nil {
		return err
	}

	query := `INSERT INTO review_tasks (` + taskColumns + `)
		VALUES (:id, :repo_full_name, :pr_number, :revision, :status, :result, :source_task_id, :error, :active_key, :created_at, :updated_at)
		ON CONFLICT DO NOTHING`
	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}
	if n == 1 {
		*task = stored
		return nil
	}
	return s.explainConflict(ctx, row)
}

func (s *postgresTaskStore) explainConflict(ctx context.Context, row *taskRow) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM review_tasks WHERE id = $1)`, row.ID); err != nil {
		return fmt.Errorf("failed to inspect conflicting task %s: %w", row.ID, err)
	}
	if exists || !row.ActiveKey.Valid {
		return fmt.Errorf("task %s: %w", row.ID, core.ErrConflict)
	}

	var owner string
	err := s.db.GetContext(ctx, &owner, `SELECT id FROM review_tasks WHERE active_key = $1`, row.ActiveKey.String)
	if errors.Is(err, sql.ErrNoRows) {
		// The owner finished between the insert and this lookup.
		return fmt.Errorf("task %s: revision claim released concurrently: %w", row.ID, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to find active task for %s: %w", row.ActiveKey.String, err)
	}
	return &core.ActiveTaskError{
		TaskID: owner,
		Key:    core.CacheKey{Repository: row.RepoFullName, Revision: row.Revision},
	}
}

func (s *postgresTaskStore) Get(ctx context.Context, id string) (*core.Task, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row taskRow
	err := s.db.GetContext(ctx, &row, `SELECT `+taskColumns+` FROM review_tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return row.toTask()
}

// Transition is a single conditional UPDATE on (id, status).
func (s *postgresTaskStore) Transition(ctx context.Context, id string, from, to core.TaskStatus, update core.TaskUpdate) (*core.Task, error) {
	if !core.CanTransition(from, to) {
		return nil, fmt.Errorf("task %s %s -> %s: %w", id, from, to, core.ErrIllegalTransition)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	args := []any{id, string(from), string(to), s.now().UTC()}
	set := []string{"status = $3", "updated_at = $4"}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Revision != "" {
		set = append(set, "revision = "+arg(update.Revision))
	}
	switch to {
	case core.StatusSuccess:
		raw, err := json.Marshal(update.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to encode review result: %w", err)
		}
		set = append(set,
			"result = "+arg(string(raw)),
			"source_task_id = "+arg(update.SourceTaskID),
			"error = ''",
		)
	case core.StatusFailure:
		set = append(set, "result = NULL", "error = "+arg(update.Error))
	}
	if to.IsTerminal() {
		set = append(set, "active_key = NULL")
	}

	query := fmt.Sprintf(`UPDATE review_tasks SET %s WHERE id = $1 AND status = $2 RETURNING %s`,
		strings.Join(set, ", "), taskColumns)

	var row taskRow
	err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &core.StaleTransitionError{TaskID: id, Expected: from, Actual: current.Status}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to transition task %s to %s: %w", id, to, err)
	}
	return row.toTask()
}

type cacheRow struct {
	RepoFullName string         `db:"repo_full_name"`
	Revision     string         `db:"revision"`
	Result       types.JSONText `db:"result"`
	TaskID       string         `db:"task_id"`
	CreatedAt    time.Time      `db:"created_at"`
}

type postgresCacheStore struct {
	db      *sqlx.DB
	timeout time.Duration
	now     func() time.Time
}

// NewPostgresCacheStore returns a CacheStore backed by the review_cache table.
func NewPostgresCacheStore(db *sqlx.DB, timeout time.Duration) core.CacheStore {
	return &postgresCacheStore{db: db, timeout: timeout, now: time.Now}
}

func (s *postgresCacheStore) Get(ctx context.Context, key core.CacheKey) (*core.CacheEntry, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var row cacheRow
	err := s.db.GetContext(ctx, &row,
		`SELECT repo_full_name, revision, result, task_id, created_at FROM review_cache WHERE repo_full_name = $1 AND revision = $2`,
		key.Repository, key.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cache entry %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var result core.ReviewResult
	if err := row.Result.Unmarshal(&result); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return &core.CacheEntry{Key: key, Result: &result, TaskID: row.TaskID, CreatedAt: row.CreatedAt}, nil
}

func (s *postgresCacheStore) PutIfAbsent(ctx context.Context, key core.CacheKey, entry *core.CacheEntry) (bool, error) {
	if err := validateCacheEntry(key, entry); err != nil {
		return false, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := json.Marshal(entry.Result)
	if err != nil {
		return false, fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx,
		`INSERT INTO review_cache (repo_full_name, revision, result, task_id, created_at)
		VALUES (:repo_full_name, :revision, :result, :task_id, :created_at)
		ON CONFLICT (repo_full_name, revision) DO NOTHING`,
		&cacheRow{
			RepoFullName: key.Repository,
			Revision:     key.Revision,
			Result:       types.JSONText(raw),
			TaskID:       entry.TaskID,
			CreatedAt:    createdAt,
		})
	if err != nil {
		return false, fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to write cache entry %s: %w", key, err)
	}
	return n == 1, nil
}

type postgresDeliveryStore struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresDeliveryStore returns a DeliveryStore backed by the webhook_deliveries table.
func NewPostgresDeliveryStore(db *sqlx.DB, timeout time.Duration) core.DeliveryStore {
	return &postgresDeliveryStore{db: db, timeout: timeout}
}

func (s *postgresDeliveryStore) RecordIfAbsent(ctx context.Context, deliveryID string, receivedAt time.Time) (bool, error) {
	if deliveryID == "" {
		return false, fmt.Errorf("empty delivery id: %w", core.ErrInvalidInput)
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhook_deliveries (delivery_id, received_at) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		deliveryID, receivedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record delivery %s: %w", deliveryID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record delivery %s: %w", deliveryID, err)
	}
	return n == 1, nil
}

func (s *postgresDeliveryStore) Forget(ctx context.Context, deliveryID string) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE delivery_id = $1`, deliveryID); err != nil {
		return fmt.Errorf("failed to forget delivery %s: %w", deliveryID, err)
	}
	return nil
}

func (s *postgresDeliveryStore) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM webhook_deliveries WHERE received_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge deliveries: %w", err)
	}
	return res.RowsAffected()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
