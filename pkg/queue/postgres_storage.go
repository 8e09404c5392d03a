package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/eventkit/pkg/pg"
)

const taskColumns = `id, queue, group_key, task_type, task_name, payload, status, priority,
	retry_count, max_retries, scheduled_at, locked_until, locked_by, processed_at, error, created_at`

// PostgresStorage implements all queue repository interfaces on top of the
// queue_tasks and queue_tasks_dlq tables. Claims use FOR UPDATE SKIP LOCKED,
// so any number of workers may share the tables.
type PostgresStorage struct {
	db pg.DB
}

// NewPostgresStorage creates a queue storage bound to db.
func NewPostgresStorage(db pg.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// CreateTask inserts task, replacing a finished task with the same ID.
func (s *PostgresStorage) CreateTask(ctx context.Context, t *Task) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO queue_tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULL, NULL, NULL, NULL, $12)
		ON CONFLICT (id) DO UPDATE SET
			queue = EXCLUDED.queue,
			group_key = EXCLUDED.group_key,
			task_type = EXCLUDED.task_type,
			task_name = EXCLUDED.task_name,
			payload = EXCLUDED.payload,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			retry_count = EXCLUDED.retry_count,
			max_retries = EXCLUDED.max_retries,
			scheduled_at = EXCLUDED.scheduled_at,
			locked_until = NULL,
			locked_by = NULL,
			processed_at = NULL,
			error = NULL,
			created_at = EXCLUDED.created_at
		WHERE queue_tasks.status IN ('completed', 'failed')`,
		t.ID, t.Queue, t.Group, t.TaskType, t.TaskName, t.Payload, t.Status, t.Priority,
		t.RetryCount, t.MaxRetries, t.ScheduledAt, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskAlreadyExists
	}
	return nil
}

// GetTask returns the task with the given ID.
func (s *PostgresStorage) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM queue_tasks WHERE id = $1`, id))
	if pg.IsNotFoundError(err) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

// DeleteTask removes a task regardless of its status.
func (s *PostgresStorage) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM queue_tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// ListTasksByGroup returns every task tagged with group.
func (s *PostgresStorage) ListTasksByGroup(ctx context.Context, group string) ([]Task, error) {
	rows, err := s.db.Query(ctx, `SELECT `+taskColumns+` FROM queue_tasks
		WHERE group_key = $1 ORDER BY scheduled_at, id`, group)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// GetPendingTaskByName implements SchedulerRepository
func (s *PostgresStorage) GetPendingTaskByName(ctx context.Context, name string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM queue_tasks
		WHERE task_name = $1 AND status = 'pending' ORDER BY scheduled_at LIMIT 1`, name))
	if pg.IsNotFoundError(err) {
		return nil, ErrTaskNotFound
	}
	return t, err
}

// ClaimTask implements WorkerRepository. Processing tasks whose lock has
// expired are claimable again.
func (s *PostgresStorage) ClaimTask(ctx context.Context, workerID uuid.UUID, queues []string, lockDuration time.Duration) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, `
		UPDATE queue_tasks SET
			status = 'processing',
			locked_by = $1,
			locked_until = now() + $3::interval
		WHERE id = (
			SELECT id FROM queue_tasks
			WHERE queue = ANY($2)
				AND scheduled_at <= now()
				AND (status = 'pending' OR (status = 'processing' AND locked_until < now()))
			ORDER BY priority DESC, scheduled_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+taskColumns,
		workerID, queues, lockDuration,
	))
	if pg.IsNotFoundError(err) {
		return nil, ErrNoTaskToClaim
	}
	return t, err
}

// CompleteTask implements WorkerRepository
func (s *PostgresStorage) CompleteTask(ctx context.Context, id uuid.UUID) error {
	return expectOne(s.db.Exec(ctx, `
		UPDATE queue_tasks SET status = 'completed', processed_at = now(), locked_by = NULL, locked_until = NULL
		WHERE id = $1 AND status = 'processing'`, id))
}

// FailTask implements WorkerRepository
func (s *PostgresStorage) FailTask(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return expectOne(s.db.Exec(ctx, `
		UPDATE queue_tasks SET
			retry_count = retry_count + 1,
			error = $2,
			locked_by = NULL,
			locked_until = NULL,
			status = CASE WHEN retry_count + 1 >= max_retries THEN 'failed' ELSE 'pending' END,
			scheduled_at = CASE WHEN retry_count + 1 >= max_retries THEN scheduled_at
				ELSE now() + (retry_count + 1) * $3::interval END
		WHERE id = $1 AND status = 'processing'`, id, errorMsg, retryBackoff))
}

// MoveToDLQ implements WorkerRepository
func (s *PostgresStorage) MoveToDLQ(ctx context.Context, id uuid.UUID) error {
	return expectOne(s.db.Exec(ctx, `
		WITH moved AS (
			DELETE FROM queue_tasks WHERE id = $1 RETURNING *
		)
		INSERT INTO queue_tasks_dlq (id, task_id, queue, group_key, task_type, task_name, payload,
			priority, error, retry_count, failed_at, created_at)
		SELECT $2, id, queue, group_key, task_type, task_name, payload,
			priority, coalesce(error, ''), retry_count, now(), created_at
		FROM moved`, id, uuid.New()))
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID, &t.Queue, &t.Group, &t.TaskType, &t.TaskName, &t.Payload, &t.Status, &t.Priority,
		&t.RetryCount, &t.MaxRetries, &t.ScheduledAt, &t.LockedUntil, &t.LockedBy, &t.ProcessedAt,
		&t.Error, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
