package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pumperp/be-task-approvals/internal/database"
	"github.com/pumperp/be-task-approvals/internal/errors"
)

const taskColumns = `id, title, description, status,
	       created_by, created_by_kind, priority, due_date, tags,
	       current_approval_level, current_approver_id, current_approver_kind,
	       created_at, updated_at, confirmed_at, completed_at`

// TaskRepository persists tasks. All mutations beyond creation and deletion
// go through UpdateTransition so the row always reflects an engine decision.
type TaskRepository struct {
	db *database.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task. Tasks always start in draft at level 0.
func (r *TaskRepository) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	query := `
		INSERT INTO tasks
		    (id, title, description, status,
		     created_by, created_by_kind, priority, due_date, tags,
		     current_approval_level)
		VALUES ($1, $2, $3, $4::task_status,
		        $5, $6, $7, $8, $9,
		        $10)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		t.Status,
		t.CreatedBy,
		t.CreatedByKind,
		t.Priority,
		t.DueDate,
		t.Tags,
		t.CurrentApprovalLevel,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create task")
	}
	return nil
}

// GetByID retrieves a task by its primary key.
func (r *TaskRepository) GetByID(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t, err := r.scanTask(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("task", id)
	}
	return t, err
}

// GetForUpdate retrieves a task and locks its row for the ambient
// transaction. Concurrent transitions against the same task serialize here.
func (r *TaskRepository) GetForUpdate(ctx context.Context, id string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 FOR UPDATE`

	t, err := r.scanTask(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("task", id)
	}
	return t, err
}

// List returns tasks matching the filter, newest first, plus the total count.
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) ([]*Task, int64, error) {
	where := " WHERE 1=1"
	args := []any{}

	if f.Status != nil {
		args = append(args, *f.Status)
		where += fmt.Sprintf(" AND status = $%d::task_status", len(args))
	}
	if f.CreatedBy != nil {
		args = append(args, *f.CreatedBy)
		where += fmt.Sprintf(" AND created_by = $%d", len(args))
	}
	if f.ApproverID != nil {
		args = append(args, *f.ApproverID)
		where += fmt.Sprintf(" AND current_approver_id = $%d", len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count tasks")
	}

	args = append(args, f.Limit, f.Offset)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list tasks")
	}
	defer rows.Close()

	tasks, err := r.scanRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// UpdateTransition applies an engine-computed transition to the task row and
// returns the updated task.
func (r *TaskRepository) UpdateTransition(ctx context.Context, id string, upd TransitionUpdate) (*Task, error) {
	query := `
		UPDATE tasks
		SET status                 = $2::task_status,
		    current_approval_level = $3,
		    current_approver_id    = $4,
		    current_approver_kind  = $5,
		    confirmed_at           = CASE WHEN $6 THEN NOW() ELSE confirmed_at END,
		    completed_at           = CASE WHEN $7 THEN NOW() ELSE completed_at END,
		    updated_at             = NOW()
		WHERE id = $1
		RETURNING ` + taskColumns

	t, err := r.scanTask(r.db.QueryRow(ctx, query,
		id,
		upd.Status,
		upd.Level,
		upd.ApproverID,
		upd.ApproverKind,
		upd.StampConfirmed,
		upd.StampCompleted,
	))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("task", id)
	}
	return t, err
}

// Delete removes a task permanently. History and comments cascade.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete task")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("task", id)
	}
	return nil
}

// CountByStatus returns the aggregate status breakdown across all tasks.
func (r *TaskRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	query := `
		SELECT status, COUNT(*)
		FROM tasks
		GROUP BY status
		ORDER BY status
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to count tasks by status")
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan status count")
		}
		counts = append(counts, c)
	}
	return counts, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type taskScanner interface {
	Scan(dest ...any) error
}

func (r *TaskRepository) scanTask(row taskScanner) (*Task, error) {
	t := &Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.CreatedBy,
		&t.CreatedByKind,
		&t.Priority,
		&t.DueDate,
		&t.Tags,
		&t.CurrentApprovalLevel,
		&t.CurrentApproverID,
		&t.CurrentApproverKind,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.ConfirmedAt,
		&t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TaskRepository) scanRows(rows pgx.Rows) ([]*Task, error) {
	var tasks []*Task
	for rows.Next() {
		t, err := r.scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan task")
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
