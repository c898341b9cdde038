package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pumperp/be-task-approvals/internal/database"
	"github.com/pumperp/be-task-approvals/internal/errors"
)

// HistoryRepository appends and reads the immutable task transition trail.
// The table carries a delete-prevention trigger, so Append is the only
// mutation exposed.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry.
func (r *HistoryRepository) Append(ctx context.Context, e *HistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	query := `
		INSERT INTO task_history
		    (id, task_id, from_status, to_status, action,
		     actor_id, actor_kind, actor_name, actor_role,
		     approval_level, comment, rejection_reason)
		VALUES ($1, $2, $3::task_status, $4::task_status, $5,
		        $6, $7, $8, $9,
		        $10, $11, $12)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		e.ID,
		e.TaskID,
		e.FromStatus,
		e.ToStatus,
		e.Action,
		e.ActorID,
		e.ActorKind,
		e.ActorName,
		e.ActorRole,
		e.ApprovalLevel,
		e.Comment,
		e.RejectionReason,
	).Scan(&e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append history entry")
	}
	return nil
}

// ListByTask returns the full trail for a task ordered oldest-first.
func (r *HistoryRepository) ListByTask(ctx context.Context, taskID string) ([]*HistoryEntry, error) {
	query := `
		SELECT id, task_id, from_status, to_status, action,
		       actor_id, actor_kind, actor_name, actor_role,
		       approval_level, comment, rejection_reason, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get task history")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *HistoryRepository) scanRows(rows pgx.Rows) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	for rows.Next() {
		e := &HistoryEntry{}
		err := rows.Scan(
			&e.ID,
			&e.TaskID,
			&e.FromStatus,
			&e.ToStatus,
			&e.Action,
			&e.ActorID,
			&e.ActorKind,
			&e.ActorName,
			&e.ActorRole,
			&e.ApprovalLevel,
			&e.Comment,
			&e.RejectionReason,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan history entry")
		}
		entries = append(entries, e)
	}
	return entries, nil
}
