package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pumperp/be-task-approvals/internal/database"
	"github.com/pumperp/be-task-approvals/internal/errors"
)

// CommentRepository appends and reads task comments. Comments are append-only.
type CommentRepository struct {
	db *database.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Append inserts one comment.
func (r *CommentRepository) Append(ctx context.Context, c *Comment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	query := `
		INSERT INTO task_comments
		    (id, task_id, author_id, author_kind, author_name, body, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		c.ID,
		c.TaskID,
		c.AuthorID,
		c.AuthorKind,
		c.AuthorName,
		c.Body,
		c.Kind,
	).Scan(&c.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append comment")
	}
	return nil
}

// ListByTask returns a task's comments ordered oldest-first.
func (r *CommentRepository) ListByTask(ctx context.Context, taskID string) ([]*Comment, error) {
	query := `
		SELECT id, task_id, author_id, author_kind, author_name, body, kind, created_at
		FROM task_comments
		WHERE task_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get task comments")
	}
	defer rows.Close()

	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		err := rows.Scan(
			&c.ID,
			&c.TaskID,
			&c.AuthorID,
			&c.AuthorKind,
			&c.AuthorName,
			&c.Body,
			&c.Kind,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan comment")
		}
		comments = append(comments, c)
	}
	return comments, nil
}
