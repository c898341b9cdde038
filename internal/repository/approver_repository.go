package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pumperp/be-task-approvals/internal/database"
	"github.com/pumperp/be-task-approvals/internal/errors"
	"github.com/pumperp/be-task-approvals/internal/workflow"
)

const approverColumns = `id, user_id, user_type, name, email, role, level,
	       is_active, can_override, created_at, updated_at`

// ApproverRepository manages the global approver chain bindings.
type ApproverRepository struct {
	db *database.DB
}

// NewApproverRepository creates a new ApproverRepository.
func NewApproverRepository(db *database.DB) *ApproverRepository {
	return &ApproverRepository{db: db}
}

// ListActive returns all active bindings ordered by level ascending. This is
// the chain the transition engine consults.
func (r *ApproverRepository) ListActive(ctx context.Context) ([]*workflow.Approver, error) {
	query := `
		SELECT ` + approverColumns + `
		FROM approvers
		WHERE is_active = TRUE
		ORDER BY level ASC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list active approvers")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// List returns every binding, active or not, ordered by level.
func (r *ApproverRepository) List(ctx context.Context) ([]*workflow.Approver, error) {
	query := `
		SELECT ` + approverColumns + `
		FROM approvers
		ORDER BY level ASC, created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list approvers")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// GetByID retrieves a binding by primary key.
func (r *ApproverRepository) GetByID(ctx context.Context, id string) (*workflow.Approver, error) {
	query := `SELECT ` + approverColumns + ` FROM approvers WHERE id = $1`

	a, err := r.scanApprover(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("approver", id)
	}
	return a, err
}

// Create inserts a new binding.
func (r *ApproverRepository) Create(ctx context.Context, a *workflow.Approver) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `
		INSERT INTO approvers
		    (id, user_id, user_type, name, email, role, level,
		     is_active, can_override)
		VALUES ($1, $2, $3, $4, $5, $6, $7,
		        $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.UserType,
		a.Name,
		a.Email,
		a.Role,
		a.Level,
		a.IsActive,
		a.CanOverride,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approver")
	}
	return nil
}

// Update rewrites a binding's mutable fields.
func (r *ApproverRepository) Update(ctx context.Context, a *workflow.Approver) error {
	query := `
		UPDATE approvers
		SET user_id      = $2,
		    user_type    = $3,
		    name         = $4,
		    email        = $5,
		    role         = $6,
		    level        = $7,
		    is_active    = $8,
		    can_override = $9,
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(ctx, query,
		a.ID,
		a.UserID,
		a.UserType,
		a.Name,
		a.Email,
		a.Role,
		a.Level,
		a.IsActive,
		a.CanOverride,
	).Scan(&a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return errors.NotFound("approver", a.ID)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update approver")
	}
	return nil
}

// Deactivate soft-deletes a binding by flipping the active flag.
func (r *ApproverRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE approvers
		SET is_active  = FALSE,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("approver", id)
	}
	return err
}

// Delete removes a binding permanently.
func (r *ApproverRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM approvers WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete approver")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("approver", id)
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type approverScanner interface {
	Scan(dest ...any) error
}

func (r *ApproverRepository) scanApprover(row approverScanner) (*workflow.Approver, error) {
	a := &workflow.Approver{}
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.UserType,
		&a.Name,
		&a.Email,
		&a.Role,
		&a.Level,
		&a.IsActive,
		&a.CanOverride,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *ApproverRepository) scanRows(rows pgx.Rows) ([]*workflow.Approver, error) {
	var approvers []*workflow.Approver
	for rows.Next() {
		a, err := r.scanApprover(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approver")
		}
		approvers = append(approvers, a)
	}
	return approvers, nil
}
