package repository

import (
	"time"

	"github.com/pumperp/be-task-approvals/internal/workflow"
)

// ── Domain types for task approval ───────────────────────────────────────────

// Task is a unit of work routed through the approval ladder.
type Task struct {
	ID                   string          `json:"id"`
	Title                string          `json:"title"`
	Description          *string         `json:"description,omitempty"`
	Status               workflow.Status `json:"status"`
	CreatedBy            string          `json:"createdBy"`
	CreatedByKind        string          `json:"createdByKind"`
	Priority             string          `json:"priority"` // low | medium | high | urgent
	DueDate              *time.Time      `json:"dueDate,omitempty"`
	Tags                 []string        `json:"tags"`
	CurrentApprovalLevel int             `json:"currentApprovalLevel"`
	CurrentApproverID    *string         `json:"currentApproverId,omitempty"`
	CurrentApproverKind  *string         `json:"currentApproverKind,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	ConfirmedAt          *time.Time      `json:"confirmedAt,omitempty"`
	CompletedAt          *time.Time      `json:"completedAt,omitempty"`
}

// Snapshot adapts the row into the view the transition engine consults.
func (t *Task) Snapshot() workflow.Task {
	return workflow.Task{
		Status:      t.Status,
		CreatorID:   t.CreatedBy,
		CreatorKind: t.CreatedByKind,
		Level:       t.CurrentApprovalLevel,
	}
}

// TaskFilter narrows List results. Nil fields match everything.
type TaskFilter struct {
	Status     *string
	CreatedBy  *string
	ApproverID *string
	Limit      int
	Offset     int
}

// TransitionUpdate carries the engine's computed outcome to the task row.
type TransitionUpdate struct {
	Status         workflow.Status
	Level          int
	ApproverID     *string
	ApproverKind   *string
	StampConfirmed bool
	StampCompleted bool
}

// StatusCount is one row of the aggregate status breakdown.
type StatusCount struct {
	Status workflow.Status `json:"status"`
	Count  int64           `json:"count"`
}

// HistoryEntry is one immutable row of a task's transition audit trail.
type HistoryEntry struct {
	ID              string          `json:"id"`
	TaskID          string          `json:"taskId"`
	FromStatus      workflow.Status `json:"fromStatus"`
	ToStatus        workflow.Status `json:"toStatus"`
	Action          workflow.Action `json:"action"`
	ActorID         string          `json:"actorId"`
	ActorKind       string          `json:"actorKind"`
	ActorName       string          `json:"actorName"`
	ActorRole       string          `json:"actorRole"`
	ApprovalLevel   int             `json:"approvalLevel"`
	Comment         *string         `json:"comment,omitempty"`
	RejectionReason *string         `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Comment is a free-text note attached to a task.
type Comment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	AuthorID   string    `json:"authorId"`
	AuthorKind string    `json:"authorKind"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	Kind       string    `json:"kind"` // approval | rejection | message
	CreatedAt  time.Time `json:"createdAt"`
}
