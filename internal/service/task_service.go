package service

import (
	"context"
	"strings"
	"time"

	"github.com/pumperp/be-task-approvals/internal/errors"
	"github.com/pumperp/be-task-approvals/internal/logger"
	"github.com/pumperp/be-task-approvals/internal/notify"
	"github.com/pumperp/be-task-approvals/internal/repository"
	"github.com/pumperp/be-task-approvals/internal/workflow"
)

// Store interfaces are satisfied by the repository types; tests substitute
// in-memory fakes.

// TaskStore persists tasks.
type TaskStore interface {
	Create(ctx context.Context, t *repository.Task) error
	GetByID(ctx context.Context, id string) (*repository.Task, error)
	GetForUpdate(ctx context.Context, id string) (*repository.Task, error)
	List(ctx context.Context, f repository.TaskFilter) ([]*repository.Task, int64, error)
	UpdateTransition(ctx context.Context, id string, upd repository.TransitionUpdate) (*repository.Task, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) ([]repository.StatusCount, error)
}

// ApproverStore reads the active approver chain.
type ApproverStore interface {
	ListActive(ctx context.Context) ([]*workflow.Approver, error)
}

// HistoryStore appends and reads the transition trail.
type HistoryStore interface {
	Append(ctx context.Context, e *repository.HistoryEntry) error
	ListByTask(ctx context.Context, taskID string) ([]*repository.HistoryEntry, error)
}

// CommentStore appends and reads task comments.
type CommentStore interface {
	Append(ctx context.Context, c *repository.Comment) error
	ListByTask(ctx context.Context, taskID string) ([]*repository.Comment, error)
}

// Transactor runs a function inside a database transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher pushes realtime task events. Implementations must be
// fire-and-forget.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, eventType, taskID, actorID string, recipients []string, payload map[string]interface{})
}

var validPriorities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
	"urgent": true,
}

// TaskService owns task lifecycle operations. Every status change runs
// through the workflow engine inside a single transaction: the task row is
// locked, the decision computed against the locked snapshot, and the update
// plus history entry land atomically.
type TaskService struct {
	tasks     TaskStore
	approvers ApproverStore
	history   HistoryStore
	comments  CommentStore
	tx        Transactor
	events    EventPublisher
	log       *logger.Logger
}

// NewTaskService creates a new TaskService.
func NewTaskService(
	tasks TaskStore,
	approvers ApproverStore,
	history HistoryStore,
	comments CommentStore,
	tx Transactor,
	events EventPublisher,
	log *logger.Logger,
) *TaskService {
	return &TaskService{
		tasks:     tasks,
		approvers: approvers,
		history:   history,
		comments:  comments,
		tx:        tx,
		events:    events,
		log:       log,
	}
}

// CreateTaskRequest represents a create task request.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     *string  `json:"dueDate"` // YYYY-MM-DD
	Tags        []string `json:"tags"`
}

// CreateTask creates a task in draft at level 0 for the acting user.
func (s *TaskService) CreateTask(ctx context.Context, req *CreateTaskRequest, actor workflow.Actor) (*repository.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}

	priority := strings.ToLower(req.Priority)
	if priority == "" {
		priority = "medium"
	}
	if !validPriorities[priority] {
		return nil, errors.InvalidInput("priority", "priority must be one of low, medium, high, urgent")
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, errors.InvalidInput("due_date", "invalid date format, expected YYYY-MM-DD")
		}
		dueDate = &d
	}

	task := &repository.Task{
		Title:                strings.TrimSpace(req.Title),
		Description:          req.Description,
		Status:               workflow.StatusDraft,
		CreatedBy:            actor.ID,
		CreatedByKind:        actor.UserType,
		Priority:             priority,
		DueDate:              dueDate,
		Tags:                 req.Tags,
		CurrentApprovalLevel: workflow.LevelNone,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task_id", task.ID).
		Str("title", task.Title).
		Str("created_by", actor.ID).
		Msg("Task created")

	return task, nil
}

// GetTask returns a task along with the actions the actor may currently take.
func (s *TaskService) GetTask(ctx context.Context, id string, actor workflow.Actor) (*repository.Task, []workflow.ActionInfo, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	bindings, err := s.approvers.ListActive(ctx)
	if err != nil {
		return nil, nil, err
	}

	return task, workflow.AvailableActions(task.Snapshot(), actor, bindings), nil
}

// ListTasks lists tasks with filtering and pagination.
func (s *TaskService) ListTasks(ctx context.Context, status, createdBy, approverID *string, page, pageSize int) ([]*repository.Task, int64, error) {
	if status != nil && !workflow.Status(*status).IsValid() {
		return nil, 0, errors.InvalidInput("status", "unknown status filter")
	}

	return s.tasks.List(ctx, repository.TaskFilter{
		Status:     status,
		CreatedBy:  createdBy,
		ApproverID: approverID,
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	})
}

// CountByStatus returns the aggregate status breakdown.
func (s *TaskService) CountByStatus(ctx context.Context) ([]repository.StatusCount, error) {
	return s.tasks.CountByStatus(ctx)
}

// DeleteTask removes a task. Only the creator may delete, and only in draft.
func (s *TaskService) DeleteTask(ctx context.Context, id string, actor workflow.Actor) error {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if task.CreatedBy != actor.ID || task.CreatedByKind != actor.UserType {
		return errors.Unauthorized("only the creator can delete a task")
	}
	if task.Status != workflow.StatusDraft {
		return errors.New(errors.ErrCodeConflict, "only draft tasks can be deleted")
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().
		Str("task_id", id).
		Str("deleted_by", actor.ID).
		Msg("Task deleted")

	return nil
}

// Transition applies an action to a task. The read-decide-write-append
// sequence runs in one transaction with the task row locked, so concurrent
// transitions against the same task serialize and the loser fails the
// authorization check against the advanced state. The realtime event is
// published only after commit.
func (s *TaskService) Transition(ctx context.Context, id string, action workflow.Action, comment string, actor workflow.Actor) (*repository.Task, error) {
	var (
		updated *repository.Task
		tr      *workflow.Transition
		from    workflow.Status
	)

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		task, err := s.tasks.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = task.Status

		bindings, err := s.approvers.ListActive(ctx)
		if err != nil {
			return err
		}

		snapshot := task.Snapshot()
		if !workflow.CanPerformAction(action, snapshot, actor, bindings) {
			return errors.Unauthorized("actor is not authorized to perform this action")
		}

		tr, err = workflow.ProcessTransition(action, snapshot, bindings)
		if err != nil {
			return err
		}

		upd := repository.TransitionUpdate{
			Status:         tr.NewStatus,
			Level:          tr.NewApproverLevel,
			StampConfirmed: action == workflow.ActionConfirm,
			StampCompleted: tr.NewStatus == workflow.StatusDone,
		}
		if tr.NextApprover != nil {
			upd.ApproverID = &tr.NextApprover.UserID
			upd.ApproverKind = &tr.NextApprover.UserType
		}

		updated, err = s.tasks.UpdateTransition(ctx, task.ID, upd)
		if err != nil {
			return err
		}

		entry := &repository.HistoryEntry{
			TaskID:        task.ID,
			FromStatus:    from,
			ToStatus:      tr.NewStatus,
			Action:        action,
			ActorID:       actor.ID,
			ActorKind:     actor.UserType,
			ActorName:     actor.Name,
			ActorRole:     actor.Role,
			ApprovalLevel: tr.NewApproverLevel,
		}
		if comment != "" {
			if action == workflow.ActionReject {
				entry.RejectionReason = &comment
			} else {
				entry.Comment = &comment
			}
		}
		if err := s.history.Append(ctx, entry); err != nil {
			return err
		}

		if comment != "" {
			return s.comments.Append(ctx, &repository.Comment{
				TaskID:     task.ID,
				AuthorID:   actor.ID,
				AuthorKind: actor.UserType,
				AuthorName: actor.Name,
				Body:       comment,
				Kind:       commentKind(action),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("task_id", updated.ID).
		Str("action", action.String()).
		Str("from_status", from.String()).
		Str("to_status", updated.Status.String()).
		Int("approval_level", updated.CurrentApprovalLevel).
		Str("actor_id", actor.ID).
		Msg("Task transitioned")

	s.publishTransitionEvent(ctx, action, updated, actor, tr)
	return updated, nil
}

// GetHistory returns the transition trail for a task.
func (s *TaskService) GetHistory(ctx context.Context, taskID string) ([]*repository.HistoryEntry, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.history.ListByTask(ctx, taskID)
}

// ListComments returns a task's comments.
func (s *TaskService) ListComments(ctx context.Context, taskID string) ([]*repository.Comment, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}
	return s.comments.ListByTask(ctx, taskID)
}

// AddComment attaches a plain message comment to a task.
func (s *TaskService) AddComment(ctx context.Context, taskID, body string, actor workflow.Actor) (*repository.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errors.InvalidInput("body", "comment body is required")
	}
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		return nil, err
	}

	c := &repository.Comment{
		TaskID:     taskID,
		AuthorID:   actor.ID,
		AuthorKind: actor.UserType,
		AuthorName: actor.Name,
		Body:       body,
		Kind:       "message",
	}
	if err := s.comments.Append(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// commentKind tags a transition comment by the action that carried it.
func commentKind(action workflow.Action) string {
	switch action {
	case workflow.ActionApprove:
		return "approval"
	case workflow.ActionReject:
		return "rejection"
	default:
		return "message"
	}
}

// publishTransitionEvent emits the realtime notification for a committed
// transition. Recipients: the next approver when one is waiting, otherwise
// the task creator.
func (s *TaskService) publishTransitionEvent(ctx context.Context, action workflow.Action, task *repository.Task, actor workflow.Actor, tr *workflow.Transition) {
	if s.events == nil {
		return
	}

	var eventType string
	switch action {
	case workflow.ActionConfirm:
		eventType = notify.EventTaskSubmitted
	case workflow.ActionApprove:
		if task.Status == workflow.StatusDone {
			eventType = notify.EventTaskApproved
		} else {
			eventType = notify.EventTaskApprovalRequired
		}
	case workflow.ActionReject:
		eventType = notify.EventTaskRejected
	case workflow.ActionResubmit:
		eventType = notify.EventTaskResubmitted
	case workflow.ActionComplete:
		eventType = notify.EventTaskCompleted
	default:
		return
	}

	recipients := []string{task.CreatedBy}
	if tr != nil && tr.NextApprover != nil {
		recipients = []string{tr.NextApprover.UserID}
	}

	s.events.PublishTaskEvent(ctx, eventType, task.ID, actor.ID, recipients, map[string]interface{}{
		"title":          task.Title,
		"status":         task.Status,
		"approval_level": task.CurrentApprovalLevel,
	})
}
