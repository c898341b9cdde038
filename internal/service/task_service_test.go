package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pumperp/be-task-approvals/internal/errors"
	"github.com/pumperp/be-task-approvals/internal/logger"
	"github.com/pumperp/be-task-approvals/internal/repository"
	"github.com/pumperp/be-task-approvals/internal/workflow"
)

// ── in-memory fakes ───────────────────────────────────────────────────────────

type fakeTaskStore struct {
	tasks map[string]*repository.Task
	seq   int
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*repository.Task)}
}

func (f *fakeTaskStore) Create(_ context.Context, t *repository.Task) error {
	f.seq++
	if t.ID == "" {
		t.ID = "task-" + string(rune('0'+f.seq))
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	f.tasks[t.ID] = &cp
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id string) (*repository.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, errors.NotFound("task", id)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) GetForUpdate(ctx context.Context, id string) (*repository.Task, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeTaskStore) List(_ context.Context, _ repository.TaskFilter) ([]*repository.Task, int64, error) {
	var out []*repository.Task
	for _, t := range f.tasks {
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTaskStore) UpdateTransition(_ context.Context, id string, upd repository.TransitionUpdate) (*repository.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, errors.NotFound("task", id)
	}
	t.Status = upd.Status
	t.CurrentApprovalLevel = upd.Level
	t.CurrentApproverID = upd.ApproverID
	t.CurrentApproverKind = upd.ApproverKind
	now := time.Now()
	if upd.StampConfirmed {
		t.ConfirmedAt = &now
	}
	if upd.StampCompleted {
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id string) error {
	if _, ok := f.tasks[id]; !ok {
		return errors.NotFound("task", id)
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	counts := map[workflow.Status]int64{}
	for _, t := range f.tasks {
		counts[t.Status]++
	}
	var out []repository.StatusCount
	for s, n := range counts {
		out = append(out, repository.StatusCount{Status: s, Count: n})
	}
	return out, nil
}

type fakeApproverStore struct {
	bindings []*workflow.Approver
}

func (f *fakeApproverStore) ListActive(_ context.Context) ([]*workflow.Approver, error) {
	var out []*workflow.Approver
	for _, b := range f.bindings {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeHistoryStore struct {
	entries []*repository.HistoryEntry
}

func (f *fakeHistoryStore) Append(_ context.Context, e *repository.HistoryEntry) error {
	cp := *e
	f.entries = append(f.entries, &cp)
	return nil
}

func (f *fakeHistoryStore) ListByTask(_ context.Context, taskID string) ([]*repository.HistoryEntry, error) {
	var out []*repository.HistoryEntry
	for _, e := range f.entries {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCommentStore struct {
	comments []*repository.Comment
}

func (f *fakeCommentStore) Append(_ context.Context, c *repository.Comment) error {
	cp := *c
	f.comments = append(f.comments, &cp)
	return nil
}

func (f *fakeCommentStore) ListByTask(_ context.Context, taskID string) ([]*repository.Comment, error) {
	var out []*repository.Comment
	for _, c := range f.comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeTx struct{}

func (fakeTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type publishedEvent struct {
	eventType  string
	taskID     string
	actorID    string
	recipients []string
}

type fakePublisher struct {
	events []publishedEvent
}

func (f *fakePublisher) PublishTaskEvent(_ context.Context, eventType, taskID, actorID string, recipients []string, _ map[string]interface{}) {
	f.events = append(f.events, publishedEvent{eventType, taskID, actorID, recipients})
}

// ── fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	svc       *TaskService
	tasks     *fakeTaskStore
	approvers *fakeApproverStore
	history   *fakeHistoryStore
	comments  *fakeCommentStore
	events    *fakePublisher
}

func newFixture(bindings ...*workflow.Approver) *fixture {
	f := &fixture{
		tasks:     newFakeTaskStore(),
		approvers: &fakeApproverStore{bindings: bindings},
		history:   &fakeHistoryStore{},
		comments:  &fakeCommentStore{},
		events:    &fakePublisher{},
	}
	log := logger.New(logger.Config{Level: "disabled", ServiceName: "test"})
	f.svc = NewTaskService(f.tasks, f.approvers, f.history, f.comments, fakeTx{}, f.events, log)
	return f
}

func binding(userID string, level int, active, override bool) *workflow.Approver {
	return &workflow.Approver{
		ID:          "b-" + userID,
		UserID:      userID,
		UserType:    "approver",
		Name:        userID,
		Role:        workflow.RoleAtLevel(level),
		Level:       level,
		IsActive:    active,
		CanOverride: override,
	}
}

var creator = workflow.Actor{ID: "u1", UserType: "user", Name: "Creator", Role: "staff"}

func (f *fixture) seedTask(t *testing.T, status workflow.Status, level int) *repository.Task {
	t.Helper()
	task := &repository.Task{
		Title:         "Replace pump bearings",
		Status:        workflow.StatusDraft,
		CreatedBy:     creator.ID,
		CreatedByKind: creator.UserType,
		Priority:      "medium",
	}
	require.NoError(t, f.tasks.Create(context.Background(), task))
	stored := f.tasks.tasks[task.ID]
	stored.Status = status
	stored.CurrentApprovalLevel = level
	task.Status = status
	task.CurrentApprovalLevel = level
	return task
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestCreateTaskDefaultsAndValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	task, err := f.svc.CreateTask(ctx, &CreateTaskRequest{Title: "  Inspect station 4  "}, creator)
	require.NoError(t, err)
	assert.Equal(t, "Inspect station 4", task.Title)
	assert.Equal(t, workflow.StatusDraft, task.Status)
	assert.Equal(t, "medium", task.Priority)
	assert.Equal(t, workflow.LevelNone, task.CurrentApprovalLevel)
	assert.Equal(t, creator.ID, task.CreatedBy)

	_, err = f.svc.CreateTask(ctx, &CreateTaskRequest{Title: "   "}, creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = f.svc.CreateTask(ctx, &CreateTaskRequest{Title: "x", Priority: "asap"}, creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	bad := "01-02-2026"
	_, err = f.svc.CreateTask(ctx, &CreateTaskRequest{Title: "x", DueDate: &bad}, creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

func TestTransitionConfirm(t *testing.T) {
	f := newFixture(binding("om", 1, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	updated, err := f.svc.Transition(ctx, task.ID, workflow.ActionConfirm, "please review", creator)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, updated.Status)
	assert.Equal(t, workflow.LevelFirst, updated.CurrentApprovalLevel)
	require.NotNil(t, updated.CurrentApproverID)
	assert.Equal(t, "om", *updated.CurrentApproverID)
	assert.NotNil(t, updated.ConfirmedAt)

	require.Len(t, f.history.entries, 1)
	entry := f.history.entries[0]
	assert.Equal(t, workflow.StatusDraft, entry.FromStatus)
	assert.Equal(t, workflow.StatusInProgress, entry.ToStatus)
	assert.Equal(t, workflow.ActionConfirm, entry.Action)
	assert.Equal(t, creator.ID, entry.ActorID)
	require.NotNil(t, entry.Comment)
	assert.Equal(t, "please review", *entry.Comment)

	require.Len(t, f.comments.comments, 1)
	assert.Equal(t, "message", f.comments.comments[0].Kind)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "task_submitted", f.events.events[0].eventType)
	assert.Equal(t, []string{"om"}, f.events.events[0].recipients)
}

func TestTransitionUnauthorizedLeavesTaskUntouched(t *testing.T) {
	f := newFixture(binding("om", 1, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	stranger := workflow.Actor{ID: "u9", UserType: "user"}
	_, err := f.svc.Transition(ctx, task.ID, workflow.ActionConfirm, "", stranger)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))

	stored, err := f.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDraft, stored.Status)
	assert.Empty(t, f.history.entries)
	assert.Empty(t, f.events.events)
}

func TestTransitionApproveAdvancesAndNotifiesNextApprover(t *testing.T) {
	f := newFixture(binding("om", 1, true, false), binding("pm", 2, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusInProgress, 1)

	approver := workflow.Actor{ID: "om", UserType: "approver", Name: "om", Role: "Operation Manager"}
	updated, err := f.svc.Transition(ctx, task.ID, workflow.ActionApprove, "lgtm", approver)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInProgress, updated.Status)
	assert.Equal(t, 2, updated.CurrentApprovalLevel)
	require.NotNil(t, updated.CurrentApproverID)
	assert.Equal(t, "pm", *updated.CurrentApproverID)

	require.Len(t, f.comments.comments, 1)
	assert.Equal(t, "approval", f.comments.comments[0].Kind)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "task_approval_required", f.events.events[0].eventType)
	assert.Equal(t, []string{"pm"}, f.events.events[0].recipients)
}

func TestTransitionFinalApproveCompletes(t *testing.T) {
	f := newFixture(binding("om", 1, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusInProgress, 1)

	approver := workflow.Actor{ID: "om", UserType: "approver"}
	updated, err := f.svc.Transition(ctx, task.ID, workflow.ActionApprove, "", approver)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusDone, updated.Status)
	assert.Equal(t, workflow.LevelFinal, updated.CurrentApprovalLevel)
	assert.Nil(t, updated.CurrentApproverID)
	assert.NotNil(t, updated.CompletedAt)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, "task_approved", f.events.events[0].eventType)
	assert.Equal(t, []string{creator.ID}, f.events.events[0].recipients)
}

func TestTransitionRejectRecordsReason(t *testing.T) {
	f := newFixture(binding("om", 1, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusInProgress, 1)

	approver := workflow.Actor{ID: "om", UserType: "approver"}
	updated, err := f.svc.Transition(ctx, task.ID, workflow.ActionReject, "missing cost estimate", approver)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusEditing, updated.Status)
	assert.Equal(t, 1, updated.CurrentApprovalLevel)

	require.Len(t, f.history.entries, 1)
	require.NotNil(t, f.history.entries[0].RejectionReason)
	assert.Equal(t, "missing cost estimate", *f.history.entries[0].RejectionReason)
	assert.Nil(t, f.history.entries[0].Comment)

	require.Len(t, f.comments.comments, 1)
	assert.Equal(t, "rejection", f.comments.comments[0].Kind)
}

func TestTransitionUnknownAction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	_, err := f.svc.Transition(ctx, task.ID, workflow.Action("escalate"), "", creator)
	require.Error(t, err)
	// Unknown actions fail the authorization check before any computation.
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))
	assert.Empty(t, f.history.entries)
}

func TestTransitionTaskNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), "missing", workflow.ActionConfirm, "", creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestDeleteTaskRules(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	err := f.svc.DeleteTask(ctx, task.ID, workflow.Actor{ID: "u2", UserType: "user"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnauthorized, errors.CodeOf(err))

	inProgress := f.seedTask(t, workflow.StatusInProgress, 1)
	err = f.svc.DeleteTask(ctx, inProgress.ID, creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))

	require.NoError(t, f.svc.DeleteTask(ctx, task.ID, creator))
	_, err = f.tasks.GetByID(ctx, task.ID)
	require.Error(t, err)
}

func TestGetTaskIncludesAvailableActions(t *testing.T) {
	f := newFixture(binding("om", 1, true, false))
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	_, actions, err := f.svc.GetTask(ctx, task.ID, creator)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, workflow.ActionConfirm, actions[0].Action)

	_, actions, err = f.svc.GetTask(ctx, task.ID, workflow.Actor{ID: "om", UserType: "approver"})
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.seedTask(t, workflow.StatusDraft, workflow.LevelNone)

	_, err := f.svc.AddComment(ctx, task.ID, "  ", creator)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	c, err := f.svc.AddComment(ctx, task.ID, "note", creator)
	require.NoError(t, err)
	assert.Equal(t, "message", c.Kind)

	got, err := f.svc.ListComments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
