// Package workflow is the pure task-transition engine: given a task snapshot,
// an actor and the active approver chain it decides whether an action is
// authorized and what the next state is. It performs no I/O and holds no
// state; callers persist results and emit notifications.
package workflow

import (
	"fmt"

	"github.com/pumperp/be-task-approvals/internal/errors"
)

// Task is the snapshot of the fields the engine consults. Repositories adapt
// their row types into this view before calling in.
type Task struct {
	Status      Status
	CreatorID   string
	CreatorKind string
	Level       int
}

// Transition is the computed outcome of an action. NextApprover is nil when
// the task reached a state with no active approver (done, or an empty first
// level after confirm).
type Transition struct {
	NewStatus        Status
	NewApproverLevel int
	NextApprover     *Approver
}

// isCreator reports whether the actor created the task. Identity and kind
// must both match.
func isCreator(t Task, actor Actor) bool {
	return t.CreatorID == actor.ID && t.CreatorKind == actor.UserType
}

// CanPerformAction decides whether the actor may attempt the action against
// the task given the current approver chain.
//
//   - confirm:  task draft, actor is the creator
//   - resubmit: task editing, actor is the creator
//   - approve/reject: task in_progress, actor holds the active binding at the
//     task's current approval level
//   - complete: task in_progress, actor holds any active binding with the
//     override flag set (the manual bypass of the ladder)
func CanPerformAction(action Action, t Task, actor Actor, bindings []*Approver) bool {
	switch action {
	case ActionConfirm:
		return t.Status == StatusDraft && isCreator(t, actor)
	case ActionResubmit:
		return t.Status == StatusEditing && isCreator(t, actor)
	case ActionApprove, ActionReject:
		if t.Status != StatusInProgress {
			return false
		}
		active := ActiveApproverAtLevel(t.Level, bindings)
		return active != nil && active.Matches(actor)
	case ActionComplete:
		return t.Status == StatusInProgress && overrideApprover(actor, bindings) != nil
	default:
		return false
	}
}

// ProcessTransition computes the task's next state for an action. It fails
// fast on unknown actions, and verifies every computed status change against
// the allowed-edge table as a final safety net independent of the per-action
// logic. The task itself is never mutated.
func ProcessTransition(action Action, t Task, bindings []*Approver) (*Transition, error) {
	if !action.IsValid() {
		return nil, errors.InvalidInput("action", fmt.Sprintf("unknown action %q", action))
	}
	if t.Status.IsTerminal() {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("task is %s and cannot transition further", t.Status))
	}

	tr := &Transition{NewStatus: t.Status, NewApproverLevel: t.Level}

	switch action {
	case ActionConfirm:
		tr.NewStatus = StatusInProgress
		tr.NewApproverLevel = LevelFirst
		tr.NextApprover = ActiveApproverAtLevel(LevelFirst, bindings)

	case ActionApprove:
		if next := NextApprover(t.Level, bindings); next != nil {
			tr.NewStatus = StatusInProgress
			tr.NewApproverLevel = next.Level
			tr.NextApprover = next
		} else {
			// End of chain: either past the Banker rung or the next level is
			// unstaffed. No lookahead beyond level+1.
			tr.NewStatus = StatusDone
			tr.NewApproverLevel = LevelFinal
		}

	case ActionReject:
		// Level is held so the same approver re-reviews after resubmission.
		tr.NewStatus = StatusEditing

	case ActionResubmit:
		tr.NewStatus = StatusInProgress
		tr.NextApprover = ActiveApproverAtLevel(t.Level, bindings)

	case ActionComplete:
		tr.NewStatus = StatusDone
		tr.NewApproverLevel = LevelFinal
	}

	if tr.NewStatus != t.Status && !CanTransition(t.Status, tr.NewStatus) {
		return nil, errors.New(errors.ErrCodeConflict,
			fmt.Sprintf("illegal transition from %s to %s", t.Status, tr.NewStatus))
	}

	return tr, nil
}

// AvailableActions returns the actions the actor may currently take, as
// display tuples. The list order is fixed, so identical inputs produce an
// identical list.
func AvailableActions(t Task, actor Actor, bindings []*Approver) []ActionInfo {
	actions := make([]ActionInfo, 0, len(actionOrder))
	for _, a := range actionOrder {
		if CanPerformAction(a, t, actor, bindings) {
			actions = append(actions, ActionInfo{Action: a, Label: a.Label(), Color: a.Color()})
		}
	}
	return actions
}
