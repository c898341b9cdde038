package workflow

// Action is an operation an actor may attempt against a task.
type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionResubmit Action = "resubmit"
	ActionComplete Action = "complete"
)

type actionMeta struct {
	label string
	color string
}

var actionMetas = map[Action]actionMeta{
	ActionConfirm:  {label: "Confirm", color: "blue"},
	ActionApprove:  {label: "Approve", color: "green"},
	ActionReject:   {label: "Reject", color: "red"},
	ActionResubmit: {label: "Resubmit", color: "orange"},
	ActionComplete: {label: "Complete", color: "purple"},
}

// actionOrder fixes the iteration order for AvailableActions so identical
// inputs always yield an identical list.
var actionOrder = []Action{ActionConfirm, ActionApprove, ActionReject, ActionResubmit, ActionComplete}

func (a Action) String() string { return string(a) }

// IsValid reports whether a is a recognized action.
func (a Action) IsValid() bool {
	_, ok := actionMetas[a]
	return ok
}

// Label returns the human-readable button label.
func (a Action) Label() string { return actionMetas[a].label }

// Color returns the display color for UI consumption.
func (a Action) Color() string { return actionMetas[a].color }

// ActionInfo is one entry of the action list served to clients.
type ActionInfo struct {
	Action Action `json:"action"`
	Label  string `json:"label"`
	Color  string `json:"color"`
}
