package workflow

// Status is a task's position in the approval lifecycle.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusEditing    Status = "editing"
	StatusDone       Status = "done"
)

var validStatuses = map[Status]bool{
	StatusDraft:      true,
	StatusConfirmed:  true,
	StatusInProgress: true,
	StatusEditing:    true,
	StatusDone:       true,
}

// allowedTransitions is the authoritative edge table. Every transition the
// engine computes is checked against it before being returned.
//
// The confirm action moves draft straight to in_progress; confirmed remains a
// defined status with an outgoing edge so rows created before that change can
// still advance, but no action produces it anymore.
var allowedTransitions = map[Status][]Status{
	StatusDraft:      {StatusInProgress},
	StatusConfirmed:  {StatusInProgress},
	StatusInProgress: {StatusDone, StatusEditing},
	StatusEditing:    {StatusInProgress},
	StatusDone:       {},
}

var statusColors = map[Status]string{
	StatusDraft:      "gray",
	StatusConfirmed:  "teal",
	StatusInProgress: "blue",
	StatusEditing:    "orange",
	StatusDone:       "green",
}

func (s Status) String() string { return string(s) }

// IsValid reports whether s is a defined lifecycle status.
func (s Status) IsValid() bool { return validStatuses[s] }

// IsTerminal reports whether s permits no further transitions.
func (s Status) IsTerminal() bool { return len(allowedTransitions[s]) == 0 && s.IsValid() }

// Color returns the display color for UI consumption.
func (s Status) Color() string { return statusColors[s] }

// CanTransition reports whether the edge from → to is in the allowed table.
func CanTransition(from, to Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
