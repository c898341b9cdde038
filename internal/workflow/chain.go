package workflow

import "time"

// Approval levels. Levels 1–4 are the fixed approver ladder; 0 means the task
// has not been submitted and 5 marks a fully approved task.
const (
	LevelNone  = 0
	LevelFirst = 1
	LevelMax   = 4
	LevelFinal = 5
)

var levelRoles = map[int]string{
	1: "Operation Manager",
	2: "Project Manager",
	3: "General Manager",
	4: "Banker",
}

// RoleAtLevel returns the ladder role label for a level, or "" outside 1–4.
func RoleAtLevel(level int) string { return levelRoles[level] }

// Actor is the identity attempting an action, as produced by the
// authentication middleware. The engine trusts this shape verbatim.
type Actor struct {
	ID       string `json:"id"`
	UserType string `json:"userType"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Approver is one (role, level, person) binding in the global approval chain.
type Approver struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	UserType    string    `json:"userType"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Level       int       `json:"level"`
	IsActive    bool      `json:"isActive"`
	CanOverride bool      `json:"canOverride"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Matches reports whether the binding belongs to the actor. Identity and kind
// must both match.
func (a *Approver) Matches(actor Actor) bool {
	return a.UserID == actor.ID && a.UserType == actor.UserType
}

// ActiveApproverAtLevel returns the first active binding at the given level,
// or nil. When several people are empowered at one level any of them may act;
// callers record who actually acted.
func ActiveApproverAtLevel(level int, bindings []*Approver) *Approver {
	for _, b := range bindings {
		if b.IsActive && b.Level == level {
			return b
		}
	}
	return nil
}

// NextApprover returns the active binding one level above current, or nil
// past the top of the ladder. It deliberately probes only current+1: an
// unstaffed next level is treated by callers as end-of-chain, never skipped.
func NextApprover(current int, bindings []*Approver) *Approver {
	next := current + 1
	if next > LevelMax {
		return nil
	}
	return ActiveApproverAtLevel(next, bindings)
}

// overrideApprover returns the actor's active binding carrying the override
// flag, or nil.
func overrideApprover(actor Actor, bindings []*Approver) *Approver {
	for _, b := range bindings {
		if b.IsActive && b.CanOverride && b.Matches(actor) {
			return b
		}
	}
	return nil
}
