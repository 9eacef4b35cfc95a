// Package permission decides whether the current actor may perform an
// action on a target client.
package permission

import "alcyxob/flexcoach/internal/domain"

// Action is something an actor may attempt.
type Action string

const (
	ManageUsers   Action = "manageUsers"
	EditProgram   Action = "editProgram"
	ViewProgram   Action = "viewProgram"
	ViewProgress  Action = "viewProgress"
	LogProgress   Action = "logProgress"
	PrintProgram  Action = "printProgram"
	RestoreBackup Action = "restoreBackup"
	ResetSystem   Action = "resetSystem"
)

// Subject exposes the actor state the engine decides on.
type Subject interface {
	Role() domain.Role
	AccountID() string
}

// Engine is a pure decision function over the subject's current state.
type Engine struct {
	subject Subject
}

// NewEngine creates an engine reading role and account from subject.
func NewEngine(subject Subject) *Engine {
	return &Engine{subject: subject}
}

// HasPermission reports whether the actor may perform action on targetID.
// Coaches may do everything. Clients may only read or log against their own
// account and may never mutate programs or administer the system, not even
// their own record.
func (e *Engine) HasPermission(action Action, targetID string) bool {
	return Decide(e.subject.Role(), e.subject.AccountID(), action, targetID)
}

// Decide is the stateless form of HasPermission.
func Decide(role domain.Role, accountID string, action Action, targetID string) bool {
	if role == domain.RoleCoach {
		return true
	}
	if role != domain.RoleClient {
		return false
	}
	switch action {
	case ViewProgram, ViewProgress, PrintProgram, LogProgress:
		return targetID != "" && targetID == accountID
	default:
		// manageUsers, editProgram, restoreBackup, resetSystem and
		// anything unknown.
		return false
	}
}
