package service

import (
	"context"
	"log"
)

// Notifier surfaces non-fatal outcomes to whoever is driving the core
// (toast messages in the original UI).
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// LogNotifier writes notifications to the process log.
type LogNotifier struct{}

func (LogNotifier) Success(msg string) { log.Printf("INFO: %s", msg) }
func (LogNotifier) Error(msg string)   { log.Printf("ERROR: %s", msg) }

// Confirmer asks the actor to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AutoConfirm approves every prompt. Callers that already collected
// confirmation (e.g. the HTTP bridge) use it.
var AutoConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// EventKind names what changed in the store.
type EventKind string

const (
	EventClientSaved      EventKind = "client.saved"
	EventClientRemoved    EventKind = "client.removed"
	EventActiveChanged    EventKind = "active.changed"
	EventTemplatesChanged EventKind = "templates.changed"
	EventRequestsChanged  EventKind = "requests.changed"
	EventReloaded         EventKind = "store.reloaded"
	EventCleared          EventKind = "store.cleared"
)

// Event is published after every mutation of the store. ID is the affected
// entity when there is exactly one.
type Event struct {
	Kind EventKind
	ID   string
}
