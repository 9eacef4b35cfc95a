package repository

import (
	"alcyxob/flexcoach/internal/domain" // Import our defined domain models
	"context"
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	// ErrConflict means a conditional write no longer applies, e.g. a status
	// transition on a request that is not pending anymore.
	ErrConflict = RepositoryError("conflict")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// The interfaces below are the remote persistence adapter. Implementations
// move data only: callers validate required fields, and Upsert is
// idempotent (same id replaces the prior document).

// ClientRepository accesses the clients collection.
type ClientRepository interface {
	FetchByCoach(ctx context.Context, coachID string) ([]domain.ClientRecord, error)
	Upsert(ctx context.Context, rec *domain.ClientRecord) error
	Delete(ctx context.Context, id string) error
}

// WorkoutPlanRepository accesses the workout_plans collection.
type WorkoutPlanRepository interface {
	FetchByCoach(ctx context.Context, coachID string) ([]domain.WorkoutPlanRecord, error)
	Upsert(ctx context.Context, rec *domain.WorkoutPlanRecord) error
	Delete(ctx context.Context, id string) error
}

// TemplateRepository accesses the templates collection.
type TemplateRepository interface {
	FetchByCoach(ctx context.Context, coachID string) ([]domain.Template, error)
	Upsert(ctx context.Context, tpl *domain.Template) error
	Delete(ctx context.Context, id, coachID string) error
}

// RequestRepository accesses the program_requests collection.
type RequestRepository interface {
	FetchByCoach(ctx context.Context, coachID string) ([]domain.ProgramRequest, error)
	FetchByClient(ctx context.Context, clientID string) ([]domain.ProgramRequest, error)
	Create(ctx context.Context, req *domain.ProgramRequest) error
	// UpdateStatus only applies while the stored request is pending and
	// returns ErrConflict otherwise.
	UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, response string) error
	Delete(ctx context.Context, id string) error
}

// Remote bundles the four collections.
type Remote struct {
	Clients   ClientRepository
	Plans     WorkoutPlanRepository
	Templates TemplateRepository
	Requests  RequestRepository
}
