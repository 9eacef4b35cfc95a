package domain

import "github.com/google/uuid"

// planIDSuffix is appended to a client id to form its workout-plan id.
const planIDSuffix = "-plan"

// NewID generates an identifier for a locally created entity.
func NewID() string {
	return uuid.NewString()
}

// PlanIDForClient derives the workout_plans document id owned by a client.
// Saves and deletes both recompute it, so it must stay deterministic.
func PlanIDForClient(clientID string) string {
	return clientID + planIDSuffix
}
