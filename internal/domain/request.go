package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus tracks the lifecycle of a program request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"  // Initial state, awaiting the coach
	RequestAccepted RequestStatus = "accepted" // Coach built a program from the snapshot
	RequestRejected RequestStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// ProgramType is what the client is asking for.
type ProgramType string

const (
	ProgramTraining    ProgramType = "training"
	ProgramDiet        ProgramType = "diet"
	ProgramSupplements ProgramType = "supplements"
	ProgramAll         ProgramType = "all"
)

// Valid reports whether t is a known program type.
func (t ProgramType) Valid() bool {
	switch t {
	case ProgramTraining, ProgramDiet, ProgramSupplements, ProgramAll:
		return true
	}
	return false
}

var (
	ErrInvalidTransition = errors.New("invalid request status transition")
	ErrEmptyClientData   = errors.New("request carries no client data")
)

// ProgramRequest is a client's ask for a new or updated program.
type ProgramRequest struct {
	ID            string         `bson:"_id" json:"id"`
	ClientID      string         `bson:"client_id" json:"client_id"`
	ClientName    string         `bson:"client_name,omitempty" json:"client_name,omitempty"`
	CoachID       string         `bson:"coach_id" json:"coach_id"`
	ProgramType   ProgramType    `bson:"program_type" json:"program_type"`
	Status        RequestStatus  `bson:"status" json:"status"`
	ClientData    map[string]any `bson:"client_data,omitempty" json:"client_data,omitempty"` // Profile snapshot at request time
	CoachResponse string         `bson:"coach_response,omitempty" json:"coach_response,omitempty"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updated_at"`
}

// CanTransition reports whether from -> to is allowed. Only pending requests
// move, and only to a terminal state.
func CanTransition(from, to RequestStatus) bool {
	return from == RequestPending && to.Terminal()
}

// Transition moves the request to status to, recording the coach response.
func (r *ProgramRequest) Transition(to RequestStatus, response string, at time.Time) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	if response != "" {
		r.CoachResponse = response
	}
	r.UpdatedAt = at
	return nil
}

// Clone deep-copies the request including its client snapshot.
func (r ProgramRequest) Clone() ProgramRequest {
	out := r
	if r.ClientData != nil {
		out.ClientData = cloneAny(r.ClientData).(map[string]any)
	}
	return out
}

// cloneAny deep-copies JSON-shaped values. Documents and arrays decoded by
// the mongo driver come back as plain maps and slices.
func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case primitive.M:
		return cloneMap(t)
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = cloneAny(e.Value)
		}
		return m
	case []any:
		return cloneAnySlice(t)
	case primitive.A:
		return cloneAnySlice(t)
	default:
		return v
	}
}

func cloneMap(in map[string]any) map[string]any {
	m := make(map[string]any, len(in))
	for k, val := range in {
		m[k] = cloneAny(val)
	}
	return m
}

func cloneAnySlice(in []any) []any {
	s := make([]any, len(in))
	for i, val := range in {
		s[i] = cloneAny(val)
	}
	return s
}

// SnapshotClientData captures c as the loosely-typed snapshot stored on a
// request.
func SnapshotClientData(c Client) (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode client snapshot: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode client snapshot: %w", err)
	}
	return data, nil
}

// ClientFromRequest derives a normalized Client from the request's captured
// snapshot. The request's client id wins over any id in the snapshot so an
// accepted request updates the requesting client rather than cloning it.
func ClientFromRequest(r ProgramRequest) (Client, error) {
	if len(r.ClientData) == 0 {
		return Client{}, ErrEmptyClientData
	}
	raw, err := json.Marshal(r.ClientData)
	if err != nil {
		return Client{}, fmt.Errorf("encode client_data: %w", err)
	}
	var c Client
	if err := json.Unmarshal(raw, &c); err != nil {
		return Client{}, fmt.Errorf("decode client_data: %w", err)
	}
	if r.ClientID != "" {
		c.ID = r.ClientID
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = r.ClientName
	}
	c.CoachID = r.CoachID
	return NormalizeClient(c), nil
}
