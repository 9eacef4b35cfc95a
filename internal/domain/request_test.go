package domain

import (
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRequestTransitions(t *testing.T) {
	now := time.Now().UTC()
	r := ProgramRequest{ID: "R1", Status: RequestPending}

	if err := r.Transition(RequestPending, "", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> pending err = %v", err)
	}
	if err := r.Transition(RequestAccepted, "ok", now); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if r.Status != RequestAccepted || r.CoachResponse != "ok" || !r.UpdatedAt.Equal(now) {
		t.Fatalf("request = %+v", r)
	}
	if err := r.Transition(RequestRejected, "", now); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("accepted -> rejected err = %v", err)
	}
	if !RequestRejected.Terminal() || RequestPending.Terminal() {
		t.Fatal("Terminal")
	}
}

func TestClientFromRequest(t *testing.T) {
	r := ProgramRequest{
		ID:         "R1",
		ClientName: "Ali",
		CoachID:    "coach-1",
		ClientData: map[string]any{"age": "30", "weight": 81.5, "injuries": []any{"back"}},
	}
	c, err := ClientFromRequest(r)
	if err != nil {
		t.Fatalf("ClientFromRequest: %v", err)
	}
	if c.ID == "" || c.Name != "Ali" || c.Age != 30 || c.Weight != 81.5 || c.CoachID != "coach-1" {
		t.Fatalf("client = %+v", c)
	}
	if len(c.Injuries) != 1 || len(c.Plans.Workouts) != WeekDays {
		t.Fatalf("client not normalized: %+v", c)
	}

	r.ClientID = "existing"
	if c, _ := ClientFromRequest(r); c.ID != "existing" {
		t.Fatalf("request client id ignored: %s", c.ID)
	}

	if _, err := ClientFromRequest(ProgramRequest{ID: "R2"}); !errors.Is(err, ErrEmptyClientData) {
		t.Fatalf("empty data err = %v", err)
	}
}

func TestSnapshotClientDataRoundTrips(t *testing.T) {
	data, err := SnapshotClientData(Client{ID: "c1", Name: "Mina", Weight: 70})
	if err != nil {
		t.Fatalf("SnapshotClientData: %v", err)
	}
	c, err := ClientFromRequest(ProgramRequest{ClientData: data})
	if err != nil {
		t.Fatalf("ClientFromRequest: %v", err)
	}
	if c.ID != "c1" || c.Name != "Mina" || c.Weight != 70 {
		t.Fatalf("client = %+v", c)
	}
}

func TestRequestCloneIsDeep(t *testing.T) {
	r := ProgramRequest{ClientData: map[string]any{"injuries": []any{"knee"}}}
	cp := r.Clone()
	cp.ClientData["injuries"].([]any)[0] = "hip"
	if r.ClientData["injuries"].([]any)[0] != "knee" {
		t.Fatal("clone shares client data")
	}
}

func TestRequestCloneCopiesDecodedDocuments(t *testing.T) {
	r := ProgramRequest{ClientData: map[string]any{
		"profile": primitive.M{"injuries": primitive.A{"knee"}},
		"extra":   primitive.D{{Key: "level", Value: "beginner"}},
	}}
	cp := r.Clone()

	profile, ok := cp.ClientData["profile"].(map[string]any)
	if !ok {
		t.Fatalf("profile cloned as %T", cp.ClientData["profile"])
	}
	injuries, ok := profile["injuries"].([]any)
	if !ok {
		t.Fatalf("injuries cloned as %T", profile["injuries"])
	}
	injuries[0] = "hip"
	if got := r.ClientData["profile"].(primitive.M)["injuries"].(primitive.A)[0]; got != "knee" {
		t.Fatalf("clone shares decoded array, original now %v", got)
	}
	if extra, ok := cp.ClientData["extra"].(map[string]any); !ok || extra["level"] != "beginner" {
		t.Fatalf("extra = %#v", cp.ClientData["extra"])
	}
}
