package domain

import "time"

// DefaultPlanTitle is the title written on workout_plans documents.
const DefaultPlanTitle = "Training program"

// ClientRecord is the shape of a document in the remote clients collection.
type ClientRecord struct {
	ID          string    `bson:"_id" json:"id"`
	CoachID     string    `bson:"coach_id" json:"coach_id"`
	FullName    string    `bson:"full_name" json:"full_name"`
	Gender      string    `bson:"gender,omitempty" json:"gender,omitempty"`
	Age         string    `bson:"age,omitempty" json:"age,omitempty"`
	Height      string    `bson:"height,omitempty" json:"height,omitempty"`
	Weight      string    `bson:"weight,omitempty" json:"weight,omitempty"`
	Goal        string    `bson:"goal,omitempty" json:"goal,omitempty"`
	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
	ProfileData *Client   `bson:"profile_data,omitempty" json:"profile_data,omitempty"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// WorkoutPlanRecord is the shape of a document in the remote workout_plans
// collection. Its ID is always PlanIDForClient(ClientID).
type WorkoutPlanRecord struct {
	ID          string     `bson:"_id" json:"id"`
	CoachID     string     `bson:"coach_id" json:"coach_id"`
	ClientID    string     `bson:"client_id" json:"client_id"`
	PlanData    PlanBundle `bson:"plan_data" json:"plan_data"`
	Title       string     `bson:"title,omitempty" json:"title,omitempty"`
	Description string     `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// ClientRecordFrom builds the clients payload for c.
func ClientRecordFrom(c Client, coachID string) ClientRecord {
	profile := c.Clone()
	profile.CoachID = coachID
	return ClientRecord{
		ID:          c.ID,
		CoachID:     coachID,
		FullName:    c.Name,
		Gender:      c.Gender,
		Age:         c.Age.String(),
		Height:      c.Height.String(),
		Weight:      c.Weight.String(),
		Goal:        c.NutritionGoals,
		Notes:       c.Notes,
		ProfileData: &profile,
	}
}

// WorkoutPlanRecordFrom builds the workout_plans payload for c.
func WorkoutPlanRecordFrom(c Client, coachID string) WorkoutPlanRecord {
	return WorkoutPlanRecord{
		ID:          PlanIDForClient(c.ID),
		CoachID:     coachID,
		ClientID:    c.ID,
		PlanData:    c.Plans.Clone(),
		Title:       DefaultPlanTitle,
		Description: c.Notes,
	}
}

// ClientFromRecords merges a clients document with its workout plan (if any)
// into a normalized Client. Top-level columns win over profile_data, and the
// plan document wins over the plans embedded in the profile.
func ClientFromRecords(rec ClientRecord, plan *WorkoutPlanRecord) Client {
	var c Client
	if rec.ProfileData != nil {
		c = rec.ProfileData.Clone()
	}
	c.ID = rec.ID
	c.CoachID = rec.CoachID
	if rec.FullName != "" {
		c.Name = rec.FullName
	}
	if rec.Gender != "" {
		c.Gender = rec.Gender
	}
	if rec.Age != "" {
		c.Age = ParseMeasure(rec.Age)
	}
	if rec.Height != "" {
		c.Height = ParseMeasure(rec.Height)
	}
	if rec.Weight != "" {
		c.Weight = ParseMeasure(rec.Weight)
	}
	if rec.Notes != "" {
		c.Notes = rec.Notes
	}
	if plan != nil {
		c.Plans = plan.PlanData.Clone()
	}
	return NormalizeClient(c)
}
