package domain

// Role distinguishes the two kinds of actor.
type Role string

const (
	RoleCoach  Role = "coach"
	RoleClient Role = "client"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCoach || r == RoleClient
}

// Financial is the client's subscription record.
type Financial struct {
	StartDate string  `bson:"startDate" json:"startDate"`
	Duration  int     `bson:"duration" json:"duration"` // months
	Amount    Measure `bson:"amount" json:"amount"`
}

// Client (a.k.a. user in older payloads) is a coached athlete together with
// the one Plan Bundle they own.
type Client struct {
	ID      string `bson:"id" json:"id"`
	CoachID string `bson:"coachId,omitempty" json:"coach_id,omitempty"`
	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`

	// --- Anthropometrics ---
	Age          Measure           `bson:"age,omitempty" json:"age,omitempty"`
	Gender       string            `bson:"gender,omitempty" json:"gender,omitempty"`
	Height       Measure           `bson:"height,omitempty" json:"height,omitempty"`
	Weight       Measure           `bson:"weight,omitempty" json:"weight,omitempty"`
	TargetWeight Measure           `bson:"targetWeight,omitempty" json:"targetWeight,omitempty"`
	BodyFat      Measure           `bson:"bodyFat,omitempty" json:"bodyFat,omitempty"`
	Measurements map[string]string `bson:"measurements" json:"measurements"`

	// --- Lifestyle / goals ---
	Activity       string `bson:"activity,omitempty" json:"activity,omitempty"`
	Level          string `bson:"level,omitempty" json:"level,omitempty"`
	Job            string `bson:"job,omitempty" json:"job,omitempty"`
	NutritionGoals string `bson:"nutritionGoals,omitempty" json:"nutritionGoals,omitempty"`
	Notes          string `bson:"notes,omitempty" json:"notes,omitempty"`

	Financial *Financial `bson:"financial" json:"financial"`

	// --- Medical ---
	Injuries          []string `bson:"injuries" json:"injuries"`
	MedicalConditions []string `bson:"medicalConditions" json:"medicalConditions"`

	Plans PlanBundle `bson:"plans" json:"plans"`
}

// Clone returns a deep copy. Nil containers stay nil so normalization can
// still tell an absent field from an empty one.
func (c Client) Clone() Client {
	out := c
	if c.Measurements != nil {
		out.Measurements = make(map[string]string, len(c.Measurements))
		for k, v := range c.Measurements {
			out.Measurements[k] = v
		}
	}
	if c.Financial != nil {
		f := *c.Financial
		out.Financial = &f
	}
	out.Injuries = cloneSlice(c.Injuries)
	out.MedicalConditions = cloneSlice(c.MedicalConditions)
	out.Plans = c.Plans.Clone()
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
