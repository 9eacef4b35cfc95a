package domain

// WorkoutItem is one prescribed exercise (or superset/circuit) on a day.
type WorkoutItem struct {
	Type      string     `bson:"type,omitempty" json:"type,omitempty"` // normal, superset, dropset...
	Mode      string     `bson:"mode,omitempty" json:"mode,omitempty"` // resist, cardio, corrective...
	Name      string     `bson:"name" json:"name"`
	Name2     string     `bson:"name2,omitempty" json:"name2,omitempty"`
	Name3     string     `bson:"name3,omitempty" json:"name3,omitempty"`
	Name4     string     `bson:"name4,omitempty" json:"name4,omitempty"`
	Sets      FlexString `bson:"sets,omitempty" json:"sets,omitempty"`
	Reps      FlexString `bson:"reps,omitempty" json:"reps,omitempty"`
	Rest      FlexString `bson:"rest,omitempty" json:"rest,omitempty"`
	RestUnit  string     `bson:"restUnit,omitempty" json:"restUnit,omitempty"`
	Duration  FlexString `bson:"duration,omitempty" json:"duration,omitempty"`
	Intensity string     `bson:"intensity,omitempty" json:"intensity,omitempty"`
	Tempo     string     `bson:"tempo,omitempty" json:"tempo,omitempty"`
	Note      string     `bson:"note,omitempty" json:"note,omitempty"`
}

// DietItem is one food line in a meal. Macro fields follow the short keys
// used by stored programs: c=kcal, p=protein, ch=carbs, f=fat.
type DietItem struct {
	Meal   string  `bson:"meal" json:"meal"`
	Name   string  `bson:"name" json:"name"`
	Amount Measure `bson:"amount" json:"amount"`
	Unit   string  `bson:"unit" json:"unit"`
	Cal    Measure `bson:"c" json:"c"`
	Pro    Measure `bson:"p" json:"p"`
	Carb   Measure `bson:"ch" json:"ch"`
	Fat    Measure `bson:"f" json:"f"`
}

// SupplementItem is one supplement prescription.
type SupplementItem struct {
	Name string `bson:"name" json:"name"`
	Dose string `bson:"dose,omitempty" json:"dose,omitempty"`
	Time string `bson:"time,omitempty" json:"time,omitempty"`
	Note string `bson:"note,omitempty" json:"note,omitempty"`
}

// ProgressItem is one progress log entry.
type ProgressItem struct {
	Date   string     `bson:"date" json:"date"`
	Weight FlexString `bson:"weight" json:"weight"`
	BF     FlexString `bson:"bf,omitempty" json:"bf,omitempty"`
	Note   string     `bson:"note,omitempty" json:"note,omitempty"`
}

// PlanBundle is everything prescribed to one client.
type PlanBundle struct {
	Workouts map[int][]WorkoutItem `bson:"workouts" json:"workouts"`
	Diet     []DietItem            `bson:"diet" json:"diet"`
	DietRest []DietItem            `bson:"dietRest" json:"dietRest"`
	Supps    []SupplementItem      `bson:"supps" json:"supps"`
	Prog     []ProgressItem        `bson:"prog" json:"prog"`
}

// Clone deep-copies the bundle, preserving nil-ness of every container.
func (p PlanBundle) Clone() PlanBundle {
	return PlanBundle{
		Workouts: CloneWeek(p.Workouts),
		Diet:     cloneSlice(p.Diet),
		DietRest: cloneSlice(p.DietRest),
		Supps:    cloneSlice(p.Supps),
		Prog:     cloneSlice(p.Prog),
	}
}

// CloneWeek deep-copies a day-number keyed workout week.
func CloneWeek(w map[int][]WorkoutItem) map[int][]WorkoutItem {
	if w == nil {
		return nil
	}
	out := make(map[int][]WorkoutItem, len(w))
	for day, items := range w {
		out[day] = cloneSlice(items)
	}
	return out
}
