package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeClientFillsDefaults(t *testing.T) {
	c := NormalizeClient(Client{ID: "c1", Name: "Sara"})

	if len(c.Plans.Workouts) != WeekDays {
		t.Fatalf("workout days = %d, want %d", len(c.Plans.Workouts), WeekDays)
	}
	for day := 1; day <= WeekDays; day++ {
		if c.Plans.Workouts[day] == nil {
			t.Fatalf("day %d is nil", day)
		}
	}
	if c.Plans.Diet == nil || c.Plans.DietRest == nil || c.Plans.Supps == nil || c.Plans.Prog == nil {
		t.Fatalf("plan arrays not backfilled: %+v", c.Plans)
	}
	if c.Measurements == nil || c.Injuries == nil || c.MedicalConditions == nil {
		t.Fatal("profile containers not backfilled")
	}
	if c.Financial == nil || c.Financial.Duration != DefaultSubscriptionMonths {
		t.Fatalf("financial = %+v", c.Financial)
	}
}

func TestNormalizeClientIsIdempotent(t *testing.T) {
	in := Client{
		ID:       "c1",
		Injuries: []string{" knee ", "knee", "", "shoulder"},
		Plans: PlanBundle{
			Workouts: map[int][]WorkoutItem{2: {{Name: "Squat", Sets: "5"}}, 9: {{Name: "Extra"}}},
			Diet:     []DietItem{{Meal: "Breakfast", Name: "Oats"}},
		},
	}
	once := NormalizeClient(in)
	twice := NormalizeClient(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("normalize not idempotent:\n%+v\n%+v", once, twice)
	}
	if !reflect.DeepEqual(once.Injuries, []string{"knee", "shoulder"}) {
		t.Fatalf("injuries = %q", once.Injuries)
	}
	if len(once.Plans.Workouts[9]) != 1 {
		t.Fatal("extra day key dropped")
	}
	if in.Plans.Workouts[1] != nil {
		t.Fatal("input mutated")
	}
}

func TestNormalizePlansCopiesDietToRestDay(t *testing.T) {
	p := NormalizePlans(PlanBundle{Diet: []DietItem{{Name: "Rice"}}})
	if len(p.DietRest) != 1 || p.DietRest[0].Name != "Rice" {
		t.Fatalf("dietRest = %+v", p.DietRest)
	}
	p.DietRest[0].Name = "changed"
	if p.Diet[0].Name != "Rice" {
		t.Fatal("dietRest aliases diet")
	}

	explicit := NormalizePlans(PlanBundle{Diet: []DietItem{{Name: "Rice"}}, DietRest: []DietItem{}})
	if len(explicit.DietRest) != 0 {
		t.Fatal("explicit empty rest-day menu overwritten")
	}
}

func TestSnapshotNormalized(t *testing.T) {
	snap := Snapshot{
		Users:     []Client{{ID: "a"}},
		Templates: []Template{{ID: "t", Week: map[int][]WorkoutItem{1: {{Name: "Row"}}}}},
	}.Normalized()
	if len(snap.Users[0].Plans.Workouts) != WeekDays {
		t.Fatal("user not normalized")
	}
	if len(snap.Templates[0].Week) != WeekDays {
		t.Fatal("template week not normalized")
	}
	if snap.Requests == nil {
		t.Fatal("requests nil")
	}
}
