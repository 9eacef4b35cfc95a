package domain

import "strings"

// WeekDays is the number of day keys every workout week must carry (1..7).
const WeekDays = 7

// DefaultSubscriptionMonths is the duration assigned to a client with no
// financial record.
const DefaultSubscriptionMonths = 1

// NormalizeClient returns a copy of in whose Plan Bundle and profile
// containers are fully shaped. It is idempotent and never mutates in.
func NormalizeClient(in Client) Client {
	c := in.Clone()
	if c.Measurements == nil {
		c.Measurements = map[string]string{}
	}
	if c.Financial == nil {
		c.Financial = &Financial{Duration: DefaultSubscriptionMonths}
	}
	c.Injuries = normalizeSet(c.Injuries)
	c.MedicalConditions = normalizeSet(c.MedicalConditions)
	c.Plans = NormalizePlans(c.Plans)
	return c
}

// NormalizePlans backfills the seven workout days and the four plan arrays.
// An absent rest-day menu starts as a copy of the training-day menu.
func NormalizePlans(in PlanBundle) PlanBundle {
	p := in.Clone()
	p.Workouts = NormalizeWeek(p.Workouts)
	if p.Diet == nil {
		p.Diet = []DietItem{}
	}
	if p.DietRest == nil {
		p.DietRest = append([]DietItem{}, p.Diet...)
	}
	if p.Supps == nil {
		p.Supps = []SupplementItem{}
	}
	if p.Prog == nil {
		p.Prog = []ProgressItem{}
	}
	return p
}

// NormalizeWeek makes sure days 1..7 exist. Extra keys are kept as-is.
func NormalizeWeek(w map[int][]WorkoutItem) map[int][]WorkoutItem {
	out := CloneWeek(w)
	if out == nil {
		out = make(map[int][]WorkoutItem, WeekDays)
	}
	for day := 1; day <= WeekDays; day++ {
		if out[day] == nil {
			out[day] = []WorkoutItem{}
		}
	}
	return out
}

// normalizeSet trims, drops blanks and de-duplicates while keeping order.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
