package domain

import "time"

// Template is a named, reusable full-week workout owned by a coach. It is
// replaced on save and never edited in place.
type Template struct {
	ID          string                `bson:"_id" json:"id"`
	Name        string                `bson:"name" json:"name"`
	Description string                `bson:"description,omitempty" json:"description,omitempty"`
	Week        map[int][]WorkoutItem `bson:"full_week_data" json:"workout"`
	CreatedBy   string                `bson:"created_by" json:"created_by,omitempty"`
	CreatedAt   time.Time             `bson:"created_at" json:"created_at"`
}

// Clone deep-copies the template.
func (t Template) Clone() Template {
	out := t
	out.Week = CloneWeek(t.Week)
	return out
}
