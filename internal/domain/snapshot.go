package domain

import "time"

// Snapshot is the full entity set written to the offline cache and to
// backup files. CoachID names the coach whose data set it is; it is empty
// for snapshots taken without a signed-in coach.
type Snapshot struct {
	CoachID   string           `json:"coach_id,omitempty"`
	Users     []Client         `json:"users"`
	Templates []Template       `json:"templates"`
	Requests  []ProgramRequest `json:"requests,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Normalized returns a copy with every client normalized and nil
// collections replaced by empty ones.
func (s Snapshot) Normalized() Snapshot {
	out := Snapshot{
		CoachID:   s.CoachID,
		Users:     make([]Client, 0, len(s.Users)),
		Templates: make([]Template, 0, len(s.Templates)),
		Requests:  make([]ProgramRequest, 0, len(s.Requests)),
		Timestamp: s.Timestamp,
	}
	for _, u := range s.Users {
		out.Users = append(out.Users, NormalizeClient(u))
	}
	for _, t := range s.Templates {
		t = t.Clone()
		t.Week = NormalizeWeek(t.Week)
		out.Templates = append(out.Templates, t)
	}
	for _, r := range s.Requests {
		out.Requests = append(out.Requests, r.Clone())
	}
	return out
}
