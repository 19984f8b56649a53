package model

type GoalType string

const (
	GoalVision GoalType = "vision"
	GoalYear   GoalType = "year"
	GoalMonth  GoalType = "month"
	GoalWeek   GoalType = "week"
)

// Goal tracks shared progress. Vision goals carry no numeric target.
type Goal struct {
	ID      int64    `json:"id"`
	Type    GoalType `json:"type"`
	Title   string   `json:"title"`
	Current int      `json:"current"`
	Target  int      `json:"target"`
	Unit    string   `json:"unit"`
}

// HasTarget reports whether progress on the goal is bounded above.
func (g Goal) HasTarget() bool {
	return g.Type != GoalVision && g.Target > 0
}
