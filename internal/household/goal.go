package household

import "github.com/dukerupert/nestmate/internal/model"

// ApplyProgress returns g with delta added to Current, clamped to [0, Target].
// Goals without a target are only clamped at zero.
func ApplyProgress(g model.Goal, delta int) model.Goal {
	next := g.Current + delta
	if next < 0 {
		next = 0
	}
	if g.HasTarget() && next > g.Target {
		next = g.Target
	}
	g.Current = next
	return g
}

// GoalPercent returns progress toward the target in whole percent, or -1 for untargeted goals.
func GoalPercent(g model.Goal) int {
	if !g.HasTarget() {
		return -1
	}
	return g.Current * 100 / g.Target
}
