package household

import (
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// PartitionMissions splits todos into the daily and weekly mission lists.
// Weekly repeats go to the weekly list; every other repeat mode goes to daily.
func PartitionMissions(todos []model.Todo) (daily, weekly []model.Todo) {
	for _, t := range todos {
		if t.Repeat == model.RepeatWeekly {
			weekly = append(weekly, t)
		} else {
			daily = append(daily, t)
		}
	}
	return daily, weekly
}

// MissionStatus reports whether a mission counts as done at now. A repeating
// mission completed in an earlier period is pending again.
func MissionStatus(t model.Todo, now time.Time) Status {
	if !t.IsCompleted {
		return StatusPending
	}
	if t.Repeat == "" || t.Repeat == model.RepeatNone || t.CompletedAt == nil {
		return StatusCompleted
	}
	if t.CompletedAt.In(now.Location()).Before(PeriodStart(t.Repeat, now)) {
		return StatusPending
	}
	return StatusCompleted
}

// PeriodStart returns the start of the repeat period containing t. Weeks start on Monday.
func PeriodStart(r model.Repeat, t time.Time) time.Time {
	day := startOfDay(t)
	switch r {
	case model.RepeatWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case model.RepeatMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// AssignedTo returns the missions that list userID among their assignees.
func AssignedTo(todos []model.Todo, userID int64) []model.Todo {
	var out []model.Todo
	for _, t := range todos {
		for _, id := range t.Assignees {
			if id == userID {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
