package household

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

// ParseDate parses a wire date (YYYY-MM-DD) at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// IsDateInRange reports whether d lies in [start, end] inclusive. An empty end
// means a single-day range. Unparseable input is never in range.
func IsDateInRange(d, start, end string) bool {
	if end == "" {
		end = start
	}
	dt, err := ParseDate(d)
	if err != nil {
		return false
	}
	st, err := ParseDate(start)
	if err != nil {
		return false
	}
	et, err := ParseDate(end)
	if err != nil {
		return false
	}
	return !dt.Before(st) && !dt.After(et)
}

// EventsOn returns the events that cover date d.
func EventsOn(events []model.CalendarEvent, d string) []model.CalendarEvent {
	var out []model.CalendarEvent
	for _, e := range events {
		if IsDateInRange(d, e.Date, e.EndDate) {
			out = append(out, e)
		}
	}
	return out
}

// ToggleVote flips voterID's membership in the voter list for date and
// returns a new votes map. The input map is not modified.
func ToggleVote(votes map[string][]int64, date string, voterID int64) map[string][]int64 {
	out := make(map[string][]int64, len(votes)+1)
	for k, v := range votes {
		out[k] = slices.Clone(v)
	}

	voters := out[date]
	if i := slices.Index(voters, voterID); i >= 0 {
		voters = slices.Delete(voters, i, i+1)
	} else {
		voters = append(voters, voterID)
	}
	if len(voters) == 0 {
		delete(out, date)
	} else {
		out[date] = voters
	}
	return out
}

// LeadingDate returns the candidate date with the most votes. Ties go to the earliest date.
func LeadingDate(votes map[string][]int64) (string, int) {
	var best string
	var bestCount int
	for _, date := range slices.Sorted(maps.Keys(votes)) {
		if n := len(votes[date]); n > bestCount {
			best, bestCount = date, n
		}
	}
	return best, bestCount
}
