package state

import "github.com/dukerupert/nestmate/internal/model"

// Snapshot is an immutable view of the container. Slices and pointers in a
// snapshot are never written to after it is handed out.
type Snapshot struct {
	User          *model.User
	Nest          *model.Nest
	Members       []model.User
	Todos         []model.Todo
	Events        []model.CalendarEvent
	Goals         []model.Goal
	Transactions  []model.BudgetTransaction
	FixedExpenses []model.FixedExpense
	Rules         []model.HouseRule
	JoinRequests  []model.JoinRequest
	BudgetGoal    int64

	Pending []PendingOp
	Sync    map[Resource]SyncStatus
}

func emptySnapshot() Snapshot {
	return Snapshot{
		Members:       []model.User{},
		Todos:         []model.Todo{},
		Events:        []model.CalendarEvent{},
		Goals:         []model.Goal{},
		Transactions:  []model.BudgetTransaction{},
		FixedExpenses: []model.FixedExpense{},
		Rules:         []model.HouseRule{},
		JoinRequests:  []model.JoinRequest{},
		Pending:       []PendingOp{},
		Sync:          map[Resource]SyncStatus{},
	}
}

// IsPending reports whether any mutation on r is in flight.
func (s Snapshot) IsPending(r Resource) bool {
	for _, op := range s.Pending {
		if op.Resource == r {
			return true
		}
	}
	return false
}

// Member returns the nest member with the given id.
func (s Snapshot) Member(id int64) (model.User, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return model.User{}, false
}

func (s Snapshot) withSync(r Resource, st SyncStatus) Snapshot {
	next := make(map[Resource]SyncStatus, len(s.Sync)+1)
	for k, v := range s.Sync {
		next[k] = v
	}
	next[r] = st
	s.Sync = next
	return s
}
