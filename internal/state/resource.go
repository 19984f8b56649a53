package state

import "time"

// Resource names one collection held in the container. The names double as
// change-feed entity names.
type Resource string

const (
	ResourceUser          Resource = "user"
	ResourceNest          Resource = "nest"
	ResourceMembers       Resource = "members"
	ResourceTodos         Resource = "todos"
	ResourceEvents        Resource = "events"
	ResourceGoals         Resource = "goals"
	ResourceTransactions  Resource = "transactions"
	ResourceFixedExpenses Resource = "fixed_expenses"
	ResourceBudget        Resource = "budget"
	ResourceRules         Resource = "rules"
	ResourceJoinRequests  Resource = "join_requests"

	// ResourceAll is passed to observers when the whole snapshot was swapped.
	ResourceAll Resource = "all"
)

// Resources lists every concrete resource.
var Resources = []Resource{
	ResourceUser, ResourceNest, ResourceMembers, ResourceTodos, ResourceEvents,
	ResourceGoals, ResourceTransactions, ResourceFixedExpenses, ResourceBudget,
	ResourceRules, ResourceJoinRequests,
}

// SyncStatus is the outcome of the last fetch for a resource. Stale means the
// last fetch failed and the data shown is from an earlier success.
type SyncStatus struct {
	SyncedAt time.Time
	Err      string
	Stale    bool
}

// PendingOp marks a mutation in flight.
type PendingOp struct {
	ID        uint64
	Resource  Resource
	Action    string
	StartedAt time.Time
}
