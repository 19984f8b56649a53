package state

import "github.com/dukerupert/nestmate/internal/model"

// Confirmed mutations. Each one replaces the affected slice, bumps the
// resource revision and persists.

func (c *Container) SetUser(u *model.User) {
	c.update(ResourceUser, true, func(s *Snapshot) bool {
		s.User = clonePtr(u)
		return true
	})
}

func (c *Container) SetNest(n *model.Nest) {
	c.update(ResourceNest, true, func(s *Snapshot) bool {
		s.Nest = clonePtr(n)
		return true
	})
}

func (c *Container) SetBudgetGoal(goal int64) {
	c.update(ResourceBudget, true, func(s *Snapshot) bool {
		s.BudgetGoal = goal
		return true
	})
}

func (c *Container) UpsertMember(u model.User) {
	c.update(ResourceMembers, true, func(s *Snapshot) bool {
		s.Members = upsert(s.Members, u, func(m model.User) int64 { return m.ID })
		return true
	})
}

func (c *Container) UpsertTodo(t model.Todo) {
	c.update(ResourceTodos, true, func(s *Snapshot) bool {
		s.Todos = upsert(s.Todos, t, func(t model.Todo) int64 { return t.ID })
		return true
	})
}

func (c *Container) RemoveTodo(id int64) {
	c.update(ResourceTodos, true, func(s *Snapshot) bool {
		s.Todos = remove(s.Todos, id, func(t model.Todo) int64 { return t.ID })
		return true
	})
}

func (c *Container) UpsertEvent(e model.CalendarEvent) {
	c.update(ResourceEvents, true, func(s *Snapshot) bool {
		s.Events = upsert(s.Events, e, func(e model.CalendarEvent) int64 { return e.ID })
		return true
	})
}

func (c *Container) RemoveEvent(id int64) {
	c.update(ResourceEvents, true, func(s *Snapshot) bool {
		s.Events = remove(s.Events, id, func(e model.CalendarEvent) int64 { return e.ID })
		return true
	})
}

func (c *Container) UpsertGoal(g model.Goal) {
	c.update(ResourceGoals, true, func(s *Snapshot) bool {
		s.Goals = upsert(s.Goals, g, func(g model.Goal) int64 { return g.ID })
		return true
	})
}

func (c *Container) RemoveGoal(id int64) {
	c.update(ResourceGoals, true, func(s *Snapshot) bool {
		s.Goals = remove(s.Goals, id, func(g model.Goal) int64 { return g.ID })
		return true
	})
}

func (c *Container) UpsertTransaction(tx model.BudgetTransaction) {
	c.update(ResourceTransactions, true, func(s *Snapshot) bool {
		s.Transactions = upsert(s.Transactions, tx, func(tx model.BudgetTransaction) int64 { return tx.ID })
		return true
	})
}

func (c *Container) RemoveTransaction(id int64) {
	c.update(ResourceTransactions, true, func(s *Snapshot) bool {
		s.Transactions = remove(s.Transactions, id, func(tx model.BudgetTransaction) int64 { return tx.ID })
		return true
	})
}

func (c *Container) UpsertFixedExpense(f model.FixedExpense) {
	c.update(ResourceFixedExpenses, true, func(s *Snapshot) bool {
		s.FixedExpenses = upsert(s.FixedExpenses, f, func(f model.FixedExpense) int64 { return f.ID })
		return true
	})
}

func (c *Container) RemoveFixedExpense(id int64) {
	c.update(ResourceFixedExpenses, true, func(s *Snapshot) bool {
		s.FixedExpenses = remove(s.FixedExpenses, id, func(f model.FixedExpense) int64 { return f.ID })
		return true
	})
}

func (c *Container) UpsertRule(r model.HouseRule) {
	c.update(ResourceRules, true, func(s *Snapshot) bool {
		s.Rules = upsert(s.Rules, r, func(r model.HouseRule) int64 { return r.ID })
		return true
	})
}

func (c *Container) RemoveRule(id int64) {
	c.update(ResourceRules, true, func(s *Snapshot) bool {
		s.Rules = remove(s.Rules, id, func(r model.HouseRule) int64 { return r.ID })
		return true
	})
}

func (c *Container) RemoveJoinRequest(id int64) {
	c.update(ResourceJoinRequests, true, func(s *Snapshot) bool {
		s.JoinRequests = remove(s.JoinRequests, id, func(jr model.JoinRequest) int64 { return jr.ID })
		return true
	})
}

// upsert returns a new slice with item replacing the element of the same id,
// or appended when there is none.
func upsert[T any](items []T, item T, id func(T) int64) []T {
	out := make([]T, 0, len(items)+1)
	found := false
	for _, it := range items {
		if id(it) == id(item) {
			out = append(out, item)
			found = true
			continue
		}
		out = append(out, it)
	}
	if !found {
		out = append(out, item)
	}
	return out
}

func remove[T any](items []T, target int64, id func(T) int64) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if id(it) != target {
			out = append(out, it)
		}
	}
	return out
}

func cloneSlice[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
