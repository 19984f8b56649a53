package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/nestmate/internal/state"
)

// Cache persists state snapshots to SQLite and loads them back at launch.
// It implements state.Persister.
type Cache struct {
	db            *sql.DB
	Profile       *ProfileStore
	Nest          *NestStore
	Budget        *BudgetStore
	Members       *MemberStore
	Todos         *TodoStore
	Events        *EventStore
	Goals         *GoalStore
	Transactions  *TransactionStore
	FixedExpenses *FixedExpenseStore
	Rules         *HouseRuleStore
	JoinRequests  *JoinRequestStore
	SyncStatus    *SyncStatusStore
	Backups       *BackupStore
}

func NewCache(db *sql.DB) *Cache {
	return &Cache{
		db:            db,
		Profile:       NewProfileStore(db),
		Nest:          NewNestStore(db),
		Budget:        NewBudgetStore(db),
		Members:       NewMemberStore(db),
		Todos:         NewTodoStore(db),
		Events:        NewEventStore(db),
		Goals:         NewGoalStore(db),
		Transactions:  NewTransactionStore(db),
		FixedExpenses: NewFixedExpenseStore(db),
		Rules:         NewHouseRuleStore(db),
		JoinRequests:  NewJoinRequestStore(db),
		SyncStatus:    NewSyncStatusStore(db),
		Backups:       NewBackupStore(db),
	}
}

// DB returns the underlying database handle.
func (c *Cache) DB() *sql.DB {
	return c.db
}

// Persist writes resource r of s, together with its sync status.
func (c *Cache) Persist(s state.Snapshot, r state.Resource) error {
	var err error
	switch r {
	case state.ResourceUser:
		err = c.Profile.Save(s.User)
	case state.ResourceNest:
		err = c.Nest.Save(s.Nest)
	case state.ResourceBudget:
		err = c.Budget.Save(s.BudgetGoal)
	case state.ResourceMembers:
		err = c.Members.ReplaceAll(s.Members)
	case state.ResourceTodos:
		err = c.Todos.ReplaceAll(s.Todos)
	case state.ResourceEvents:
		err = c.Events.ReplaceAll(s.Events)
	case state.ResourceGoals:
		err = c.Goals.ReplaceAll(s.Goals)
	case state.ResourceTransactions:
		err = c.Transactions.ReplaceAll(s.Transactions)
	case state.ResourceFixedExpenses:
		err = c.FixedExpenses.ReplaceAll(s.FixedExpenses)
	case state.ResourceRules:
		err = c.Rules.ReplaceAll(s.Rules)
	case state.ResourceJoinRequests:
		err = c.JoinRequests.ReplaceAll(s.JoinRequests)
	default:
		return fmt.Errorf("persist: unknown resource %q", r)
	}
	if err != nil {
		return fmt.Errorf("persist %s: %w", r, err)
	}

	if st, ok := s.Sync[r]; ok {
		if err := c.SyncStatus.Save(r, st); err != nil {
			return fmt.Errorf("persist %s: %w", r, err)
		}
	}
	return nil
}

// Load reads the last persisted snapshot.
func (c *Cache) Load() (state.Snapshot, error) {
	var s state.Snapshot
	var err error

	if s.User, err = c.Profile.Get(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Nest, err = c.Nest.Get(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.BudgetGoal, err = c.Budget.Get(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Members, err = c.Members.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Todos, err = c.Todos.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Events, err = c.Events.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Goals, err = c.Goals.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Transactions, err = c.Transactions.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.FixedExpenses, err = c.FixedExpenses.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Rules, err = c.Rules.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.JoinRequests, err = c.JoinRequests.List(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	if s.Sync, err = c.SyncStatus.All(); err != nil {
		return s, fmt.Errorf("load cache: %w", err)
	}
	return s, nil
}

// Wipe deletes all cached nest data. Backup records are kept.
func (c *Cache) Wipe() error {
	tables := []string{
		"profile", "nest", "budget", "members", "todos", "calendar_events", "goals",
		"transactions", "fixed_expenses", "house_rules", "join_requests", "sync_status",
	}
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer tx.Rollback()
	for _, table := range tables {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("wipe %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit wipe: %w", err)
	}
	return nil
}
