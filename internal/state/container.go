// Package state holds the client-side view of a nest. A Container is created
// per session and shared by sync, actions and screens.
package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/nestmate/internal/model"
)

// Observer is called after every change with the new snapshot and the
// resource that changed.
type Observer func(Snapshot, Resource)

// Persister saves the changed resource of a snapshot.
type Persister interface {
	Persist(s Snapshot, r Resource) error
}

type Option func(*Container)

func WithPersister(p Persister) Option {
	return func(c *Container) { c.persister = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithClock overrides time.Now for sync timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Container) { c.now = now }
}

type Container struct {
	mu        sync.RWMutex
	snap      Snapshot
	revs      map[Resource]uint64
	nextOp    uint64
	nextObs   int
	observers []observer

	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

type observer struct {
	id int
	fn Observer
}

func New(opts ...Option) *Container {
	c := &Container{
		snap:   emptySnapshot(),
		revs:   make(map[Resource]uint64),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "state")
	return c
}

func (c *Container) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

func (c *Container) User() *model.User {
	return c.Snapshot().User
}

func (c *Container) Nest() *model.Nest {
	return c.Snapshot().Nest
}

func (c *Container) Members() []model.User                   { return c.Snapshot().Members }
func (c *Container) Todos() []model.Todo                     { return c.Snapshot().Todos }
func (c *Container) Events() []model.CalendarEvent           { return c.Snapshot().Events }
func (c *Container) Goals() []model.Goal                     { return c.Snapshot().Goals }
func (c *Container) Transactions() []model.BudgetTransaction { return c.Snapshot().Transactions }
func (c *Container) FixedExpenses() []model.FixedExpense     { return c.Snapshot().FixedExpenses }
func (c *Container) Rules() []model.HouseRule                { return c.Snapshot().Rules }
func (c *Container) JoinRequests() []model.JoinRequest       { return c.Snapshot().JoinRequests }
func (c *Container) BudgetGoal() int64                       { return c.Snapshot().BudgetGoal }

func (c *Container) SyncStatus(r Resource) SyncStatus {
	return c.Snapshot().Sync[r]
}

// Revision returns the change counter of r. Syncs read it before fetching
// and hand it back to ApplySync.
func (c *Container) Revision(r Resource) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revs[r]
}

// Subscribe registers fn and returns a func that removes it.
func (c *Container) Subscribe(fn Observer) func() {
	c.mu.Lock()
	c.nextObs++
	id := c.nextObs
	c.observers = append(c.observers, observer{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// update applies fn to a copy of the snapshot under the write lock. fn
// returns false to abandon the change. When bump is set the revision of r is
// incremented and the change persisted.
func (c *Container) update(r Resource, bump bool, fn func(*Snapshot) bool) bool {
	c.mu.Lock()
	next := c.snap
	if !fn(&next) {
		c.mu.Unlock()
		return false
	}
	c.snap = next
	if bump {
		c.revs[r]++
		c.persist(next, r)
	}
	obs := make([]observer, len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()

	for _, o := range obs {
		o.fn(next, r)
	}
	return true
}

func (c *Container) persist(s Snapshot, r Resource) {
	if c.persister == nil || r == ResourceAll {
		return
	}
	if err := c.persister.Persist(s, r); err != nil {
		c.logger.Warn("persist state", "resource", r, "error", err)
	}
}

// Hydrate replaces the whole snapshot with one loaded from local storage.
// Pending markers are dropped and nothing is persisted.
func (c *Container) Hydrate(s Snapshot) {
	s = normalize(s)
	c.update(ResourceAll, false, func(snap *Snapshot) bool {
		*snap = s
		return true
	})
}

// Reset clears everything, as on logout.
func (c *Container) Reset() {
	c.update(ResourceAll, false, func(snap *Snapshot) bool {
		for _, r := range Resources {
			c.revs[r]++
		}
		*snap = emptySnapshot()
		return true
	})
}

func normalize(s Snapshot) Snapshot {
	e := emptySnapshot()
	if s.Members == nil {
		s.Members = e.Members
	}
	if s.Todos == nil {
		s.Todos = e.Todos
	}
	if s.Events == nil {
		s.Events = e.Events
	}
	if s.Goals == nil {
		s.Goals = e.Goals
	}
	if s.Transactions == nil {
		s.Transactions = e.Transactions
	}
	if s.FixedExpenses == nil {
		s.FixedExpenses = e.FixedExpenses
	}
	if s.Rules == nil {
		s.Rules = e.Rules
	}
	if s.JoinRequests == nil {
		s.JoinRequests = e.JoinRequests
	}
	if s.Sync == nil {
		s.Sync = e.Sync
	}
	s.Pending = e.Pending
	return s
}

// ApplySync stores the result of a fetch for r. It is dropped, and false
// returned, if a confirmed mutation moved the revision past rev while the
// fetch was in flight. value must have the collection's type.
func (c *Container) ApplySync(r Resource, rev uint64, value any) (bool, error) {
	set, err := setter(r, value)
	if err != nil {
		return false, err
	}

	synced := SyncStatus{SyncedAt: c.now()}
	applied := c.update(r, true, func(s *Snapshot) bool {
		if c.revs[r] != rev {
			return false
		}
		set(s)
		*s = s.withSync(r, synced)
		return true
	})
	return applied, nil
}

func setter(r Resource, value any) (func(*Snapshot), error) {
	bad := fmt.Errorf("apply sync %s: unexpected value type %T", r, value)
	switch r {
	case ResourceNest:
		v, ok := value.(*model.Nest)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Nest = clonePtr(v) }, nil
	case ResourceMembers:
		v, ok := value.([]model.User)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Members = cloneSlice(v) }, nil
	case ResourceTodos:
		v, ok := value.([]model.Todo)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Todos = cloneSlice(v) }, nil
	case ResourceEvents:
		v, ok := value.([]model.CalendarEvent)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Events = cloneSlice(v) }, nil
	case ResourceGoals:
		v, ok := value.([]model.Goal)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Goals = cloneSlice(v) }, nil
	case ResourceTransactions:
		v, ok := value.([]model.BudgetTransaction)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Transactions = cloneSlice(v) }, nil
	case ResourceFixedExpenses:
		v, ok := value.([]model.FixedExpense)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.FixedExpenses = cloneSlice(v) }, nil
	case ResourceBudget:
		v, ok := value.(int64)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.BudgetGoal = v }, nil
	case ResourceRules:
		v, ok := value.([]model.HouseRule)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.Rules = cloneSlice(v) }, nil
	case ResourceJoinRequests:
		v, ok := value.([]model.JoinRequest)
		if !ok {
			return nil, bad
		}
		return func(s *Snapshot) { s.JoinRequests = cloneSlice(v) }, nil
	}
	return nil, fmt.Errorf("apply sync: unknown resource %q", r)
}

// MarkSyncFailed keeps the current data for r and flags it stale.
func (c *Container) MarkSyncFailed(r Resource, err error) {
	c.update(r, false, func(s *Snapshot) bool {
		prev := s.Sync[r]
		*s = s.withSync(r, SyncStatus{SyncedAt: prev.SyncedAt, Err: err.Error(), Stale: true})
		return true
	})
}

// BeginPending marks a mutation on r as in flight.
func (c *Container) BeginPending(r Resource, action string) PendingOp {
	c.mu.Lock()
	c.nextOp++
	op := PendingOp{ID: c.nextOp, Resource: r, Action: action, StartedAt: c.now()}
	c.mu.Unlock()

	c.update(r, false, func(s *Snapshot) bool {
		pending := make([]PendingOp, 0, len(s.Pending)+1)
		pending = append(pending, s.Pending...)
		s.Pending = append(pending, op)
		return true
	})
	return op
}

// EndPending clears a marker returned by BeginPending.
func (c *Container) EndPending(op PendingOp) {
	c.update(op.Resource, false, func(s *Snapshot) bool {
		pending := make([]PendingOp, 0, len(s.Pending))
		for _, p := range s.Pending {
			if p.ID != op.ID {
				pending = append(pending, p)
			}
		}
		s.Pending = pending
		return true
	})
}
