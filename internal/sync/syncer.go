// Package sync refreshes state collections from the backend.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

// API is the subset of the REST client used for fetching.
type API interface {
	GetNest(ctx context.Context, nestID int64) (*model.Nest, error)
	ListMembers(ctx context.Context, nestID int64) ([]model.User, error)
	ListTodos(ctx context.Context, nestID int64) ([]model.Todo, error)
	ListEvents(ctx context.Context, nestID int64) ([]model.CalendarEvent, error)
	ListGoals(ctx context.Context, nestID int64) ([]model.Goal, error)
	ListTransactions(ctx context.Context, nestID int64) ([]model.BudgetTransaction, error)
	ListFixedExpenses(ctx context.Context, nestID int64) ([]model.FixedExpense, error)
	GetBudget(ctx context.Context, nestID int64) (*model.Budget, error)
	ListHouseRules(ctx context.Context, nestID int64) ([]model.HouseRule, error)
	ListJoinRequests(ctx context.Context, nestID int64) ([]model.JoinRequest, error)
}

// Result is the outcome of one resource sync. Stale means the fetch failed
// and state still holds the previous data. Superseded means the fetch
// succeeded but a confirmed mutation landed first, so it was dropped.
// Skipped means the signed-in user may not read the resource.
type Result struct {
	Resource   state.Resource
	Err        error
	Stale      bool
	Superseded bool
	Skipped    bool
	SyncedAt   time.Time
}

func (r Result) OK() bool {
	return r.Err == nil
}

type Option func(*Syncer)

// WithInterval sets the period of the background loop. Zero disables it.
func WithInterval(d time.Duration) Option {
	return func(s *Syncer) { s.interval = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// WithFetchTimeout bounds a single shared fetch, independent of the callers'
// contexts.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Syncer) { s.fetchTimeout = d }
}

// WithConcurrency bounds how many fetches SyncAll runs at once.
func WithConcurrency(n int) Option {
	return func(s *Syncer) { s.concurrency = n }
}

type Syncer struct {
	api          API
	state        *state.Container
	logger       *slog.Logger
	interval     time.Duration
	concurrency  int
	fetchTimeout time.Duration
	group        singleflight.Group

	mu     gosync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func New(client API, st *state.Container, opts ...Option) *Syncer {
	s := &Syncer{
		api:          client,
		state:        st,
		logger:       slog.Default(),
		interval:     5 * time.Minute,
		concurrency:  4,
		fetchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "sync")
	return s
}

type fetchFunc func(ctx context.Context, nestID int64) (any, error)

// run fetches r for the current nest. Concurrent calls for the same resource
// share one request.
func (s *Syncer) run(ctx context.Context, r state.Resource, fetch fetchFunc) Result {
	nest := s.state.Nest()
	if nest == nil {
		return Result{Resource: r, Err: state.ErrNoNest}
	}

	// The shared fetch must outlive any one caller, so it gets its own
	// deadline and each caller waits on its own ctx.
	ch := s.group.DoChan(string(r), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetchAndApply(fetchCtx, r, nest.ID, fetch), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		return Result{Resource: r, Err: ctx.Err()}
	}
}

func (s *Syncer) fetchAndApply(ctx context.Context, r state.Resource, nestID int64, fetch fetchFunc) Result {
	rev := s.state.Revision(r)

	value, err := fetch(ctx, nestID)
	if err != nil {
		s.logger.Warn("sync failed", "resource", r, "nest_id", nestID, "error", err)
		s.state.MarkSyncFailed(r, err)
		return Result{Resource: r, Err: err, Stale: true, SyncedAt: s.state.SyncStatus(r).SyncedAt}
	}

	applied, err := s.state.ApplySync(r, rev, value)
	if err != nil {
		s.logger.Error("apply sync", "resource", r, "error", err)
		return Result{Resource: r, Err: fmt.Errorf("sync %s: %w", r, err)}
	}
	if !applied {
		s.logger.Debug("sync superseded by local change", "resource", r)
		return Result{Resource: r, Superseded: true}
	}
	return Result{Resource: r, SyncedAt: s.state.SyncStatus(r).SyncedAt}
}

func (s *Syncer) SyncNest(ctx context.Context) Result {
	return s.run(ctx, state.ResourceNest, func(ctx context.Context, id int64) (any, error) {
		return s.api.GetNest(ctx, id)
	})
}

func (s *Syncer) SyncMembers(ctx context.Context) Result {
	return s.run(ctx, state.ResourceMembers, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListMembers(ctx, id)
	})
}

// SyncMissions refreshes the todo list.
func (s *Syncer) SyncMissions(ctx context.Context) Result {
	return s.run(ctx, state.ResourceTodos, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListTodos(ctx, id)
	})
}

func (s *Syncer) SyncEvents(ctx context.Context) Result {
	return s.run(ctx, state.ResourceEvents, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListEvents(ctx, id)
	})
}

func (s *Syncer) SyncGoals(ctx context.Context) Result {
	return s.run(ctx, state.ResourceGoals, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListGoals(ctx, id)
	})
}

func (s *Syncer) SyncTransactions(ctx context.Context) Result {
	return s.run(ctx, state.ResourceTransactions, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListTransactions(ctx, id)
	})
}

func (s *Syncer) SyncFixedExpenses(ctx context.Context) Result {
	return s.run(ctx, state.ResourceFixedExpenses, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListFixedExpenses(ctx, id)
	})
}

func (s *Syncer) SyncBudget(ctx context.Context) Result {
	return s.run(ctx, state.ResourceBudget, func(ctx context.Context, id int64) (any, error) {
		b, err := s.api.GetBudget(ctx, id)
		if err != nil {
			return nil, err
		}
		return b.BudgetGoal, nil
	})
}

func (s *Syncer) SyncRules(ctx context.Context) Result {
	return s.run(ctx, state.ResourceRules, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListHouseRules(ctx, id)
	})
}

// FetchJoinRequests refreshes pending join requests. Only masters may read
// them; for anyone else the result is Skipped.
func (s *Syncer) FetchJoinRequests(ctx context.Context) Result {
	if !s.state.User().IsMaster() {
		return Result{Resource: state.ResourceJoinRequests, Skipped: true}
	}
	return s.run(ctx, state.ResourceJoinRequests, func(ctx context.Context, id int64) (any, error) {
		return s.api.ListJoinRequests(ctx, id)
	})
}

// Sync runs the sync for r.
func (s *Syncer) Sync(ctx context.Context, r state.Resource) Result {
	switch r {
	case state.ResourceNest:
		return s.SyncNest(ctx)
	case state.ResourceMembers:
		return s.SyncMembers(ctx)
	case state.ResourceTodos:
		return s.SyncMissions(ctx)
	case state.ResourceEvents:
		return s.SyncEvents(ctx)
	case state.ResourceGoals:
		return s.SyncGoals(ctx)
	case state.ResourceTransactions:
		return s.SyncTransactions(ctx)
	case state.ResourceFixedExpenses:
		return s.SyncFixedExpenses(ctx)
	case state.ResourceBudget:
		return s.SyncBudget(ctx)
	case state.ResourceRules:
		return s.SyncRules(ctx)
	case state.ResourceJoinRequests:
		return s.FetchJoinRequests(ctx)
	}
	return Result{Resource: r, Err: fmt.Errorf("sync: unknown resource %q", r)}
}

// SyncAll refreshes every nest resource with bounded fan-out. Results are in
// a fixed order and one failure does not cancel the others.
func (s *Syncer) SyncAll(ctx context.Context) []Result {
	fns := []func(context.Context) Result{
		s.SyncNest,
		s.SyncMembers,
		s.SyncMissions,
		s.SyncEvents,
		s.SyncGoals,
		s.SyncTransactions,
		s.SyncFixedExpenses,
		s.SyncBudget,
		s.SyncRules,
		s.FetchJoinRequests,
	}
	results := make([]Result, len(fns))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, fn := range fns {
		g.Go(func() error {
			results[i] = fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("sync all finished with errors", "failed", failed, "total", len(results))
	} else {
		s.logger.Debug("sync all finished", "total", len(results))
	}
	return results
}

// Start runs SyncAll every interval until Stop is called or ctx ends. It does
// nothing when the interval is zero or the loop is already running.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interval <= 0 || s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, s.stopCh, s.done)
}

func (s *Syncer) loop(ctx context.Context, stopCh, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SyncAll(ctx)
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the background loop and waits for it to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}
