package action

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/fakenest"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// harness runs Actions against an in-memory backend. Mutating requests are
// counted and can be forced to fail.
type harness struct {
	client    *api.Client
	st        *state.Container
	acts      *Actions
	mutations atomic.Int32
	fail      atomic.Bool
	lose      atomic.Bool
	onRequest func(*http.Request)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{}
	backend := fakenest.New(fakenest.WithLogger(quiet)).Handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			h.mutations.Add(1)
			if h.onRequest != nil {
				h.onRequest(r)
			}
			if h.fail.Load() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
				return
			}
			if h.lose.Load() {
				// The backend applies the request but the reply never arrives.
				backend.ServeHTTP(httptest.NewRecorder(), r)
				w.WriteHeader(http.StatusBadGateway)
				return
			}
		}
		backend.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	h.client = api.NewClient(server.URL)
	h.st = state.New(state.WithLogger(quiet))
	h.acts = New(h.client, h.st, WithLogger(quiet))
	return h
}

// second returns Actions for another device sharing the same backend.
func (h *harness) second() (*Actions, *state.Container) {
	st := state.New(state.WithLogger(quiet))
	return New(h.client, st, WithLogger(quiet)), st
}

func onboardMaster(t *testing.T, h *harness) *model.Nest {
	t.Helper()
	ctx := context.Background()
	if _, err := h.acts.CreateProfile(ctx, ProfileInput{Nickname: "Mina", Email: "mina@example.com"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	nest, err := h.acts.CreateNest(ctx, NestInput{Name: "Test Nest", ThemeID: 0})
	if err != nil {
		t.Fatalf("create nest: %v", err)
	}
	return nest
}

// addMember onboards a second user through join and approval and returns
// their Actions.
func addMember(t *testing.T, h *harness, nest *model.Nest) (*Actions, *state.Container) {
	t.Helper()
	ctx := context.Background()
	acts, st := h.second()
	if _, err := acts.CreateProfile(ctx, ProfileInput{Nickname: "Jun", Email: "jun@example.com"}); err != nil {
		t.Fatalf("create member profile: %v", err)
	}
	jr, err := acts.JoinNest(ctx, nest.InviteCode)
	if err != nil {
		t.Fatalf("join nest: %v", err)
	}
	if _, err := h.acts.ApproveJoinRequest(ctx, jr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	ok, err := acts.ConfirmMembership(ctx, nest.ID)
	if err != nil || !ok {
		t.Fatalf("confirm membership = %v, %v; want true", ok, err)
	}
	return acts, st
}

func TestCreateNestSetsMaster(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)

	if got := h.st.Nest(); got == nil || got.ID != nest.ID || got.Name != "Test Nest" || got.ThemeID != 0 {
		t.Errorf("state nest = %+v", got)
	}
	if !h.st.User().IsMaster() {
		t.Errorf("role = %q, want master", h.st.User().Role)
	}
	if got := h.st.Members(); len(got) != 1 {
		t.Errorf("members = %d, want 1", len(got))
	}
}

func TestCreateProfileValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.acts.CreateProfile(context.Background(), ProfileInput{Email: "not-an-email"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	var inputErr *InputError
	if !errors.As(err, &inputErr) || len(inputErr.Fields) != 2 {
		t.Errorf("fields = %v, want nickname and email", inputErr)
	}
	if h.mutations.Load() != 0 {
		t.Errorf("backend calls = %d, want 0", h.mutations.Load())
	}
}

func TestMutationsRequireProfileAndNest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.acts.CreateNest(ctx, NestInput{Name: "Test Nest"}); !errors.Is(err, ErrNoUser) {
		t.Errorf("create nest err = %v, want ErrNoUser", err)
	}
	h.acts.CreateProfile(ctx, ProfileInput{Nickname: "Mina", Email: "mina@example.com"})
	if _, err := h.acts.AddTodo(ctx, TodoInput{Title: "Dishes"}); !errors.Is(err, ErrNoNest) {
		t.Errorf("add todo err = %v, want ErrNoNest", err)
	}
}

func TestMasterOnlyActionsSkipBackend(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)
	acts, _ := addMember(t, h, nest)
	ctx := context.Background()

	before := h.mutations.Load()
	checks := map[string]error{}
	_, checks["add rule"] = acts.AddRule(ctx, RuleInput{Title: "Quiet hours"})
	checks["delete rule"] = acts.DeleteRule(ctx, 1)
	_, checks["add goal"] = acts.AddGoal(ctx, GoalInput{Type: model.GoalWeek, Title: "Run", Target: 3})
	checks["delete goal"] = acts.DeleteGoal(ctx, 1)
	_, checks["approve"] = acts.ApproveJoinRequest(ctx, 1)
	checks["reject"] = acts.RejectJoinRequest(ctx, 1)
	_, checks["update nest"] = acts.UpdateNest(ctx, NestInput{Name: "Mine"})
	checks["set budget"] = acts.SetBudgetGoal(ctx, 1000)

	for name, err := range checks {
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("%s err = %v, want ErrForbidden", name, err)
		}
	}
	if got := h.mutations.Load() - before; got != 0 {
		t.Errorf("backend calls = %d, want 0", got)
	}
}

func TestJoinNestRejectsBadCode(t *testing.T) {
	h := newHarness(t)
	h.acts.CreateProfile(context.Background(), ProfileInput{Nickname: "Jun", Email: "jun@example.com"})
	before := h.mutations.Load()

	_, err := h.acts.JoinNest(context.Background(), "no!")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if h.mutations.Load() != before {
		t.Error("invalid code should not reach the backend")
	}
}

func TestConfirmMembershipBeforeApproval(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)
	acts, st := h.second()
	ctx := context.Background()
	acts.CreateProfile(ctx, ProfileInput{Nickname: "Jun", Email: "jun@example.com"})
	if _, err := acts.JoinNest(ctx, nest.InviteCode); err != nil {
		t.Fatalf("join: %v", err)
	}

	ok, err := acts.ConfirmMembership(ctx, nest.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if ok {
		t.Error("membership confirmed before approval")
	}
	if st.Nest() != nil {
		t.Error("nest should not be set before approval")
	}
}

func TestFailedMutationLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	ctx := context.Background()

	if _, err := h.acts.AddTodo(ctx, TodoInput{Title: "Dishes"}); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	rev := h.st.Revision(state.ResourceTodos)

	h.fail.Store(true)
	_, err := h.acts.AddTodo(ctx, TodoInput{Title: "Laundry"})
	if !api.IsKind(err, api.KindServer) {
		t.Fatalf("err = %v, want server error", err)
	}
	if got := h.st.Todos(); len(got) != 1 || got[0].Title != "Dishes" {
		t.Errorf("todos = %+v, want only Dishes", got)
	}
	if h.st.Revision(state.ResourceTodos) != rev {
		t.Error("failed mutation bumped the revision")
	}
	if h.st.Snapshot().IsPending(state.ResourceTodos) {
		t.Error("pending marker left after failure")
	}
	if got := UserMessage(err); got != "Something went wrong. Please try again." {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestPendingDuringRequest(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)

	var pending bool
	h.onRequest = func(*http.Request) {
		pending = h.st.Snapshot().IsPending(state.ResourceRules)
	}
	if _, err := h.acts.AddRule(context.Background(), RuleInput{Title: "Quiet hours"}); err != nil {
		t.Fatalf("add rule: %v", err)
	}
	if !pending {
		t.Error("rules should be pending while the request is in flight")
	}
	if h.st.Snapshot().IsPending(state.ResourceRules) {
		t.Error("pending marker should clear after the response")
	}
}

func TestToggleTodo(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	ctx := context.Background()

	todo, err := h.acts.AddTodo(ctx, TodoInput{Title: "Dishes", Repeat: model.RepeatDaily})
	if err != nil {
		t.Fatalf("add todo: %v", err)
	}

	done, err := h.acts.ToggleTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !done.IsCompleted || done.CompletedBy == nil || *done.CompletedBy != h.st.User().ID {
		t.Errorf("todo = %+v, want completed by me", done)
	}

	undone, err := h.acts.ToggleTodo(ctx, todo.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if undone.IsCompleted {
		t.Error("second toggle should reopen the mission")
	}
	if got := h.st.Todos()[0]; got.IsCompleted {
		t.Errorf("state todo = %+v, want open", got)
	}

	if _, err := h.acts.ToggleTodo(ctx, 9999); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("unknown todo err = %v, want ErrUnknownItem", err)
	}
}

func TestAddTodoUnknownAssignee(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	before := h.mutations.Load()

	_, err := h.acts.AddTodo(context.Background(), TodoInput{Title: "Dishes", Assignees: []int64{424242}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if h.mutations.Load() != before {
		t.Error("backend should not be called")
	}
}

func TestVoteEventToggles(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)
	member, memberState := addMember(t, h, nest)
	ctx := context.Background()

	ev, err := h.acts.AddEvent(ctx, EventInput{Title: "Dinner", Date: "2026-03-01", EndDate: "2026-03-03", Type: model.EventVote})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}
	memberState.UpsertEvent(*ev)

	ev, err = member.VoteEvent(ctx, ev.ID, "2026-03-02")
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	me := memberState.User().ID
	if got := ev.Votes["2026-03-02"]; len(got) != 1 || got[0] != me {
		t.Errorf("votes = %v, want [%d]", got, me)
	}

	ev, err = member.VoteEvent(ctx, ev.ID, "2026-03-02")
	if err != nil {
		t.Fatalf("unvote: %v", err)
	}
	if got := memberState.Events()[0].Votes["2026-03-02"]; len(got) != 0 {
		t.Errorf("votes after toggle = %v, want none", got)
	}

	if _, err := member.VoteEvent(ctx, ev.ID, "2026-03-04"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("out of range err = %v, want ErrInvalidInput", err)
	}
}

func TestAddEventRangeValidation(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)

	_, err := h.acts.AddEvent(context.Background(), EventInput{Title: "Trip", Date: "2026-03-05", EndDate: "2026-03-01"})
	var inputErr *InputError
	if !errors.As(err, &inputErr) {
		t.Fatalf("err = %v, want *InputError", err)
	}
	if len(inputErr.Fields) != 1 || inputErr.Fields[0] != "enddate must not be before date" {
		t.Errorf("fields = %v", inputErr.Fields)
	}
}

func TestGoalProgressClamps(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	ctx := context.Background()

	g, err := h.acts.AddGoal(ctx, GoalInput{Type: model.GoalWeek, Title: "Gym", Target: 3, Unit: "times"})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}

	g, err = h.acts.IncrementGoalProgress(ctx, g.ID, 5)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if g.Current != 3 {
		t.Errorf("current = %d, want 3", g.Current)
	}

	before := h.mutations.Load()
	g, err = h.acts.IncrementGoalProgress(ctx, g.ID, 1)
	if err != nil {
		t.Fatalf("increment at target: %v", err)
	}
	if g.Current != 3 || h.mutations.Load() != before+1 {
		t.Errorf("current = %d, calls = %d; want 3 and one request", g.Current, h.mutations.Load()-before)
	}

	g, _ = h.acts.DecrementGoalProgress(ctx, g.ID, 10)
	if g.Current != 0 {
		t.Errorf("current = %d, want 0", g.Current)
	}
	if _, err := h.acts.DecrementGoalProgress(ctx, g.ID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("zero amount err = %v, want ErrInvalidInput", err)
	}
}

func TestGoalProgressIgnoresStaleLocalCopy(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)
	ctx := context.Background()

	g, err := h.acts.AddGoal(ctx, GoalInput{Type: model.GoalWeek, Title: "Gym", Target: 2})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}
	if _, err := h.acts.IncrementGoalProgress(ctx, g.ID, 2); err != nil {
		t.Fatalf("increment: %v", err)
	}

	// Someone else resets the goal on the server; this device still sees 2/2.
	if _, err := h.client.AddGoalProgress(ctx, nest.ID, g.ID, -2, h.st.User().ID); err != nil {
		t.Fatalf("server decrement: %v", err)
	}

	before := h.mutations.Load()
	g, err = h.acts.IncrementGoalProgress(ctx, g.ID, 1)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if h.mutations.Load() != before+1 {
		t.Errorf("requests = %d, want 1", h.mutations.Load()-before)
	}
	if g.Current != 1 {
		t.Errorf("current = %d, want 1", g.Current)
	}
	if got := h.st.Goals()[0].Current; got != 1 {
		t.Errorf("state current = %d, want 1", got)
	}
}

func TestRetryAfterLostResponseAddsOnce(t *testing.T) {
	h := newHarness(t)
	nest := onboardMaster(t, h)
	ctx := Retryable(context.Background())

	h.lose.Store(true)
	if _, err := h.acts.AddTodo(ctx, TodoInput{Title: "Dishes"}); err == nil {
		t.Fatal("expected the lost reply to fail the action")
	}
	if len(h.st.Todos()) != 0 {
		t.Errorf("todos = %+v, want none before confirmation", h.st.Todos())
	}

	h.lose.Store(false)
	todo, err := h.acts.AddTodo(ctx, TodoInput{Title: "Dishes"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}

	server, err := h.client.ListTodos(context.Background(), nest.ID)
	if err != nil {
		t.Fatalf("list todos: %v", err)
	}
	if len(server) != 1 || server[0].ID != todo.ID {
		t.Errorf("server todos = %+v, want just %d", server, todo.ID)
	}
	if len(h.st.Todos()) != 1 {
		t.Errorf("state todos = %d, want 1", len(h.st.Todos()))
	}
}

func TestVisionGoalHasNoTarget(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)

	_, err := h.acts.AddGoal(context.Background(), GoalInput{Type: model.GoalVision, Title: "Be kind", Target: 5})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	g, err := h.acts.AddGoal(context.Background(), GoalInput{Type: model.GoalVision, Title: "Be kind"})
	if err != nil {
		t.Fatalf("add vision goal: %v", err)
	}
	if g.HasTarget() {
		t.Error("vision goal should have no target")
	}
}

func TestBudgetActions(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	ctx := context.Background()

	if err := h.acts.SetBudgetGoal(ctx, 500000); err != nil {
		t.Fatalf("set budget goal: %v", err)
	}
	if got := h.st.BudgetGoal(); got != 500000 {
		t.Errorf("budget goal = %d, want 500000", got)
	}
	if err := h.acts.SetBudgetGoal(ctx, -1); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("negative goal err = %v, want ErrInvalidInput", err)
	}

	tx, err := h.acts.AddTransaction(ctx, TransactionInput{Title: "Groceries", Amount: 4200, Date: "2026-03-02"})
	if err != nil {
		t.Fatalf("add transaction: %v", err)
	}
	if tx.PayerID != h.st.User().ID || tx.Category != model.CategoryEtc {
		t.Errorf("transaction = %+v", tx)
	}
	if err := h.acts.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("delete transaction: %v", err)
	}
	if got := h.st.Transactions(); len(got) != 0 {
		t.Errorf("transactions = %d, want 0", len(got))
	}

	if _, err := h.acts.AddFixedExpense(ctx, FixedExpenseInput{Title: "Rent", Amount: 90000, Day: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("day 0 err = %v, want ErrInvalidInput", err)
	}
	f, err := h.acts.AddFixedExpense(ctx, FixedExpenseInput{Title: "Rent", Amount: 90000, Day: 25})
	if err != nil {
		t.Fatalf("add fixed expense: %v", err)
	}
	if got := h.st.FixedExpenses(); len(got) != 1 || got[0].ID != f.ID {
		t.Errorf("fixed expenses = %+v", got)
	}
}

func TestRuleRoundTrip(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)
	ctx := context.Background()

	r, err := h.acts.AddRule(ctx, RuleInput{Title: "Quiet hours", Description: "After 22:00", Priority: 1})
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}
	if err := h.acts.DeleteRule(ctx, r.ID); err != nil {
		t.Fatalf("delete rule: %v", err)
	}
	if got := h.st.Rules(); len(got) != 0 {
		t.Errorf("rules = %d, want 0", len(got))
	}
}

func TestUpdateProfileRefreshesMember(t *testing.T) {
	h := newHarness(t)
	onboardMaster(t, h)

	nick := "Mimi"
	u, err := h.acts.UpdateProfile(context.Background(), ProfileUpdate{Nickname: &nick})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.Nickname != "Mimi" || h.st.User().Nickname != "Mimi" {
		t.Errorf("nickname = %q, want Mimi", u.Nickname)
	}
	if m, _ := h.st.Snapshot().Member(u.ID); m.Nickname != "Mimi" {
		t.Errorf("member nickname = %q, want Mimi", m.Nickname)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrForbidden, "Only the nest master can do this."},
		{ErrNoUser, "Set up your profile first."},
		{ErrNoNest, "Create or join a nest first."},
		{&InputError{Fields: []string{"title is required"}}, "invalid input: title is required"},
		{&api.Error{Kind: api.KindValidation, Message: "Title is required"}, "Title is required"},
	}
	for _, tt := range tests {
		if got := UserMessage(tt.err); got != tt.want {
			t.Errorf("UserMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
