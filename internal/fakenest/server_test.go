package fakenest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/websocket"
)

func setup(t *testing.T, opts ...Option) (*Server, *httptest.Server, *api.Client) {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	s := New(opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, api.NewClient(ts.URL)
}

func mustUser(t *testing.T, c *api.Client, nickname string) *model.User {
	t.Helper()
	u, err := c.CreateUser(context.Background(), api.CreateUserRequest{
		Nickname: nickname,
		Email:    strings.ToLower(nickname) + "@example.com",
	})
	if err != nil {
		t.Fatalf("create user %s: %v", nickname, err)
	}
	return u
}

// newHousehold creates a master with a nest and a second approved member.
func newHousehold(t *testing.T, c *api.Client) (*model.Nest, *model.User, *model.User) {
	t.Helper()
	ctx := context.Background()
	master := mustUser(t, c, "Mina")
	nest, err := c.CreateNest(ctx, api.NestRequest{Name: "Test Nest", UserID: master.ID})
	if err != nil {
		t.Fatalf("create nest: %v", err)
	}
	member := mustUser(t, c, "Jun")
	jr, err := c.JoinNest(ctx, api.JoinNestRequest{InviteCode: nest.InviteCode, UserID: member.ID})
	if err != nil {
		t.Fatalf("join nest: %v", err)
	}
	if _, err := c.ApproveJoinRequest(ctx, nest.ID, jr.ID, master.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	return nest, master, member
}

func TestCreateNestRoundTrip(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	u := mustUser(t, c, "Mina")

	created, err := c.CreateNest(ctx, api.NestRequest{Name: "Test Nest", ThemeID: 0, UserID: u.ID})
	if err != nil {
		t.Fatalf("create nest: %v", err)
	}
	if len(created.InviteCode) != 8 {
		t.Errorf("invite code = %q, want 8 characters", created.InviteCode)
	}

	got, err := c.GetNest(ctx, created.ID)
	if err != nil {
		t.Fatalf("get nest: %v", err)
	}
	if got.Name != "Test Nest" || got.ThemeID != 0 {
		t.Errorf("nest = %+v", got)
	}

	members, err := c.ListMembers(ctx, created.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 1 || members[0].Role != model.RoleMaster {
		t.Errorf("members = %+v, want one master", members)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	_, _, c := setup(t)
	mustUser(t, c, "Mina")

	_, err := c.CreateUser(context.Background(), api.CreateUserRequest{Nickname: "Other", Email: "MINA@example.com"})
	if !api.IsKind(err, api.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestCreateUserValidationMessages(t *testing.T) {
	_, _, c := setup(t)

	_, err := c.CreateUser(context.Background(), api.CreateUserRequest{})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.Error", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", apiErr.StatusCode)
	}
	if len(apiErr.Messages) != 2 {
		t.Errorf("messages = %v, want 2", apiErr.Messages)
	}
}

func TestJoinRequiresApproval(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	master := mustUser(t, c, "Mina")
	nest, _ := c.CreateNest(ctx, api.NestRequest{Name: "Test Nest", UserID: master.ID})
	guest := mustUser(t, c, "Jun")

	jr, err := c.JoinNest(ctx, api.JoinNestRequest{InviteCode: " " + strings.ToLower(nest.InviteCode), UserID: guest.ID})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if jr.Status != model.JoinPending {
		t.Errorf("status = %q, want %q", jr.Status, model.JoinPending)
	}

	members, _ := c.ListMembers(ctx, nest.ID)
	if len(members) != 1 {
		t.Errorf("members before approval = %d, want 1", len(members))
	}

	// Guests cannot add anything until approved.
	_, err = c.CreateTodo(ctx, nest.ID, api.CreateTodoRequest{Title: "Dishes", UserID: guest.ID})
	if !api.IsKind(err, api.KindForbidden) {
		t.Errorf("err = %v, want forbidden", err)
	}

	// Joining twice returns the same pending request.
	again, err := c.JoinNest(ctx, api.JoinNestRequest{InviteCode: nest.InviteCode, UserID: guest.ID})
	if err != nil {
		t.Fatalf("join again: %v", err)
	}
	if again.ID != jr.ID {
		t.Errorf("request id = %d, want %d", again.ID, jr.ID)
	}

	if _, err := c.ApproveJoinRequest(ctx, nest.ID, jr.ID, guest.ID); !api.IsKind(err, api.KindForbidden) {
		t.Errorf("self approval err = %v, want forbidden", err)
	}

	approved, err := c.ApproveJoinRequest(ctx, nest.ID, jr.ID, master.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Role != model.RoleMember {
		t.Errorf("role = %q, want %q", approved.Role, model.RoleMember)
	}
	reqs, _ := c.ListJoinRequests(ctx, nest.ID)
	if len(reqs) != 0 {
		t.Errorf("pending requests = %d, want 0", len(reqs))
	}
}

func TestJoinUnknownCode(t *testing.T) {
	_, _, c := setup(t)
	u := mustUser(t, c, "Jun")

	_, err := c.JoinNest(context.Background(), api.JoinNestRequest{InviteCode: "ZZZZZZZZ", UserID: u.ID})
	if !api.IsKind(err, api.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
	_, err = c.JoinNest(context.Background(), api.JoinNestRequest{InviteCode: "bad!", UserID: u.ID})
	if !api.IsKind(err, api.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestJoinRateLimited(t *testing.T) {
	_, _, c := setup(t, WithJoinLimit(2, time.Minute))
	u := mustUser(t, c, "Jun")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c.JoinNest(ctx, api.JoinNestRequest{InviteCode: "ZZZZZZZZ", UserID: u.ID})
	}
	_, err := c.JoinNest(ctx, api.JoinNestRequest{InviteCode: "ZZZZZZZZ", UserID: u.ID})
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("err = %v, want 429", err)
	}
}

func TestRejectJoinRequest(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	master := mustUser(t, c, "Mina")
	nest, _ := c.CreateNest(ctx, api.NestRequest{Name: "Test Nest", UserID: master.ID})
	guest := mustUser(t, c, "Jun")
	jr, _ := c.JoinNest(ctx, api.JoinNestRequest{InviteCode: nest.InviteCode, UserID: guest.ID})

	if err := c.RejectJoinRequest(ctx, nest.ID, jr.ID, master.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := c.RejectJoinRequest(ctx, nest.ID, jr.ID, master.ID); !api.IsKind(err, api.KindNotFound) {
		t.Errorf("second reject err = %v, want not found", err)
	}
	members, _ := c.ListMembers(ctx, nest.ID)
	if len(members) != 1 {
		t.Errorf("members = %d, want 1", len(members))
	}
}

func TestMasterOnlyRoutes(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, _, member := newHousehold(t, c)

	if _, err := c.CreateHouseRule(ctx, nest.ID, api.CreateHouseRuleRequest{Title: "Quiet hours", UserID: member.ID}); !api.IsKind(err, api.KindForbidden) {
		t.Errorf("create rule err = %v, want forbidden", err)
	}
	if _, err := c.CreateGoal(ctx, nest.ID, api.CreateGoalRequest{Type: model.GoalWeek, Title: "Run", Target: 3, UserID: member.ID}); !api.IsKind(err, api.KindForbidden) {
		t.Errorf("create goal err = %v, want forbidden", err)
	}
	if _, err := c.SetBudget(ctx, nest.ID, 100, member.ID); !api.IsKind(err, api.KindForbidden) {
		t.Errorf("set budget err = %v, want forbidden", err)
	}
	if _, err := c.UpdateNest(ctx, nest.ID, api.NestRequest{Name: "Mine", UserID: member.ID}); !api.IsKind(err, api.KindForbidden) {
		t.Errorf("update nest err = %v, want forbidden", err)
	}
}

func TestTodoLifecycle(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, master, member := newHousehold(t, c)

	todo, err := c.CreateTodo(ctx, nest.ID, api.CreateTodoRequest{
		Title: "Dishes", Assignees: []int64{member.ID}, Repeat: model.RepeatDaily, UserID: master.ID,
	})
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}

	done, err := c.SetTodoCompleted(ctx, nest.ID, todo.ID, member.ID, true)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.IsCompleted || done.CompletedBy == nil || *done.CompletedBy != member.ID {
		t.Errorf("todo = %+v, want completed by %d", done, member.ID)
	}

	undone, err := c.SetTodoCompleted(ctx, nest.ID, todo.ID, member.ID, false)
	if err != nil {
		t.Fatalf("uncomplete: %v", err)
	}
	if undone.IsCompleted || undone.CompletedAt != nil {
		t.Errorf("todo = %+v, want open", undone)
	}

	if err := c.DeleteTodo(ctx, nest.ID, todo.ID, member.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	todos, _ := c.ListTodos(ctx, nest.ID)
	if len(todos) != 0 {
		t.Errorf("todos = %d, want 0", len(todos))
	}
}

func TestTodoAssigneesMustBeMembers(t *testing.T) {
	_, _, c := setup(t)
	nest, master, _ := newHousehold(t, c)
	stranger := mustUser(t, c, "Kai")

	_, err := c.CreateTodo(context.Background(), nest.ID, api.CreateTodoRequest{
		Title: "Dishes", Assignees: []int64{stranger.ID}, UserID: master.ID,
	})
	if !api.IsKind(err, api.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestVoteToggles(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, master, member := newHousehold(t, c)

	ev, err := c.CreateEvent(ctx, nest.ID, api.CreateEventRequest{
		Title: "Dinner", Date: "2026-03-01", EndDate: "2026-03-05", Type: model.EventVote, UserID: master.ID,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}

	ev, err = c.ToggleVote(ctx, nest.ID, ev.ID, "2026-03-02", member.ID)
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if got := ev.Votes["2026-03-02"]; len(got) != 1 || got[0] != member.ID {
		t.Errorf("votes = %v, want [%d]", got, member.ID)
	}

	ev, err = c.ToggleVote(ctx, nest.ID, ev.ID, "2026-03-02", member.ID)
	if err != nil {
		t.Fatalf("unvote: %v", err)
	}
	if got := ev.Votes["2026-03-02"]; len(got) != 0 {
		t.Errorf("votes = %v, want none", got)
	}

	if _, err := c.ToggleVote(ctx, nest.ID, ev.ID, "2026-03-09", member.ID); !api.IsKind(err, api.KindValidation) {
		t.Errorf("out of range err = %v, want validation", err)
	}
}

func TestVoteOnPlainEventRejected(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, master, _ := newHousehold(t, c)

	ev, _ := c.CreateEvent(ctx, nest.ID, api.CreateEventRequest{Title: "Party", Date: "2026-03-01", UserID: master.ID})
	if _, err := c.ToggleVote(ctx, nest.ID, ev.ID, "2026-03-01", master.ID); !api.IsKind(err, api.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestGoalProgressClamped(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, master, member := newHousehold(t, c)

	g, err := c.CreateGoal(ctx, nest.ID, api.CreateGoalRequest{Type: model.GoalWeek, Title: "Gym", Target: 3, Unit: "times", UserID: master.ID})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}

	g, _ = c.AddGoalProgress(ctx, nest.ID, g.ID, 5, member.ID)
	if g.Current != 3 {
		t.Errorf("current = %d, want 3", g.Current)
	}
	g, _ = c.AddGoalProgress(ctx, nest.ID, g.ID, -10, member.ID)
	if g.Current != 0 {
		t.Errorf("current = %d, want 0", g.Current)
	}
}

func TestBudgetAndFixedExpenses(t *testing.T) {
	_, _, c := setup(t)
	ctx := context.Background()
	nest, master, member := newHousehold(t, c)

	if _, err := c.SetBudget(ctx, nest.ID, 500000, master.ID); err != nil {
		t.Fatalf("set budget: %v", err)
	}
	b, err := c.GetBudget(ctx, nest.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if b.BudgetGoal != 500000 {
		t.Errorf("budget goal = %d, want 500000", b.BudgetGoal)
	}

	tx, err := c.CreateTransaction(ctx, nest.ID, api.CreateTransactionRequest{
		Title: "Groceries", Amount: 4200, Date: "2026-03-02", UserID: member.ID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if tx.PayerID != member.ID || tx.Category != model.CategoryEtc {
		t.Errorf("transaction = %+v", tx)
	}

	if _, err := c.CreateFixedExpense(ctx, nest.ID, api.CreateFixedExpenseRequest{Title: "Rent", Amount: 1, Day: 32, UserID: master.ID}); !api.IsKind(err, api.KindValidation) {
		t.Errorf("day 32 err = %v, want validation", err)
	}
	f, err := c.CreateFixedExpense(ctx, nest.ID, api.CreateFixedExpenseRequest{Title: "Rent", Amount: 90000, Day: 25, UserID: master.ID})
	if err != nil {
		t.Fatalf("create fixed expense: %v", err)
	}
	if err := c.DeleteFixedExpense(ctx, nest.ID, f.ID, member.ID); err != nil {
		t.Fatalf("delete fixed expense: %v", err)
	}
}

func TestDeleteUnknownItem(t *testing.T) {
	_, _, c := setup(t)
	nest, master, _ := newHousehold(t, c)

	err := c.DeleteHouseRule(context.Background(), nest.ID, 999, master.ID)
	if !api.IsKind(err, api.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestIdempotentReplay(t *testing.T) {
	_, ts, c := setup(t)
	nest, master, _ := newHousehold(t, c)

	post := func() *http.Response {
		body, _ := json.Marshal(api.CreateTodoRequest{Title: "Dishes", UserID: master.ID})
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/nests/"+strconv.FormatInt(nest.ID, 10)+"/todos", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "same-key")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return resp
	}

	first := post()
	first.Body.Close()
	second := post()
	second.Body.Close()

	if first.StatusCode != http.StatusCreated || second.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, %d; want 201, 201", first.StatusCode, second.StatusCode)
	}
	if second.Header.Get("Idempotent-Replayed") != "true" {
		t.Error("second response should be a replay")
	}
	todos, _ := c.ListTodos(context.Background(), nest.ID)
	if len(todos) != 1 {
		t.Errorf("todos = %d, want 1", len(todos))
	}
}

func TestIdempotentConcurrentRetryRunsOnce(t *testing.T) {
	s := New()
	var calls atomic.Int32
	release := make(chan struct{})
	h := s.idempotent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))

	const n = 5
	recs := make([]*httptest.ResponseRecorder, n)
	var wg sync.WaitGroup
	for i := range n {
		recs[i] = httptest.NewRecorder()
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/nests/1/todos", strings.NewReader(`{}`))
			req.Header.Set("Idempotency-Key", "same-key")
			h.ServeHTTP(recs[i], req)
		}()
	}
	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("handler calls = %d, want 1", got)
	}
	var replayed int
	for _, rec := range recs {
		if rec.Code != http.StatusCreated || rec.Body.String() != `{"id":1}` {
			t.Errorf("response = %d %q, want 201 with the first body", rec.Code, rec.Body.String())
		}
		if rec.Header().Get("Idempotent-Replayed") == "true" {
			replayed++
		}
	}
	if replayed != n-1 {
		t.Errorf("replayed = %d, want %d", replayed, n-1)
	}
}

func TestIdempotentServerErrorReleasesKey(t *testing.T) {
	s := New()
	var calls atomic.Int32
	h := s.idempotent(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, want := range []int{http.StatusInternalServerError, http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodDelete, "/nests/1/todos/2", nil)
		req.Header.Set("Idempotency-Key", "k")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("status = %d, want %d", rec.Code, want)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("handler calls = %d, want 2", calls.Load())
	}
}

func TestFeedBroadcastsChanges(t *testing.T) {
	s, _, c := setup(t)
	nest, master, _ := newHousehold(t, c)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, c.FeedURL(nest.ID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for s.Hub().ClientCount(nest.ID) == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.CreateHouseRule(ctx, nest.ID, api.CreateHouseRuleRequest{Title: "Quiet hours", UserID: master.ID}); err != nil {
		t.Fatalf("create rule: %v", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg websocket.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Entity != "rules" || msg.Action != websocket.ActionCreated {
		t.Errorf("message = %+v, want rules created", msg)
	}
}
