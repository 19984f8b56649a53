package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/dukerupert/nestmate/internal/action"
	"github.com/dukerupert/nestmate/internal/config"
	"github.com/dukerupert/nestmate/internal/fakenest"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type backend struct {
	url string

	mu     gosync.Mutex
	agents []string
}

func (b *backend) userAgents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.agents...)
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	h := fakenest.New(fakenest.WithLogger(quiet)).Handler()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.agents = append(b.agents, r.UserAgent())
		b.mu.Unlock()
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	b.url = server.URL
	return b
}

func testConfig(url, path string) *config.Config {
	return &config.Config{
		Variant: config.VariantToss,
		API:     config.APIConfig{URL: url, Timeout: 5 * time.Second},
		Data:    config.DataConfig{Path: path},
		Feed:    config.FeedConfig{Enabled: false, ReconnectDelay: 10 * time.Millisecond},
	}
}

func open(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, err := Open(context.Background(), cfg, WithLogger(quiet), WithVersion("1.2.3"))
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

var mina = action.ProfileInput{Nickname: "Mina", Email: "mina@example.com"}

func TestUserAgent(t *testing.T) {
	if got := UserAgent("toss", "1.2.3"); got != "nestmate-toss/1.2.3" {
		t.Errorf("UserAgent = %q", got)
	}
}

func TestOnboardCreateAndRestore(t *testing.T) {
	b := newBackend(t)
	path := filepath.Join(t.TempDir(), "data", "nestmate.db")
	ctx := context.Background()

	s := open(t, testConfig(b.url, path))
	jr, err := s.Onboard(ctx, mina, NestChoice{Create: &action.NestInput{Name: "Test Nest"}})
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if jr != nil {
		t.Errorf("join request = %+v, want nil when creating", jr)
	}
	if _, err := s.Actions.AddTodo(ctx, action.TodoInput{Title: "Dishes"}); err != nil {
		t.Fatalf("add todo: %v", err)
	}
	for _, res := range s.Start(ctx) {
		if !res.OK() {
			t.Errorf("sync %s: %v", res.Resource, res.Err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, ua := range b.userAgents() {
		if ua != "nestmate-toss/1.2.3" {
			t.Errorf("User-Agent = %q", ua)
		}
	}

	// A fresh session shows cached data before any network call.
	reopened := open(t, testConfig(b.url, path))
	defer reopened.Close()
	if u := reopened.State.User(); u == nil || u.Nickname != "Mina" || !u.IsMaster() {
		t.Errorf("user = %+v, want master Mina", u)
	}
	if n := reopened.State.Nest(); n == nil || n.Name != "Test Nest" {
		t.Errorf("nest = %+v", n)
	}
	if todos := reopened.State.Todos(); len(todos) != 1 || todos[0].Title != "Dishes" {
		t.Errorf("todos = %+v", todos)
	}
	if st := reopened.State.SyncStatus(state.ResourceTodos); st.SyncedAt.IsZero() {
		t.Error("sync time should survive a restart")
	}
}

func TestOnboardJoinIsPending(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	master := open(t, testConfig(b.url, ":memory:"))
	defer master.Close()
	if _, err := master.Onboard(ctx, mina, NestChoice{Create: &action.NestInput{Name: "Test Nest"}}); err != nil {
		t.Fatalf("onboard master: %v", err)
	}
	code := master.State.Nest().InviteCode

	guest := open(t, testConfig(b.url, ":memory:"))
	defer guest.Close()
	jr, err := guest.Onboard(ctx, action.ProfileInput{Nickname: "Jun", Email: "jun@example.com"}, NestChoice{InviteCode: code})
	if err != nil {
		t.Fatalf("onboard guest: %v", err)
	}
	if jr == nil || jr.Status != model.JoinPending {
		t.Fatalf("join request = %+v, want pending", jr)
	}
	if guest.State.Nest() != nil {
		t.Error("guest nest should stay unset until approval")
	}
	if results := guest.Start(ctx); results != nil {
		t.Errorf("start without nest = %v, want nil", results)
	}

	// The master sees the request after a sync and approves it.
	if res := master.Syncer.FetchJoinRequests(ctx); !res.OK() {
		t.Fatalf("fetch join requests: %v", res.Err)
	}
	if got := len(master.State.JoinRequests()); got != 1 {
		t.Fatalf("join requests = %d, want 1", got)
	}
	if _, err := master.Actions.ApproveJoinRequest(ctx, jr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	ok, err := guest.Actions.ConfirmMembership(ctx, jr.NestID)
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	for _, res := range guest.Start(ctx) {
		if res.Resource == state.ResourceJoinRequests && !res.Skipped {
			t.Error("members should skip join requests")
		}
	}
	if got := len(guest.State.Members()); got != 2 {
		t.Errorf("members = %d, want 2", got)
	}
}

func TestOnboardNestChoice(t *testing.T) {
	s := open(t, testConfig("http://127.0.0.1:1", ":memory:"))
	defer s.Close()

	_, err := s.Onboard(context.Background(), mina, NestChoice{})
	if !errors.Is(err, ErrNestChoice) {
		t.Errorf("empty choice err = %v, want ErrNestChoice", err)
	}
	_, err = s.Onboard(context.Background(), mina, NestChoice{Create: &action.NestInput{Name: "A"}, InviteCode: "ABCDEF"})
	if !errors.Is(err, ErrNestChoice) {
		t.Errorf("double choice err = %v, want ErrNestChoice", err)
	}
}

func TestLogoutWipesCache(t *testing.T) {
	b := newBackend(t)
	path := filepath.Join(t.TempDir(), "nestmate.db")
	ctx := context.Background()

	s := open(t, testConfig(b.url, path))
	if _, err := s.Onboard(ctx, mina, NestChoice{Create: &action.NestInput{Name: "Test Nest"}}); err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if s.State.User() != nil || s.State.Nest() != nil {
		t.Error("state should be empty after logout")
	}
	s.Close()

	reopened := open(t, testConfig(b.url, path))
	defer reopened.Close()
	if reopened.State.User() != nil {
		t.Error("cache should be empty after logout")
	}
}

func TestBackupRequiresNest(t *testing.T) {
	s := open(t, testConfig("http://127.0.0.1:1", ":memory:"))
	defer s.Close()

	if _, err := s.Backup(context.Background(), "passphrase"); !errors.Is(err, state.ErrNoNest) {
		t.Errorf("err = %v, want ErrNoNest", err)
	}
	if s.Backups().Enabled() {
		t.Error("backups should be disabled without S3 settings")
	}
}
