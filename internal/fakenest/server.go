// Package fakenest is an in-memory nest backend for development and tests.
// It serves the same REST routes and change feed the client expects.
package fakenest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dukerupert/nestmate/internal/auth"
	"github.com/dukerupert/nestmate/internal/middleware"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/websocket"
)

type userRecord struct {
	user   model.User
	nestID int64
}

type nestRecord struct {
	nest         model.Nest
	joinRequests []model.JoinRequest
	todos        []model.Todo
	events       []model.CalendarEvent
	goals        []model.Goal
	transactions []model.BudgetTransaction
	fixed        []model.FixedExpense
	rules        []model.HouseRule
	budgetGoal   int64
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithJoinLimit caps invite-code attempts per client address.
func WithJoinLimit(limit int, period time.Duration) Option {
	return func(s *Server) { s.joinLimiter = middleware.NewLimiter(limit, period) }
}

// Server holds every user and nest in memory behind one mutex.
type Server struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*userRecord
	nests    map[int64]*nestRecord
	invites  map[string]int64
	replayMu sync.Mutex
	replays  map[string]*replay

	hub         *websocket.Hub
	joinLimiter *middleware.Limiter
	logger      *slog.Logger
	now         func() time.Time
}

func New(opts ...Option) *Server {
	s := &Server{
		users:       make(map[int64]*userRecord),
		nests:       make(map[int64]*nestRecord),
		invites:     make(map[string]int64),
		replays:     make(map[string]*replay),
		joinLimiter: middleware.NewLimiter(20, time.Minute),
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "fakenest")
	s.hub = websocket.NewHub(s.logger)
	return s
}

// Hub exposes the change feed hub.
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(auth.Middleware)
	r.Use(s.idempotent)

	r.Post("/users", s.createUser)
	r.Patch("/profile", s.updateProfile)
	r.Post("/nests", s.createNest)
	r.With(middleware.Limit(s.joinLimiter, middleware.RealIP)).Post("/nests/join", s.joinNest)

	r.Route("/nests/{nestID}", func(r chi.Router) {
		r.Get("/", s.getNest)
		r.Put("/", s.updateNest)
		r.Get("/feed", s.feed)
		r.Get("/members", s.listMembers)

		r.Get("/join_requests", s.listJoinRequests)
		r.Post("/join_requests/{itemID}/approve", s.approveJoinRequest)
		r.Post("/join_requests/{itemID}/reject", s.rejectJoinRequest)

		r.Get("/todos", s.listTodos)
		r.Post("/todos", s.createTodo)
		r.Patch("/todos/{itemID}", s.updateTodo)
		r.Delete("/todos/{itemID}", s.deleteTodo)

		r.Get("/events", s.listEvents)
		r.Post("/events", s.createEvent)
		r.Post("/events/{itemID}/votes", s.voteEvent)
		r.Delete("/events/{itemID}", s.deleteEvent)

		r.Get("/goals", s.listGoals)
		r.Post("/goals", s.createGoal)
		r.Post("/goals/{itemID}/progress", s.goalProgress)
		r.Delete("/goals/{itemID}", s.deleteGoal)

		r.Get("/transactions", s.listTransactions)
		r.Post("/transactions", s.createTransaction)
		r.Delete("/transactions/{itemID}", s.deleteTransaction)

		r.Get("/budget", s.getBudget)
		r.Put("/budget", s.setBudget)

		r.Get("/fixed_expenses", s.listFixedExpenses)
		r.Post("/fixed_expenses", s.createFixedExpense)
		r.Delete("/fixed_expenses/{itemID}", s.deleteFixedExpense)

		r.Get("/house_rules", s.listRules)
		r.Post("/house_rules", s.createRule)
		r.Delete("/house_rules/{itemID}", s.deleteRule)
	})

	return r
}

func (s *Server) feed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "nestID")
	if !ok {
		return
	}
	s.mu.Lock()
	_, exists := s.nests[id]
	s.mu.Unlock()
	if !exists {
		respondWithError(w, http.StatusNotFound, "Nest not found")
		return
	}
	s.hub.Handle(w, r, id)
}

// newID hands out ids from one sequence shared by every entity. Callers hold s.mu.
func (s *Server) newID() int64 {
	s.nextID++
	return s.nextID
}

// newInviteCode derives an unused 8 character code. Callers hold s.mu.
func (s *Server) newInviteCode() string {
	for {
		code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
		if _, taken := s.invites[code]; !taken {
			return code
		}
	}
}

func (s *Server) broadcast(nestID int64, entity, action string, id int64) {
	s.hub.Broadcast(nestID, websocket.NewMessage(entity, action, id))
}

// actorID prefers the request's Actor and falls back to the body's user_id.
func actorID(r *http.Request, bodyUserID int64) int64 {
	if id := auth.UserID(r.Context()); id != 0 {
		return id
	}
	return bodyUserID
}

// member resolves the nest in the path and the acting user, writing 404 or
// 403 when either check fails. Callers hold s.mu.
func (s *Server) member(w http.ResponseWriter, r *http.Request, bodyUserID int64) (*nestRecord, *userRecord, bool) {
	n, ok := s.nestFromPath(w, r)
	if !ok {
		return nil, nil, false
	}
	u := s.users[actorID(r, bodyUserID)]
	if u == nil || u.nestID != n.nest.ID {
		respondWithError(w, http.StatusForbidden, "You are not a member of this nest")
		return nil, nil, false
	}
	return n, u, true
}

// master is member plus the master role check. Callers hold s.mu.
func (s *Server) master(w http.ResponseWriter, r *http.Request, bodyUserID int64) (*nestRecord, *userRecord, bool) {
	n, u, ok := s.member(w, r, bodyUserID)
	if !ok {
		return nil, nil, false
	}
	if u.user.Role != model.RoleMaster {
		respondWithError(w, http.StatusForbidden, "Only the nest master can do that")
		return nil, nil, false
	}
	return n, u, true
}

// nestFromPath looks up {nestID}. Callers hold s.mu.
func (s *Server) nestFromPath(w http.ResponseWriter, r *http.Request) (*nestRecord, bool) {
	id, ok := pathID(w, r, "nestID")
	if !ok {
		return nil, false
	}
	n := s.nests[id]
	if n == nil {
		respondWithError(w, http.StatusNotFound, "Nest not found")
		return nil, false
	}
	return n, true
}

// membersOf returns the users of a nest ordered by id. Callers hold s.mu.
func (s *Server) membersOf(nestID int64) []model.User {
	members := []model.User{}
	for id := int64(1); id <= s.nextID; id++ {
		if u := s.users[id]; u != nil && u.nestID == nestID {
			members = append(members, u.user)
		}
	}
	return members
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		respondWithError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
		return false
	}
	return true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithErrors reports several validation failures at once.
func respondWithErrors(w http.ResponseWriter, msgs []string) {
	respondWithJSON(w, http.StatusUnprocessableEntity, map[string][]string{"errors": msgs})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func findIndex[T any](items []T, match func(T) bool) int {
	for i, item := range items {
		if match(item) {
			return i
		}
	}
	return -1
}

func without[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func listOf[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}
