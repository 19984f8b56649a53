package fakenest

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
)

const maxTitleLen = 50

func checkTitle(title string) []string {
	switch {
	case strings.TrimSpace(title) == "":
		return []string{"Title is required"}
	case utf8.RuneCountInString(title) > maxTitleLen:
		return []string{"Title must be at most 50 characters"}
	}
	return nil
}

// itemIndex resolves {itemID} within items, writing 404 when absent.
func itemIndex[T any](w http.ResponseWriter, r *http.Request, items []T, id func(T) int64) (int, bool) {
	want, ok := pathID(w, r, "itemID")
	if !ok {
		return 0, false
	}
	i := findIndex(items, func(item T) bool { return id(item) == want })
	if i < 0 {
		respondWithError(w, http.StatusNotFound, "Not found")
		return 0, false
	}
	return i, true
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.todos))
	}
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTodoRequest
	if !decode(w, r, &req) {
		return
	}
	errs := checkTitle(req.Title)
	switch req.Repeat {
	case "":
		req.Repeat = model.RepeatNone
	case model.RepeatNone, model.RepeatDaily, model.RepeatWeekly, model.RepeatMonthly:
	default:
		errs = append(errs, "Repeat is invalid")
	}
	if len(errs) > 0 {
		respondWithErrors(w, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, req.UserID)
	if !ok {
		return
	}
	for _, id := range req.Assignees {
		if u := s.users[id]; u == nil || u.nestID != n.nest.ID {
			respondWithErrors(w, []string{"Assignees must be nest members"})
			return
		}
	}
	t := model.Todo{
		ID:        s.newID(),
		Title:     req.Title,
		Assignees: append([]int64{}, req.Assignees...),
		Repeat:    req.Repeat,
		ImageURL:  req.ImageURL,
	}
	n.todos = append(n.todos, t)
	s.broadcast(n.nest.ID, "todos", "created", t.ID)
	respondWithJSON(w, http.StatusCreated, t)
}

type todoUpdate struct {
	IsCompleted bool  `json:"is_completed"`
	UserID      int64 `json:"user_id"`
}

func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoUpdate
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, u, ok := s.member(w, r, req.UserID)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.todos, func(t model.Todo) int64 { return t.ID })
	if !ok {
		return
	}
	t := n.todos[i]
	t.IsCompleted = req.IsCompleted
	if req.IsCompleted {
		by, at := u.user.ID, s.now().UTC()
		t.CompletedBy, t.CompletedAt = &by, &at
	} else {
		t.CompletedBy, t.CompletedAt = nil, nil
	}
	n.todos[i] = t
	s.broadcast(n.nest.ID, "todos", "updated", t.ID)
	respondWithJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.todos, func(t model.Todo) int64 { return t.ID })
	if !ok {
		return
	}
	id := n.todos[i].ID
	n.todos = without(n.todos, i)
	s.broadcast(n.nest.ID, "todos", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.events))
	}
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request) {
	var req api.CreateEventRequest
	if !decode(w, r, &req) {
		return
	}
	errs := checkTitle(req.Title)
	if _, err := household.ParseDate(req.Date); err != nil {
		errs = append(errs, "Date must be YYYY-MM-DD")
	}
	if req.EndDate != "" {
		if _, err := household.ParseDate(req.EndDate); err != nil {
			errs = append(errs, "End date must be YYYY-MM-DD")
		} else if req.EndDate < req.Date {
			errs = append(errs, "End date must not be before the start date")
		}
	}
	switch req.Type {
	case "":
		req.Type = model.EventPlain
	case model.EventPlain, model.EventVote:
	default:
		errs = append(errs, "Type is invalid")
	}
	if len(errs) > 0 {
		respondWithErrors(w, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, u, ok := s.member(w, r, req.UserID)
	if !ok {
		return
	}
	e := model.CalendarEvent{
		ID:        s.newID(),
		Title:     req.Title,
		Date:      req.Date,
		EndDate:   req.EndDate,
		Time:      req.Time,
		ImageURL:  req.ImageURL,
		Type:      req.Type,
		Votes:     map[string][]int64{},
		CreatorID: u.user.ID,
	}
	n.events = append(n.events, e)
	s.broadcast(n.nest.ID, "events", "created", e.ID)
	respondWithJSON(w, http.StatusCreated, e)
}

type voteBody struct {
	Date   string `json:"date"`
	UserID int64  `json:"user_id"`
}

func (s *Server) voteEvent(w http.ResponseWriter, r *http.Request) {
	var req voteBody
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, u, ok := s.member(w, r, req.UserID)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.events, func(e model.CalendarEvent) int64 { return e.ID })
	if !ok {
		return
	}
	e := n.events[i]
	if e.Type != model.EventVote {
		respondWithErrors(w, []string{"Only vote events accept votes"})
		return
	}
	if !household.IsDateInRange(req.Date, e.Date, e.EndDate) {
		respondWithErrors(w, []string{"Date is outside the event range"})
		return
	}
	e.Votes = household.ToggleVote(e.Votes, req.Date, u.user.ID)
	n.events[i] = e
	s.broadcast(n.nest.ID, "events", "updated", e.ID)
	respondWithJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEvent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.events, func(e model.CalendarEvent) int64 { return e.ID })
	if !ok {
		return
	}
	id := n.events[i].ID
	n.events = without(n.events, i)
	s.broadcast(n.nest.ID, "events", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.goals))
	}
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	var req api.CreateGoalRequest
	if !decode(w, r, &req) {
		return
	}
	errs := checkTitle(req.Title)
	switch req.Type {
	case model.GoalVision:
		req.Target = 0
	case model.GoalYear, model.GoalMonth, model.GoalWeek:
		if req.Target <= 0 {
			errs = append(errs, "Target must be positive")
		}
	default:
		errs = append(errs, "Type is invalid")
	}
	if len(errs) > 0 {
		respondWithErrors(w, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, req.UserID)
	if !ok {
		return
	}
	g := model.Goal{
		ID:     s.newID(),
		Type:   req.Type,
		Title:  req.Title,
		Target: req.Target,
		Unit:   req.Unit,
	}
	n.goals = append(n.goals, g)
	s.broadcast(n.nest.ID, "goals", "created", g.ID)
	respondWithJSON(w, http.StatusCreated, g)
}

type progressBody struct {
	Delta  int   `json:"delta"`
	UserID int64 `json:"user_id"`
}

func (s *Server) goalProgress(w http.ResponseWriter, r *http.Request) {
	var req progressBody
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, req.UserID)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.goals, func(g model.Goal) int64 { return g.ID })
	if !ok {
		return
	}
	g := household.ApplyProgress(n.goals[i], req.Delta)
	n.goals[i] = g
	s.broadcast(n.nest.ID, "goals", "updated", g.ID)
	respondWithJSON(w, http.StatusOK, g)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.goals, func(g model.Goal) int64 { return g.ID })
	if !ok {
		return
	}
	id := n.goals[i].ID
	n.goals = without(n.goals, i)
	s.broadcast(n.nest.ID, "goals", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.rules))
	}
}

func (s *Server) createRule(w http.ResponseWriter, r *http.Request) {
	var req api.CreateHouseRuleRequest
	if !decode(w, r, &req) {
		return
	}
	if errs := checkTitle(req.Title); len(errs) > 0 {
		respondWithErrors(w, errs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, req.UserID)
	if !ok {
		return
	}
	hr := model.HouseRule{
		ID:          s.newID(),
		Title:       req.Title,
		Description: req.Description,
		RuleType:    req.RuleType,
		Priority:    req.Priority,
	}
	n.rules = append(n.rules, hr)
	s.broadcast(n.nest.ID, "rules", "created", hr.ID)
	respondWithJSON(w, http.StatusCreated, hr)
}

func (s *Server) deleteRule(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.rules, func(hr model.HouseRule) int64 { return hr.ID })
	if !ok {
		return
	}
	id := n.rules[i].ID
	n.rules = without(n.rules, i)
	s.broadcast(n.nest.ID, "rules", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
