package fakenest

import (
	"net/http"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/household"
	"github.com/dukerupert/nestmate/internal/model"
)

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.transactions))
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	errs := checkTitle(req.Title)
	if req.Amount <= 0 {
		errs = append(errs, "Amount must be positive")
	}
	if _, err := household.ParseDate(req.Date); err != nil {
		errs = append(errs, "Date must be YYYY-MM-DD")
	}
	if req.Category == "" {
		req.Category = model.CategoryEtc
	} else if findIndex(model.Categories, func(c model.Category) bool { return c == req.Category }) < 0 {
		errs = append(errs, "Category is invalid")
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
	if req.PayerID == 0 {
		req.PayerID = u.user.ID
	}
	if p := s.users[req.PayerID]; p == nil || p.nestID != n.nest.ID {
		respondWithErrors(w, []string{"Payer must be a nest member"})
		return
	}
	tx := model.BudgetTransaction{
		ID:       s.newID(),
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
		PayerID:  req.PayerID,
		Date:     req.Date,
	}
	n.transactions = append(n.transactions, tx)
	s.broadcast(n.nest.ID, "transactions", "created", tx.ID)
	respondWithJSON(w, http.StatusCreated, tx)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.transactions, func(tx model.BudgetTransaction) int64 { return tx.ID })
	if !ok {
		return
	}
	id := n.transactions[i].ID
	n.transactions = without(n.transactions, i)
	s.broadcast(n.nest.ID, "transactions", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, model.Budget{BudgetGoal: n.budgetGoal})
	}
}

type budgetBody struct {
	BudgetGoal int64 `json:"budget_goal"`
	UserID     int64 `json:"user_id"`
}

func (s *Server) setBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetBody
	if !decode(w, r, &req) {
		return
	}
	if req.BudgetGoal < 0 {
		respondWithErrors(w, []string{"Budget goal must not be negative"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.master(w, r, req.UserID)
	if !ok {
		return
	}
	n.budgetGoal = req.BudgetGoal
	s.broadcast(n.nest.ID, "budget", "updated", 0)
	respondWithJSON(w, http.StatusOK, model.Budget{BudgetGoal: n.budgetGoal})
}

func (s *Server) listFixedExpenses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nestFromPath(w, r); ok {
		respondWithJSON(w, http.StatusOK, listOf(n.fixed))
	}
}

func (s *Server) createFixedExpense(w http.ResponseWriter, r *http.Request) {
	var req api.CreateFixedExpenseRequest
	if !decode(w, r, &req) {
		return
	}
	errs := checkTitle(req.Title)
	if req.Amount <= 0 {
		errs = append(errs, "Amount must be positive")
	}
	if req.Day < 1 || req.Day > 31 {
		errs = append(errs, "Day must be between 1 and 31")
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
	f := model.FixedExpense{
		ID:     s.newID(),
		Title:  req.Title,
		Amount: req.Amount,
		Day:    req.Day,
	}
	n.fixed = append(n.fixed, f)
	s.broadcast(n.nest.ID, "fixed_expenses", "created", f.ID)
	respondWithJSON(w, http.StatusCreated, f)
}

func (s *Server) deleteFixedExpense(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, _, ok := s.member(w, r, 0)
	if !ok {
		return
	}
	i, ok := itemIndex(w, r, n.fixed, func(f model.FixedExpense) int64 { return f.ID })
	if !ok {
		return
	}
	id := n.fixed[i].ID
	n.fixed = without(n.fixed, i)
	s.broadcast(n.nest.ID, "fixed_expenses", "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
