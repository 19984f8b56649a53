package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateTransactionRequest struct {
	Title    string         `json:"title"`
	Amount   int64          `json:"amount"`
	Category model.Category `json:"category"`
	PayerID  int64          `json:"payer_id"`
	Date     string         `json:"date"`
	UserID   int64          `json:"user_id"`
}

type CreateFixedExpenseRequest struct {
	Title  string `json:"title"`
	Amount int64  `json:"amount"`
	Day    int    `json:"day"`
	UserID int64  `json:"user_id"`
}

type budgetRequest struct {
	BudgetGoal int64 `json:"budget_goal"`
	UserID     int64 `json:"user_id"`
}

func (c *Client) ListTransactions(ctx context.Context, nestID int64) ([]model.BudgetTransaction, error) {
	var txs []model.BudgetTransaction
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "transactions"), 0, nil, &txs); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return listOrEmpty(txs), nil
}

func (c *Client) CreateTransaction(ctx context.Context, nestID int64, req CreateTransactionRequest) (*model.BudgetTransaction, error) {
	var tx model.BudgetTransaction
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "transactions"), req.UserID, req, &tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return &tx, nil
}

func (c *Client) DeleteTransaction(ctx context.Context, nestID, txID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "transactions", txID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (c *Client) GetBudget(ctx context.Context, nestID int64) (*model.Budget, error) {
	var b model.Budget
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "budget"), 0, nil, &b); err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &b, nil
}

func (c *Client) SetBudget(ctx context.Context, nestID, budgetGoal, userID int64) (*model.Budget, error) {
	var b model.Budget
	body := budgetRequest{BudgetGoal: budgetGoal, UserID: userID}
	if err := c.do(ctx, http.MethodPut, nestPath(nestID, "budget"), userID, body, &b); err != nil {
		return nil, fmt.Errorf("set budget: %w", err)
	}
	return &b, nil
}

func (c *Client) ListFixedExpenses(ctx context.Context, nestID int64) ([]model.FixedExpense, error) {
	var fixed []model.FixedExpense
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "fixed_expenses"), 0, nil, &fixed); err != nil {
		return nil, fmt.Errorf("list fixed expenses: %w", err)
	}
	return listOrEmpty(fixed), nil
}

func (c *Client) CreateFixedExpense(ctx context.Context, nestID int64, req CreateFixedExpenseRequest) (*model.FixedExpense, error) {
	var f model.FixedExpense
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "fixed_expenses"), req.UserID, req, &f); err != nil {
		return nil, fmt.Errorf("create fixed expense: %w", err)
	}
	return &f, nil
}

func (c *Client) DeleteFixedExpense(ctx context.Context, nestID, fixedID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "fixed_expenses", fixedID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete fixed expense: %w", err)
	}
	return nil
}
