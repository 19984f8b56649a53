package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

// TransactionInput records spending. PayerID defaults to the signed-in user
// and Date to today.
type TransactionInput struct {
	Title    string         `validate:"required,max=50"`
	Amount   int64          `validate:"gt=0"`
	Category model.Category `validate:"category"`
	PayerID  int64
	Date     string `validate:"calendar_date"`
}

type FixedExpenseInput struct {
	Title  string `validate:"required,max=50"`
	Amount int64  `validate:"gt=0"`
	Day    int    `validate:"min=1,max=31"`
}

func (a *Actions) AddTransaction(ctx context.Context, in TransactionInput) (*model.BudgetTransaction, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	if in.PayerID == 0 {
		in.PayerID = me.ID
	}
	if in.Date == "" {
		in.Date = a.now().Format(model.DateLayout)
	}
	if in.Category == "" {
		in.Category = model.CategoryEtc
	}
	if err := a.check(in); err != nil {
		return nil, err
	}
	if err := a.checkMembers(in.PayerID); err != nil {
		return nil, err
	}

	var tx *model.BudgetTransaction
	err = a.confirmed(state.ResourceTransactions, "add_transaction", func() error {
		t, err := a.api.CreateTransaction(ctx, nest.ID, api.CreateTransactionRequest{
			Title:    in.Title,
			Amount:   in.Amount,
			Category: in.Category,
			PayerID:  in.PayerID,
			Date:     in.Date,
			UserID:   me.ID,
		})
		if err != nil {
			return fmt.Errorf("add transaction: %w", err)
		}
		a.state.UpsertTransaction(*t)
		tx = t
		return nil
	})
	return tx, err
}

func (a *Actions) DeleteTransaction(ctx context.Context, txID int64) error {
	me, nest, err := a.member()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceTransactions, "delete_transaction", func() error {
		if err := a.api.DeleteTransaction(ctx, nest.ID, txID, me.ID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		a.state.RemoveTransaction(txID)
		return nil
	})
}

// SetBudgetGoal sets the nest's monthly spending goal.
func (a *Actions) SetBudgetGoal(ctx context.Context, goal int64) error {
	me, nest, err := a.master()
	if err != nil {
		return err
	}
	if goal < 0 {
		return &InputError{Fields: []string{"budget goal must not be negative"}}
	}
	return a.confirmed(state.ResourceBudget, "set_budget_goal", func() error {
		b, err := a.api.SetBudget(ctx, nest.ID, goal, me.ID)
		if err != nil {
			return fmt.Errorf("set budget goal: %w", err)
		}
		a.state.SetBudgetGoal(b.BudgetGoal)
		return nil
	})
}

func (a *Actions) AddFixedExpense(ctx context.Context, in FixedExpenseInput) (*model.FixedExpense, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var fixed *model.FixedExpense
	err = a.confirmed(state.ResourceFixedExpenses, "add_fixed_expense", func() error {
		f, err := a.api.CreateFixedExpense(ctx, nest.ID, api.CreateFixedExpenseRequest{
			Title:  in.Title,
			Amount: in.Amount,
			Day:    in.Day,
			UserID: me.ID,
		})
		if err != nil {
			return fmt.Errorf("add fixed expense: %w", err)
		}
		a.state.UpsertFixedExpense(*f)
		fixed = f
		return nil
	})
	return fixed, err
}

func (a *Actions) DeleteFixedExpense(ctx context.Context, fixedID int64) error {
	me, nest, err := a.member()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceFixedExpenses, "delete_fixed_expense", func() error {
		if err := a.api.DeleteFixedExpense(ctx, nest.ID, fixedID, me.ID); err != nil {
			return fmt.Errorf("delete fixed expense: %w", err)
		}
		a.state.RemoveFixedExpense(fixedID)
		return nil
	})
}
