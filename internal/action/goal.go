package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type GoalInput struct {
	Type   model.GoalType `validate:"goal_type"`
	Title  string         `validate:"required,max=50"`
	Target int
	Unit   string `validate:"max=10"`
}

func (a *Actions) AddGoal(ctx context.Context, in GoalInput) (*model.Goal, error) {
	me, nest, err := a.master()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var goal *model.Goal
	err = a.confirmed(state.ResourceGoals, "add_goal", func() error {
		g, err := a.api.CreateGoal(ctx, nest.ID, api.CreateGoalRequest{
			Type:   in.Type,
			Title:  in.Title,
			Target: in.Target,
			Unit:   in.Unit,
			UserID: me.ID,
		})
		if err != nil {
			return fmt.Errorf("add goal: %w", err)
		}
		a.state.UpsertGoal(*g)
		goal = g
		return nil
	})
	return goal, err
}

// IncrementGoalProgress adds amount to the goal. The backend stops it at the target.
func (a *Actions) IncrementGoalProgress(ctx context.Context, goalID int64, amount int) (*model.Goal, error) {
	if amount <= 0 {
		return nil, &InputError{Fields: []string{"amount must be positive"}}
	}
	return a.addProgress(ctx, goalID, amount, "increment_goal_progress")
}

// DecrementGoalProgress subtracts amount from the goal. The backend stops it at zero.
func (a *Actions) DecrementGoalProgress(ctx context.Context, goalID int64, amount int) (*model.Goal, error) {
	if amount <= 0 {
		return nil, &InputError{Fields: []string{"amount must be positive"}}
	}
	return a.addProgress(ctx, goalID, -amount, "decrement_goal_progress")
}

func (a *Actions) addProgress(ctx context.Context, goalID int64, delta int, name string) (*model.Goal, error) {
	me, nest, err := a.member()
	if err != nil {
		return nil, err
	}
	// The server clamps; the local copy may be stale, so the delta is always sent.
	if _, ok := findByID(a.state.Goals(), goalID, func(g model.Goal) int64 { return g.ID }); !ok {
		return nil, fmt.Errorf("%s %d: %w", name, goalID, ErrUnknownItem)
	}

	var goal *model.Goal
	err = a.confirmed(state.ResourceGoals, name, func() error {
		g, err := a.api.AddGoalProgress(ctx, nest.ID, goalID, delta, me.ID)
		if err != nil {
			return fmt.Errorf("update goal progress: %w", err)
		}
		a.state.UpsertGoal(*g)
		goal = g
		return nil
	})
	return goal, err
}

func (a *Actions) DeleteGoal(ctx context.Context, goalID int64) error {
	me, nest, err := a.master()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceGoals, "delete_goal", func() error {
		if err := a.api.DeleteGoal(ctx, nest.ID, goalID, me.ID); err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		a.state.RemoveGoal(goalID)
		return nil
	})
}
