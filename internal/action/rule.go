package action

import (
	"context"
	"fmt"

	"github.com/dukerupert/nestmate/internal/api"
	"github.com/dukerupert/nestmate/internal/model"
	"github.com/dukerupert/nestmate/internal/state"
)

type RuleInput struct {
	Title       string `validate:"required,max=50"`
	Description string `validate:"max=500"`
	RuleType    string `validate:"max=20"`
	Priority    int    `validate:"gte=0"`
}

func (a *Actions) AddRule(ctx context.Context, in RuleInput) (*model.HouseRule, error) {
	me, nest, err := a.master()
	if err != nil {
		return nil, err
	}
	if err := a.check(in); err != nil {
		return nil, err
	}

	var rule *model.HouseRule
	err = a.confirmed(state.ResourceRules, "add_rule", func() error {
		r, err := a.api.CreateHouseRule(ctx, nest.ID, api.CreateHouseRuleRequest{
			Title:       in.Title,
			Description: in.Description,
			RuleType:    in.RuleType,
			Priority:    in.Priority,
			UserID:      me.ID,
		})
		if err != nil {
			return fmt.Errorf("add rule: %w", err)
		}
		a.state.UpsertRule(*r)
		rule = r
		return nil
	})
	return rule, err
}

func (a *Actions) DeleteRule(ctx context.Context, ruleID int64) error {
	me, nest, err := a.master()
	if err != nil {
		return err
	}
	return a.confirmed(state.ResourceRules, "delete_rule", func() error {
		if err := a.api.DeleteHouseRule(ctx, nest.ID, ruleID, me.ID); err != nil {
			return fmt.Errorf("delete rule: %w", err)
		}
		a.state.RemoveRule(ruleID)
		return nil
	})
}
