package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateHouseRuleRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	RuleType    string `json:"rule_type"`
	Priority    int    `json:"priority"`
	UserID      int64  `json:"user_id"`
}

func (c *Client) ListHouseRules(ctx context.Context, nestID int64) ([]model.HouseRule, error) {
	var rules []model.HouseRule
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "house_rules"), 0, nil, &rules); err != nil {
		return nil, fmt.Errorf("list house rules: %w", err)
	}
	return listOrEmpty(rules), nil
}

func (c *Client) CreateHouseRule(ctx context.Context, nestID int64, req CreateHouseRuleRequest) (*model.HouseRule, error) {
	var r model.HouseRule
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "house_rules"), req.UserID, req, &r); err != nil {
		return nil, fmt.Errorf("create house rule: %w", err)
	}
	return &r, nil
}

func (c *Client) DeleteHouseRule(ctx context.Context, nestID, ruleID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "house_rules", ruleID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete house rule: %w", err)
	}
	return nil
}
