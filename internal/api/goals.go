package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/nestmate/internal/model"
)

type CreateGoalRequest struct {
	Type   model.GoalType `json:"type"`
	Title  string         `json:"title"`
	Target int            `json:"target"`
	Unit   string         `json:"unit"`
	UserID int64          `json:"user_id"`
}

type progressRequest struct {
	Delta  int   `json:"delta"`
	UserID int64 `json:"user_id"`
}

func (c *Client) ListGoals(ctx context.Context, nestID int64) ([]model.Goal, error) {
	var goals []model.Goal
	if err := c.do(ctx, http.MethodGet, nestPath(nestID, "goals"), 0, nil, &goals); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return listOrEmpty(goals), nil
}

func (c *Client) CreateGoal(ctx context.Context, nestID int64, req CreateGoalRequest) (*model.Goal, error) {
	var g model.Goal
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "goals"), req.UserID, req, &g); err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}
	return &g, nil
}

// AddGoalProgress applies delta on the server, which clamps the result.
func (c *Client) AddGoalProgress(ctx context.Context, nestID, goalID int64, delta int, userID int64) (*model.Goal, error) {
	var g model.Goal
	body := progressRequest{Delta: delta, UserID: userID}
	if err := c.do(ctx, http.MethodPost, nestPath(nestID, "goals", goalID, "progress"), userID, body, &g); err != nil {
		return nil, fmt.Errorf("update goal progress: %w", err)
	}
	return &g, nil
}

func (c *Client) DeleteGoal(ctx context.Context, nestID, goalID, userID int64) error {
	if err := c.do(ctx, http.MethodDelete, nestPath(nestID, "goals", goalID), userID, nil, nil); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
